package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresSchedules(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	require.NoError(t, registry.Register(jobA, time.Hour))
	require.NoError(t, registry.Register(jobB, time.Minute))

	schedules := registry.Schedules()
	require.Len(t, schedules, 2)
	assert.Same(t, jobA, schedules[0].Job)
	assert.Equal(t, time.Minute, schedules[1].Every)

	// callers cannot mutate the internal slice
	schedules[0].Job = nil
	assert.NotNil(t, registry.Schedules()[0].Job)

	found, ok := registry.Lookup("b")
	require.True(t, ok)
	assert.Same(t, jobB, found)
	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	registry := NewRegistry()
	require.Error(t, registry.Register(nil, time.Hour))
	require.Error(t, registry.Register(&stubJob{name: "a"}, 0))
	require.NoError(t, registry.Register(&stubJob{name: "a"}, time.Hour))
	require.Error(t, registry.Register(&stubJob{name: "a"}, time.Hour))
}
