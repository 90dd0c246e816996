package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsFirstSetKey(t *testing.T) {
	t.Setenv("BOOKSTALL_TEST_A", "")
	t.Setenv("BOOKSTALL_TEST_B", "second")
	t.Setenv("BOOKSTALL_TEST_C", "third")

	require.Equal(t, "second", Get("fallback", "BOOKSTALL_TEST_A", "BOOKSTALL_TEST_B", "BOOKSTALL_TEST_C"))
}

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("BOOKSTALL_TEST_A", "   ")
	require.Equal(t, "fallback", Get("fallback", "BOOKSTALL_TEST_A"))
	require.Equal(t, "fallback", Get("fallback"))
}
