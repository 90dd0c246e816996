package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookstall-backend/pkg/config"
)

func TestCheckMode(t *testing.T) {
	for raw, want := range map[string]string{"": testEnv, " LIVE ": liveEnv, "test": testEnv} {
		got, err := checkMode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := checkMode("staging")
	require.ErrorContains(t, err, `"staging"`)
}

func TestCheckKey(t *testing.T) {
	cases := []struct {
		mode, key string
		ok        bool
	}{
		{testEnv, "sk_test_123", true},
		{testEnv, "rk_test_123", true},
		{testEnv, "sk_live_123", false},
		{liveEnv, "rk_live_123", true},
		{liveEnv, "sk_test_123", false},
		{liveEnv, "sk_live", false},
	}
	for _, tc := range cases {
		err := checkKey(tc.mode, tc.key)
		if tc.ok {
			assert.NoError(t, err, tc.key)
		} else {
			assert.Error(t, err, tc.key)
		}
	}
	require.ErrorIs(t, checkKey(testEnv, ""), errAPIKeyRequired)
}

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Env: "test"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_abc", Env: "live"}, nil)
	require.Error(t, err)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: " sk_test_abc ", Env: "test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, testEnv, client.Mode())
	assert.Equal(t, "sk_test_abc", client.sessions.Key)

	var nilClient *Client
	assert.Empty(t, nilClient.Mode())
}

func TestCheckoutSessionGuards(t *testing.T) {
	client := &Client{mode: testEnv}

	_, err := client.CreateCheckoutSession(context.Background(), nil)
	require.ErrorIs(t, err, errParamsRequired)

	_, err = client.GetCheckoutSession(context.Background(), " ")
	require.ErrorIs(t, err, errSessionIDMissing)
}
