package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies that login is rate limited. The strict
// limit allows a burst of 5 per client address.
func TestRateLimitLoginEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainerWithDefaultRateLimits(t))

	for i := range 5 {
		_, err := client.Login(t.Context(), "wronguser", "wrongpass")
		require.Error(t, err)
		require.False(t, authsdk.IsStatus(err, http.StatusTooManyRequests),
			"should not be rate limited yet (request %d)", i+1)
	}

	_, err := client.Login(t.Context(), "wronguser", "wrongpass")
	assertStatus(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimitExceeded)
}

// TestRateLimitBootstrapEndpoint verifies that bootstrap has its own strict
// bucket.
func TestRateLimitBootstrapEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainerWithDefaultRateLimits(t))

	req := authsdk.BootstrapRequest{AdminUsername: adminUsername, AdminPassword: adminPassword}
	for range 5 {
		_, err := client.Bootstrap(t.Context(), "wrong-token", req)
		assertStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)
	}

	_, err := client.Bootstrap(t.Context(), bootstrapToken, req)
	assertStatus(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimitExceeded)

	// Login is limited separately.
	_, err = client.Login(t.Context(), "wronguser", "wrongpass")
	assertStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)
}
