package auth_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/cityauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRegisterAndLogin verifies the credential endpoints.
func TestRegisterAndLogin(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t))
	ctx := t.Context()

	session, id := register(t, client, "alice", "alice-password")
	require.NotEmpty(t, session.AccessToken())
	require.False(t, session.ExpiresAt().IsZero())

	_, err := client.Register(ctx, "alice", "another-password")
	assertStatus(t, err, http.StatusConflict, authsdk.ErrorCodeConflict)

	_, err = client.Register(ctx, "blank", "   ")
	assertStatus(t, err, http.StatusBadRequest, "")

	login, err := client.Login(ctx, "alice", "alice-password")
	require.NoError(t, err)

	me, err := login.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, id, me.ID)

	_, err = client.Login(ctx, "alice", "wrong-password")
	assertStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)

	_, err = client.Login(ctx, "nobody", "alice-password")
	assertStatus(t, err, http.StatusUnauthorized, authsdk.ErrorCodeUnauthorized)
}

// TestUserDirectory verifies listing, lookup and admin-only deletion.
func TestUserDirectory(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t))
	ctx := t.Context()

	admin := bootstrapAdmin(t, client)
	alice, aliceID := register(t, client, "alice", "alice-password")
	_, bobID := register(t, client, "bob", "bob-password")

	users, err := alice.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	bob, err := alice.GetUser(ctx, bobID)
	require.NoError(t, err)
	require.Equal(t, "bob", bob.Username)

	err = alice.DeleteUser(ctx, bobID)
	assertStatus(t, err, http.StatusForbidden, authsdk.ErrorCodeForbidden)

	require.NoError(t, admin.DeleteUser(ctx, bobID))

	_, err = alice.GetUser(ctx, bobID)
	assertStatus(t, err, http.StatusNotFound, authsdk.ErrorCodeNotFound)

	err = admin.DeleteUser(ctx, bobID)
	assertStatus(t, err, http.StatusNotFound, authsdk.ErrorCodeNotFound)

	// A deleted user's token stops working even though it has not expired.
	require.NoError(t, admin.DeleteUser(ctx, aliceID))
	_, err = alice.CurrentUser(ctx)
	assertStatus(t, err, http.StatusUnauthorized, "")
}
