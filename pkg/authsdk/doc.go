/*
Package authsdk provides a client SDK for the cityauth authentication service.

# SDKClient vs Session

The package is organized around two types:

  - SDKClient: public operations (register, login, bootstrap, health) and session creation
  - Session: operations that need a bearer token

Create an SDKClient to talk to the public endpoints:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Check service health
	health, err := client.GetLiveness(ctx)

	// Create the first administrator (one-time setup)
	admin, err := client.Bootstrap(ctx, bootstrapToken, authsdk.BootstrapRequest{
		AdminUsername: "root",
		AdminPassword: "change-me",
	})

	// Register or log in to get a session
	session, err := client.Register(ctx, "alice", "wonderland")
	session, err = client.Login(ctx, "alice", "wonderland")

Use a Session for authenticated operations:

	me, err := session.CurrentUser(ctx)

	// Ask for an additional role
	req, err := session.RequestRoleChange(ctx, me.ID, "MODERATOR")

	// As an ADMIN, decide on it
	pending, err := adminSession.ListRoleRequests(ctx, authsdk.RoleRequestPending)
	_, err = adminSession.ApproveRoleRequest(ctx, pending[0].ID)

# Tokens

Access tokens are stateless HS256 JWTs. There is no refresh flow: once a
session's token expires every call returns ErrSessionExpired and the caller
must log in again. Roles are captured when the token is issued, so after a
role change is approved the user has to log in again to carry the new role.

# Errors

Every non-success response is returned as an *APIError carrying the HTTP
status and the service's error code:

	_, err := client.Login(ctx, "alice", "wrong")
	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// bad credentials
	}

Validation failures additionally carry per-field details in APIError.Details.

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
