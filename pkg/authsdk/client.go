package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the cityauth service. It provides the public
// operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a user holding the USER role and returns a session for it.
func (c *SDKClient) Register(ctx context.Context, username, password string) (*Session, error) {
	tokenResp, err := c.postCredentials(ctx, "/api/users/register", username, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// Login authenticates with username and password and returns a session.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	tokenResp, err := c.postCredentials(ctx, "/api/users/login", username, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// NewSessionFromToken wraps an access token obtained elsewhere. expiresIn is
// in seconds.
func (c *SDKClient) NewSessionFromToken(accessToken string, expiresIn int64) *Session {
	return newSession(c, &TokenResponse{Token: accessToken, ExpiresIn: expiresIn})
}

// Bootstrap creates the first administrator. It only succeeds once, and only
// with the token the service was started with.
func (c *SDKClient) Bootstrap(ctx context.Context, token string, req BootstrapRequest) (*BootstrapResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"X-Bootstrap-Token": token,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/bootstrap", bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}

	var out BootstrapResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) postCredentials(ctx context.Context, path, username, password string) (*TokenResponse, error) {
	body, err := json.Marshal(CredentialsRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	resp, err := c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
