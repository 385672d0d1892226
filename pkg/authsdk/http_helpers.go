package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

const userAgent = "cityauth-authsdk"

// send performs one request against the service. header may be nil.
func (c *SDKClient) send(
	ctx context.Context,
	method, path string,
	body io.Reader,
	header http.Header,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("authsdk: build %s %s: %w", method, path, err)
	}

	for key, values := range header {
		req.Header[key] = values
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authsdk: %s %s: %w", method, path, err)
	}
	return resp, nil
}

// doRequest performs an unauthenticated request.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	header := make(http.Header, len(headers))
	for key, value := range headers {
		header.Set(key, value)
	}
	return c.send(ctx, method, path, body, header)
}

// doAuthRequest performs a request carrying the session's bearer token. It
// fails with ErrSessionExpired without contacting the service once the
// token has lapsed.
func (s *Session) doAuthRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	token, err := s.validToken()
	if err != nil {
		return nil, err
	}

	header := make(http.Header, len(headers)+1)
	for key, value := range headers {
		header.Set(key, value)
	}
	header.Set("Authorization", "Bearer "+token)

	return s.client.send(ctx, method, path, body, header)
}

// readResponse consumes and closes the body. A status other than expected
// becomes an *APIError.
func readResponse(resp *http.Response, expected int) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("authsdk: read response: %w", err)
	}
	if resp.StatusCode != expected {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}

// decodeJSON reads a response expected to carry expectedStatus and decodes
// its body into target.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	body, err := readResponse(resp, expectedStatus)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("authsdk: decode response: %w", err)
	}
	return nil
}

// checkStatusNoContent reads a response expected to be 204 No Content.
func checkStatusNoContent(resp *http.Response) error {
	_, err := readResponse(resp, http.StatusNoContent)
	return err
}
