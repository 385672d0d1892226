package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetLiveness reports whether the process is serving requests.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/livez")
}

// GetReadiness reports whether the database and schema are usable. A
// degraded service answers 503 with a health report; it is returned along
// with the *APIError so callers can see which check failed.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/readyz")
}

func (c *SDKClient) getHealth(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("authsdk: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusServiceUnavailable:
	default:
		return nil, parseErrorResponse(resp, body)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("authsdk: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, &APIError{
			StatusCode:  resp.StatusCode,
			Code:        health.Status,
			Description: "service not ready",
		}
	}
	return &health, nil
}
