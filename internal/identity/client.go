// Package identity verifies caller tokens against the external identity
// service. The core trusts the role claim the service returns.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/campushq/docqa/internal/domain"
)

const requestTimeout = 10 * time.Second

// Client calls the identity service's verification endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type verifyResponse struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

// Verify resolves a bearer token to an identity. An empty or rejected token
// yields ErrInvalidToken; an unknown role claim is also rejected.
func (c *Client) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/verify", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.ErrInvalidToken
	default:
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var payload verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	role := domain.Role(payload.Role)
	if payload.Subject == "" || !domain.IsValidRole(string(role)) {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Identity{Subject: payload.Subject, Role: role}, nil
}
