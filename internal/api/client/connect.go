package client

import (
	"context"
	"time"
)

// ConnectRequest holds the LWA credentials to install.
type ConnectRequest struct {
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AppID        string `json:"app_id,omitempty"`
}

// ConnectResult is the server's confirmation of an installed credential.
type ConnectResult struct {
	Status      string    `json:"status"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ConnectionStatus describes the installed credential, secrets stripped.
type ConnectionStatus struct {
	Connected   bool      `json:"connected"`
	AppID       string    `json:"app_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitzero"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// RefreshResult is the server's confirmation of a forced token refresh.
type RefreshResult struct {
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Connect installs and verifies LWA credentials on the server.
func (c *Client) Connect(ctx context.Context, req ConnectRequest) (*ConnectResult, error) {
	var result ConnectResult
	if err := c.post(ctx, "/api/v1/connect", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetConnectionStatus returns the state of the installed credential.
func (c *Client) GetConnectionStatus(ctx context.Context) (*ConnectionStatus, error) {
	var status ConnectionStatus
	if err := c.get(ctx, "/api/v1/connection", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RefreshConnection forces an access-token refresh on the server.
func (c *Client) RefreshConnection(ctx context.Context) (*RefreshResult, error) {
	var result RefreshResult
	if err := c.post(ctx, "/api/v1/connection/refresh", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
