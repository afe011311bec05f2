package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerops/amazon-connector/internal/spapi"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// Connector manages the stored SP-API credential.
type Connector interface {
	Connect(ctx context.Context, cred *domain.Credential) error
	Status() (*domain.Credential, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// ConnectHandler handles credential connect, status, and refresh endpoints.
type ConnectHandler struct {
	connector Connector
}

// NewConnectHandler creates a new ConnectHandler.
func NewConnectHandler(c Connector) *ConnectHandler {
	return &ConnectHandler{connector: c}
}

// ConnectInput is the request body for connecting an SP-API account.
type ConnectInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" doc:"LWA refresh token"              minLength:"1"`
		ClientID     string `json:"client_id"     doc:"LWA client ID"                  minLength:"1"`
		ClientSecret string `json:"client_secret" doc:"LWA client secret"              minLength:"1"`
		AppID        string `json:"app_id,omitempty" doc:"Seller Central application ID"`
	}
}

// ConnectOutput is the response for a successful connect.
type ConnectOutput struct {
	Body struct {
		Status      string    `json:"status" example:"connected"`
		ConnectedAt time.Time `json:"connected_at"`
	}
}

// ConnectionStatusOutput describes the stored credential state.
type ConnectionStatusOutput struct {
	Body struct {
		Connected   bool      `json:"connected"`
		AppID       string    `json:"app_id,omitempty"`
		ConnectedAt time.Time `json:"connected_at,omitzero"`
		ExpiresAt   time.Time `json:"expires_at,omitzero"`
	}
}

// RefreshTokenOutput is the response for a manual token refresh.
type RefreshTokenOutput struct {
	Body struct {
		Status    string    `json:"status" example:"refreshed"`
		ExpiresAt time.Time `json:"expires_at,omitzero"`
	}
}

// Connect stores a new credential and verifies it against LWA.
func (h *ConnectHandler) Connect(ctx context.Context, input *ConnectInput) (*ConnectOutput, error) {
	cred := &domain.Credential{
		RefreshToken: input.Body.RefreshToken,
		ClientID:     input.Body.ClientID,
		ClientSecret: input.Body.ClientSecret,
		AppID:        input.Body.AppID,
	}

	if err := h.connector.Connect(ctx, cred); err != nil {
		if errors.Is(err, spapi.ErrReconnectRequired) {
			return nil, huma.Error401Unauthorized("credential rejected by Amazon: " + err.Error())
		}
		return nil, huma.Error500InternalServerError("connecting account failed: " + err.Error())
	}

	resp := &ConnectOutput{}
	resp.Body.Status = "connected"
	resp.Body.ConnectedAt = cred.ConnectedAt
	return resp, nil
}

// ConnectionStatus reports whether a working credential is stored.
func (h *ConnectHandler) ConnectionStatus(
	_ context.Context,
	_ *struct{},
) (*ConnectionStatusOutput, error) {
	resp := &ConnectionStatusOutput{}

	cred, err := h.connector.Status()
	if err != nil {
		if errors.Is(err, spapi.ErrReconnectRequired) {
			resp.Body.Connected = false
			return resp, nil
		}
		return nil, huma.Error500InternalServerError("reading credential failed: " + err.Error())
	}

	resp.Body.Connected = true
	resp.Body.AppID = cred.AppID
	resp.Body.ConnectedAt = cred.ConnectedAt
	resp.Body.ExpiresAt = cred.ExpiresAt
	return resp, nil
}

// RefreshToken forces an access-token refresh outside the normal expiry
// schedule.
func (h *ConnectHandler) RefreshToken(
	ctx context.Context,
	_ *struct{},
) (*RefreshTokenOutput, error) {
	if _, err := h.connector.ForceRefresh(ctx); err != nil {
		if errors.Is(err, spapi.ErrReconnectRequired) {
			return nil, huma.Error401Unauthorized("reconnection required: " + err.Error())
		}
		return nil, huma.Error502BadGateway("token refresh failed: " + err.Error())
	}

	resp := &RefreshTokenOutput{}
	resp.Body.Status = "refreshed"
	if cred, err := h.connector.Status(); err == nil {
		resp.Body.ExpiresAt = cred.ExpiresAt
	}
	return resp, nil
}

// RegisterConnectRoutes registers credential endpoints with the Huma API.
func RegisterConnectRoutes(api huma.API, h *ConnectHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "connect-account",
		Method:      http.MethodPost,
		Path:        "/api/v1/connect",
		Summary:     "Connect an SP-API account",
		Description: "Stores the LWA refresh token and client credentials, then verifies them with a token exchange.",
		Tags:        []string{"connection"},
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, h.Connect)

	huma.Register(api, huma.Operation{
		OperationID: "connection-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/connection",
		Summary:     "Connection status",
		Description: "Reports whether a working SP-API credential is stored.",
		Tags:        []string{"connection"},
	}, h.ConnectionStatus)

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/api/v1/connection/refresh",
		Summary:     "Manually refresh the access token",
		Description: "Forces an access-token refresh outside the normal expiry schedule.",
		Tags:        []string{"connection"},
		Errors:      []int{http.StatusUnauthorized, http.StatusBadGateway},
	}, h.RefreshToken)
}
