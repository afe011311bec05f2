package spapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sellerops/amazon-connector/internal/metrics"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

const (
	defaultLWATokenURL = "https://api.amazon.com/auth/o2/token" //nolint:gosec // endpoint, not a credential

	// Treat a token as expired this far before its real expiry so a
	// worker never starts a call with a token about to die mid-flight.
	expiryBuffer = 5 * time.Minute

	// A refresh completed this recently satisfies every waiting caller;
	// a second network refresh inside the window would be redundant.
	refreshCooldown = 5 * time.Second
)

// CredentialStore abstracts where the SP-API credential lives. The file
// format and location are the store's concern, not the coordinator's.
type CredentialStore interface {
	Load() (*domain.Credential, error)
	Persist(*domain.Credential) error
	Clear() error
}

// TokenProvider yields a valid SP-API access token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)

	// ForceRefresh is the 401-recovery path: it refreshes unless another
	// caller already did within the cooldown, and returns the resulting
	// token either way.
	ForceRefresh(ctx context.Context) (string, error)
}

// LWATokenProvider implements TokenProvider over the Login-with-Amazon
// refresh-token grant. All mutation of the shared credential happens inside
// one mutex; callers that block on it re-check the cooldown after acquiring
// so N concurrent expired-token callers trigger exactly one network refresh.
type LWATokenProvider struct {
	store    CredentialStore
	tokenURL string
	client   *http.Client
	log      *slog.Logger

	mu              sync.Mutex
	cred            *domain.Credential
	lastRefreshTime time.Time

	nowFunc func() time.Time
}

// LWAOption configures the LWATokenProvider.
type LWAOption func(*LWATokenProvider)

// WithLWATokenURL overrides the LWA token endpoint.
func WithLWATokenURL(u string) LWAOption {
	return func(p *LWATokenProvider) {
		p.tokenURL = u
	}
}

// WithLWAHTTPClient overrides the HTTP client.
func WithLWAHTTPClient(c *http.Client) LWAOption {
	return func(p *LWATokenProvider) {
		p.client = c
	}
}

// WithLWANowFunc overrides the time source for testing.
func WithLWANowFunc(f func() time.Time) LWAOption {
	return func(p *LWATokenProvider) {
		p.nowFunc = f
	}
}

// WithLWALogger sets the logger.
func WithLWALogger(l *slog.Logger) LWAOption {
	return func(p *LWATokenProvider) {
		p.log = l
	}
}

// NewLWATokenProvider creates a token provider backed by the given store.
func NewLWATokenProvider(store CredentialStore, opts ...LWAOption) *LWATokenProvider {
	p := &LWATokenProvider{
		store:    store,
		tokenURL: defaultLWATokenURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		log:      slog.Default(),
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns a valid access token, refreshing under the lock when the
// current one is missing or inside the expiry buffer.
func (p *LWATokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return "", err
	}

	if p.validLocked() {
		return p.cred.AccessToken, nil
	}

	return p.refreshLocked(ctx)
}

// ForceRefresh refreshes the token unless one completed within the
// cooldown. Callers racing here after a 401 all end up with the token from
// the single refresh that actually ran.
func (p *LWATokenProvider) ForceRefresh(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return "", err
	}

	// Re-check under the lock: a caller that waited here may find the
	// refresh already done.
	if p.nowFunc().Sub(p.lastRefreshTime) < refreshCooldown && p.cred.AccessToken != "" {
		return p.cred.AccessToken, nil
	}

	return p.refreshLocked(ctx)
}

// Connect installs a new credential, persists it, and performs an immediate
// refresh to verify the grant actually works. A failed verification leaves
// no half-connected state: invalid grants clear the stored credential.
func (p *LWATokenProvider) Connect(ctx context.Context, cred *domain.Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred.ConnectedAt = p.nowFunc()
	if err := p.store.Persist(cred); err != nil {
		return fmt.Errorf("persisting credential: %w", err)
	}
	p.cred = cred
	p.lastRefreshTime = time.Time{}

	if _, err := p.refreshLocked(ctx); err != nil {
		return err
	}
	return nil
}

// Status reports the stored credential with its secrets stripped, without
// touching the network.
func (p *LWATokenProvider) Status() (*domain.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		return nil, err
	}

	cred := *p.cred
	cred.AccessToken = ""
	cred.RefreshToken = ""
	cred.ClientSecret = ""
	return &cred, nil
}

// LastRefresh returns when the provider last performed a network refresh.
func (p *LWATokenProvider) LastRefresh() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRefreshTime
}

func (p *LWATokenProvider) loadLocked() error {
	if p.cred != nil {
		return nil
	}
	cred, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}
	if cred == nil || cred.RefreshToken == "" {
		return ErrReconnectRequired
	}
	p.cred = cred
	return nil
}

func (p *LWATokenProvider) validLocked() bool {
	return p.cred.AccessToken != "" &&
		p.nowFunc().Before(p.cred.ExpiresAt.Add(-expiryBuffer))
}

type lwaTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type lwaErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *LWATokenProvider) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {p.cred.RefreshToken},
		"client_id":     {p.cred.ClientID},
		"client_secret": {p.cred.ClientSecret},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp lwaErrorResponse
		_ = json.Unmarshal(body, &errResp) //nolint:errcheck // best-effort error parsing

		// invalid_grant means the refresh token itself is dead. Clear
		// the stored credential so the UI prompts a reconnect instead
		// of retrying a refresh that can never succeed.
		if errResp.Error == "invalid_grant" || resp.StatusCode == http.StatusUnauthorized {
			p.invalidateLocked()
			return "", fmt.Errorf("%w: %s", ErrReconnectRequired, errResp.ErrorDescription)
		}

		return "", &APIError{
			Category: CategoryAuthentication,
			Status:   resp.StatusCode,
			Code:     errResp.Error,
			Message:  errResp.ErrorDescription,
		}
	}

	var tokenResp lwaTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}

	now := p.nowFunc()
	p.cred.AccessToken = tokenResp.AccessToken
	p.cred.ExpiresAt = now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	if tokenResp.RefreshToken != "" {
		p.cred.RefreshToken = tokenResp.RefreshToken
	}
	p.lastRefreshTime = now

	if err := p.store.Persist(p.cred); err != nil {
		// The in-memory token is still good; log and carry on.
		p.log.Error("persisting refreshed credential failed", "error", err)
	}

	metrics.TokenRefreshesTotal.Inc()
	p.log.Info("access token refreshed", "expires_at", p.cred.ExpiresAt)

	return p.cred.AccessToken, nil
}

func (p *LWATokenProvider) invalidateLocked() {
	p.cred = nil
	if err := p.store.Clear(); err != nil {
		p.log.Error("clearing invalidated credential failed", "error", err)
	}
}
