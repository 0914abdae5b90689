package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	grantTypeClientCredentials = "client_credentials"
	assertionTypeJWTBearer     = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AuthenticationError reports a token exchange the token endpoint refused.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Body)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Authenticator exchanges signed assertions for an access token and holds
// that token for the lifetime of the process.
type Authenticator struct {
	signer   *Signer
	client   HTTPClient
	tokenURL string
	clientID string
	scope    string
	now      func() time.Time
	log      zerolog.Logger

	mu    sync.Mutex
	token string
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock overrides the time source used for assertion timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Authenticator) { a.log = l }
}

// NewAuthenticator creates an Authenticator posting to tokenURL.
func NewAuthenticator(signer *Signer, client HTTPClient, tokenURL, clientID, scope string, opts ...Option) *Authenticator {
	a := &Authenticator{
		signer:   signer,
		client:   client,
		tokenURL: tokenURL,
		clientID: clientID,
		scope:    scope,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate signs a fresh assertion, exchanges it, and stores the
// resulting token. It is never retried.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.authenticateLocked(ctx)
}

// EnsureAuthenticated authenticates only if no token is held yet.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" {
		return nil
	}
	return a.authenticateLocked(ctx)
}

// Token returns the held access token, or "" before authentication.
func (a *Authenticator) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.token
}

func (a *Authenticator) authenticateLocked(ctx context.Context) error {
	assertion, err := a.signer.Sign(a.now())
	if err != nil {
		return err
	}

	// Form data must be application/x-www-form-urlencoded
	data := url.Values{}
	data.Set("grant_type", grantTypeClientCredentials)
	data.Set("client_id", a.clientID)
	data.Set("client_assertion", assertion)
	data.Set("scope", a.scope)
	data.Set("client_assertion_type", assertionTypeJWTBearer)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &AuthenticationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return &AuthenticationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	a.token = tokenResp.AccessToken
	a.log.Info().Str("scope", tokenResp.Scope).Int("expires_in", tokenResp.ExpiresIn).Msg("obtained access token")

	return nil
}
