// Package client is the inventory API access layer: it hydrates devices from
// their detail, assigned-server and coverage endpoints, memoizes them, and
// walks paginated listings.
package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"asm-inventory/config"
	"asm-inventory/internal/auth"
	"asm-inventory/internal/cache"
	"asm-inventory/internal/executor"
	"asm-inventory/internal/logging"
)

type (
	// APIError reports a resource API failure; see executor.APIError.
	APIError = executor.APIError
	// AuthenticationError reports a refused token exchange; see auth.AuthenticationError.
	AuthenticationError = auth.AuthenticationError
)

// Authenticator is the token holder's "authenticate if needed" contract.
type Authenticator interface {
	Authenticate(ctx context.Context) error
	EnsureAuthenticated(ctx context.Context) error
}

// Getter performs one paced, retried, authenticated GET.
type Getter interface {
	Get(ctx context.Context, url string) (*executor.Response, error)
}

// Client fetches and memoizes inventory records.
type Client struct {
	auth     Authenticator
	exec     Getter
	baseURL  string
	pageSize int
	cache    *cache.EntityCache
	flight   *singleflight.Group
	log      zerolog.Logger
}

// Option configures New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	clock      executor.Clock
	log        *zerolog.Logger
}

// WithHTTPClient overrides the HTTP client used for both token and resource calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock overrides the clock used for pacing, backoff, and assertion timestamps.
func WithClock(c executor.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// New wires a Client from configuration: signer, authenticator, executor and an empty cache.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	log := logging.WithComponent("client")
	if o.log != nil {
		log = *o.log
	}
	if o.clock == nil {
		o.clock = executor.RealClock()
	}
	if o.httpClient == nil {
		httpClient, err := newHTTPClient(cfg.API)
		if err != nil {
			return nil, err
		}
		o.httpClient = httpClient
	}

	signer := auth.NewSigner(cfg.Credentials.KeyID, cfg.Credentials.ClientID, cfg.Credentials.PrivateKeyPath, cfg.API.Audience)
	authenticator := auth.NewAuthenticator(signer, o.httpClient, cfg.API.TokenURL, cfg.Credentials.ClientID, cfg.API.Scope,
		auth.WithClock(o.clock.Now),
		auth.WithLogger(log.With().Str("stage", "auth").Logger()),
	)
	exec := executor.New(o.httpClient, authenticator, o.clock, executor.Config{
		PacingEnabled:     !cfg.API.DisablePacing,
		PacingInterval:    cfg.API.PacingInterval,
		RetryInitialDelay: cfg.API.RetryInitialDelay,
		MaxRetries:        cfg.API.MaxRetries,
	}, log.With().Str("stage", "executor").Logger())

	return NewWithDeps(Deps{
		Auth:     authenticator,
		Executor: exec,
		BaseURL:  cfg.API.BaseURL,
		PageSize: cfg.API.PageSize,
		Logger:   log,
	}), nil
}

// Deps are the collaborators of a Client.
type Deps struct {
	Auth     Authenticator
	Executor Getter
	BaseURL  string
	PageSize int
	Logger   zerolog.Logger
}

// NewWithDeps builds a Client around existing collaborators and a fresh cache.
func NewWithDeps(d Deps) *Client {
	if d.PageSize <= 0 {
		d.PageSize = 100
	}
	return &Client{
		auth:     d.Auth,
		exec:     d.Executor,
		baseURL:  d.BaseURL,
		pageSize: d.PageSize,
		cache:    cache.New(),
		flight:   &singleflight.Group{},
		log:      d.Logger,
	}
}

// WithFreshCache returns a Client sharing this one's authenticator and
// executor (token and pacing) but owning a new, empty cache.
func (c *Client) WithFreshCache() *Client {
	clone := *c
	clone.cache = cache.New()
	clone.flight = &singleflight.Group{}
	return &clone
}

// Authenticate obtains and stores a fresh access token.
func (c *Client) Authenticate(ctx context.Context) error {
	return c.auth.Authenticate(ctx)
}

// EnsureAuthenticated authenticates only if no token is held yet.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	return c.auth.EnsureAuthenticated(ctx)
}

// Cache exposes the entity cache for introspection.
func (c *Client) Cache() *cache.EntityCache {
	return c.cache
}

func newHTTPClient(cfg config.APIConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

// endpoint joins path segments onto the base URL. Each segment is escaped
// so a serial or ID can never add or climb path levels.
func (c *Client) endpoint(segments ...string) (string, error) {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = escapeSegment(seg)
	}
	return url.JoinPath(c.baseURL, escaped...)
}

func escapeSegment(seg string) string {
	if seg == "." || seg == ".." {
		return strings.ReplaceAll(seg, ".", "%2E")
	}
	return url.PathEscape(seg)
}
