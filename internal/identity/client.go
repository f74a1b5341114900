// Package identity implements the OpenID Connect identity client used by the session:
// redirect-based login with PKCE, token refresh, token caching and provider logout.
package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/skratchdot/open-golang/open"
	"golang.org/x/oauth2"

	"taskman/internal/logging"
)

const (
	// LoginTimeout bounds the wait for the browser to come back to the callback.
	LoginTimeout = 5 * time.Minute

	// Token exchange timeout
	exchangeTimeout = 30 * time.Second

	// cachedTokenWindow is the validity a cached token needs to skip the browser.
	cachedTokenWindow = 30 * time.Second
)

// Config holds the identity provider client settings.
type Config struct {
	// Issuer is the OIDC issuer URL; discovery reads its .well-known document.
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// CallbackPort is the first loopback port tried for the redirect. 0 picks any.
	CallbackPort int

	// TokenPath is where the token is cached between runs.
	TokenPath string

	// Prompt receives the login URL. Defaults to io.Discard.
	Prompt io.Writer

	// OpenBrowser opens the login URL. Defaults to the system browser.
	OpenBrowser func(url string) error

	// HTTPClient is used for discovery and token calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	Logger *log.Logger
}

// Client talks to the identity provider. It implements session.IdentityClient
// and is safe for concurrent use.
type Client struct {
	cfg    Config
	store  TokenStore
	logger *log.Logger

	mu         sync.Mutex
	oauth2     *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	endSession string
}

// New creates an identity client. Discovery is deferred to the first call
// that needs the provider, so a down provider surfaces as a login failure.
func New(cfg Config) (*Client, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	if cfg.Prompt == nil {
		cfg.Prompt = io.Discard
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = open.Run
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		cfg:    cfg,
		store:  TokenStore{Path: cfg.TokenPath},
		logger: logger.WithPrefix("identity"),
	}, nil
}

// Store returns the token cache.
func (c *Client) Store() TokenStore {
	return c.store
}

func (c *Client) httpContext(ctx context.Context) context.Context {
	return oidc.ClientContext(context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient), c.cfg.HTTPClient)
}

// discover loads the provider configuration once; failures are retried on the next call.
func (c *Client) discover(ctx context.Context) (*oauth2.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.oauth2 != nil {
		return c.oauth2, nil
	}

	provider, err := oidc.NewProvider(c.httpContext(ctx), c.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider %s: %w", c.cfg.Issuer, err)
	}

	var extra struct {
		EndSession string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		c.logger.Debug("discovery document has no readable extra claims", "err", err)
	}

	c.oauth2 = &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		Scopes:       c.cfg.Scopes,
	}
	c.verifier = provider.Verifier(&oidc.Config{ClientID: c.cfg.ClientID})
	c.endSession = extra.EndSession
	return c.oauth2, nil
}

// Login returns a usable token. A cached token that is still valid, or that
// can be refreshed, is used as-is; otherwise the browser login runs.
func (c *Client) Login(ctx context.Context) (*oauth2.Token, error) {
	cached, err := c.store.Load()
	if err != nil {
		c.logger.Warn("ignoring unreadable token cache", "err", err)
	}
	if cached != nil && (cached.RefreshToken != "" || cached.Valid()) {
		tok, err := c.Refresh(ctx, cached, cachedTokenWindow)
		if err == nil {
			c.logger.Debug("reusing cached token")
			return tok, nil
		}
		c.logger.Info("cached token unusable, starting browser login", "err", err)
	}
	return c.interactiveLogin(ctx)
}

func (c *Client) interactiveLogin(ctx context.Context) (*oauth2.Token, error) {
	conf, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}

	state := uuid.NewString()
	cb, err := listenCallback(c.cfg.CallbackPort, state)
	if err != nil {
		return nil, fmt.Errorf("could not bind to local port for login callback: %w", err)
	}
	defer cb.Close()

	// Copy so concurrent refreshes never see this login's redirect URL.
	loginConf := *conf
	loginConf.RedirectURL = cb.RedirectURL()

	verifier := oauth2.GenerateVerifier()
	authURL := loginConf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	fmt.Fprintln(c.cfg.Prompt, "Open this URL in your browser:")
	fmt.Fprintln(c.cfg.Prompt, authURL)
	if err := c.cfg.OpenBrowser(authURL); err != nil {
		c.logger.Debug("could not open browser", "err", err)
	}

	code, err := cb.Wait(ctx, LoginTimeout)
	if err != nil {
		return nil, err
	}

	exchangeCtx, cancel := context.WithTimeout(c.httpContext(ctx), exchangeTimeout)
	defer cancel()

	token, err := loginConf.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		c.mu.Lock()
		verifierOIDC := c.verifier
		c.mu.Unlock()
		if _, err := verifierOIDC.Verify(c.httpContext(ctx), rawIDToken); err != nil {
			return nil, fmt.Errorf("failed to verify ID token: %w", err)
		}
	}

	if err := c.save(token); err != nil {
		return nil, err
	}
	return token, nil
}

// Refresh returns tok while it stays valid for longer than window; otherwise
// it redeems the refresh token. A refreshed token is written to the cache.
func (c *Client) Refresh(ctx context.Context, tok *oauth2.Token, window time.Duration) (*oauth2.Token, error) {
	if tok == nil {
		return nil, errors.New("no token to refresh")
	}
	if tok.AccessToken != "" && (tok.Expiry.IsZero() || time.Until(tok.Expiry) > window) {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, errors.New("token expired and no refresh token is available")
	}

	conf, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}

	src := conf.TokenSource(c.httpContext(ctx), &oauth2.Token{RefreshToken: tok.RefreshToken})
	fresh, err := oauth2.ReuseTokenSourceWithExpiry(tok, src, window).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	if err := c.save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (c *Client) save(tok *oauth2.Token) error {
	if c.store.Path == "" {
		return nil
	}
	if err := c.store.Save(tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Logout forgets the cached token and, when the provider advertises an
// end_session_endpoint, ends the provider session with the refresh token.
// tok may be nil, in which case the cached token is used.
func (c *Client) Logout(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		tok, _ = c.store.Load()
	}
	if c.store.Path != "" {
		if err := c.store.Remove(); err != nil {
			return fmt.Errorf("failed to remove token: %w", err)
		}
	}
	if tok == nil || tok.RefreshToken == "" {
		return nil
	}

	if _, err := c.discover(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	endpoint := c.endSession
	c.mu.Unlock()
	if endpoint == "" {
		return nil
	}

	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"refresh_token": {tok.RefreshToken},
	}
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("end session request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("end session returned %s", resp.Status)
	}
	return nil
}
