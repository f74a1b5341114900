// Package session owns the single authenticated session of a taskman process:
// login through an identity client, the current access token, and periodic renewal.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"taskman/internal/logging"
	"taskman/internal/service"
)

const (
	// DefaultRenewInterval is how often the renewal loop ticks.
	DefaultRenewInterval = 25 * time.Second

	// DefaultRefreshWindow is how close to expiry a token must be before a tick refreshes it.
	DefaultRefreshWindow = 30 * time.Second

	initKey = "initialize"
)

// IdentityClient performs the provider-side half of the session.
type IdentityClient interface {
	// Login runs the login flow and returns a token with a non-empty access token.
	Login(ctx context.Context) (*oauth2.Token, error)

	// Refresh returns a token valid for longer than window, refreshing tok if needed.
	// It may return tok itself when no refresh is due.
	Refresh(ctx context.Context, tok *oauth2.Token, window time.Duration) (*oauth2.Token, error)

	// Logout ends the provider session and forgets any cached token.
	Logout(ctx context.Context, tok *oauth2.Token) error
}

// Options configure a Session.
type Options struct {
	RenewInterval time.Duration
	RefreshWindow time.Duration
	Logger        *log.Logger
}

// Session is the authenticated identity state of the process.
// It is the only writer of its token; everything else reads through
// AccessToken, Claims and User. It is safe for concurrent use.
type Session struct {
	idp    IdentityClient
	opts   Options
	logger *log.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	state  State
	token  *oauth2.Token
	claims Claims
	err    error
	// gen counts logouts. A login that started before the latest logout
	// is not committed.
	gen uint64

	renewMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a session in StateUninitialized. Nothing happens until Initialize.
func New(idp IdentityClient, opts Options) *Session {
	if opts.RenewInterval <= 0 {
		opts.RenewInterval = DefaultRenewInterval
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		idp:    idp,
		opts:   opts,
		logger: logger.WithPrefix("session"),
	}
}

// Initialize logs in and starts token renewal.
//
// Only one login flow runs at a time: concurrent callers wait for and share
// the in-flight attempt. Once authenticated, further calls return at once.
// After a failure a later call starts a new attempt. Failures wrap
// ErrAuthentication and leave the session unauthenticated without renewal.
func (s *Session) Initialize(ctx context.Context) (bool, error) {
	if s.Authenticated() {
		return true, nil
	}
	_, err, _ := s.group.Do(initKey, func() (interface{}, error) {
		return nil, s.initialize(ctx)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateAuthenticated {
		s.mu.Unlock()
		return nil
	}
	s.state = StateInitializing
	s.err = nil
	gen := s.gen
	s.mu.Unlock()

	s.logger.Debug("starting login")
	tok, err := s.idp.Login(ctx)
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = errors.New("identity provider returned no access token")
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrAuthentication, err)
		s.mu.Lock()
		if s.gen == gen {
			s.state = StateFailed
			s.token = nil
			s.claims = Claims{}
			s.err = err
		}
		s.mu.Unlock()
		s.logger.Debug("login failed", "err", err)
		return err
	}

	claims := ParseClaims(tok)
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Info("discarding login that finished after logout")
		if err := s.idp.Logout(ctx, tok); err != nil {
			s.logger.Warn("provider logout of discarded login failed", "err", err)
		}
		return fmt.Errorf("%w: logged out during login", ErrAuthentication)
	}
	s.state = StateAuthenticated
	s.token = tok
	s.claims = claims
	s.mu.Unlock()
	s.logger.Info("logged in", "user", claims.Username, "expires", claims.ExpiresAt)

	s.startRenewal(gen)
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error of the last failed initialization, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateAuthenticated
}

// AccessToken returns the current bearer token.
// The second result is true iff the session is authenticated.
// Callers must read it per use rather than keeping the string.
func (s *Session) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateAuthenticated || s.token == nil {
		return "", false
	}
	return s.token.AccessToken, true
}

// Claims returns the identity claims of the current token.
func (s *Session) Claims() Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// User returns the session identity in service form.
func (s *Session) User() service.User {
	return s.Claims().User()
}

// Renew runs one renewal attempt. The renewal loop calls it on every tick.
// A failure wraps ErrRenewal and keeps the current token.
func (s *Session) Renew(ctx context.Context) error {
	s.mu.RLock()
	tok := s.token
	authenticated := s.state == StateAuthenticated
	s.mu.RUnlock()
	if !authenticated || tok == nil {
		return ErrNotAuthenticated
	}

	fresh, err := s.idp.Refresh(ctx, tok, s.opts.RefreshWindow)
	if err == nil && (fresh == nil || fresh.AccessToken == "") {
		err = errors.New("identity provider returned no access token")
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRenewal, err)
	}
	if fresh == tok {
		return nil
	}

	claims := ParseClaims(fresh)
	s.mu.Lock()
	// A logout or re-login since the read wins over this refresh.
	if s.state == StateAuthenticated && s.token == tok {
		s.token = fresh
		s.claims = claims
	}
	s.mu.Unlock()
	s.logger.Debug("token refreshed", "expires", claims.ExpiresAt)
	return nil
}

// startRenewal starts the loop unless a logout happened since generation gen.
func (s *Session) startRenewal(gen uint64) {
	s.renewMu.Lock()
	defer s.renewMu.Unlock()
	if s.cancel != nil {
		return
	}
	s.mu.RLock()
	stale := s.gen != gen
	s.mu.RUnlock()
	if stale {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.renewLoop(ctx, done)
}

func (s *Session) renewLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Renew(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("token refresh failed, retrying on next tick", "err", err)
			}
		}
	}
}

// Close stops token renewal and waits for the loop to exit.
// It is safe to call more than once and before Initialize.
func (s *Session) Close() {
	s.renewMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.renewMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Logout stops renewal, clears the token and asks the identity client to end
// the provider session. Local state is cleared even if the provider call fails.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	tok := s.token
	s.gen++
	s.state = StateUninitialized
	s.token = nil
	s.claims = Claims{}
	s.err = nil
	s.mu.Unlock()

	s.Close()

	if err := s.idp.Logout(ctx, tok); err != nil {
		s.logger.Warn("provider logout failed", "err", err)
		return fmt.Errorf("provider logout: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}
