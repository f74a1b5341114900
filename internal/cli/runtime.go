package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"taskman/internal/backend/rest"
	"taskman/internal/commands"
	"taskman/internal/config"
	"taskman/internal/identity"
	"taskman/internal/service"
	"taskman/internal/session"
)

// Runtime is what a dispatched command runs against: the session and the
// backend it authorizes.
type Runtime interface {
	commands.Authenticator

	// Service blocks until the session is initialized and returns the backend.
	// Errors wrap session.ErrAuthentication when login did not complete.
	Service(ctx context.Context) (service.Service, error)

	// Close stops background work such as token renewal.
	Close()
}

// RuntimeFactory creates a Runtime from config.
// Used to inject the backend during dispatch.
type RuntimeFactory func(ctx context.Context, cfg *config.Config) (Runtime, error)

// appRuntime wires the identity client, the session and the REST backend.
type appRuntime struct {
	sess *session.Session
	api  *rest.Client
}

// NewRuntime is the production RuntimeFactory.
func NewRuntime(ctx context.Context, cfg *config.Config) (Runtime, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w (edit %s)", err, cfg.SettingsPath())
	}
	logger := cfg.Log()

	idp, err := identity.New(identity.Config{
		Issuer:       cfg.Settings.Issuer,
		ClientID:     cfg.Settings.ClientID,
		ClientSecret: cfg.Settings.ClientSecret,
		Scopes:       cfg.Settings.Scopes,
		CallbackPort: cfg.Settings.CallbackPort,
		TokenPath:    cfg.TokenPath(),
		Prompt:       os.Stderr,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	sess := session.New(idp, session.Options{
		RenewInterval: time.Duration(cfg.Settings.RenewInterval),
		RefreshWindow: time.Duration(cfg.Settings.RefreshWindow),
		Logger:        logger,
	})

	api, err := rest.New(cfg.Settings.APIURL, sess, rest.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &appRuntime{sess: sess, api: api}, nil
}

func (r *appRuntime) Login(ctx context.Context) (service.User, error) {
	if _, err := r.sess.Initialize(ctx); err != nil {
		return service.User{}, err
	}
	return r.sess.User(), nil
}

func (r *appRuntime) Logout(ctx context.Context) error {
	return r.sess.Logout(ctx)
}

func (r *appRuntime) Service(ctx context.Context) (service.Service, error) {
	if _, err := r.sess.Initialize(ctx); err != nil {
		return nil, err
	}
	return r.api, nil
}

func (r *appRuntime) Close() {
	r.sess.Close()
}
