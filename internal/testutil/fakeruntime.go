package testutil

import (
	"context"
	"sync"

	"taskman/internal/service"
)

// FakeRuntime is a session stand-in over a FakeService. It satisfies
// commands.Authenticator and cli.Runtime.
type FakeRuntime struct {
	Svc *FakeService

	// Error injection
	LoginErr   error
	LogoutErr  error
	ServiceErr error

	mu           sync.Mutex
	logins       int
	logouts      int
	serviceCalls int
	closed       bool
}

// NewFakeRuntime creates a runtime backed by svc.
func NewFakeRuntime(svc *FakeService) *FakeRuntime {
	return &FakeRuntime{Svc: svc}
}

func (r *FakeRuntime) Login(ctx context.Context) (service.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins++
	if r.LoginErr != nil {
		return service.User{}, r.LoginErr
	}
	return r.Svc.User(), nil
}

func (r *FakeRuntime) Logout(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logouts++
	return r.LogoutErr
}

func (r *FakeRuntime) Service(ctx context.Context) (service.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serviceCalls++
	if r.ServiceErr != nil {
		return nil, r.ServiceErr
	}
	return r.Svc, nil
}

func (r *FakeRuntime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Logins returns how many times Login was called.
func (r *FakeRuntime) Logins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logins
}

// Logouts returns how many times Logout was called.
func (r *FakeRuntime) Logouts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logouts
}

// ServiceCalls returns how many times Service was called.
func (r *FakeRuntime) ServiceCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.serviceCalls
}

// Closed reports whether Close was called.
func (r *FakeRuntime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
