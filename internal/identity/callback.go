package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	// Max loopback ports tried for the callback server
	maxPortAttempts = 5

	callbackPath = "/callback"
)

// callbackResult is what the provider sent to the redirect URL.
type callbackResult struct {
	code string
	err  error
}

// callbackServer receives the authorization code on a loopback address.
type callbackServer struct {
	listener net.Listener
	server   *http.Server
	results  chan callbackResult
	state    string
}

// listenCallback binds a loopback port, starting at port and trying the next
// few. Port 0 picks any free port.
func listenCallback(port int, state string) (*callbackServer, error) {
	listener, err := findAvailablePort(port)
	if err != nil {
		return nil, err
	}

	cs := &callbackServer{
		listener: listener,
		results:  make(chan callbackResult, 1),
		state:    state,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, cs.handle)
	cs.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := cs.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cs.deliver(callbackResult{err: err})
		}
	}()
	return cs, nil
}

// RedirectURL is the URL registered as redirect_uri for this login.
func (cs *callbackServer) RedirectURL() string {
	port := cs.listener.Addr().(*net.TCPAddr).Port
	return fmt.Sprintf("http://localhost:%d%s", port, callbackPath)
}

func (cs *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		cs.deliver(callbackResult{err: fmt.Errorf("provider returned error: %s %s", e, q.Get("error_description"))})
		return
	}
	if q.Get("state") != cs.state {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		cs.deliver(callbackResult{err: errors.New("state mismatch in callback")})
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Error(w, "No code in callback", http.StatusBadRequest)
		cs.deliver(callbackResult{err: errors.New("no code in callback")})
		return
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
	cs.deliver(callbackResult{code: code})
}

// deliver keeps only the first result; later callbacks are dropped.
func (cs *callbackServer) deliver(res callbackResult) {
	select {
	case cs.results <- res:
	default:
	}
}

// Wait blocks until a callback arrives, the timeout passes or ctx ends.
func (cs *callbackServer) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-cs.results:
		return res.code, res.err
	case <-timer.C:
		return "", errors.New("login callback timed out")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the server down.
func (cs *callbackServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = cs.server.Shutdown(ctx)
}

// findAvailablePort tries to bind starting from port.
func findAvailablePort(port int) (net.Listener, error) {
	if port == 0 {
		return net.Listen("tcp", "localhost:0")
	}
	for i := 0; i < maxPortAttempts; i++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port+i))
		if err == nil {
			return listener, nil
		}
	}
	return nil, fmt.Errorf("no available port found from %d", port)
}
