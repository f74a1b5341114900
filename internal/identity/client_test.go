package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeProvider is a minimal OIDC provider: discovery, token and end-session.
type fakeProvider struct {
	srv          *httptest.Server
	refreshes    atomic.Int32
	endSessions  atomic.Int32
	lastEndForm  atomic.Value
	failRefresh  bool
	noEndSession bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			"issuer":                 p.srv.URL,
			"authorization_endpoint": p.srv.URL + "/auth",
			"token_endpoint":         p.srv.URL + "/token",
			"jwks_uri":               p.srv.URL + "/certs",
		}
		if !p.noEndSession {
			doc["end_session_endpoint"] = p.srv.URL + "/logout"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		switch r.Form.Get("grant_type") {
		case "refresh_token":
			p.refreshes.Add(1)
			if p.failRefresh {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":300,"refresh_token":"r2"}`))
		case "authorization_code":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"from-code","token_type":"Bearer","expires_in":300,"refresh_token":"r1"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		p.endSessions.Add(1)
		p.lastEndForm.Store(r.PostForm)
		w.WriteHeader(http.StatusNoContent)
	})
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func newTestClient(t *testing.T, p *fakeProvider, open func(string) error) *Client {
	t.Helper()
	c, err := New(Config{
		Issuer:       p.srv.URL,
		ClientID:     "taskman-cli",
		TokenPath:    filepath.Join(t.TempDir(), "token.json"),
		OpenBrowser:  open,
		HTTPClient:   p.srv.Client(),
		CallbackPort: 0,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresIssuerAndClientID(t *testing.T) {
	_, err := New(Config{ClientID: "x"})
	assert.Error(t, err)
	_, err = New(Config{Issuer: "http://idp"})
	assert.Error(t, err)
}

func TestRefresh_ValidTokenIsReturnedUnchanged(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, nil)

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}
	got, err := c.Refresh(context.Background(), tok, 30*time.Second)
	require.NoError(t, err)
	assert.Same(t, tok, got)
	assert.Zero(t, p.refreshes.Load())
}

func TestRefresh_NearExpiryUsesRefreshToken(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, nil)

	tok := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(10 * time.Second)}
	got, err := c.Refresh(context.Background(), tok, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
	assert.Equal(t, int32(1), p.refreshes.Load())

	saved, err := c.Store().Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "fresh", saved.AccessToken)
}

func TestRefresh_ExpiredWithoutRefreshToken(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, nil)

	_, err := c.Refresh(context.Background(), &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(-time.Minute)}, time.Second)
	assert.Error(t, err)
}

func TestRefresh_ProviderRejects(t *testing.T) {
	p := newFakeProvider(t)
	p.failRefresh = true
	c := newTestClient(t, p, nil)

	_, err := c.Refresh(context.Background(), &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now()}, time.Minute)
	assert.Error(t, err)
}

func TestLogin_ReusesCachedToken(t *testing.T) {
	p := newFakeProvider(t)
	opened := false
	c := newTestClient(t, p, func(string) error { opened = true; return nil })

	require.NoError(t, c.Store().Save(&oauth2.Token{AccessToken: "cached", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}))

	tok, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", tok.AccessToken)
	assert.False(t, opened)
}

func TestLogin_BrowserFlow(t *testing.T) {
	p := newFakeProvider(t)
	var authURL string
	c := newTestClient(t, p, func(u string) error {
		authURL = u
		parsed, err := url.Parse(u)
		if err != nil {
			return err
		}
		q := parsed.Query()
		redirect := q.Get("redirect_uri") + "?code=abc&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			resp, err := http.Get(redirect)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	})

	tok, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-code", tok.AccessToken)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "taskman-cli", q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEmpty(t, q.Get("state"))

	saved, err := c.Store().Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "from-code", saved.AccessToken)
}

func TestLogin_StateMismatchFails(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, func(u string) error {
		parsed, _ := url.Parse(u)
		redirect := parsed.Query().Get("redirect_uri") + "?code=abc&state=wrong"
		go func() {
			resp, err := http.Get(redirect)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	})

	_, err := c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
}

func TestLogin_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, err := New(Config{Issuer: srv.URL, ClientID: "x", TokenPath: filepath.Join(t.TempDir(), "token.json")})
	require.NoError(t, err)

	_, err = c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover")
}

func TestLogout_EndsProviderSessionAndRemovesToken(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, nil)
	require.NoError(t, c.Store().Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r1"}))

	require.NoError(t, c.Logout(context.Background(), nil))

	assert.Equal(t, int32(1), p.endSessions.Load())
	form := p.lastEndForm.Load().(url.Values)
	assert.Equal(t, "r1", form.Get("refresh_token"))
	assert.Equal(t, "taskman-cli", form.Get("client_id"))

	tok, err := c.Store().Load()
	require.NoError(t, err)
	assert.Nil(t, tok)
}

func TestLogout_WithoutEndSessionEndpoint(t *testing.T) {
	p := newFakeProvider(t)
	p.noEndSession = true
	c := newTestClient(t, p, nil)

	require.NoError(t, c.Logout(context.Background(), &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))
	assert.Zero(t, p.endSessions.Load())
}

func TestLogout_NoTokenIsNoop(t *testing.T) {
	p := newFakeProvider(t)
	c := newTestClient(t, p, nil)

	require.NoError(t, c.Logout(context.Background(), nil))
	assert.Zero(t, p.endSessions.Load())
}
