package smartobjects

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// mockTokenServer simulates the platform token endpoint and an OIDC provider
type mockTokenServer struct {
	server    *httptest.Server
	expiresIn atomic.Int32
	fail      atomic.Bool
	calls     atomic.Int32

	mu       sync.Mutex
	lastForm map[string]string
	lastUser string
	lastPass string
}

func newMockTokenServer(t *testing.T) *mockTokenServer {
	t.Helper()
	mock := &mockTokenServer{}
	mock.expiresIn.Store(3600)

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		baseURL := "http://" + r.Host
		w.Header().Set("Content-Type", ContentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + "/auth",
			"token_endpoint":         baseURL + "/discovered/token",
			"jwks_uri":               baseURL + "/jwks",
		})
	})

	tokenHandler := func(w http.ResponseWriter, r *http.Request) {
		n := mock.calls.Add(1)
		if mock.fail.Load() {
			w.Header().Set("Content-Type", ContentTypeJSON)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_client",
				"error_description": "Invalid credentials",
			})
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		user, pass, _ := r.BasicAuth()

		mock.mu.Lock()
		mock.lastForm = map[string]string{
			"grant_type": r.Form.Get("grant_type"),
			"scope":      r.Form.Get("scope"),
			"path":       r.URL.Path,
		}
		mock.lastUser, mock.lastPass = user, pass
		mock.mu.Unlock()

		w.Header().Set("Content-Type", ContentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-" + string(rune('0'+n)),
			"token_type":   "Bearer",
			"expires_in":   mock.expiresIn.Load(),
		})
	}
	mux.HandleFunc(TokenPath, tokenHandler)
	mux.HandleFunc("/discovered/token", tokenHandler)

	mock.server = httptest.NewServer(mux)
	t.Cleanup(mock.server.Close)
	return mock
}

func (m *mockTokenServer) URL() string { return m.server.URL }

func (m *mockTokenServer) form() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastForm
}

func TestNewAuthManagerDefaultsToBaseURLTokenPath(t *testing.T) {
	mock := newMockTokenServer(t)

	am, err := newAuthManager(context.Background(), &OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       DefaultOAuthScopes,
	}, mock.URL(), nil)
	require.NoError(t, err)
	assert.Equal(t, mock.URL()+TokenPath, am.TokenURL())

	token, err := am.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	form := mock.form()
	assert.Equal(t, "client_credentials", form["grant_type"])
	assert.Equal(t, "ALL", form["scope"])
	assert.Equal(t, TokenPath, form["path"])

	mock.mu.Lock()
	defer mock.mu.Unlock()
	assert.Equal(t, "client", mock.lastUser)
	assert.Equal(t, "secret", mock.lastPass)
}

func TestNewAuthManagerExplicitTokenURL(t *testing.T) {
	mock := newMockTokenServer(t)

	am, err := newAuthManager(context.Background(), &OAuthConfig{
		TokenURL:     mock.URL() + "/discovered/token",
		ClientID:     "client",
		ClientSecret: "secret",
	}, "http://unused.invalid", nil)
	require.NoError(t, err)

	_, err = am.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/discovered/token", mock.form()["path"])
}

func TestNewAuthManagerDiscoversIssuer(t *testing.T) {
	mock := newMockTokenServer(t)

	am, err := newAuthManager(context.Background(), &OAuthConfig{
		IssuerURL:    mock.URL(),
		ClientID:     "client",
		ClientSecret: "secret",
	}, "http://unused.invalid", mock.server.Client())
	require.NoError(t, err)
	assert.Equal(t, mock.URL()+"/discovered/token", am.TokenURL())
}

func TestNewAuthManagerDiscoveryFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := newAuthManager(context.Background(), &OAuthConfig{
		IssuerURL:    server.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	}, server.URL, nil)
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))
}

func TestNewAuthManagerNilConfig(t *testing.T) {
	_, err := newAuthManager(context.Background(), nil, "http://localhost", nil)
	assert.Error(t, err)
}

func TestAuthManagerCachesToken(t *testing.T) {
	mock := newMockTokenServer(t)
	am, err := newAuthManager(context.Background(), &OAuthConfig{ClientID: "c", ClientSecret: "s"}, mock.URL(), nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		token, err := am.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
	}
	assert.Equal(t, int32(1), mock.calls.Load())
}

func TestAuthManagerRenewsTokenCloseToExpiry(t *testing.T) {
	mock := newMockTokenServer(t)
	// shorter than the renewal buffer, so every call needs a new token
	mock.expiresIn.Store(10)

	am, err := newAuthManager(context.Background(), &OAuthConfig{ClientID: "c", ClientSecret: "s"}, mock.URL(), nil)
	require.NoError(t, err)

	first, err := am.GetToken(context.Background())
	require.NoError(t, err)
	second, err := am.GetToken(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), mock.calls.Load())
}

func TestAuthManagerRefreshToken(t *testing.T) {
	mock := newMockTokenServer(t)
	am, err := newAuthManager(context.Background(), &OAuthConfig{ClientID: "c", ClientSecret: "s"}, mock.URL(), nil)
	require.NoError(t, err)

	_, err = am.GetToken(context.Background())
	require.NoError(t, err)
	require.NoError(t, am.RefreshToken(context.Background()))

	token, err := am.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
}

func TestAuthManagerInvalidate(t *testing.T) {
	mock := newMockTokenServer(t)
	am, err := newAuthManager(context.Background(), &OAuthConfig{ClientID: "c", ClientSecret: "s"}, mock.URL(), nil)
	require.NoError(t, err)

	_, err = am.GetToken(context.Background())
	require.NoError(t, err)
	am.invalidate()
	_, err = am.GetToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), mock.calls.Load())
}

func TestAuthManagerGrantFailure(t *testing.T) {
	mock := newMockTokenServer(t)
	mock.fail.Store(true)

	am, err := newAuthManager(context.Background(), &OAuthConfig{ClientID: "c", ClientSecret: "wrong"}, mock.URL(), nil)
	require.NoError(t, err)

	_, err = am.GetToken(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))

	var retrieveErr *oauth2.RetrieveError
	assert.ErrorAs(t, err, &retrieveErr)
}

func TestTokenFresh(t *testing.T) {
	tests := []struct {
		name  string
		token *oauth2.Token
		want  bool
	}{
		{name: "nil", token: nil, want: false},
		{name: "empty access token", token: &oauth2.Token{}, want: false},
		{name: "no expiry", token: &oauth2.Token{AccessToken: "a"}, want: true},
		{name: "expires later", token: &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, want: true},
		{name: "inside buffer", token: &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(10 * time.Second)}, want: false},
		{name: "expired", token: &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(-time.Minute)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenFresh(tt.token))
		})
	}
}

func TestStaticTokenProvider(t *testing.T) {
	token, err := newStaticTokenProvider("abc").GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = newStaticTokenProvider("").GetToken(context.Background())
	assert.True(t, IsAuthenticationError(err))
}
