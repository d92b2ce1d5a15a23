package smartobjects

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenExpiryBuffer is how long before expiry a cached token is renewed.
const tokenExpiryBuffer = 30 * time.Second

// authManager obtains and caches access tokens with the OAuth2 client
// credentials grant.
type authManager struct {
	credentials *clientcredentials.Config
	httpClient  *http.Client

	mu    sync.RWMutex
	token *oauth2.Token
}

// newAuthManager resolves the token endpoint and prepares the grant. No token
// is requested until the first call.
func newAuthManager(ctx context.Context, cfg *OAuthConfig, baseURL string, httpClient *http.Client) (*authManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("OAuth config cannot be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	tokenURL, err := resolveTokenURL(ctx, cfg, baseURL, httpClient)
	if err != nil {
		return nil, err
	}

	return &authManager{
		credentials: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       cfg.Scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
	}, nil
}

func resolveTokenURL(ctx context.Context, cfg *OAuthConfig, baseURL string, httpClient *http.Client) (string, error) {
	switch {
	case cfg.TokenURL != "":
		return cfg.TokenURL, nil
	case cfg.IssuerURL != "":
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.IssuerURL)
		if err != nil {
			return "", NewAuthenticationError("failed to discover OIDC provider", err)
		}
		return provider.Endpoint().TokenURL, nil
	default:
		return baseURL + TokenPath, nil
	}
}

// TokenURL returns the resolved token endpoint.
func (am *authManager) TokenURL() string {
	return am.credentials.TokenURL
}

// GetToken returns a valid access token, requesting a new one if necessary.
func (am *authManager) GetToken(ctx context.Context) (string, error) {
	am.mu.RLock()
	if tokenFresh(am.token) {
		token := am.token.AccessToken
		am.mu.RUnlock()
		return token, nil
	}
	am.mu.RUnlock()

	am.mu.Lock()
	defer am.mu.Unlock()
	// another caller may have renewed the token while we waited for the lock
	if err := am.refreshLocked(ctx, false); err != nil {
		return "", err
	}
	return am.token.AccessToken, nil
}

// RefreshToken forces a new client credentials grant.
func (am *authManager) RefreshToken(ctx context.Context) error {
	am.mu.Lock()
	defer am.mu.Unlock()

	return am.refreshLocked(ctx, true)
}

func (am *authManager) refreshLocked(ctx context.Context, force bool) error {
	if !force && tokenFresh(am.token) {
		return nil
	}

	token, err := am.credentials.Token(context.WithValue(ctx, oauth2.HTTPClient, am.httpClient))
	if err != nil {
		return NewAuthenticationError("client credentials grant failed", err)
	}
	if token.AccessToken == "" {
		return NewAuthenticationError("token endpoint returned an empty access token", nil)
	}

	am.token = token
	return nil
}

// invalidate drops the cached token so the next call requests a new one.
func (am *authManager) invalidate() {
	am.mu.Lock()
	am.token = nil
	am.mu.Unlock()
}

// tokenFresh reports whether t can be used for at least tokenExpiryBuffer.
// Tokens without an expiry never go stale.
func tokenFresh(t *oauth2.Token) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(tokenExpiryBuffer).Before(t.Expiry)
}
