package smartobjects

import "context"

// staticTokenProvider serves a caller supplied access token. The token is
// never refreshed; an expired token surfaces as a 401 APIError.
type staticTokenProvider struct {
	token string
}

func newStaticTokenProvider(token string) tokenProvider {
	return &staticTokenProvider{token: token}
}

func (s *staticTokenProvider) GetToken(context.Context) (string, error) {
	if s.token == "" {
		return "", NewAuthenticationError("static access token is empty", nil)
	}
	return s.token, nil
}
