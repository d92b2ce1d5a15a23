package smartobjects

import (
	"context"
	"net/url"
	"strings"
)

// tokenProvider is an interface for types that can provide authentication tokens
type tokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// authorizationHeader returns the Authorization header value for the next
// request, or "" when no provider is configured.
func authorizationHeader(ctx context.Context, auth tokenProvider) (string, error) {
	if auth == nil {
		return "", nil
	}
	token, err := auth.GetToken(ctx)
	if err != nil {
		if IsAuthenticationError(err) {
			return "", err
		}
		return "", NewAuthenticationError(ErrMsgFailedToGetAuthToken, err)
	}
	if token == "" {
		return "", nil
	}
	return AuthHeaderPrefix + token, nil
}

// joinPath builds an API path from a fixed prefix and escaped segments.
//
//	joinPath(DatasetsPath, "my key", FieldsPath) == "/api/v1/definition/streaming/datasets/my%20key/fields"
func joinPath(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
