package identity

import "context"

type accessTokenKey struct{}

// WithAccessToken attaches the caller's access token so data adapters can act on the
// member's behalf.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessTokenFromContext returns the token set by WithAccessToken.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accessTokenKey{}).(string)
	return v, ok && v != ""
}
