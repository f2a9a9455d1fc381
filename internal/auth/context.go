package auth

import "context"

type contextKey struct{}

// AuthContext travels with every authenticated request. PlatformToken
// is the decrypted access token for the video platform; it never
// leaves process memory.
type AuthContext struct {
	UserID        string
	SessionToken  string
	PlatformToken string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

func PlatformToken(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.PlatformToken
}
