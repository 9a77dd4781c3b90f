package model

import "context"

type authUserKey struct{}

func WithAuthUser(ctx context.Context, user AuthUser) context.Context {
	return context.WithValue(ctx, authUserKey{}, user)
}

// AuthUserFrom returns the authenticated viewer, if the request carried one.
func AuthUserFrom(ctx context.Context) (AuthUser, bool) {
	user, ok := ctx.Value(authUserKey{}).(AuthUser)
	if !ok || user.ID == "" {
		return AuthUser{}, false
	}
	return user, true
}

// ViewerID is the authenticated viewer's id, or "" for anonymous reads.
func ViewerID(ctx context.Context) string {
	user, _ := AuthUserFrom(ctx)
	return user.ID
}
