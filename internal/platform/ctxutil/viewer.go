package ctxutil

import "context"

type viewerKey struct{}

// Viewer is the authenticated caller attached by the auth middleware.
// An anonymous request carries no Viewer.
type Viewer struct {
	UserID   string
	Username string
}

func WithViewer(ctx context.Context, v *Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

func GetViewer(ctx context.Context) *Viewer {
	if v, ok := ctx.Value(viewerKey{}).(*Viewer); ok {
		return v
	}
	return nil
}

// ViewerID returns the caller's user id or "" for anonymous requests.
func ViewerID(ctx context.Context) string {
	if v := GetViewer(ctx); v != nil {
		return v.UserID
	}
	return ""
}
