package blob

import (
	"context"
	"errors"
	"path"
	"strings"
)

var ErrNotFound = errors.New("blob: object not found")

// Store persists uploaded media bytes under their URL path ("images/<id>.png").
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}

// CleanKey rejects absolute and parent-relative keys.
func CleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", errors.New("blob: empty key")
	}
	k = path.Clean(strings.TrimLeft(k, "/"))
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", errors.New("blob: key escapes root")
	}
	return k, nil
}

func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
