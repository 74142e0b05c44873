package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/platform/authjwt"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type recordingUsers struct {
	seen []string
	err  error
}

func (r *recordingUsers) Ensure(_ context.Context, v *ctxutil.Viewer) error {
	r.seen = append(r.seen, v.UserID)
	return r.err
}

func authEngine(users *recordingUsers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.Nop(), "secret", users)
	r := gin.New()
	echo := func(c *gin.Context) { c.String(http.StatusOK, ctxutil.ViewerID(c.Request.Context())) }
	r.GET("/required", am.RequireAuth(), echo)
	r.GET("/optional", am.OptionalAuth(), echo)
	return r
}

func get(r *gin.Engine, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	users := &recordingUsers{}
	r := authEngine(users)
	tok, err := authjwt.Sign([]byte("secret"), authjwt.Identity{UserID: "u-1", Username: "ann"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if rec := get(r, "/required", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: want=401 got=%d", rec.Code)
	}
	rec := get(r, "/required", tok)
	if rec.Code != http.StatusOK || rec.Body.String() != "u-1" {
		t.Fatalf("valid token: want=200 u-1 got=%d %q", rec.Code, rec.Body.String())
	}
	if len(users.seen) != 1 || users.seen[0] != "u-1" {
		t.Fatalf("Ensure calls: got=%v", users.seen)
	}

	users.err = errors.New("db down")
	if rec := get(r, "/required", tok); rec.Code != http.StatusUnauthorized {
		t.Fatalf("ensure failure: want=401 got=%d", rec.Code)
	}
}

func TestOptionalAuthFallsBackToAnonymous(t *testing.T) {
	r := authEngine(&recordingUsers{})
	rec := get(r, "/optional", "garbage")
	if rec.Code != http.StatusOK || rec.Body.String() != "" {
		t.Fatalf("bad token: want anonymous 200 got=%d %q", rec.Code, rec.Body.String())
	}
}
