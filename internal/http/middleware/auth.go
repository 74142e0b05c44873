package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediahub-backend/internal/http/response"
	"github.com/yungbote/mediahub-backend/internal/platform/authjwt"
	"github.com/yungbote/mediahub-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
	"github.com/yungbote/mediahub-backend/internal/services"
)

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	users  services.UserService
}

func NewAuthMiddleware(log *logger.Logger, secret string, users services.UserService) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(secret),
		users:  users,
	}
}

// RequireAuth rejects requests without a valid bearer token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		if !am.attach(c, tokenString) {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the viewer when a valid token is present and
// otherwise serves the request anonymously.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			am.attach(c, tokenString)
		}
		c.Next()
	}
}

func (am *AuthMiddleware) attach(c *gin.Context, tokenString string) bool {
	id, err := authjwt.Parse(am.secret, tokenString)
	if err != nil {
		am.log.Debug("Rejected token", "error", err)
		return false
	}
	viewer := &ctxutil.Viewer{UserID: id.UserID, Username: id.Username}
	if am.users != nil {
		if err := am.users.Ensure(c.Request.Context(), viewer); err != nil {
			am.log.Error("Ensure user failed", "user_id", viewer.UserID, "error", err)
			return false
		}
	}
	c.Request = c.Request.WithContext(ctxutil.WithViewer(c.Request.Context(), viewer))
	return true
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
