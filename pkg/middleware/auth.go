package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"filetree-service/internal/common"
	"filetree-service/internal/model/user"
	"filetree-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

// Authenticator resolves a bearer token to a live user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Auth rejects requests without a valid bearer token and stores the user and
// the raw token in the gin context.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		ctx := c.Request.Context()
		u, err := auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrInvalidToken) {
				logger.GetLogger(ctx).Debug("rejected bearer token", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": common.ErrInvalidToken.Error()})
				return
			}
			logger.GetLogger(ctx).Error("token check failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(userKey, u)
		c.Set(tokenKey, token)
		c.Request = c.Request.WithContext(logger.WithLogger(ctx,
			logger.GetLogger(ctx).With(zap.String("user_id", u.ID.String()))))
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok && u != nil
}

// CurrentToken returns the bearer token accepted by Auth.
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
