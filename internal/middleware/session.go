package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/wassup/internal/model"
	appErr "github.com/xxxsen/wassup/internal/pkg/errors"
	"github.com/xxxsen/wassup/internal/pkg/response"
)

const (
	ContextUserIDKey = "user_id"

	SessionCookie = "jwtToken"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// SessionAuth resolves the session token from the jwtToken cookie or a
// bearer header and stores the user id in the gin context.
func SessionAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), sessionToken(c))
		if err != nil {
			if appErr.Is(err, appErr.ErrUnauthorized) {
				response.Abort(c, http.StatusUnauthorized, appErr.Message(err, "unauthorized"))
				return
			}
			response.Abort(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
