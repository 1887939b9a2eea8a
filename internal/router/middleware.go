package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/datx24/storefront/pkg/backend"
	"github.com/datx24/storefront/pkg/global"
	"github.com/datx24/storefront/pkg/storage"
)

// SessionHeader names the session whose stored token authorizes admin calls
const SessionHeader = "X-Session-ID"

// RequireSession rejects requests whose :sessionId is not a UUID
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if _, err := uuid.Parse(sessionID); err != nil {
			c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid session id", global.FieldError("sessionId", "sessionId must be a UUID issued by POST /api/sessions", global.CodeInvalidFormat)))
			c.Abort()
			return
		}

		c.Set("sessionID", sessionID)
		c.Next()
	}
}

// AdminAuth attaches the admin bearer token to the request context. The token is
// taken from the Authorization header, or else from the session named by X-Session-ID.
func AdminAuth(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))

		if token == "" {
			if sessionID := c.GetHeader(SessionHeader); sessionID != "" {
				if _, err := uuid.Parse(sessionID); err == nil {
					raw, err := store.Get(c.Request.Context(), sessionID, storage.KeyToken)
					if err != nil && !errors.Is(err, storage.ErrNotFound) {
						respondError(c, err, "Failed to read session token")
						c.Abort()
						return
					}
					token = strings.TrimSpace(string(raw))
				}
			}
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, global.ErrorResponse("Authentication required", global.FieldError("Authorization", "a bearer token or a session with a saved token is required", global.CodeUnauthorized)))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(backend.WithToken(c.Request.Context(), token))
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
