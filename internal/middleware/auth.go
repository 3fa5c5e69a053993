package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkly-api/internal/jwt"
	"linkly-api/internal/models"
)

const (
	// ContextUserID is the gin context key holding the authenticated user id
	ContextUserID = "user_id"

	headerAuthToken = "x-auth-token"

	msgNoToken      = "No token, authorization denied"
	msgInvalidToken = "Token is not valid"
)

// ExtractToken returns the raw token from the x-auth-token header or an
// "Authorization: Bearer" header, or "" if neither is present.
func ExtractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(headerAuthToken)); token != "" {
		return token
	}

	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// RequireAuth rejects requests without a valid token and stores the user id
// under ContextUserID.
func RequireAuth(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: msgNoToken})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: msgInvalidToken})
			return
		}

		c.Set(ContextUserID, claims.User.ID)
		c.Next()
	}
}

// UserID returns the id stored by RequireAuth
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserID)
	return id, id != ""
}
