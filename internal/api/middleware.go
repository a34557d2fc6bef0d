package api

import (
	"net/http"
	"strings"

	"alcyxob/exercise-catalog/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates the access gate in front of every catalog
// operation. Denial is uniform: missing header, malformed header, bad
// signature, expired token and inactive account all produce the same
// response, so callers learn nothing about auth internals.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			denyRequest(c)
			return
		}

		result := verifier.Verify(token)
		if !result.Valid || !result.IsActive {
			denyRequest(c)
			return
		}

		c.Next()
	}
}

// bearerToken extracts the credential from "Bearer <token>". An absent or
// malformed header is treated as no token, not as a distinct error.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func denyRequest(c *gin.Context) {
	abortWithError(c, http.StatusUnauthorized, "authentication required")
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}
