package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// AuthMiddleware rejects requests without a valid bearer token. With a repo it
// also rejects tokens issued before the user's last logout or password change.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(h[len("Bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if repo != nil {
			current, err := repo.GetTokenVersion(c.Request.Context(), claims.UserID)
			if err != nil || current != claims.TokenVersion {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// UserID is the authenticated user's id, or "" outside AuthMiddleware.
func UserID(c *gin.Context) string {
	if claims := MustGetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
