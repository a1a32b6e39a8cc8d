package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio/analytics/config"
	"portfolio/analytics/utils"
)

// TokenCookie carries the operator JWT issued by the login handler.
const TokenCookie = "jwt_token"

// DashboardAuth guards the read endpoints. It passes everything through when neither a
// JWT secret nor an API key is configured.
func DashboardAuth(cfg config.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled() {
			c.Next()
			return
		}

		if cfg.APIKey != "" {
			key := c.GetHeader("X-API-KEY")
			if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.APIKey)) == 1 {
				c.Next()
				return
			}
		}

		if cfg.JWTSecret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API key"})
			return
		}

		tokenString, err := c.Cookie(TokenCookie)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			return
		}

		claims, err := utils.ValidateJWT([]byte(cfg.JWTSecret), tokenString)
		if err != nil {
			log.Printf("DashboardAuth: invalid JWT token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set("operator_id", claims.OperatorID)
		c.Set("operator_email", claims.Email)
		c.Next()
	}
}
