package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/chachabrian/foodbridge-backend/internal/models"
	"github.com/chachabrian/foodbridge-backend/internal/services"
	"github.com/chachabrian/foodbridge-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const claimsKey = "claims"

var allRoles = []string{models.RoleUser, models.RoleDonor, models.RoleDeliveryBoy}

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// CookieName is the auth cookie of a role.
func CookieName(role string) string {
	return role + "_jwt"
}

// AuthMiddleware accepts a token from the Authorization header or the role
// cookies, in that order. With no roles any principal is accepted.
func AuthMiddleware(secret string, revoked RevocationChecker, roles ...string) gin.HandlerFunc {
	return authenticate(secret, revoked, false, roles)
}

// WebSocketAuth is AuthMiddleware for the websocket upgrade. Browsers cannot
// set headers on it, so the token query parameter is accepted as a last
// resort.
func WebSocketAuth(secret string, revoked RevocationChecker) gin.HandlerFunc {
	return authenticate(secret, revoked, true, nil)
}

func authenticate(secret string, revoked RevocationChecker, allowQuery bool, roles []string) gin.HandlerFunc {
	accepted := roles
	if len(accepted) == 0 {
		accepted = allRoles
	}

	return func(c *gin.Context) {
		tokenString := extractToken(c, accepted, allowQuery)
		if tokenString == "" {
			c.AbortWithStatusJSON(401, gin.H{"success": false, "message": "Unauthorized"})
			return
		}

		claims, err := utils.ValidateToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"success": false, "message": "Invalid token"})
			return
		}

		if !contains(accepted, claims.Role) {
			c.AbortWithStatusJSON(403, gin.H{"success": false, "message": "Forbidden"})
			return
		}

		if revoked != nil {
			isRevoked, err := revoked.IsTokenRevoked(c.Request.Context(), claims.ID)
			switch {
			case err != nil && !errors.Is(err, services.ErrCacheUnavailable):
				Log(c).Error("token revocation check failed", zap.Error(err))
				c.AbortWithStatusJSON(503, gin.H{"success": false, "message": "Service unavailable"})
				return
			case isRevoked:
				c.AbortWithStatusJSON(401, gin.H{"success": false, "message": "Token has been revoked"})
				return
			}
		}

		c.Set(claimsKey, claims)
		c.Set("userId", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func extractToken(c *gin.Context, roles []string, allowQuery bool) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1])
		}
	}

	for _, role := range roles {
		if cookie, err := c.Cookie(CookieName(role)); err == nil && cookie != "" {
			return cookie
		}
	}

	if allowQuery {
		return c.Query("token")
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Claims returns the claims stored by AuthMiddleware.
func Claims(c *gin.Context) *utils.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.Claims)
	return claims
}

// Principal returns the authenticated caller.
func Principal(c *gin.Context) services.Principal {
	claims := Claims(c)
	if claims == nil {
		return services.Principal{}
	}
	return services.Principal{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
}
