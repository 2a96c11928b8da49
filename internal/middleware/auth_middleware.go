package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sokocart/sokocart-backend/internal/app/model"
	"github.com/sokocart/sokocart-backend/internal/errors"
	"github.com/sokocart/sokocart-backend/pkg/redis"
	"github.com/sokocart/sokocart-backend/pkg/util"
)

// Context keys for user information
const (
	UserIDKey     = "user_id"
	UserEmailKey  = "user_email"
	UserRoleKey   = "user_role"
	SessionKeyKey = "session_key"
)

// SessionKeyHeader carries the guest cart session key.
const SessionKeyHeader = "X-Session-Key"

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, ok := extractBearerToken(c)
		if !ok {
			log.Warn("Missing or malformed authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		if revoked, err := isTokenRevoked(c, token); err == nil && revoked {
			log.Warn("Revoked token presented", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "Token has been revoked")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			if err == util.ErrExpiredToken {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "Session has expired, please log in again")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid authentication token")
			}
			c.Abort()
			return
		}

		setUserContext(c, claims)

		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": claims.UserID,
			"email":   claims.Email,
			"role":    claims.Role,
		})

		c.Next()
	}
}

// OptionalAuthenticate validates JWT token if present (optional)
// - If token is present and valid: sets user info in context
// - If token is missing or invalid: continues as guest
// Guest requests identify their cart through the X-Session-Key header.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		if sessionKey := c.GetHeader(SessionKeyHeader); sessionKey != "" {
			c.Set(SessionKeyKey, sessionKey)
		}

		token, ok := extractBearerToken(c)
		if !ok {
			log.Debug("No valid authorization header - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		if revoked, err := isTokenRevoked(c, token); err == nil && revoked {
			log.Debug("Revoked token - continuing as guest", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			c.Next()
			return
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Debug("Token validation failed - continuing as guest", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		setUserContext(c, claims)

		log.Debug("User authenticated successfully (optional)", map[string]interface{}{
			"user_id": claims.UserID,
			"email":   claims.Email,
		})

		c.Next()
	}
}

// RequireRole checks if user has required role
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		userRole, exists := c.Get(UserRoleKey)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzAdminOnly, "Role information not found")
			c.Abort()
			return
		}

		role := userRole.(model.UserRole)
		userID, _ := GetUserID(c)

		for _, r := range roles {
			if role == model.UserRole(r) {
				c.Next()
				return
			}
		}

		log.Warn("Insufficient permissions", map[string]interface{}{
			"user_id":        userID,
			"user_role":      role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.Forbidden(c, "Access denied")
		c.Abort()
	}
}

func extractBearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// isTokenRevoked consults the Redis blacklist. Redis being unavailable
// is treated as not revoked so auth keeps working without it.
func isTokenRevoked(c *gin.Context, token string) (bool, error) {
	if redis.GetClient() == nil {
		return false, nil
	}
	return redis.IsTokenBlacklisted(c.Request.Context(), token)
}

func setUserContext(c *gin.Context, claims *util.Claims) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserEmailKey, claims.Email)
	c.Set(UserRoleKey, model.UserRole(claims.Role))
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	return userID.(uint), true
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(UserEmailKey)
	if !exists {
		return "", false
	}
	return email.(string), true
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.UserRole, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	return role.(model.UserRole), true
}

// GetSessionKey extracts the guest session key from context
func GetSessionKey(c *gin.Context) (string, bool) {
	key, exists := c.Get(SessionKeyKey)
	if !exists {
		return "", false
	}
	return key.(string), true
}
