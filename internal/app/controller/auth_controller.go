package controller

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sokocart/sokocart-backend/internal/app/service"
	"github.com/sokocart/sokocart-backend/internal/errors"
	"github.com/sokocart/sokocart-backend/internal/middleware"
	"github.com/sokocart/sokocart-backend/pkg/redis"
)

type AuthController struct {
	authService service.AuthService
	cartService service.CartService
}

func NewAuthController(authService service.AuthService, cartService service.CartService) *AuthController {
	return &AuthController{
		authService: authService,
		cartService: cartService,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new user account
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid register request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	user, tokens, err := ctrl.authService.Register(req.Email, req.Password, req.Name, req.Phone)
	if err != nil {
		if stderrors.Is(err, service.ErrEmailAlreadyExists) {
			log.Warn("Registration with existing email", map[string]interface{}{
				"email": req.Email,
			})
			errors.Conflict(c, errors.AuthEmailAlreadyExists, "An account with this email already exists")
			return
		}
		log.Error("Failed to register user", err, map[string]interface{}{
			"email": req.Email,
		})
		errors.InternalError(c, "")
		return
	}

	log.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})

	c.JSON(http.StatusCreated, gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

// Login authenticates a user. If an X-Session-Key header identifies a
// guest cart, it is merged into the user's cart after authentication.
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid login request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		if stderrors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Invalid login credentials", map[string]interface{}{
				"email": req.Email,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthInvalidCredentials, "Invalid email or password")
			return
		}
		log.Error("Failed to log in user", err, map[string]interface{}{
			"email": req.Email,
		})
		errors.InternalError(c, "")
		return
	}

	ctrl.mergeGuestCart(c, user.ID)

	log.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

// Logout revokes the presented access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token := authHeader[7:]
		if redis.GetClient() != nil {
			if err := redis.BlacklistToken(c.Request.Context(), token, 24*time.Hour); err != nil {
				log.Error("Failed to revoke token", err, nil)
			}
		}
	}

	log.Info("User logged out", nil)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetMe returns the authenticated user's profile
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if stderrors.Is(err, service.ErrUserNotFound) {
			errors.NotFound(c, errors.AuthUnauthorized, "User not found")
			return
		}
		log.Error("Failed to fetch user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// mergeGuestCart folds a guest cart into the user's active cart on
// login. Merge failures never fail the login itself.
func (ctrl *AuthController) mergeGuestCart(c *gin.Context, userID uint) {
	log := middleware.GetLoggerFromContext(c)

	sessionKey := c.GetHeader(middleware.SessionKeyHeader)
	if sessionKey == "" {
		return
	}

	// Find-only: a login without a prior guest cart must not create one
	guestCart, err := ctrl.cartService.FindBySessionKey(sessionKey)
	if err != nil || !guestCart.IsActive || guestCart.UserID != nil {
		return
	}

	userCart, err := ctrl.cartService.GetOrCreateCart(&userID, "")
	if err != nil {
		log.Warn("Failed to resolve user cart for merge", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	if _, err := ctrl.cartService.Merge(userCart.ID, guestCart.ID); err != nil {
		log.Warn("Failed to merge guest cart on login", map[string]interface{}{
			"user_id":     userID,
			"guest_cart":  guestCart.ID,
			"target_cart": userCart.ID,
			"error":       err.Error(),
		})
		return
	}

	log.Info("Guest cart merged on login", map[string]interface{}{
		"user_id":     userID,
		"guest_cart":  guestCart.ID,
		"target_cart": userCart.ID,
	})
}
