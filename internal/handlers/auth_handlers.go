package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"glowdesk/internal/caching"
	"glowdesk/internal/models"
	"glowdesk/internal/repositories"
	"glowdesk/internal/services"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService services.AuthService
	userRepo    repositories.UserRepository
	cacheSvc    caching.CacheService
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService, userRepo repositories.UserRepository, cacheSvc caching.CacheService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		userRepo:    userRepo,
		cacheSvc:    cacheSvc,
	}
}

// recordFailedLogin counts a failed attempt against the email+IP window.
// Only failures count, so a busy legitimate user cannot lock themselves out.
func (h *AuthHandlers) recordFailedLogin(ctx context.Context, rateKey string) {
	if err := h.cacheSvc.IncrementRateLimit(ctx, rateKey, loginAttemptWindow); err != nil {
		log.Printf("Rate limit increment failed for %s: %v", rateKey, err)
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	models.TokenResponse
	User *models.User `json:"user"`
}

// Login handles POST /auth/login
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	rateKey := fmt.Sprintf("login:%s:%s", req.Email, c.RealIP())
	limited, err := h.cacheSvc.IsRateLimited(ctx, rateKey, loginAttemptLimit, loginAttemptWindow)
	if err != nil {
		log.Printf("Rate limit check failed for %s: %v", rateKey, err)
	} else if limited {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts, try again later")
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil || user == nil {
		h.recordFailedLogin(ctx, rateKey)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.recordFailedLogin(ctx, rateKey)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	// First successful login completes an invitation
	if user.Status == "invited" {
		user.Status = "active"
		if err := h.userRepo.Update(ctx, user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to activate account")
		}
	}

	tokenResponse, err := h.authService.GenerateTokens(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate tokens")
	}

	return c.JSON(http.StatusOK, LoginResponse{
		TokenResponse: *tokenResponse,
		User:          user,
	})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandlers) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Refresh token is required")
	}

	tokenResponse, err := h.authService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired refresh token")
	}

	return c.JSON(http.StatusOK, tokenResponse)
}

// Logout handles POST /auth/logout
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.RefreshToken != "" {
		if err := h.authService.RevokeRefreshToken(ctx, req.RefreshToken); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke token")
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}
