package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/middleware"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

// RefreshCookieName is the cookie carrying the refresh token
const RefreshCookieName = "refreshToken"

// AuthController handles authentication related operations
type AuthController struct {
	authService  services.AuthService
	userService  services.UserService
	secureCookie bool
	logger       zerolog.Logger
}

// NewAuthController creates a new AuthController. secureCookie marks the
// refresh cookie Secure and is set in production.
func NewAuthController(authService services.AuthService, userService services.UserService, secureCookie bool, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService:  authService,
		userService:  userService,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (c *AuthController) setRefreshCookie(ctx *gin.Context, token string, ttl time.Duration) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(RefreshCookieName, token, int(ttl.Seconds()), "/", "", c.secureCookie, true)
}

func (c *AuthController) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(RefreshCookieName, "", -1, "/", "", c.secureCookie, true)
}

func (c *AuthController) respondWithTokens(ctx *gin.Context, status int, result *services.AuthResult, message string) {
	c.setRefreshCookie(ctx, result.Tokens.RefreshToken, result.Tokens.RefreshTTL)
	ctx.JSON(status, dto.NewSuccessResponse(dto.AuthResponse{
		User:        dto.NewUserResponse(result.User),
		AccessToken: result.Tokens.AccessToken,
	}, message))
}

// Register handles self registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "Refresh token is set as cookie"
// @Failure 400 {object} dto.APIResponse "Validation error or email taken"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid registration request payload")
		middleware.HandleBindingError(ctx, err)
		return
	}

	result, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("userID", result.User.ID).Bool("isBB", result.User.IsBB).Msg("User registered")
	c.respondWithTokens(ctx, http.StatusCreated, result, "Benutzer erfolgreich registriert")
}

// Login handles user login
// @Summary User login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindingError(ctx, err)
		return
	}

	result, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.respondWithTokens(ctx, http.StatusOK, result, "Anmeldung erfolgreich")
}

// RefreshToken issues a new access token from the refresh cookie. An
// unusable cookie is cleared.
// @Summary Refresh access token
// @Tags auth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse}
// @Failure 401 {object} dto.APIResponse "Missing or invalid refresh cookie"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	token, err := ctx.Cookie(RefreshCookieName)
	if err != nil || token == "" {
		middleware.HandleAPIError(ctx, apperrors.NewCustomError(apperrors.ErrTokenNotFound, "Kein Refresh-Token vorhanden"))
		return
	}

	accessToken, err := c.authService.Refresh(ctx.Request.Context(), token)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Refresh token rejected")
		c.clearRefreshCookie(ctx)
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.TokenResponse{AccessToken: accessToken}, ""))
}

// Logout clears the refresh cookie. Access tokens expire on their own.
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	c.clearRefreshCookie(ctx)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Erfolgreich abgemeldet"))
}

// Me returns the authenticated user with completed modules populated
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user, ok := actor(ctx)
	if !ok {
		return
	}

	current, err := c.userService.Current(ctx.Request.Context(), user)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(current), ""))
}
