package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/auth"
)

// Context keys set by JWTAuth
const (
	CurrentUserKey = "currentUser"
	UserIDKey      = "userID"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	authService services.AuthService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// JWTAuth validates the Bearer access token and loads the acting user
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			HandleAPIError(c, apperrors.NewCustomError(err, "Authentifizierung erforderlich"))
			return
		}

		user, err := m.authService.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			HandleAPIError(c, err)
			return
		}

		c.Set(CurrentUserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// RoleRequired rejects authenticated users without the given role. It must
// run after JWTAuth.
func (m *AuthMiddleware) RoleRequired(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			HandleAPIError(c, apperrors.NewUnauthorizedError("Authentifizierung erforderlich"))
			return
		}
		if user.Role() != role {
			HandleAPIError(c, apperrors.NewForbiddenError("Zugriff verweigert. Berechtigung fehlt"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by JWTAuth
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
