// Package controllers handles HTTP request handling
package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bildungsfortschritt/api/internal/app/models"
	"github.com/bildungsfortschritt/api/internal/middleware"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
)

// parseIDParam reads a positive int64 path parameter. On failure the error
// response is already written.
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(name, "Ungültige ID"))
		return 0, false
	}
	return id, true
}

// actor returns the authenticated caller. On failure the error response is
// already written.
func actor(ctx *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.NewUnauthorizedError("Authentifizierung erforderlich"))
		return nil, false
	}
	return user, true
}
