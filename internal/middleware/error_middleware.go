package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bildungsfortschritt/api/internal/app/models/dto"
	"github.com/bildungsfortschritt/api/internal/pkg/apperrors"
	"github.com/bildungsfortschritt/api/internal/pkg/observability"
)

// default messages for sentinel errors that reach the handler without a CustomError
var defaultMessages = []struct {
	err     error
	message string
}{
	{apperrors.ErrUserNotFound, "Benutzer nicht gefunden"},
	{apperrors.ErrModuleNotFound, "Modul nicht gefunden"},
	{apperrors.ErrCompetencyNotFound, "Leistungsziel nicht gefunden"},
	{apperrors.ErrEmailAlreadyExists, "Ein Benutzer mit dieser E-Mail-Adresse existiert bereits"},
	{apperrors.ErrModuleCodeExists, "Ein Modul mit diesem Code existiert bereits"},
	{apperrors.ErrCompetencyCodeExists, "Ein Leistungsziel mit diesem Code existiert bereits"},
	{apperrors.ErrInvalidArea, "Ungültiger Bereich"},
	{apperrors.ErrTokenExpired, "Token abgelaufen"},
	{apperrors.ErrTokenNotFound, "Kein Token vorhanden"},
	{apperrors.ErrTokenInvalid, "Ungültiger Token"},
	{apperrors.ErrInvalidCredentials, "Ungültige E-Mail-Adresse oder Passwort"},
	{apperrors.ErrUnauthorized, "Authentifizierung erforderlich"},
	{apperrors.ErrPermissionDenied, "Zugriff verweigert"},
	{apperrors.ErrRateLimited, "Zu viele Anfragen, bitte später erneut versuchen"},
	{apperrors.ErrResourceNotFound, "Ressource nicht gefunden"},
	{apperrors.ErrConflict, "Konflikt mit bestehenden Daten"},
	{apperrors.ErrValidationFailed, "Validierung fehlgeschlagen"},
	{apperrors.ErrBadRequest, "Ungültige Anfrage"},
}

func messageFor(err error) string {
	if msg, ok := apperrors.UserMessage(err); ok {
		return msg
	}
	for _, d := range defaultMessages {
		if errors.Is(err, d.err) {
			return d.message
		}
	}
	return "Interner Serverfehler"
}

// ErrorDetailFor maps an error to its HTTP status and response detail
func ErrorDetailFor(err error) (int, *dto.ErrorDetail) {
	var status int
	var code dto.ErrorCode

	switch {
	case errors.Is(err, apperrors.ErrValidationFailed):
		status, code = http.StatusBadRequest, dto.ErrorCodeValidationFailed
	case errors.Is(err, apperrors.ErrBadRequest):
		status, code = http.StatusBadRequest, dto.ErrorCodeBadRequest
	// conflicts are reported as 400
	case errors.Is(err, apperrors.ErrConflict):
		status, code = http.StatusBadRequest, dto.ErrorCodeResourceAlreadyExists
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials
	case errors.Is(err, apperrors.ErrTokenExpired):
		status, code = http.StatusUnauthorized, dto.ErrorCodeExpiredToken
	case errors.Is(err, apperrors.ErrTokenInvalid):
		status, code = http.StatusUnauthorized, dto.ErrorCodeInvalidToken
	case errors.Is(err, apperrors.ErrTokenNotFound):
		status, code = http.StatusUnauthorized, dto.ErrorCodeTokenNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code = http.StatusUnauthorized, dto.ErrorCodeUnauthorized
	case errors.Is(err, apperrors.ErrPermissionDenied):
		status, code = http.StatusForbidden, dto.ErrorCodeForbidden
	case errors.Is(err, apperrors.ErrResourceNotFound):
		status, code = http.StatusNotFound, dto.ErrorCodeResourceNotFound
	case errors.Is(err, apperrors.ErrRateLimited):
		status, code = http.StatusTooManyRequests, dto.ErrorCodeRateLimited
	default:
		return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Interner Serverfehler").
			WithSeverity(dto.ErrorSeverityCritical)
	}

	detail := dto.NewErrorDetail(code, messageFor(err))
	var ce *apperrors.CustomError
	if errors.As(err, &ce) {
		if ce.Field != "" {
			detail.WithField(ce.Field)
		}
		if ce.Details != nil {
			detail.WithDetails(ce.Details)
		}
	}
	if status < http.StatusInternalServerError {
		detail.WithSeverity(dto.ErrorSeverityWarning)
	}
	return status, detail
}

// HandleAPIError writes the error envelope for err and aborts the chain.
// Unexpected errors are logged and reported; their text never reaches the client.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorDetailFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("requestID", c.GetString(RequestIDKey)).
			Msg("Unhandled error")
		observability.CaptureErr(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

// HandleBindingError answers a request whose body or query failed to bind
func HandleBindingError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}

// NotFound answers unknown routes with the error envelope
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(
		dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Route nicht gefunden").WithSeverity(dto.ErrorSeverityWarning),
	))
}
