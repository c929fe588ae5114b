package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/logger"
	"github.com/yigit/scribelink/internal/pkg/observability"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins. Specific sentinels precede the
// generic ones they may wrap.
var errorMappings = []errorMapping{
	{apperrors.ErrDuplicatePending, http.StatusConflict, dto.ErrorCodeDuplicatePending, "A pending request to this writer already exists"},
	{apperrors.ErrInvalidTransition, http.StatusUnprocessableEntity, dto.ErrorCodeInvalidTransition, "Status transition not allowed"},
	{apperrors.ErrStaleStatus, http.StatusConflict, dto.ErrorCodeStaleStatus, "The request changed in the meantime, reload and retry"},
	{apperrors.ErrNotAWriter, http.StatusUnprocessableEntity, dto.ErrorCodeNotAWriter, "Selected profile is not a writer"},
	{apperrors.ErrMatchRequestNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Match request not found"},
	{apperrors.ErrExamNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Exam not found"},
	{apperrors.ErrProfileNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Profile not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := resolveError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("Unhandled error")
		observability.CaptureWithTags(err, map[string]string{
			"route":  c.FullPath(),
			"method": c.Request.Method,
		})
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

func resolveError(err error) (int, *dto.ErrorDetail) {
	var custom *apperrors.CustomError
	hasCustom := errors.As(err, &custom)

	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		if hasCustom {
			if custom.Message != "" {
				detail.Message = custom.Message
			}
			if custom.Code != "" {
				detail.Code = dto.ErrorCode(custom.Code)
			}
			if custom.Details != nil {
				detail = detail.WithDetails(custom.Details)
			}
		}
		if m.status < http.StatusInternalServerError {
			detail = detail.WithSeverity(dto.ErrorSeverityWarning)
		}
		return m.status, detail
	}
	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
}
