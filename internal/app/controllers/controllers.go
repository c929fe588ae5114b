// Package controllers handles HTTP request handling
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/middleware"
)

// errMissingBody means a route was registered without ValidateRequest.
var errMissingBody = errors.New("validated request body missing")

// requireSession returns the caller's session or answers 401.
func requireSession(ctx *gin.Context) (models.Session, bool) {
	session, ok := middleware.GetSession(ctx)
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return models.Session{}, false
	}
	return session, true
}
