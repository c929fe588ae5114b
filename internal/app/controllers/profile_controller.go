package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/services"
	"github.com/yigit/scribelink/internal/middleware"
)

// ProfileController serves the caller's own profile
type ProfileController struct {
	profileService services.ProfileService
	logger         zerolog.Logger
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService services.ProfileService, logger zerolog.Logger) *ProfileController {
	return &ProfileController{profileService: profileService, logger: logger}
}

// GetProfile returns the caller's profile
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}

	profile, err := c.profileService.GetProfile(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}

// UpdateProfile replaces the editable profile fields
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	req, ok := middleware.ValidatedBody[dto.UpdateProfileRequest](ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingBody)
		return
	}

	profile, err := c.profileService.UpdateProfile(ctx.Request.Context(), session, req)
	if err != nil {
		c.logger.Warn().Err(err).Str("userID", session.UserID.String()).Msg("Failed to update profile")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(profile))
}
