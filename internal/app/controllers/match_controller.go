package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/services"
	"github.com/yigit/scribelink/internal/middleware"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
	"github.com/yigit/scribelink/internal/pkg/helpers"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MatchController handles match requests between students and writers
type MatchController struct {
	lifecycle     services.LifecycleService
	notifications services.NotificationService
	logger        zerolog.Logger
}

// NewMatchController creates a new MatchController
func NewMatchController(lifecycle services.LifecycleService, notifications services.NotificationService, logger zerolog.Logger) *MatchController {
	return &MatchController{
		lifecycle:     lifecycle,
		notifications: notifications,
		logger:        logger,
	}
}

// CreateMatchRequest asks a writer to cover one of the caller's exams
// POST /api/v1/match-requests
func (c *MatchController) CreateMatchRequest(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	req, ok := middleware.ValidatedBody[dto.CreateMatchRequestRequest](ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingBody)
		return
	}

	m, err := c.lifecycle.CreateRequest(ctx.Request.Context(), session, req.WriterID, req.ExamID)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("writerID", req.WriterID.String()).
			Str("examID", req.ExamID.String()).
			Msg("Failed to create match request")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(m))
}

// ListMatchRequests returns the caller's enriched requests, newest first
// GET /api/v1/match-requests
func (c *MatchController) ListMatchRequests(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}

	list, err := c.notifications.ListForSession(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(list))
}

// ExportMatchRequests streams the caller's requests as an xlsx workbook
// GET /api/v1/match-requests/export
func (c *MatchController) ExportMatchRequests(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}

	wb, err := c.notifications.Export(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer wb.Close()

	filename := fmt.Sprintf("match-requests-%s.xlsx", time.Now().UTC().Format("20060102"))
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Header("Content-Type", xlsxContentType)
	ctx.Status(http.StatusOK)
	if _, err := wb.WriteTo(ctx.Writer); err != nil {
		c.logger.Error().Err(err).Str("userID", session.UserID.String()).Msg("Failed to write export")
	}
}

// UpdateStatus moves a match request to a new status
// PATCH /api/v1/match-requests/:id/status
func (c *MatchController) UpdateStatus(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	req, ok := middleware.ValidatedBody[dto.UpdateStatusRequest](ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingBody)
		return
	}
	to, err := models.ParseMatchStatus(req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError(map[string]string{"status": err.Error()}))
		return
	}

	m, err := c.lifecycle.Transition(ctx.Request.Context(), session, id, to)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("matchRequestID", id.String()).
			Str("to", string(to)).
			Msg("Status change rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(m))
}

// DeleteMatchRequest removes one request the caller participates in
// DELETE /api/v1/match-requests/:id
func (c *MatchController) DeleteMatchRequest(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	id, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.lifecycle.DeleteRequest(ctx.Request.Context(), session, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.DeleteResponse{Deleted: 1}))
}

// BulkDeleteMatchRequests removes the listed requests the caller participates in
// DELETE /api/v1/match-requests
func (c *MatchController) BulkDeleteMatchRequests(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	req, ok := middleware.ValidatedBody[dto.BulkDeleteRequest](ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingBody)
		return
	}

	n, err := c.lifecycle.DeleteRequests(ctx.Request.Context(), session, req.IDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.DeleteResponse{Deleted: n}))
}
