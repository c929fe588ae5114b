package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scribelink/internal/app/audit"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/middleware"
)

// ActivityController accepts activity log entries from the browser
type ActivityController struct {
	recorder audit.Recorder
}

// NewActivityController creates a new ActivityController
func NewActivityController(recorder audit.Recorder) *ActivityController {
	return &ActivityController{recorder: recorder}
}

// Record queues the entry and answers immediately
// POST /api/v1/activity
func (c *ActivityController) Record(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	req, ok := middleware.ValidatedBody[dto.ActivityRequest](ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingBody)
		return
	}

	entry := audit.Event(session, req.Kind, req.Action, req.Details)
	entry.PagePath = req.PagePath
	c.recorder.Record(ctx.Request.Context(), entry)

	ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.MessageResponse{Message: "Recorded"}))
}
