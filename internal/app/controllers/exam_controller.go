package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/services"
	"github.com/yigit/scribelink/internal/middleware"
	"github.com/yigit/scribelink/internal/pkg/helpers"
)

// ExamController handles the student's exam requests
type ExamController struct {
	examService    services.ExamService
	matcherService services.MatcherService
	logger         zerolog.Logger
}

// NewExamController creates a new ExamController
func NewExamController(examService services.ExamService, matcherService services.MatcherService, logger zerolog.Logger) *ExamController {
	return &ExamController{
		examService:    examService,
		matcherService: matcherService,
		logger:         logger,
	}
}

// CreateExam posts a new exam and returns the writers available for it
// POST /api/v1/exams
func (c *ExamController) CreateExam(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	req, ok := middleware.ValidatedBody[dto.CreateExamRequest](ctx)
	if !ok {
		middleware.HandleAPIError(ctx, errMissingBody)
		return
	}

	resp, err := c.examService.CreateExam(ctx.Request.Context(), session, req)
	if err != nil {
		c.logger.Warn().Err(err).Str("userID", session.UserID.String()).Msg("Failed to create exam")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Str("examID", resp.Exam.ID.String()).
		Int("candidates", len(resp.Candidates)).
		Msg("Exam created")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// ListExams returns the caller's exams, newest exam date first
// GET /api/v1/exams
func (c *ExamController) ListExams(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}

	exams, err := c.examService.ListExams(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(exams))
}

// DeleteExam removes an exam together with its match requests
// DELETE /api/v1/exams/:id
func (c *ExamController) DeleteExam(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	examID, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.examService.DeleteExam(ctx.Request.Context(), session, examID); err != nil {
		c.logger.Warn().Err(err).Str("examID", examID.String()).Msg("Failed to delete exam")
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.MessageResponse{Message: "Exam deleted"}))
}

// GetCandidates ranks the writers for one of the caller's exams
// GET /api/v1/exams/:id/candidates
func (c *ExamController) GetCandidates(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}
	examID, err := helpers.ParseUUIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	candidates, err := c.matcherService.CandidatesForExam(ctx.Request.Context(), session, examID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(candidates))
}
