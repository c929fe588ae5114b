package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yigit/scribelink/internal/app/controllers"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/middleware"
	"github.com/yigit/scribelink/internal/pkg/websocket"
)

// Controllers groups the handlers mounted by SetupRouter.
type Controllers struct {
	Auth     *controllers.AuthController
	Profile  *controllers.ProfileController
	Exam     *controllers.ExamController
	Match    *controllers.MatchController
	Activity *controllers.ActivityController
	Health   *controllers.HealthController
	Realtime *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ping", c.Health.Ping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version group
	v1 := router.Group("/api/v1")
	v1.GET("/health", c.Health.Health)

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/auth/session", c.Auth.Session)
	authenticated.POST("/auth/logout", c.Auth.Logout)

	profile := authenticated.Group("/profile")
	{
		profile.GET("", c.Profile.GetProfile)
		profile.PUT("", middleware.ValidateRequest[dto.UpdateProfileRequest](), c.Profile.UpdateProfile)
	}

	// Exams belong to students; disabled students count as students
	exams := authenticated.Group("/exams")
	exams.Use(authMiddleware.RoleRequired(models.RoleStudent))
	{
		exams.POST("", middleware.ValidateRequest[dto.CreateExamRequest](), c.Exam.CreateExam)
		exams.GET("", c.Exam.ListExams)
		exams.DELETE("/:id", c.Exam.DeleteExam)
		exams.GET("/:id/candidates", c.Exam.GetCandidates)
	}

	matches := authenticated.Group("/match-requests")
	{
		matches.POST("",
			authMiddleware.RoleRequired(models.RoleStudent),
			middleware.ValidateRequest[dto.CreateMatchRequestRequest](),
			c.Match.CreateMatchRequest)
		matches.GET("", c.Match.ListMatchRequests)
		matches.GET("/export", c.Match.ExportMatchRequests)
		matches.PATCH("/:id/status", middleware.ValidateRequest[dto.UpdateStatusRequest](), c.Match.UpdateStatus)
		matches.DELETE("/:id", c.Match.DeleteMatchRequest)
		matches.DELETE("", middleware.ValidateRequest[dto.BulkDeleteRequest](), c.Match.BulkDeleteMatchRequests)
	}

	authenticated.POST("/activity", middleware.ValidateRequest[dto.ActivityRequest](), c.Activity.Record)
	authenticated.GET("/realtime/ws", c.Realtime.HandleConnection)
}
