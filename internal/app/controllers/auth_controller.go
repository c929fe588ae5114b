package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/services"
	"github.com/yigit/scribelink/internal/middleware"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService *services.AuthService
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		c.logger.Warn().Msg("Invalid registration request payload")
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req, middleware.GetSessionID(ctx))
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Failed to register user")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Str("userID", resp.Profile.ID.String()).
		Str("role", string(resp.Profile.Role)).
		Msg("User registered")

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp))
}

// Login handles user login
// POST /api/v1/auth/login
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req, middleware.GetSessionID(ctx))
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("userID", resp.Profile.ID.String()).Msg("User logged in successfully")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// Session returns the caller's profile and session id
// GET /api/v1/auth/session
func (c *AuthController) Session(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}

	resp, err := c.authService.Session(ctx.Request.Context(), session)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// Logout ends the caller's realtime connection
// POST /api/v1/auth/logout
func (c *AuthController) Logout(ctx *gin.Context) {
	session, ok := requireSession(ctx)
	if !ok {
		return
	}

	c.authService.Logout(ctx.Request.Context(), session)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.MessageResponse{Message: "Logged out"}))
}
