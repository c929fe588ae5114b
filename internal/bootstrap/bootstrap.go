package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yigit/scribelink/internal/app/audit"
	appControllers "github.com/yigit/scribelink/internal/app/controllers"
	appMigrations "github.com/yigit/scribelink/internal/app/migrations"
	"github.com/yigit/scribelink/internal/app/realtime"
	appRepos "github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/app/repositories/memory"
	appRoutes "github.com/yigit/scribelink/internal/app/routes"
	appServices "github.com/yigit/scribelink/internal/app/services"
	"github.com/yigit/scribelink/internal/config"
	"github.com/yigit/scribelink/internal/db"
	appMiddleware "github.com/yigit/scribelink/internal/middleware"
	pkgAuth "github.com/yigit/scribelink/internal/pkg/auth"
	"github.com/yigit/scribelink/internal/pkg/helpers"
	"github.com/yigit/scribelink/internal/pkg/logger"
	"github.com/yigit/scribelink/internal/pkg/observability"
	"github.com/yigit/scribelink/internal/pkg/validation"
	"github.com/yigit/scribelink/internal/pkg/websocket"
	"github.com/yigit/scribelink/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	Database    *db.PostgresDB // nil for the in-memory driver
	Broadcaster *realtime.Broadcaster
	Feed        realtime.Feed
	Listener    *realtime.PGListener // nil for the in-memory driver
	Recorder    *audit.AsyncRecorder
	Hub         *websocket.Hub
	JWTService  *pkgAuth.JWTService

	MatcherService      appServices.MatcherService
	LifecycleService    appServices.LifecycleService
	ExamService         appServices.ExamService
	NotificationService appServices.NotificationService
	AuthService         *appServices.AuthService
	ProfileService      appServices.ProfileService

	AuthMiddleware *appMiddleware.AuthMiddleware
	Controllers    appRoutes.Controllers
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupObservability initializes Sentry. The returned func flushes it.
func SetupObservability(cfg *config.Config, lgr zerolog.Logger) func() {
	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Sentry.Environment, cfg.Sentry.Release)
	if err != nil {
		// Error reporting is optional; keep serving without it.
		lgr.Warn().Err(err).Msg("Failed to initialize Sentry")
		return func() {}
	}
	if cfg.Sentry.DSN != "" {
		lgr.Info().Str("environment", cfg.Sentry.Environment).Msg("Sentry error reporting enabled")
	}
	return flush
}

// SetupDatabase establishes the database connection and runs migrations.
// It returns nil for the in-memory driver.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	if cfg.Database.Driver == config.DriverMemory {
		lgr.Warn().Msg("Using in-memory store; data is lost on restart")
		return nil, nil
	}

	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database.Pool, lgr).Up(ctx); err != nil {
		database.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return database, nil
}

// BuildDependencies initializes repositories, the change feed, services and
// controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	if err := validation.Register(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	deps := &Dependencies{Logger: lgr, Database: database}
	deps.Broadcaster = realtime.NewBroadcaster(realtime.BroadcasterWithLogger(logger.Component("broadcaster")))

	realtimeUp := func() bool { return true }
	if database != nil {
		// Bridges only get live subscriptions while LISTEN is active and
		// poll otherwise.
		feed := realtime.NewListenerFeed(deps.Broadcaster)
		deps.Feed = feed
		deps.Repos = appRepos.NewRepositories(database.Pool)
		deps.Listener = realtime.NewPGListener(database.Pool, cfg.Realtime.ListenChannel, feed, logger.Component("pg_listener"),
			realtime.PGListenerWithObserver(feed))
		realtimeUp = feed.Listening
	} else {
		deps.Feed = deps.Broadcaster
		deps.Repos = memory.Open(deps.Broadcaster).Repositories()
	}

	if cfg.Seed.Demo {
		// Demo data is a convenience; a failure must not block startup.
		if err := seed.CreateDefaultData(ctx, deps.Repos, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
		}
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.Recorder = audit.NewAsyncRecorder(deps.Repos.Audit, cfg.Audit.QueueSize, cfg.Audit.WriteTimeout, logger.Component("audit"))
	deps.Hub = websocket.NewHub(logger.Component("websocket"))

	// Initialize services
	deps.MatcherService = appServices.NewMatcherService(deps.Repos, logger.Component("matcher"))
	deps.LifecycleService = appServices.NewLifecycleService(deps.Repos, deps.Recorder, logger.Component("lifecycle"))
	deps.ExamService = appServices.NewExamService(deps.Repos, deps.MatcherService, deps.Recorder, logger.Component("exams"))
	deps.NotificationService = appServices.NewNotificationService(deps.Repos, logger.Component("notifications"))
	deps.AuthService = appServices.NewAuthService(deps.Repos, deps.JWTService, deps.Recorder, deps.Hub, logger.Component("auth"))
	deps.ProfileService = appServices.NewProfileService(deps.Repos, deps.Recorder)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	bridgeLogger := logger.Component("bridge")
	newBridge := func() *realtime.Bridge {
		return realtime.NewBridge(deps.Feed, deps.NotificationService,
			realtime.BridgeWithSettleDelay(cfg.Realtime.SettleDelay),
			realtime.BridgeWithPollInterval(cfg.Realtime.PollInterval),
			realtime.BridgeWithLogger(bridgeLogger),
		)
	}

	var pinger appControllers.Pinger
	if database != nil {
		pinger = database.Pool
	}

	deps.Controllers = appRoutes.Controllers{
		Auth:     appControllers.NewAuthController(deps.AuthService, lgr),
		Profile:  appControllers.NewProfileController(deps.ProfileService, lgr),
		Exam:     appControllers.NewExamController(deps.ExamService, deps.MatcherService, lgr),
		Match:    appControllers.NewMatchController(deps.LifecycleService, deps.NotificationService, lgr),
		Activity: appControllers.NewActivityController(deps.Recorder),
		Health:   appControllers.NewHealthController(pinger, realtimeUp, lgr),
		Realtime: websocket.NewHandler(deps.Hub, newBridge, logger.Component("websocket")),
	}

	return deps, nil
}

// Start launches the background workers. They stop when ctx is cancelled.
func (d *Dependencies) Start(ctx context.Context) {
	go d.Hub.Run(ctx)
	if d.Listener != nil {
		go func() {
			if err := d.Listener.Run(ctx); err != nil {
				d.Logger.Error().Err(err).Msg("Change feed listener stopped")
			}
		}()
	}
}

// Close releases what Start and BuildDependencies acquired. The context
// passed to Start must already be cancelled.
func (d *Dependencies) Close(ctx context.Context) error {
	select {
	case <-d.Hub.Done():
	case <-ctx.Done():
	}
	d.Broadcaster.Close()
	err := d.Recorder.Close(ctx)
	if d.Database != nil {
		d.Database.Close()
	}
	return err
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.SessionID(),
		appMiddleware.RequestLogger(logger.Component("http")),
		appMiddleware.Metrics(),
	)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)
	return router
}
