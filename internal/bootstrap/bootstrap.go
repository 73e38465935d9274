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

	appControllers "github.com/bildungsfortschritt/api/internal/app/controllers"
	appMigrations "github.com/bildungsfortschritt/api/internal/app/migrations"
	appRepos "github.com/bildungsfortschritt/api/internal/app/repositories"
	"github.com/bildungsfortschritt/api/internal/app/repositories/inmem"
	appRoutes "github.com/bildungsfortschritt/api/internal/app/routes"
	appServices "github.com/bildungsfortschritt/api/internal/app/services"
	"github.com/bildungsfortschritt/api/internal/config"
	"github.com/bildungsfortschritt/api/internal/db"
	appMiddleware "github.com/bildungsfortschritt/api/internal/middleware"
	pkgAuth "github.com/bildungsfortschritt/api/internal/pkg/auth"
	"github.com/bildungsfortschritt/api/internal/pkg/logger"
	"github.com/bildungsfortschritt/api/internal/pkg/metrics"
	"github.com/bildungsfortschritt/api/internal/seed"
)

// Storage is the selected persistence backend. Database is nil when the
// in-memory store is used.
type Storage struct {
	Database *db.PostgresDB
	Repos    *appRepos.Repositories
}

// Close releases the database pool, if any
func (s *Storage) Close() {
	if s.Database != nil {
		s.Database.Close()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Services       *appServices.Services
	Controllers    *appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	JWTService     *pkgAuth.JWTService
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
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Str("env", cfg.Server.Mode).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase opens the configured store, applies migrations and seeds the
// demo data when enabled.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	storage := &Storage{}

	if cfg.Database.Driver == config.DriverMemory {
		lgr.Warn().Msg("Using in-memory store; data is lost on restart")
		storage.Repos = inmem.NewRepositories(inmem.NewDB())
	} else {
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Ping(ctx); err != nil {
			lgr.Error().Err(err).Msg("Failed to ping database")
			database.Close()
			return nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		lgr.Info().Msg("Running database migrations...")
		if err := appMigrations.NewMigrator(database.Pool, lgr).Up(context.Background()); err != nil {
			lgr.Error().Err(err).Msg("Database migration error")
			database.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		storage.Database = database
		storage.Repos = appRepos.NewRepositories(database)
	}

	if cfg.Seed.Enabled {
		if err := seed.CreateDemoData(context.Background(), storage.Repos, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
		}
	}

	return storage, nil
}

// BuildDependencies initializes services, middleware and controllers.
func BuildDependencies(cfg *config.Config, storage *Storage, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{Logger: lgr}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		AccessSecret:    cfg.JWT.AccessSecret,
		RefreshSecret:   cfg.JWT.RefreshSecret,
		AccessTokenExp:  cfg.AccessTokenTTL(),
		RefreshTokenExp: cfg.RefreshTokenTTL(),
		Issuer:          cfg.JWT.Issuer,
		Audience:        cfg.Audiences(),
	})

	deps.Services = appServices.NewServices(storage.Repos, deps.JWTService, lgr)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.Services.Auth)

	// a nil interface keeps the health check in memory mode
	var pinger appControllers.Pinger
	if storage.Database != nil {
		pinger = storage.Database
	}

	deps.Controllers = &appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.Services.Auth, deps.Services.Users, cfg.IsProduction(), lgr),
		Users:        appControllers.NewUserController(deps.Services.Users, lgr),
		Modules:      appControllers.NewModuleController(deps.Services.Modules, lgr),
		Competencies: appControllers.NewCompetencyController(deps.Services.Competencies, lgr),
		Health:       appControllers.NewHealthController(pinger, cfg.Server.Mode, cfg.Server.Version),
	}

	return deps
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(
		appMiddleware.RequestID(),
		appMiddleware.Recovery(lgr),
		appMiddleware.RequestLogger(lgr),
		appMiddleware.SecurityHeaders(),
		appMiddleware.CORS([]string{cfg.Server.FrontendURL}),
	)
	if cfg.RateLimit.Enabled {
		limiter := appMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		router.Use(limiter.Handler())
	}
	if cfg.Observability.MetricsEnabled {
		router.Use(appMiddleware.Metrics())
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	appRoutes.SetupSwagger(router, cfg.Server.Version)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	if cfg.IsProduction() && cfg.Server.StaticDir != "" {
		appRoutes.SetupSPA(router, cfg.Server.StaticDir)
		lgr.Info().Str("dir", cfg.Server.StaticDir).Msg("Serving frontend build")
	} else {
		router.NoRoute(appMiddleware.NotFound)
	}

	return router, nil
}
