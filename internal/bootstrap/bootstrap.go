package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/transcriptgpa/internal/app/controllers"
	appMigrations "github.com/yigit/transcriptgpa/internal/app/migrations"
	appRepos "github.com/yigit/transcriptgpa/internal/app/repositories"
	appRoutes "github.com/yigit/transcriptgpa/internal/app/routes"
	appServices "github.com/yigit/transcriptgpa/internal/app/services"
	"github.com/yigit/transcriptgpa/internal/config"
	"github.com/yigit/transcriptgpa/internal/db"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/extraction"
	"github.com/yigit/transcriptgpa/internal/domain/transcript/prereq"
	appMiddleware "github.com/yigit/transcriptgpa/internal/middleware"
	pkgAuth "github.com/yigit/transcriptgpa/internal/pkg/auth"
	"github.com/yigit/transcriptgpa/internal/pkg/logger"
	"github.com/yigit/transcriptgpa/internal/pkg/ocr"
	"github.com/yigit/transcriptgpa/internal/pkg/ollama"
	"github.com/yigit/transcriptgpa/internal/pkg/pdftext"
	"github.com/yigit/transcriptgpa/internal/pkg/validation"
	"github.com/yigit/transcriptgpa/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	TranscriptService      appServices.TranscriptService
	PrerequisiteService    *appServices.PrerequisiteService
	TranscriptController   *appControllers.TranscriptController
	PrerequisiteController *appControllers.PrerequisiteController
	AuthMiddleware         *appMiddleware.AuthMiddleware
	Repos                  *appRepos.Repositories
	JWTService             *pkgAuth.JWTService
	Logger                 zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logger.Configure(logger.ConfigFromSettings(cfg.Logging.Level, cfg.Logging.Format))

	lgr := log.Logger
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and syncs the
// prerequisite catalog.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	lgr.Info().Msg("Establishing database connection...")
	dbPool, err := db.Connect(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool, lgr)
	if err := migrator.Migrate(ctx, appMigrations.Files()); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.SyncCatalog(ctx, appRepos.NewPrerequisiteRepository(dbPool), cfg.Catalog.Path, lgr); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("prerequisite catalog sync failed: %w", err)
	}

	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	if err := validation.RegisterWithGin(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	deps.Repos = appRepos.NewRepositories(dbPool)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	catalog, err := appServices.LoadCatalog(ctx, deps.Repos.PrerequisiteRepository)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to load prerequisite catalog")
		return nil, err
	}
	lgr.Info().Int("requirements", catalog.Len()).Msg("Prerequisite catalog loaded")

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		SessionTokenExp: cfg.JWT.SessionTokenExpiration,
		TokenIssuer:     cfg.JWT.Issuer,
	})

	fallback, scorer := buildOllama(cfg, lgr)

	acquirer := &appServices.TextAcquirer{
		PDF:         pdftext.Extract,
		Concurrency: cfg.Extraction.Concurrency,
		Timeout:     cfg.Extraction.Timeout,
		Log:         logger.Component("acquire"),
	}
	if cfg.OCR.Enabled {
		acquirer.OCR = ocr.NewEngine(cfg.OCR.Languages)
		lgr.Info().Strs("languages", cfg.OCR.Languages).Msg("OCR enabled")
	}

	deps.TranscriptService = appServices.NewTranscriptService(appServices.TranscriptConfig{
		MaxFiles:       cfg.Extraction.MaxFiles,
		MaxUploadBytes: cfg.Extraction.MaxUploadBytes,
		PreviewChars:   cfg.Extraction.PreviewChars,
		WindowCredits:  cfg.Evaluation.WindowCredits,
		MinGPA:         cfg.Evaluation.MinGPA,
	}, appServices.TranscriptDeps{
		Store:    deps.Repos.SessionRepository,
		Tokens:   deps.JWTService,
		Catalog:  catalog,
		Fallback: fallback,
		Scorer:   scorer,
		Acquirer: acquirer,
		Log:      logger.Component("transcript"),
	})
	deps.PrerequisiteService = appServices.NewPrerequisiteService(catalog)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.TranscriptController = appControllers.NewTranscriptController(deps.TranscriptService)
	deps.PrerequisiteController = appControllers.NewPrerequisiteController(deps.PrerequisiteService)

	return deps, nil
}

// buildOllama returns the optional model-backed capabilities. Both are nil when
// disabled.
func buildOllama(cfg *config.Config, lgr zerolog.Logger) (extraction.SemanticExtractor, prereq.Scorer) {
	if !cfg.Ollama.FallbackEnabled && !cfg.Ollama.ScorerEnabled {
		return nil, nil
	}
	client := ollama.NewClient(ollama.Config{
		BaseURL:    cfg.Ollama.URL,
		Model:      cfg.Ollama.Model,
		Timeout:    cfg.Ollama.Timeout,
		MaxRetries: 2,
	}, logger.Component("ollama"))

	var (
		fallback extraction.SemanticExtractor
		scorer   prereq.Scorer
	)
	if cfg.Ollama.FallbackEnabled {
		fallback = client
	}
	if cfg.Ollama.ScorerEnabled {
		scorer = ollama.NewScorer(client)
	}
	lgr.Info().
		Str("url", cfg.Ollama.URL).
		Str("model", cfg.Ollama.Model).
		Bool("fallback", fallback != nil).
		Bool("scorer", scorer != nil).
		Msg("Ollama capabilities enabled")
	return fallback, scorer
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(logger.Component("http")))
	// Room for every file of one upload plus multipart framing.
	router.Use(appMiddleware.LimitBody(cfg.Extraction.MaxUploadBytes*int64(max(cfg.Extraction.MaxFiles, 1)) + 1<<20))
	router.MaxMultipartMemory = cfg.Extraction.MaxUploadBytes

	appRoutes.SetupRouter(router,
		deps.TranscriptController,
		deps.PrerequisiteController,
		deps.AuthMiddleware,
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
