package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/cache"
	"github.com/SAP-F-2025/biosecurity-service/internal/catalog"
	"github.com/SAP-F-2025/biosecurity-service/internal/config"
	"github.com/SAP-F-2025/biosecurity-service/internal/handlers"
	"github.com/SAP-F-2025/biosecurity-service/internal/repositories"
	instancepg "github.com/SAP-F-2025/biosecurity-service/internal/repositories/postgres"
	instanceredis "github.com/SAP-F-2025/biosecurity-service/internal/repositories/redis"
	"github.com/SAP-F-2025/biosecurity-service/internal/services"
	"github.com/SAP-F-2025/biosecurity-service/internal/utils"
	"github.com/SAP-F-2025/biosecurity-service/internal/validator"
	"github.com/SAP-F-2025/biosecurity-service/pkg"
	"github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve subcommand
func NewServeCommand() *cobra.Command {
	var (
		surveyDir string
		noBanner  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assessment HTTP API",
		Long: `Load every survey in the survey directory and serve the assessment API.

Configuration is read from the environment and an optional .env file.
Surveys whose hierarchy omits weights need COMBINING_WEIGHTS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if surveyDir != "" {
				cfg.SurveyDir = surveyDir
			}

			if !noBanner {
				printStartUpBanner(cmd.OutOrStdout())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&surveyDir, "surveys", "", "survey directory (overrides SURVEY_DIR)")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "do not print the startup banner")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := utils.NewLogger(utils.LoggerConfig{
		Level:     cfg.LogLevel,
		JSON:      cfg.IsProduction(),
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create cache logger: %w", err)
	}
	defer zapLogger.Sync()

	v := validator.New()
	surveys, err := catalog.LoadDir(cfg.SurveyDir, v, logger)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.CacheEnabled || cfg.PersistenceBackend == "redis" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	repo, err := newInstanceRepository(cfg, redisClient)
	if err != nil {
		return err
	}

	cacheService := cache.NewNoopCache()
	if cfg.CacheEnabled {
		cacheService = cache.NewRedisCache(redisClient, zapLogger)
		// A survey edited in place keeps its scope; start from an empty cache.
		if err := services.PurgeEvaluationCache(ctx, cacheService, surveys, cfg.CombiningWeights); err != nil {
			logger.Warn("Failed to purge evaluation cache", "error", err)
		}
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	assessments, err := services.NewAssessmentService(services.AssessmentServiceConfig{
		Catalog:          surveys,
		CombiningWeights: cfg.CombiningWeights,
		Gateways: func(surveyID string) services.PersistenceGateway {
			return services.NewRepositoryGateway(surveyID, repo, logger)
		},
		Cache:     cacheService,
		CacheTTL:  cfg.CacheTTL,
		Publisher: publisher,
		Validator: v,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("survey configuration: %w", err)
	}
	reports := services.NewReportService(assessments, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handlerLogger := utils.NewSlogLogger(logger)
	router.Use(gin.Recovery(), utils.RequestID(), utils.LoggerMiddleware(handlerLogger))
	handlers.NewHandlerManager(assessments, reports, handlerLogger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			"port", cfg.Port,
			"backend", cfg.PersistenceBackend,
			"surveys", surveys.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newInstanceRepository(cfg *config.Config, client *redis.Client) (repositories.InstanceRepository, error) {
	switch cfg.PersistenceBackend {
	case "redis":
		return instanceredis.NewInstanceRedis(client, ""), nil
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		return instancepg.NewInstancePostgreSQL(db), nil
	}
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func printStartUpBanner(out io.Writer) {
	banner := figure.NewFigure("BIOSECURITY", "", true)
	fmt.Fprintln(out, banner.String())
	fmt.Fprintln(out, "======================================================")
	fmt.Fprintf(out, "Biosecurity assessment API (%s)\n\n", Version)
}
