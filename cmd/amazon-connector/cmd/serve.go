package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sellerops/amazon-connector/internal/api/handlers"
	"github.com/sellerops/amazon-connector/internal/api/middleware"
	"github.com/sellerops/amazon-connector/internal/config"
	"github.com/sellerops/amazon-connector/internal/engine"
	"github.com/sellerops/amazon-connector/internal/notify"
	"github.com/sellerops/amazon-connector/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(log)

	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	var notifier notify.Notifier = notify.NewNoOpNotifier(log)
	if cfg.Notify.DiscordWebhookURL != "" {
		notifier = notify.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL)
	}

	sched, err := engine.NewScheduler(a.engine, a.store, engine.SchedulerConfig{
		Marketplaces:      cfg.Schedule.Marketplaces,
		FetchInterval:     cfg.Schedule.FetchInterval,
		InventoryInterval: cfg.Schedule.InventoryInterval,
		FetchLookback:     cfg.Schedule.FetchLookback,
		StaleAfter:        cfg.Schedule.StaleAfter,
	}, log, engine.WithNotifier(notifier))
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	e := newServer(cfg, a, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr, "marketplaces", cfg.Schedule.Marketplaces)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	<-sched.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// newServer builds the Echo instance with middleware, health and metrics
// endpoints, and all versioned API routes.
func newServer(cfg *config.Config, a *app, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Recovery(log))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(a.store)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Amazon Connector API", Version))

	handlers.RegisterConnectRoutes(api, handlers.NewConnectHandler(a.tokens))
	handlers.RegisterFetchRoutes(api, handlers.NewFetchHandler(a.engine))
	handlers.RegisterActivityRoutes(api, handlers.NewActivitiesHandler(a.store))
	handlers.RegisterProcessedRoutes(api, handlers.NewProcessedHandler(a.cache))
	handlers.RegisterJobRoutes(api, handlers.NewJobsHandler(a.store))
	handlers.RegisterMarketplaceRoutes(api, handlers.NewMarketplacesHandler())

	return e
}
