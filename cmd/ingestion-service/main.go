package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	swagger "github.com/swaggo/echo-swagger"

	"golang-trade-clearinghouse/internal/ingestion/config"
	delivery "golang-trade-clearinghouse/internal/ingestion/delivery/http"
	_ "golang-trade-clearinghouse/internal/ingestion/docs"
	"golang-trade-clearinghouse/pkg/logger"
	"golang-trade-clearinghouse/pkg/utils"
)

var (
	configPath string
	runMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the ingestion poller and the reporting API",
	Run:   runServe,
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Runs a single ingest cycle and exits",
	Run:   runOnce,
}

func setup(ctx context.Context) (*config.Config, *logger.Logger, *application) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, runMigrate)
	if err != nil {
		appLogger.Fatal("Failed to initialize application", logger.ErrorField(err))
	}
	return cfg, appLogger, app
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, appLogger, app := setup(ctx)
	defer func() { _ = appLogger.Sync() }()
	defer func() {
		if err := app.Close(); err != nil {
			appLogger.Warn("Error while releasing resources", logger.ErrorField(err))
		}
	}()

	appLogger.Info("Starting Ingestion Service", logger.Field("name", cfg.App.Name))

	// The poller is owned here, once per process, independent of the HTTP server.
	pollerDone := make(chan struct{})
	utils.GoSafe(func() {
		defer close(pollerDone)
		app.poller.Start(ctx)
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	root := e.Group("")
	delivery.NewHealthHandler(app.health).RegisterRoutes(root)
	delivery.NewReportHandler(app.reports, appLogger).RegisterRoutes(root)
	e.GET("/swagger/*", swagger.WrapHandler)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	// Let the poller finish the file it is on.
	select {
	case <-pollerDone:
	case <-shutdownCtx.Done():
		appLogger.Warn("Poller did not stop before shutdown timeout")
	}

	appLogger.Info("Server exiting")
}

func runOnce(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, appLogger, app := setup(ctx)
	defer func() { _ = appLogger.Sync() }()
	defer app.Close()

	report := app.poller.RunCycle(ctx)
	appLogger.Info("Cycle complete",
		logger.StringField("cycle_id", report.ID),
		logger.IntField("files", len(report.Files)),
		logger.Field("archived", report.Archived()),
		logger.StringField("error", report.Error))
	for _, f := range report.Files {
		appLogger.Info("File result",
			logger.StringField("filename", f.Filename),
			logger.StringField("status", f.Status),
			logger.StringField("stage", f.Stage),
			logger.StringField("error", f.Error),
			logger.IntField("trades", f.TradesWritten),
			logger.IntField("alerts", f.AlertsCreated))
	}
}

// @title Trade Clearinghouse API
// @version 1.0
// @description Read-side views over ingested trades and compliance alerts.
// @BasePath /
func main() {
	rootCmd := &cobra.Command{Use: "ingestion-service"}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-ingestion.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&runMigrate, "migrate", false, "Apply database migrations before starting")

	rootCmd.AddCommand(serveCmd, runOnceCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing ingestion-service CLI: %s\n", err)
		os.Exit(1)
	}
}
