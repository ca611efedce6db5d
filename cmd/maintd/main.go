// Package main runs the maintenance planner: the HTTP API and the reminder scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"maintenance-planner-backend/config"
	"maintenance-planner-backend/internal/api"
	"maintenance-planner-backend/internal/blob"
	"maintenance-planner-backend/internal/db"
	"maintenance-planner-backend/internal/metrics"
	"maintenance-planner-backend/internal/notification"
	"maintenance-planner-backend/internal/parse"
	"maintenance-planner-backend/internal/planner"
	"maintenance-planner-backend/internal/reminder"
	"maintenance-planner-backend/internal/store"
)

var (
	configPath string
	envFile    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "maintd",
	Short: "Preventive maintenance planner",
	Long: `maintd serves the maintenance plan API and sends day-before reminders
for scheduled maintenance. Without a subcommand it behaves like "maintd serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reminder scheduler",
	RunE:  runServe,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run a single reminder scan and exit",
	RunE:  runRemind,
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file loaded before the configuration")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
}

// app holds the wired services shared by every command.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    store.Store
	planner  *planner.Service
	reminder *reminder.Service
	closeDB  func()
}

func newApp() (*app, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	logger, err := initLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	logger.Info("Configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, logger.Named("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}

	blobs, err := blob.New(cfg.Storage.Root)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	appStore := store.NewGormStore(gormDB)
	mailer := notification.NewMailer(cfg.Mail, logger.Named("mail"))
	notifier := notification.NewNotifier(mailer, cfg.Mail.DefaultRecipients, cfg.Reminder.Location, logger.Named("notification"), m)
	if len(cfg.Mail.DefaultRecipients) == 0 {
		logger.Warn("No default notification recipients configured")
	}

	plannerSvc := planner.NewService(appStore, blobs, notifier, parse.NewPlanCache(10*time.Minute), cfg.Storage, logger.Named("planner"), m)
	reminderSvc := reminder.NewService(cfg, appStore, notifier, logger, m)

	return &app{
		cfg:      cfg,
		log:      logger,
		registry: registry,
		metrics:  m,
		store:    appStore,
		planner:  plannerSvc,
		reminder: reminderSvc,
		closeDB:  func() { sqlDB.Close() },
	}, nil
}

func (a *app) Close() {
	a.closeDB()
	_ = a.log.Sync()
}

// initLogger builds a zap logger from the log section.
func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(
		api.NewHandler(a.planner, a.store, a.cfg.Server.MaxUploadMB<<20, a.log.Named("api")),
		api.RouterOptions{
			Server:   a.cfg.Server,
			Log:      a.log.Named("http"),
			Metrics:  a.metrics,
			Gatherer: a.registry,
		},
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("HTTP server starting", zap.Int("port", a.cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutdown signal received, stopping services...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server Shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if !a.reminder.Run(gctx) {
			a.log.Warn("Reminder scheduler was already running")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	a.log.Info("Server gracefully stopped")
	return nil
}

func runRemind(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.reminder.ScanOnce(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "candidates=%d due=%d reminded=%d failed=%d\n",
		result.Candidates, result.Due, result.Flipped, result.Failed)
	return nil
}
