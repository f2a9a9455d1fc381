package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mveldt/clipnotes/internal/backup"
	"github.com/mveldt/clipnotes/internal/config"
	"github.com/mveldt/clipnotes/internal/database"
	"github.com/mveldt/clipnotes/internal/logging"
	"github.com/mveldt/clipnotes/internal/middleware"
	"github.com/mveldt/clipnotes/internal/platform"
	"github.com/mveldt/clipnotes/internal/secrets"
	"github.com/mveldt/clipnotes/internal/server"
	"github.com/mveldt/clipnotes/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.Database.Dialect, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	dialect, err := store.DialectFor(cfg.Database.Dialect)
	if err != nil {
		return err
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3.Endpoint,
			Bucket:    cfg.Backup.S3.Bucket,
			Region:    cfg.Backup.S3.Region,
			AccessKey: cfg.Backup.S3.AccessKey,
			SecretKey: cfg.Backup.S3.SecretKey,
		},
		Dialect:       cfg.Database.Dialect,
		DBPath:        cfg.Database.DSN,
		Passphrase:    cfg.Backup.Passphrase,
		Interval:      time.Duration(cfg.Backup.IntervalHours) * time.Hour,
		RetentionDays: cfg.Backup.RetentionDays,
	}

	srv := server.New(
		db,
		dialect,
		platform.NewClient(cfg.Platform.BaseURL),
		secrets.NewVault(cfg.Session.Secret),
		time.Duration(cfg.Session.TTLHours)*time.Hour,
		backupCfg,
		cfg.CORSOrigins,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, srv.SessionStore(), logger)
	go sweepRateLimiter(ctx, srv.RateLimiter())

	if cfg.Backup.Enabled {
		srv.BackupManager().Start(ctx)
		defer srv.BackupManager().Stop()
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("clipnotes listening", "addr", cfg.ListenAddr, "dialect", cfg.Database.Dialect)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sweepSessions removes expired sessions once an hour.
func sweepSessions(ctx context.Context, sessions *store.SessionStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired()
			if err != nil {
				logger.Error("sweep sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("swept expired sessions", "count", n)
			}
		}
	}
}

// sweepRateLimiter drops stale rate limit windows.
func sweepRateLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}
