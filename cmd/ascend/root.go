package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/ascend/internal/api"
	"github.com/hyperengineering/ascend/internal/backup"
	"github.com/hyperengineering/ascend/internal/config"
	"github.com/hyperengineering/ascend/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "ascend",
	Short:        "Ascend - habit progression service",
	Long:         "Runs the progression API server. Subcommands inspect and reconcile state without the server.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and ASCEND_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(achievementsCmd)
	rootCmd.AddCommand(backupCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded")

	slog.SetDefault(slog.New(newLogHandler(os.Stdout, cfg.Log)))
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	svc, st, err := openService(cfg)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		st.Close()
		return err
	}
	slog.Info("backup uploader initialized", "bucket", cfg.Backup.Bucket)

	handler := api.NewHandler(svc, st, cfg.Auth.APIKey, Version)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	var wg sync.WaitGroup
	backupWorker := worker.NewBackupWorker(st, uploader, cfg.Backup.Directory, time.Duration(cfg.Backup.Interval))
	startWorker(ctx, &wg, "backup", backupWorker.Run)

	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed means Shutdown was called; anything else is fatal.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := st.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogHandler builds the handler for cfg.Format, JSON unless "text".
func newLogHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
