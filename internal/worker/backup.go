package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hyperengineering/ascend/internal/backup"
)

// BackupStore defines the store operations needed by the backup worker.
type BackupStore interface {
	GenerateBackup(ctx context.Context, dir string) (string, error)
}

// BackupResult describes one completed backup.
type BackupResult struct {
	Path string
	// Key is the object key off-site, empty when uploads are disabled.
	Key  string
	Size int64
}

// BackupWorker writes a database backup to a local directory and ships it
// through an Uploader, once on start and then every interval.
type BackupWorker struct {
	store    BackupStore
	uploader backup.Uploader
	dir      string
	interval time.Duration
}

// NewBackupWorker creates a worker. A nil uploader keeps backups local.
func NewBackupWorker(store BackupStore, uploader backup.Uploader, dir string, interval time.Duration) *BackupWorker {
	if uploader == nil {
		uploader = &backup.NoopUploader{}
	}
	return &BackupWorker{
		store:    store,
		uploader: uploader,
		dir:      dir,
		interval: interval,
	}
}

// Run starts the worker loop. Respects context cancellation for graceful
// shutdown; a backup in progress runs to completion.
func (w *BackupWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "backup",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "backup",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *BackupWorker) runLogged(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("backup failed",
			"component", "worker",
			"action", "backup_failed",
			"error", err,
		)
	}
}

// RunOnce takes one backup and uploads it.
func (w *BackupWorker) RunOnce(ctx context.Context) (BackupResult, error) {
	slog.Info("backup started",
		"component", "worker",
		"action", "backup_start",
	)

	path, err := w.store.GenerateBackup(ctx, w.dir)
	if err != nil {
		return BackupResult{}, fmt.Errorf("generate backup: %w", err)
	}
	res := BackupResult{Path: path}
	if info, err := os.Stat(path); err == nil {
		res.Size = info.Size()
	}

	res.Key, err = w.uploader.Upload(ctx, path)
	if err != nil {
		return res, fmt.Errorf("upload backup: %w", err)
	}

	slog.Info("backup completed",
		"component", "worker",
		"action", "backup_complete",
		"path", path,
		"size", humanize.Bytes(uint64(res.Size)),
		"uploaded", res.Key != "",
	)
	return res, nil
}
