package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/ascend/internal/backup"
	"github.com/hyperengineering/ascend/internal/worker"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take a database backup now",
	Long: "Writes a consistent copy of the database to the backup directory and " +
		"uploads it when a bucket is configured, printing a download link.",
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	w := worker.NewBackupWorker(st, uploader, cfg.Backup.Directory, time.Duration(cfg.Backup.Interval))
	res, err := w.RunOnce(ctx)
	if err != nil {
		return err
	}

	var link string
	var expires time.Time
	if res.Key != "" {
		link, expires, err = uploader.PresignedURL(ctx, res.Key)
		if err != nil && !errors.Is(err, backup.ErrNotConfigured) {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		view := map[string]any{
			"path":       res.Path,
			"size_bytes": res.Size,
			"key":        res.Key,
		}
		if link != "" {
			view["url"] = link
			view["url_expires_at"] = expires
		}
		return printJSON(out, view)
	}

	fmt.Fprintf(out, "Backup:   %s\n", res.Path)
	fmt.Fprintf(out, "Size:     %s\n", humanize.Bytes(uint64(res.Size)))
	if res.Key == "" {
		fmt.Fprintln(out, mutedStyle.Render("Upload:   skipped (no bucket configured)"))
		return nil
	}
	fmt.Fprintf(out, "Uploaded: %s\n", res.Key)
	if link != "" {
		fmt.Fprintf(out, "URL:      %s (expires %s)\n", link, humanize.Time(expires))
	}
	return nil
}
