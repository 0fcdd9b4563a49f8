package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  "Opens the database, applies any pending migrations and reports the schema version.",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	version, err := st.SchemaVersion(context.Background())
	if err != nil {
		return err
	}

	var sizeBytes int64
	if info, statErr := os.Stat(cfg.Database.Path); statErr == nil {
		sizeBytes = info.Size()
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"path":           cfg.Database.Path,
			"schema_version": version,
			"size_bytes":     sizeBytes,
		})
	}

	fmt.Fprintf(out, "Database: %s\n", cfg.Database.Path)
	fmt.Fprintf(out, "Schema:   v%d\n", version)
	fmt.Fprintf(out, "Size:     %s\n", humanize.Bytes(uint64(sizeBytes)))
	return nil
}
