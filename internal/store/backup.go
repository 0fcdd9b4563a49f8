package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// GenerateBackup writes a consistent copy of the database into dir and
// returns its path. The copy is taken with VACUUM INTO, so writers are not
// blocked for longer than the copy itself.
func (s *SQLiteStore) GenerateBackup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("ascend-%s.db", s.now().Format("20060102T150405.000000000Z"))
	path := filepath.Join(dir, name)

	// VACUUM INTO refuses to overwrite.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove stale backup: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return path, nil
}
