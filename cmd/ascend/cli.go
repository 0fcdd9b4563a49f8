package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hyperengineering/ascend/internal/achievement"
	"github.com/hyperengineering/ascend/internal/clock"
	"github.com/hyperengineering/ascend/internal/config"
	"github.com/hyperengineering/ascend/internal/progression"
	"github.com/hyperengineering/ascend/internal/store"
	"github.com/hyperengineering/ascend/internal/validation"
)

var (
	dbPathOverride string
	jsonOutput     bool
)

var (
	cAccent = lipgloss.Color("205")
	cGood   = lipgloss.Color("42")
	cBad    = lipgloss.Color("196")
	cGold   = lipgloss.Color("220")
	cMuted  = lipgloss.Color("244")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	labelStyle = lipgloss.NewStyle().Bold(true)
	goodStyle  = lipgloss.NewStyle().Foreground(cGood)
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	goldStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	mutedStyle = lipgloss.NewStyle().Foreground(cMuted)
)

// loadConfig loads configuration and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPathOverride != "" {
		cfg.Database.Path = dbPathOverride
	}
	return cfg, nil
}

// openStore opens (and migrates) the configured database.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.Database.Path)
}

// openService opens the store and builds a progression service on it.
// The caller closes the returned store.
func openService(cfg *config.Config) (*progression.Service, *store.SQLiteStore, error) {
	loc, err := cfg.Progression.Location()
	if err != nil {
		return nil, nil, err
	}
	registry, err := achievement.Default()
	if err != nil {
		return nil, nil, fmt.Errorf("load achievements: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := progression.NewService(st, registry, clock.Real{}, progression.Config{
		HPPerMissedHabit: cfg.Progression.HPPerMissedHabit,
		DefaultMaxHP:     cfg.Progression.DefaultMaxHP,
		CASMaxRetries:    cfg.Progression.CASMaxRetries,
		CASBackoff:       time.Duration(cfg.Progression.CASBackoff),
		Location:         loc,
	})
	return svc, st, nil
}

// userArg validates a user id argument.
func userArg(id string) (string, error) {
	if verr := validation.ValidateUUID("user", id); verr != nil {
		return "", fmt.Errorf("%s: %s", verr.Field, verr.Message)
	}
	return id, nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// progressBar renders fraction (0..1) as a fixed-width bar.
func progressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return goodStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
}
