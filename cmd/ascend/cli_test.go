package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperengineering/ascend/internal/achievement"
	"github.com/hyperengineering/ascend/internal/progression"
	"github.com/hyperengineering/ascend/internal/store"
	"github.com/hyperengineering/ascend/internal/types"
)

const testUserID = "5f0c8a9e-2d3b-4c1a-9e8f-7a6b5c4d3e2f"

// setupEnv points config at a fresh database and backup directory in
// dev mode, with no config or .env file. Returns the database path.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ascend.db")
	t.Setenv("ASCEND_DEV_MODE", "true")
	t.Setenv("ASCEND_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("ASCEND_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("ASCEND_DB_PATH", dbPath)
	t.Setenv("ASCEND_BACKUP_DIR", filepath.Join(dir, "backups"))
	t.Setenv("ASCEND_BACKUP_BUCKET", "")
	t.Setenv("ASCEND_API_KEY", "")
	return dbPath
}

// executeCmd runs the CLI with args and captured output.
func executeCmd(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()

	// Cobra parses into these variables, so stale values from previous
	// tests would leak if not reset.
	dbPathOverride = ""
	jsonOutput = false
	reconcileDate = ""
	achievementsUser = ""

	outBuf := new(bytes.Buffer)
	rootCmd.SetOut(outBuf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	rootCmd.SetArgs(nil)

	return outBuf.String(), err
}

// defaultRegistry loads the built-in achievement registry.
func defaultRegistry(t testing.TB) *achievement.Registry {
	t.Helper()
	reg, err := achievement.Default()
	if err != nil {
		t.Fatalf("achievement.Default() error = %v", err)
	}
	return reg
}

// seedDailyHabit creates a habit due every day for testUserID.
func seedDailyHabit(t *testing.T, dbPath string) {
	t.Helper()
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer st.Close()

	svc := progression.NewService(st, defaultRegistry(t), nil, progression.Config{HPPerMissedHabit: 10})
	if _, err := svc.CreateHabit(context.Background(), testUserID, types.CreateHabitRequest{
		Name:          "Stretch",
		FrequencyDays: []int{0, 1, 2, 3, 4, 5, 6},
	}); err != nil {
		t.Fatalf("CreateHabit() error = %v", err)
	}
}

func TestMigrate_ReportsSchemaVersion(t *testing.T) {
	dbPath := setupEnv(t)

	out, err := executeCmd(t, "migrate")
	if err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if !strings.Contains(out, "Database: "+dbPath) || !strings.Contains(out, "Schema:   v") {
		t.Errorf("output = %q", out)
	}

	out, err = executeCmd(t, "migrate", "--json")
	if err != nil {
		t.Fatalf("migrate --json error = %v", err)
	}
	var got struct {
		Path          string `json:"path"`
		SchemaVersion int64  `json:"schema_version"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Path != dbPath || got.SchemaVersion < 1 {
		t.Errorf("got %+v", got)
	}
}

func TestMigrate_DBFlagOverridesConfig(t *testing.T) {
	setupEnv(t)
	other := filepath.Join(t.TempDir(), "other.db")

	if _, err := executeCmd(t, "migrate", "--db", other); err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("--db database not created: %v", err)
	}
}

func TestProfile_NewUserStartsAtLevelOne(t *testing.T) {
	setupEnv(t)

	out, err := executeCmd(t, "profile", testUserID, "--json")
	if err != nil {
		t.Fatalf("profile error = %v", err)
	}
	var got profileView
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Level != 1 || got.XP != 0 || got.HP != 100 || got.MaxHP != 100 {
		t.Errorf("profile = %+v", got.Profile)
	}
	if got.NextLevelXP != 100 || got.TotalXP != 0 {
		t.Errorf("NextLevelXP = %d, TotalXP = %d", got.NextLevelXP, got.TotalXP)
	}

	out, err = executeCmd(t, "profile", testUserID)
	if err != nil {
		t.Fatalf("profile error = %v", err)
	}
	for _, want := range []string{"Level:", "100/100", "Total:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProfile_RejectsInvalidUserID(t *testing.T) {
	setupEnv(t)

	if _, err := executeCmd(t, "profile", "not-a-uuid"); err == nil {
		t.Error("expected error for invalid user id")
	}
}

func TestReconcile_BaselineThenPenalty(t *testing.T) {
	dbPath := setupEnv(t)
	seedDailyHabit(t, dbPath)

	// Given: the first run only sets the baseline
	out, err := executeCmd(t, "reconcile", testUserID, "--date", "2021-03-10")
	if err != nil {
		t.Fatalf("reconcile error = %v", err)
	}
	if !strings.Contains(out, "Baseline set, watermark 2021-03-09") {
		t.Errorf("output = %q", out)
	}

	// When: three days pass unlogged
	out, err = executeCmd(t, "reconcile", testUserID, "--date", "2021-03-13", "--json")
	if err != nil {
		t.Fatalf("reconcile error = %v", err)
	}

	// Then: each is charged and the watermark reaches the day before
	var got struct {
		Reconciliation struct {
			MissedCount int        `json:"missed_count"`
			Penalty     int        `json:"penalty"`
			Watermark   types.Date `json:"watermark"`
		} `json:"reconciliation"`
		Profile types.Profile `json:"profile"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	r := got.Reconciliation
	if r.MissedCount != 3 || r.Penalty != 30 || r.Watermark != types.NewDate(2021, 3, 12) {
		t.Errorf("reconciliation = %+v", r)
	}
	if got.Profile.HP != 70 {
		t.Errorf("HP = %d, want 70", got.Profile.HP)
	}

	// And: a repeat run has nothing left to do
	out, err = executeCmd(t, "reconcile", testUserID, "--date", "2021-03-13")
	if err != nil {
		t.Fatalf("reconcile error = %v", err)
	}
	if !strings.Contains(out, "Nothing to reconcile") {
		t.Errorf("output = %q", out)
	}
}

func TestReconcile_InvalidDate(t *testing.T) {
	setupEnv(t)

	if _, err := executeCmd(t, "reconcile", testUserID, "--date", "13/10/2026"); err == nil {
		t.Error("expected error for invalid --date")
	}
}

func TestAchievements_ListsRegistry(t *testing.T) {
	setupEnv(t)
	registry := defaultRegistry(t)

	out, err := executeCmd(t, "achievements")
	if err != nil {
		t.Fatalf("achievements error = %v", err)
	}
	for _, def := range registry.All() {
		if !strings.Contains(out, def.ID) {
			t.Errorf("output missing %s", def.ID)
		}
	}

	out, err = executeCmd(t, "achievements", "--json")
	if err != nil {
		t.Fatalf("achievements --json error = %v", err)
	}
	var defs []achievement.Definition
	if err := json.Unmarshal([]byte(out), &defs); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(defs) != registry.Len() {
		t.Errorf("got %d definitions, want %d", len(defs), registry.Len())
	}
}

func TestAchievements_ForUser(t *testing.T) {
	dbPath := setupEnv(t)

	// Given: one completed habit
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	svc := progression.NewService(st, defaultRegistry(t), nil, progression.Config{})
	ctx := context.Background()
	h, err := svc.CreateHabit(ctx, testUserID, types.CreateHabitRequest{Name: "Read", FrequencyDays: []int{1, 3, 5}})
	if err != nil {
		t.Fatalf("CreateHabit() error = %v", err)
	}
	if _, err := svc.SetHabitStatus(ctx, testUserID, h.ID, types.NewDate(2020, 1, 1), types.StatusCompleted); err != nil {
		t.Fatalf("SetHabitStatus() error = %v", err)
	}
	st.Close()

	// When: listing the user's achievements
	out, err := executeCmd(t, "achievements", "--user", testUserID, "--json")
	if err != nil {
		t.Fatalf("achievements error = %v", err)
	}

	// Then: both first-completion milestones are unlocked
	var statuses []struct {
		ID       string  `json:"id"`
		Unlocked bool    `json:"unlocked"`
		Progress float64 `json:"progress"`
	}
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(statuses) != defaultRegistry(t).Len() {
		t.Fatalf("got %d statuses", len(statuses))
	}
	unlocked := map[string]bool{}
	for _, s := range statuses {
		if s.Unlocked {
			unlocked[s.ID] = true
		}
	}
	if len(unlocked) != 2 || !unlocked["first-habit"] || !unlocked["first-completion"] {
		t.Errorf("unlocked = %v", unlocked)
	}

	out, err = executeCmd(t, "achievements", "--user", testUserID)
	if err != nil {
		t.Fatalf("achievements error = %v", err)
	}
	if !strings.Contains(out, "unlocked 2020-01-01") {
		t.Errorf("output = %q", out)
	}
}

func TestBackup_LocalOnly(t *testing.T) {
	setupEnv(t)

	out, err := executeCmd(t, "backup", "--json")
	if err != nil {
		t.Fatalf("backup error = %v", err)
	}
	var got struct {
		Path string `json:"path"`
		Key  string `json:"key"`
		Size int64  `json:"size_bytes"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Key != "" || got.Size == 0 {
		t.Errorf("got %+v", got)
	}
	if _, err := os.Stat(got.Path); err != nil {
		t.Errorf("backup file: %v", err)
	}

	out, err = executeCmd(t, "backup")
	if err != nil {
		t.Fatalf("backup error = %v", err)
	}
	if !strings.Contains(out, "skipped (no bucket configured)") {
		t.Errorf("output = %q", out)
	}
}
