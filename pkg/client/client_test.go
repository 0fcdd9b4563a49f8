package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperengineering/ascend/internal/achievement"
	"github.com/hyperengineering/ascend/internal/api"
	"github.com/hyperengineering/ascend/internal/clock"
	"github.com/hyperengineering/ascend/internal/progression"
	"github.com/hyperengineering/ascend/internal/store"
)

const (
	testAPIKey = "test-key"
	testUserID = "5f0c8a9e-2d3b-4c1a-9e8f-7a6b5c4d3e2f"
)

// defaultRegistry loads the built-in achievement registry.
func defaultRegistry(t testing.TB) *achievement.Registry {
	t.Helper()
	reg, err := achievement.Default()
	if err != nil {
		t.Fatalf("achievement.Default() error = %v", err)
	}
	return reg
}

// newTestServer runs the real router over a fresh database.
func newTestServer(t *testing.T) (*httptest.Server, *clock.Fake) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "ascend.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clk := clock.NewFake(time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC))
	svc := progression.NewService(st, defaultRegistry(t), clk, progression.Config{HPPerMissedHabit: 10})
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc, st, testAPIKey, "test")))
	t.Cleanup(srv.Close)
	return srv, clk
}

func newTestClient(t *testing.T, baseURL, apiKey string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, APIKey: apiKey, RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() with empty BaseURL: expected error")
	}
}

func TestClient_ProgressionFlow(t *testing.T) {
	srv, clk := newTestServer(t)
	c := newTestClient(t, srv.URL, testAPIKey)
	ctx := context.Background()

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if health.Status != "healthy" || health.Achievements != defaultRegistry(t).Len() {
		t.Errorf("health = %+v", health)
	}

	// Given: a new user with one daily habit
	p, err := c.Profile(ctx, testUserID)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Level != 1 || p.HP != 100 {
		t.Errorf("new profile = %+v", p)
	}
	habit, err := c.CreateHabit(ctx, testUserID, CreateHabitParams{
		Name:          "Stretch",
		FrequencyDays: []int{0, 1, 2, 3, 4, 5, 6},
	})
	if err != nil {
		t.Fatalf("CreateHabit() error = %v", err)
	}

	// When: the app opens for the first time
	open, err := c.OpenApp(ctx, testUserID, "")
	if err != nil {
		t.Fatalf("OpenApp() error = %v", err)
	}

	// Then: only the baseline is set
	if !open.Reconciliation.Baseline || open.Reconciliation.Watermark != "2026-10-14" {
		t.Errorf("first open = %+v", open.Reconciliation)
	}

	// When: today's habit is completed
	res, err := c.SetHabitStatus(ctx, testUserID, habit.ID, "2026-10-15", StatusCompleted)
	if err != nil {
		t.Fatalf("SetHabitStatus() error = %v", err)
	}
	if res.XPDelta != 10 || res.Profile.Level != 2 || res.Profile.XP != 35 {
		t.Errorf("status result = %+v", res)
	}

	// And: a day passes without it
	clk.AdvanceDays(2)
	open, err = c.OpenApp(ctx, testUserID, "")
	if err != nil {
		t.Fatalf("OpenApp() error = %v", err)
	}

	// Then: the one missed day is charged
	if open.Reconciliation.MissedCount != 1 || open.Profile.HP != 90 || open.Date != "2026-10-17" {
		t.Errorf("second open = %+v", open)
	}

	events, err := c.Events(ctx, testUserID, "", 0)
	if err != nil {
		t.Fatalf("Events() error = %v", err)
	}
	seen := map[string]int{}
	for _, e := range events {
		seen[e.Type]++
	}
	if seen[EventAchievementUnlocked] != 2 || seen[EventLevelUp] != 1 || seen[EventHabitsMissed] != 1 {
		t.Errorf("event types = %v", seen)
	}

	page, err := c.Events(ctx, testUserID, events[0].ID, 1)
	if err != nil {
		t.Fatalf("Events(after) error = %v", err)
	}
	if len(page) != 1 || page[0].ID != events[1].ID {
		t.Errorf("page after %s = %+v", events[0].ID, page)
	}

	statuses, err := c.Achievements(ctx, testUserID)
	if err != nil {
		t.Fatalf("Achievements() error = %v", err)
	}
	unlocked := 0
	for _, s := range statuses {
		if s.Unlocked {
			unlocked++
		}
	}
	if unlocked != 2 {
		t.Errorf("unlocked = %d, want 2", unlocked)
	}

	if err := c.ArchiveHabit(ctx, testUserID, habit.ID); err != nil {
		t.Fatalf("ArchiveHabit() error = %v", err)
	}
	active, err := c.ListHabits(ctx, testUserID, false)
	if err != nil {
		t.Fatalf("ListHabits() error = %v", err)
	}
	all, err := c.ListHabits(ctx, testUserID, true)
	if err != nil {
		t.Fatalf("ListHabits(archived) error = %v", err)
	}
	if len(active) != 0 || len(all) != 1 || !all[0].Archived {
		t.Errorf("active = %+v, all = %+v", active, all)
	}
}

func TestClient_ApplyDeltas(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(t, srv.URL, testAPIKey)
	ctx := context.Background()

	ch, err := c.ApplyXP(ctx, testUserID, 260)
	if err != nil {
		t.Fatalf("ApplyXP() error = %v", err)
	}
	if ch.Before.Level != 1 || ch.After.Level != 3 || ch.After.XP != 10 {
		t.Errorf("ApplyXP change = %+v", ch)
	}

	ch, err = c.ApplyHP(ctx, testUserID, -100)
	if err != nil {
		t.Fatalf("ApplyHP() error = %v", err)
	}
	if ch.After.Level != 2 || ch.After.HP != ch.After.MaxHP {
		t.Errorf("ApplyHP change = %+v", ch)
	}
}

func TestClient_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	_, err := newTestClient(t, srv.URL, "wrong-key").Profile(ctx, testUserID)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("wrong key: error = %v, want ErrUnauthorized", err)
	}

	c := newTestClient(t, srv.URL, testAPIKey)

	_, err = c.CreateHabit(ctx, testUserID, CreateHabitParams{Name: "", FrequencyDays: []int{9}})
	var perr *Error
	if !errors.As(err, &perr) || !errors.Is(err, ErrInvalid) {
		t.Fatalf("invalid habit: error = %v, want *Error matching ErrInvalid", err)
	}
	if perr.StatusCode != http.StatusUnprocessableEntity || len(perr.Errors) == 0 {
		t.Errorf("problem = %+v", perr)
	}

	err = c.ArchiveHabit(ctx, testUserID, "01HGW2N5E56F2ZXQWRR78YQRZ8")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown habit: error = %v, want ErrNotFound", err)
	}

	_, err = c.Profile(ctx, "not-a-uuid")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("bad user id: error = %v, want ErrInvalid", err)
	}
}

func TestClient_RetriesIdempotentCallsOn503(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"type":"x","title":"Service Unavailable","status":503,"detail":"reconciliation aborted"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"u","level":4,"xp":1,"hp":100,"max_hp":100}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testAPIKey)
	p, err := c.Profile(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.Level != 4 || calls.Load() != 3 {
		t.Errorf("level = %d after %d calls, want 4 after 3", p.Level, calls.Load())
	}
}

func TestClient_DoesNotRetryDeltas(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, testAPIKey)
	_, err := c.ApplyXP(context.Background(), testUserID, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, MaxRetries: 1, RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.OpenApp(context.Background(), testUserID, "2026-10-15"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}
