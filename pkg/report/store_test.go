package report

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/strataconf/strata/pkg/merge"
	"github.com/strataconf/strata/pkg/resolver"
	"github.com/strataconf/strata/pkg/schema"
	"github.com/strataconf/strata/pkg/vars"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "strata.db")})
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() = %v", err)
	}
	return store
}

func TestInitHonorsPoolConfig(t *testing.T) {
	store, err := NewStore(Config{
		Path:            filepath.Join(t.TempDir(), "strata.db"),
		MaxOpenConns:    3,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if got := store.db.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("MaxOpenConnections = %d, want 3", got)
	}
}

func TestNewStoreDefaultsPoolConfig(t *testing.T) {
	store, err := NewStore(Config{Path: "strata.db"})
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}
	if store.cfg.MaxOpenConns != 25 || store.cfg.MaxIdleConns != 5 || store.cfg.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("defaults not applied: %+v", store.cfg)
	}
}

func sampleRun() *resolver.Run {
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	completed := started.Add(120 * time.Millisecond)

	return &resolver.Run{
		ID:          "run-0001",
		StartedAt:   started,
		CompletedAt: completed,
		Duration:    completed.Sub(started),
		Targets: []resolver.TargetResult{
			{
				Target: "rtr1",
				Groups: []string{"core"},
				Status: resolver.TargetStatusResolved,
				Config: &schema.ResolvedConfiguration{
					Values: vars.MustFromGo(map[string]any{
						"mtu":     9000,
						"enabled": true,
					}),
				},
				Provenance: map[string]merge.Provenance{
					"mtu":     {Scope: "host-inventory", Owner: "rtr1"},
					"enabled": {Scope: "group-inventory", Owner: "core"},
				},
				Duration: 40 * time.Millisecond,
			},
			{
				Target: "rtr2",
				Status: resolver.TargetStatusFailed,
				Errors: []schema.ValidationError{
					{
						Path:     "vlan_id",
						Kind:     schema.ErrConstraintViolation,
						Expected: "range [1, 4094]",
						Received: "9000",
						Message:  "value 9000 outside range [1, 4094]",
					},
				},
				Duration: 35 * time.Millisecond,
			},
		},
		Summary: resolver.RunSummary{Total: 2, Resolved: 1, Failed: 1},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleRun()); err != nil {
		t.Fatalf("SaveRun() = %v", err)
	}

	got, err := store.GetRun(ctx, "run-0001")
	if err != nil {
		t.Fatalf("GetRun() = %v", err)
	}
	if got.Total != 2 || got.Resolved != 1 || got.Failed != 1 {
		t.Errorf("counts = %d/%d/%d", got.Total, got.Resolved, got.Failed)
	}
	if got.Duration != 120*time.Millisecond {
		t.Errorf("Duration = %v", got.Duration)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), "no-such-run")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() = %v, want ErrRunNotFound", err)
	}
}

func TestListTargetResultsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleRun()); err != nil {
		t.Fatalf("SaveRun() = %v", err)
	}

	results, err := store.ListTargetResults(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ListTargetResults() = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}

	rtr1 := results[0]
	if rtr1.Target != "rtr1" || rtr1.Status != resolver.TargetStatusResolved {
		t.Fatalf("rtr1 = %+v", rtr1)
	}
	if len(rtr1.Groups) != 1 || rtr1.Groups[0] != "core" {
		t.Errorf("rtr1 groups = %v", rtr1.Groups)
	}
	cfg, ok := rtr1.Config.(map[string]any)
	if !ok {
		t.Fatalf("rtr1 config = %T", rtr1.Config)
	}
	if cfg["enabled"] != true {
		t.Errorf("rtr1 config enabled = %v", cfg["enabled"])
	}
	if rtr1.Provenance["enabled"] != (merge.Provenance{Scope: "group-inventory", Owner: "core"}) {
		t.Errorf("rtr1 provenance = %v", rtr1.Provenance)
	}
	if len(rtr1.Errors) != 0 {
		t.Errorf("rtr1 errors = %v", rtr1.Errors)
	}

	rtr2 := results[1]
	if rtr2.Status != resolver.TargetStatusFailed || rtr2.Config != nil {
		t.Fatalf("rtr2 = %+v", rtr2)
	}
	if len(rtr2.Errors) != 1 || rtr2.Errors[0].Kind != schema.ErrConstraintViolation {
		t.Fatalf("rtr2 errors = %v", rtr2.Errors)
	}
	if rtr2.Errors[0].Path != "vlan_id" {
		t.Errorf("rtr2 error path = %s", rtr2.Errors[0].Path)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := sampleRun()
	newer := sampleRun()
	newer.ID = "run-0002"
	newer.StartedAt = older.StartedAt.Add(time.Hour)
	newer.CompletedAt = newer.StartedAt.Add(time.Second)

	if err := store.SaveRun(ctx, older); err != nil {
		t.Fatalf("SaveRun(older) = %v", err)
	}
	if err := store.SaveRun(ctx, newer); err != nil {
		t.Fatalf("SaveRun(newer) = %v", err)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns() = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs", len(runs))
	}
	if runs[0].ID != "run-0002" || runs[1].ID != "run-0001" {
		t.Errorf("order = %s, %s", runs[0].ID, runs[1].ID)
	}

	limited, err := store.ListRuns(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListRuns(limit=1) = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-0002" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleRun()); err != nil {
		t.Fatalf("SaveRun() = %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun()); err == nil {
		t.Error("saving the same run ID twice must fail")
	}
}

func TestDeleteRunCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleRun()); err != nil {
		t.Fatalf("SaveRun() = %v", err)
	}
	if err := store.DeleteRun(ctx, "run-0001"); err != nil {
		t.Fatalf("DeleteRun() = %v", err)
	}

	if _, err := store.GetRun(ctx, "run-0001"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun after delete = %v", err)
	}
	results, err := store.ListTargetResults(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ListTargetResults() = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("target results survived cascade: %v", results)
	}

	if err := store.DeleteRun(ctx, "run-0001"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() = %v", err)
	}
}
