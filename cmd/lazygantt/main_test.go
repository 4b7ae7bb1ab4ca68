package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/Joseda-hg/lazygantt/internal/config"
	"github.com/Joseda-hg/lazygantt/internal/db"
	"github.com/Joseda-hg/lazygantt/internal/gantt"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	sqlDB, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db.NewStore(sqlDB, gantt.NewPlanner())
}

func TestSeedDemoAndReport(t *testing.T) {
	color.NoColor = true
	store := newTestStore(t)
	ctx := context.Background()

	project, err := seedDemo(ctx, store)
	if err != nil {
		t.Fatalf("seed demo: %v", err)
	}

	snapshot, err := store.Snapshot(ctx, project.ID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Tasks) != 9 || len(snapshot.Dependencies) != 6 {
		t.Fatalf("expected 9 tasks and 6 links, got %d and %d", len(snapshot.Tasks), len(snapshot.Dependencies))
	}

	var out bytes.Buffer
	if err := printReport(ctx, &out, store); err != nil {
		t.Fatalf("report: %v", err)
	}
	report := out.String()
	for _, want := range []string{"Website Launch", "critical: ", "Requirements", "API endpoints", "Completed"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func TestReportWithoutProjects(t *testing.T) {
	var out bytes.Buffer
	if err := printReport(context.Background(), &out, newTestStore(t)); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out.String(), "no projects") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestOpenStoreUsesConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "nested", "gantt.db")
	cfg.PredecessorScope = "project"

	store, err := openStore(cfg, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.DB.Close()

	if got := store.Planner.Scope(); got != "project" {
		t.Fatalf("expected project scope, got %s", got)
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		t.Fatalf("expected db file: %v", err)
	}

	cfg.PredecessorScope = "everything"
	if _, err := openStore(cfg, nil); err == nil {
		t.Fatalf("expected scope error")
	}
}
