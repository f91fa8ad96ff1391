package state

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ShayCichocki/cohort/internal/orchestrator"
	"github.com/ShayCichocki/cohort/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "cohort.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func bundleFixture(t *testing.T, runID string) *orchestrator.Bundle {
	t.Helper()
	bundle, err := orchestrator.Orchestrate(orchestrator.Request{
		RunID: runID,
		Tasks: []*models.TaskSpec{
			{ID: "a", EstimatedTokens: 100},
			{ID: "b", EstimatedTokens: 50, DependsOn: []string{"a"}},
		},
	})
	if err != nil {
		t.Fatalf("Orchestrate() failed: %v", err)
	}
	return bundle
}

func TestSaveAndGetBundle(t *testing.T) {
	db := openTestDB(t)
	bundle := bundleFixture(t, "run-1")

	if err := db.SaveBundle(bundle); err != nil {
		t.Fatalf("SaveBundle() failed: %v", err)
	}

	loaded, err := db.GetBundle("run-1")
	if err != nil {
		t.Fatalf("GetBundle() failed: %v", err)
	}
	if !reflect.DeepEqual(bundle, loaded) {
		t.Error("loaded bundle differs from saved bundle")
	}
}

func TestSaveBundle_ReplacesSameRun(t *testing.T) {
	db := openTestDB(t)
	bundle := bundleFixture(t, "run-1")

	if err := db.SaveBundle(bundle); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := db.SaveBundle(bundle); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	records, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1 after replace", len(records))
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)
	for _, runID := range []string{"run-1", "run-2", "run-3"} {
		if err := db.SaveBundle(bundleFixture(t, runID)); err != nil {
			t.Fatalf("SaveBundle(%s) failed: %v", runID, err)
		}
	}

	records, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want limit of 2", len(records))
	}
	for _, rec := range records {
		if rec.Topology == "" || rec.Tasks != 2 {
			t.Errorf("record missing summary fields: %+v", rec)
		}
	}
}

func TestSaveBundle_TaskCountFromPlan(t *testing.T) {
	db := openTestDB(t)
	bundle := bundleFixture(t, "run-1")
	// Extra messages must not inflate the task count; it tracks the plan.
	bundle.Handoffs = append(bundle.Handoffs, bundle.Handoffs[0])

	if err := db.SaveBundle(bundle); err != nil {
		t.Fatalf("SaveBundle() failed: %v", err)
	}

	records, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if records[0].Tasks != len(bundle.Plan.TopologicalOrder) {
		t.Errorf("tasks = %d, want %d scheduled tasks", records[0].Tasks, len(bundle.Plan.TopologicalOrder))
	}
}

func TestGetBundle_Missing(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetBundle("ghost"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestDeleteRun(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveBundle(bundleFixture(t, "run-1")); err != nil {
		t.Fatalf("SaveBundle() failed: %v", err)
	}

	if err := db.DeleteRun("run-1"); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}
	if err := db.DeleteRun("run-1"); err == nil {
		t.Error("expected error deleting a run twice")
	}
}
