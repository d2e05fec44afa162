package main

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadRuns(t *testing.T) {
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	run := sampleRun()
	if err := SaveRun(db, run); err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}

	runs, err := GetRecentRuns(db, 10)
	if err != nil {
		t.Fatalf("GetRecentRuns error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID {
		t.Fatalf("ID = %s, want %s", got.ID, run.ID)
	}
	if got.TotalTests != run.Metrics.TotalTests || got.Correct != run.Metrics.Correct || got.Errors != run.Metrics.Errors {
		t.Fatalf("stored counters do not match: %+v vs %+v", got, run.Metrics)
	}
	if got.Methods != "rule-based, schema-constrained" {
		t.Fatalf("Methods = %q", got.Methods)
	}

	var outcomeCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM eval_outcomes WHERE run_id = ?", run.ID).Scan(&outcomeCount); err != nil {
		t.Fatalf("count outcomes: %v", err)
	}
	if outcomeCount != len(run.Outcomes) {
		t.Fatalf("expected %d stored outcomes, got %d", len(run.Outcomes), outcomeCount)
	}

	var errKind string
	if err := db.QueryRow(
		"SELECT error_kind FROM eval_outcomes WHERE run_id = ? AND sample_id = 's3'", run.ID,
	).Scan(&errKind); err != nil {
		t.Fatalf("query error outcome: %v", err)
	}
	if errKind != "timeout" {
		t.Fatalf("error_kind = %q, want timeout", errKind)
	}
}

func TestGetRecentRunsOrder(t *testing.T) {
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	older := sampleRun()
	older.ID = "run-old"
	newer := sampleRun()
	newer.ID = "run-new"
	newer.StartedAt = older.StartedAt.Add(time.Hour)

	if err := SaveRun(db, older); err != nil {
		t.Fatalf("SaveRun older: %v", err)
	}
	if err := SaveRun(db, newer); err != nil {
		t.Fatalf("SaveRun newer: %v", err)
	}

	runs, err := GetRecentRuns(db, 10)
	if err != nil {
		t.Fatalf("GetRecentRuns error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" {
		t.Fatalf("expected newest first, got %+v", runs)
	}
}
