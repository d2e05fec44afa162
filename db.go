package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS eval_runs (
		id             TEXT PRIMARY KEY,
		started_at     DATETIME NOT NULL,
		duration_ms    INTEGER NOT NULL,
		data_path      TEXT NOT NULL,
		total_samples  INTEGER NOT NULL,
		models         TEXT DEFAULT '',
		methods        TEXT DEFAULT '',
		total_tests    INTEGER NOT NULL,
		correct        INTEGER NOT NULL,
		incorrect      INTEGER NOT NULL,
		errors         INTEGER NOT NULL,
		accuracy_rate  REAL NOT NULL,
		avg_latency_ms REAL NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_eval_runs_started_at ON eval_runs(started_at);

	CREATE TABLE IF NOT EXISTS eval_outcomes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL,
		sample_id  TEXT NOT NULL,
		input      TEXT NOT NULL,
		expected   TEXT NOT NULL,
		model      TEXT NOT NULL,
		method     TEXT NOT NULL,
		got        TEXT DEFAULT '',
		confidence REAL DEFAULT 0,
		reasoning  TEXT DEFAULT '',
		correct    INTEGER NOT NULL,
		error_kind TEXT DEFAULT '',
		error_text TEXT DEFAULT '',
		latency_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_eval_outcomes_run ON eval_outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_eval_outcomes_method ON eval_outcomes(method);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// SaveRun stores a finished run and all its outcomes in one transaction, so a
// run is either fully recorded or not at all.
func SaveRun(db *sql.DB, run *EvaluationRun) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO eval_runs
		 (id, started_at, duration_ms, data_path, total_samples, models, methods,
		  total_tests, correct, incorrect, errors, accuracy_rate, avg_latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Duration.Milliseconds(), run.DataPath,
		run.Dataset.TotalSamples, joinList(run.Models), joinList(run.Methods),
		run.Metrics.TotalTests, run.Metrics.Correct, run.Metrics.Incorrect,
		run.Metrics.Errors, run.Metrics.AccuracyRate, run.Metrics.AverageLatencyMs,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO eval_outcomes
		 (run_id, sample_id, input, expected, model, method, got, confidence, reasoning,
		  correct, error_kind, error_text, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range run.Outcomes {
		got, confidence, reasoning := "", 0.0, ""
		errKind, errText := "", ""
		if o.Err != nil {
			errKind = string(KindOf(o.Err))
			errText = o.Err.Error()
		} else {
			got = string(o.Result.Type)
			confidence = o.Result.Confidence
			reasoning = o.Result.Reasoning
		}
		if _, err := stmt.Exec(
			run.ID, o.SampleID, o.Input, string(o.Expected), o.Model, o.Method,
			got, confidence, reasoning, boolToInt(o.Correct), errKind, errText, o.LatencyMs,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RunSummary is one row of the stored run history.
type RunSummary struct {
	ID           string
	StartedAt    time.Time
	DurationMs   int64
	DataPath     string
	TotalTests   int
	Correct      int
	Errors       int
	AccuracyRate float64
	Models       string
	Methods      string
}

func GetRecentRuns(db *sql.DB, limit int) ([]RunSummary, error) {
	rows, err := db.Query(
		`SELECT id, started_at, duration_ms, data_path, total_tests, correct, errors,
		        accuracy_rate, models, methods
		 FROM eval_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.ID, &s.StartedAt, &s.DurationMs, &s.DataPath, &s.TotalTests,
			&s.Correct, &s.Errors, &s.AccuracyRate, &s.Models, &s.Methods,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
