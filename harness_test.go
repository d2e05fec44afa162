package main

import (
	"context"
	"path/filepath"
	"testing"
)

func harnessConfig(dataPath string) Config {
	return Config{
		DataPath:            dataPath,
		EvalMethods:         []string{"rule-based"},
		BatchSize:           2,
		SchemaName:          "standard",
		LLMModel:            "test-model",
		LLMTimeoutMs:        1000,
		ConfidenceThreshold: 0.8,
	}
}

func ruleOnlyBuilder(cfg Config) *MethodBuilder {
	return NewMethodBuilder(cfg, NewSchemaRegistry(), nil, nil)
}

func TestHarnessEndToEnd(t *testing.T) {
	path := writeDataset(t, `{
		"metadata": {"totalSamples": 3},
		"samples": [
			{"id": "s1", "input": "/status", "expected": "command"},
			{"id": "s2", "input": "hello", "expected": "prompt"},
			{"id": "s3", "input": "deploy the app and run the test suite", "expected": "workflow"}
		]
	}`)
	cfg := harnessConfig(path)
	h := NewHarness(cfg, ruleOnlyBuilder(cfg))

	run, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if h.State() != RunDone {
		t.Fatalf("expected state done, got %s", h.State())
	}
	if run.ID == "" {
		t.Fatal("run should carry an id")
	}
	if len(run.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(run.Outcomes))
	}
	if run.Metrics.AccuracyRate != 100.0 {
		t.Fatalf("expected 100%% accuracy, got %g (outcomes: %+v)", run.Metrics.AccuracyRate, run.Outcomes)
	}
	if len(run.Metrics.Categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(run.Metrics.Categories))
	}
	for _, cat := range run.Metrics.Categories {
		if cat.TotalTests != 1 || cat.Correct != 1 {
			t.Fatalf("category %s: %+v", cat.Label, cat)
		}
	}
}

func TestHarnessOutcomeCompleteness(t *testing.T) {
	path := writeDataset(t, `{
		"metadata": {},
		"samples": [
			{"id": "s1", "input": "hello", "expected": "prompt"},
			{"id": "s2", "input": "/status", "expected": "command"},
			{"id": "s3", "input": "what is go?", "expected": "prompt"}
		]
	}`)
	cfg := harnessConfig(path)
	cfg.EvalModels = []string{"model-a", "model-b"}
	h := NewHarness(cfg, ruleOnlyBuilder(cfg))

	run, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// 3 samples x 2 models x 1 method.
	if len(run.Outcomes) != 6 {
		t.Fatalf("expected 6 outcomes, got %d", len(run.Outcomes))
	}
	seen := map[string]int{}
	for _, o := range run.Outcomes {
		seen[o.Model+"/"+o.SampleID]++
	}
	for _, key := range []string{"model-a/s1", "model-a/s2", "model-a/s3", "model-b/s1", "model-b/s2", "model-b/s3"} {
		if seen[key] != 1 {
			t.Fatalf("expected exactly one outcome for %s, got %d", key, seen[key])
		}
	}
}

func TestHarnessErrorsAreData(t *testing.T) {
	path := writeDataset(t, `{
		"metadata": {},
		"samples": [
			{"id": "s1", "input": "hello", "expected": "prompt"},
			{"id": "s2", "input": "explain channels", "expected": "prompt"}
		]
	}`)
	cfg := harnessConfig(path)
	cfg.EvalMethods = []string{"schema-constrained"}
	oracle := &stubOracle{fn: func(int) (string, error) {
		return "", classifyErr(ErrParse, "", "garbage reply")
	}}
	builder := NewMethodBuilder(cfg, NewSchemaRegistry(), oracle, nil)
	h := NewHarness(cfg, builder)

	run, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("per-sample failures must not fail the run: %v", err)
	}
	if h.State() != RunDone {
		t.Fatalf("expected state done, got %s", h.State())
	}
	if run.Metrics.Errors != 2 || run.Metrics.Correct != 0 {
		t.Fatalf("expected 2 error outcomes, got %+v", run.Metrics)
	}
	for _, o := range run.Outcomes {
		if o.Err == nil {
			t.Fatalf("outcome %s should carry an error", o.SampleID)
		}
	}
}

func TestHarnessFailsOnMissingDataset(t *testing.T) {
	cfg := harnessConfig(filepath.Join(t.TempDir(), "missing.json"))
	h := NewHarness(cfg, ruleOnlyBuilder(cfg))

	if _, err := h.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing dataset")
	}
	if h.State() != RunFailed {
		t.Fatalf("expected state failed, got %s", h.State())
	}
}

func TestHarnessFailsOnBadMethod(t *testing.T) {
	path := writeDataset(t, `{
		"metadata": {},
		"samples": [{"id": "s1", "input": "hello", "expected": "prompt"}]
	}`)
	cfg := harnessConfig(path)
	cfg.EvalMethods = []string{"telepathy"}
	h := NewHarness(cfg, ruleOnlyBuilder(cfg))

	if _, err := h.Run(context.Background()); err == nil {
		t.Fatal("expected error for unknown method")
	}
	if h.State() != RunFailed {
		t.Fatalf("expected state failed, got %s", h.State())
	}
}
