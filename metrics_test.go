package main

import (
	"math"
	"testing"
)

func outcomeFor(expected IntentType, correct bool, err error, latency int64) EvaluationOutcome {
	o := EvaluationOutcome{
		SampleID:  "s",
		Expected:  expected,
		Method:    "rule-based",
		LatencyMs: latency,
	}
	if err != nil {
		o.Err = err
		return o
	}
	o.Correct = correct
	got := expected
	if !correct {
		got = IntentPrompt
		if expected == IntentPrompt {
			got = IntentWorkflow
		}
	}
	o.Result = ClassificationResult{Type: got, Confidence: 0.8}
	return o
}

func TestCalculateMetricsCounts(t *testing.T) {
	outcomes := []EvaluationOutcome{
		outcomeFor(IntentCommand, true, nil, 10),
		outcomeFor(IntentCommand, false, nil, 20),
		outcomeFor(IntentPrompt, true, nil, 30),
		outcomeFor(IntentWorkflow, false, nil, 40),
		outcomeFor(IntentWorkflow, false, classifyErr(ErrTimeout, "x", "slow"), 50),
	}
	m := CalculateMetrics(outcomes)

	if m.TotalTests != 5 {
		t.Fatalf("TotalTests = %d, want 5", m.TotalTests)
	}
	if m.Correct+m.Incorrect+m.Errors != m.TotalTests {
		t.Fatalf("counters do not sum: %d+%d+%d != %d", m.Correct, m.Incorrect, m.Errors, m.TotalTests)
	}
	if m.Correct != 2 || m.Incorrect != 2 || m.Errors != 1 {
		t.Fatalf("unexpected counts: %+v", m)
	}
	if want := 40.0; m.AccuracyRate != want {
		t.Fatalf("AccuracyRate = %g, want %g", m.AccuracyRate, want)
	}
	if want := 30.0; math.Abs(m.AverageLatencyMs-want) > 1e-9 {
		t.Fatalf("AverageLatencyMs = %g, want %g", m.AverageLatencyMs, want)
	}
}

func TestCalculateMetricsCategories(t *testing.T) {
	outcomes := []EvaluationOutcome{
		outcomeFor(IntentCommand, true, nil, 1),
		outcomeFor(IntentPrompt, true, nil, 1),
		outcomeFor(IntentPrompt, false, nil, 1),
		outcomeFor(IntentWorkflow, false, classifyErr(ErrParse, "x", "bad"), 1),
	}
	m := CalculateMetrics(outcomes)

	if len(m.Categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(m.Categories))
	}
	// Sorted by label: command, prompt, workflow.
	if m.Categories[0].Label != IntentCommand || m.Categories[1].Label != IntentPrompt || m.Categories[2].Label != IntentWorkflow {
		t.Fatalf("categories not sorted: %+v", m.Categories)
	}

	sum := 0
	for _, cat := range m.Categories {
		sum += cat.TotalTests
		if cat.Correct+cat.Incorrect+cat.Errors != cat.TotalTests {
			t.Fatalf("category %s counters do not sum: %+v", cat.Label, cat)
		}
	}
	if sum != m.TotalTests {
		t.Fatalf("category totals sum to %d, want %d", sum, m.TotalTests)
	}

	prompt := m.Categories[1]
	if prompt.Accuracy != 50.0 {
		t.Fatalf("prompt accuracy = %g, want 50", prompt.Accuracy)
	}
}

func TestCalculateMetricsEmpty(t *testing.T) {
	m := CalculateMetrics(nil)
	if m.TotalTests != 0 || m.AccuracyRate != 0 || len(m.Categories) != 0 {
		t.Fatalf("empty outcomes should yield zero metrics: %+v", m)
	}
}

func TestCalculateMetricsDeterministic(t *testing.T) {
	outcomes := []EvaluationOutcome{
		outcomeFor(IntentWorkflow, true, nil, 7),
		outcomeFor(IntentCommand, false, nil, 3),
	}
	first := CalculateMetrics(outcomes)
	for i := 0; i < 3; i++ {
		again := CalculateMetrics(outcomes)
		if again.AccuracyRate != first.AccuracyRate || len(again.Categories) != len(first.Categories) {
			t.Fatalf("metrics not deterministic: %+v vs %+v", first, again)
		}
	}
}
