package main

import (
	"fmt"
	"strings"
	"time"
)

// IntentType is the closed set of labels a classifier can produce.
type IntentType string

const (
	IntentCommand  IntentType = "command"
	IntentPrompt   IntentType = "prompt"
	IntentWorkflow IntentType = "workflow"
)

// AllIntentTypes lists the valid labels in their canonical order.
var AllIntentTypes = []IntentType{IntentCommand, IntentPrompt, IntentWorkflow}

func ParseIntentType(s string) (IntentType, error) {
	switch IntentType(strings.ToLower(strings.TrimSpace(s))) {
	case IntentCommand:
		return IntentCommand, nil
	case IntentPrompt:
		return IntentPrompt, nil
	case IntentWorkflow:
		return IntentWorkflow, nil
	}
	return "", fmt.Errorf("unknown intent type %q (valid: command, prompt, workflow)", s)
}

// ClassificationRequest is one classification call. Context carries optional
// caller-supplied hints (conversation role, prior turn, etc.); methods must
// treat it as read-only.
type ClassificationRequest struct {
	Input   string
	Context map[string]string
}

// ClassificationResult is immutable once returned; the caller owns it.
type ClassificationResult struct {
	Type       IntentType
	Confidence float64 // always within [0,1]
	Reasoning  string
	Method     string // which method produced it
	Model      string // model id for model-backed results, "" otherwise
	LatencyMs  int64
}

// maxReasoningLen bounds the reasoning carried on a result after any merging.
const maxReasoningLen = 300

func truncateReasoning(s string) string {
	if len(s) > maxReasoningLen {
		return s[:maxReasoningLen-3] + "..."
	}
	return s
}

// TestSample is one labeled input. Immutable once loaded.
type TestSample struct {
	ID         string     `json:"id"`
	Input      string     `json:"input"`
	Expected   IntentType `json:"expected"`
	Source     string     `json:"source"`
	Complexity string     `json:"complexity"`
}

// DatasetMetadata describes provenance and the label distribution the file
// claims to contain.
type DatasetMetadata struct {
	Created      string         `json:"created"`
	TotalSamples int            `json:"totalSamples"`
	Distribution map[string]int `json:"distribution"`
}

// TestDataset is read-only for the lifetime of an evaluation run.
type TestDataset struct {
	Metadata DatasetMetadata `json:"metadata"`
	Samples  []TestSample    `json:"samples"`
}

// EvaluationOutcome records exactly one (sample, model, method) classification
// attempt. Err is nil for successful calls; Correct is meaningful only then.
type EvaluationOutcome struct {
	SampleID  string
	Input     string
	Expected  IntentType
	Model     string
	Method    string
	Result    ClassificationResult
	Err       error
	Correct   bool
	LatencyMs int64
}

// CategoryMetrics is the per-expected-label slice of AccuracyMetrics.
type CategoryMetrics struct {
	Label      IntentType
	TotalTests int
	Correct    int
	Incorrect  int
	Errors     int
	Accuracy   float64 // percent
}

// AccuracyMetrics is computed fresh from a completed outcome list and never
// mutated afterwards. Invariants: Correct+Incorrect+Errors == TotalTests and
// the category totals sum to TotalTests.
type AccuracyMetrics struct {
	TotalTests       int
	Correct          int
	Incorrect        int
	Errors           int
	AccuracyRate     float64 // percent, exactly Correct/TotalTests*100
	AverageLatencyMs float64
	Categories       []CategoryMetrics // sorted by label
}

// EvaluationRun bundles everything one harness run produced.
type EvaluationRun struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	DataPath  string
	Dataset   DatasetMetadata
	Models    []string
	Methods   []string
	Outcomes  []EvaluationOutcome
	Metrics   AccuracyMetrics
}
