package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RenderReport turns a finished run into the markdown report. Section order
// is fixed: executive summary, category performance, detailed results, error
// breakdown. Rendering is pure: the same run always produces the same text.
func RenderReport(run *EvaluationRun) string {
	var b strings.Builder
	m := run.Metrics

	b.WriteString("# Intent Classification Evaluation\n\n")
	fmt.Fprintf(&b, "- Run: %s\n", run.ID)
	fmt.Fprintf(&b, "- Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "- Dataset: %s (%d samples)\n", run.DataPath, run.Dataset.TotalSamples)
	fmt.Fprintf(&b, "- Models: %s\n", strings.Join(run.Models, ", "))
	fmt.Fprintf(&b, "- Methods: %s\n", strings.Join(run.Methods, ", "))

	b.WriteString("\n## Executive Summary\n\n")
	fmt.Fprintf(&b, "- Total tests: %d\n", m.TotalTests)
	fmt.Fprintf(&b, "- Correct: %d\n", m.Correct)
	fmt.Fprintf(&b, "- Incorrect: %d\n", m.Incorrect)
	fmt.Fprintf(&b, "- Errors: %d\n", m.Errors)
	fmt.Fprintf(&b, "- Accuracy: %.2f%%\n", m.AccuracyRate)
	fmt.Fprintf(&b, "- Average latency: %.1f ms\n", m.AverageLatencyMs)

	b.WriteString("\n## Category Performance\n\n")
	b.WriteString("| Label | Tests | Correct | Incorrect | Errors | Accuracy |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, cat := range m.Categories {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %.2f%% |\n",
			cat.Label, cat.TotalTests, cat.Correct, cat.Incorrect, cat.Errors, cat.Accuracy)
	}

	b.WriteString("\n## Detailed Results\n\n")
	b.WriteString("| Sample | Model | Method | Expected | Got | Confidence | Latency | Status |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, o := range run.Outcomes {
		got, confidence, status := "-", "-", "ok"
		switch {
		case o.Err != nil:
			status = fmt.Sprintf("error: %s", KindOf(o.Err))
		case o.Correct:
			got = string(o.Result.Type)
			confidence = fmt.Sprintf("%.2f", o.Result.Confidence)
		default:
			got = string(o.Result.Type)
			confidence = fmt.Sprintf("%.2f", o.Result.Confidence)
			status = "wrong"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %dms | %s |\n",
			o.SampleID, o.Model, o.Method, o.Expected, got, confidence, o.LatencyMs, status)
	}

	b.WriteString("\n## Error Breakdown\n\n")
	breakdown := errorBreakdown(run.Outcomes)
	if len(breakdown) == 0 {
		b.WriteString("No errors recorded.\n")
	} else {
		for _, e := range breakdown {
			fmt.Fprintf(&b, "- %s: %d\n", e.kind, e.count)
		}
	}
	return b.String()
}

type errorCount struct {
	kind  ErrorKind
	count int
}

// errorBreakdown groups error-tagged outcomes by failure kind, most frequent
// first; equal counts order alphabetically so the listing stays stable.
func errorBreakdown(outcomes []EvaluationOutcome) []errorCount {
	counts := map[ErrorKind]int{}
	for _, o := range outcomes {
		if o.Err != nil {
			counts[KindOf(o.Err)]++
		}
	}
	out := make([]errorCount, 0, len(counts))
	for kind, count := range counts {
		out = append(out, errorCount{kind: kind, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].kind < out[j].kind
	})
	return out
}

// WriteReportFile persists the rendered report under outputDir with a
// timestamped name and returns the path.
func WriteReportFile(content, outputDir string, startedAt time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("evaluation_%s.md", startedAt.Format("20060102_150405"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}
