package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// PostRunSummary sends a short evaluation summary to the report channel.
// Delivery is best effort: a Slack failure never fails the run.
func PostRunSummary(api *slack.Client, channelID string, run *EvaluationRun, reportPath string) {
	if channelID == "" {
		return
	}
	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(formatRunSummary(run, reportPath), false))
	if err != nil {
		log.Printf("slack post error: %v", err)
	}
}

func formatRunSummary(run *EvaluationRun, reportPath string) string {
	m := run.Metrics
	var b strings.Builder
	fmt.Fprintf(&b, "*Intent evaluation finished* (run %s)\n", run.ID)
	fmt.Fprintf(&b, "Accuracy: %.2f%% (%d/%d correct, %d errors)\n",
		m.AccuracyRate, m.Correct, m.TotalTests, m.Errors)
	fmt.Fprintf(&b, "Models: %s | Methods: %s\n",
		joinList(run.Models), joinList(run.Methods))
	for _, cat := range m.Categories {
		fmt.Fprintf(&b, "• %s: %.2f%% (%d tests)\n", cat.Label, cat.Accuracy, cat.TotalTests)
	}
	if reportPath != "" {
		fmt.Fprintf(&b, "Full report: %s", reportPath)
	}
	return b.String()
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}
