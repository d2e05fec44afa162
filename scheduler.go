package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartEvaluationScheduler runs the full evaluation on a cron schedule and
// posts a summary to the report channel when one is configured.
// The schedule is a standard 5-field cron expression (minute hour day-of-month month day-of-week).
// Examples: "0 6 * * *" (daily 6am), "0 6 * * 1" (Mondays 6am).
func StartEvaluationScheduler(cfg Config, db *sql.DB, api *slack.Client) error {
	schedule := strings.TrimSpace(cfg.EvaluateSchedule)
	if schedule == "" {
		return fmt.Errorf("evaluate_schedule not set")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid evaluate_schedule %q: %w", schedule, err)
	}
	log.Printf("Evaluation scheduled (cron: %s) dataset=%s", schedule, cfg.DataPath)

	for {
		now := time.Now()
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next evaluation at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		time.Sleep(wait)

		run, reportPath, err := runEvaluation(context.Background(), cfg, db)
		if err != nil {
			log.Printf("Scheduled evaluation error: %v", err)
			continue
		}
		log.Printf("Scheduled evaluation complete run=%s accuracy=%.2f%%", run.ID, run.Metrics.AccuracyRate)
		if api != nil {
			PostRunSummary(api, cfg.ReportChannelID, run, reportPath)
		}
	}
}
