package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "classify":
		if len(os.Args) < 3 {
			log.Fatalf("Usage: %s classify <text>", os.Args[0])
		}
		if err := runClassify(cfg, strings.Join(os.Args[2:], " ")); err != nil {
			log.Fatalf("Classify error: %v", err)
		}

	case "evaluate":
		db, err := InitDB(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to init database: %v", err)
		}
		defer db.Close()

		run, reportPath, err := runEvaluation(context.Background(), cfg, db)
		if err != nil {
			log.Fatalf("Evaluation error: %v", err)
		}
		log.Printf("Evaluation complete run=%s accuracy=%.2f%% report=%s",
			run.ID, run.Metrics.AccuracyRate, reportPath)

		if cfg.SlackBotToken != "" && cfg.ReportChannelID != "" {
			PostRunSummary(slack.New(cfg.SlackBotToken), cfg.ReportChannelID, run, reportPath)
		}

	case "schedule":
		db, err := InitDB(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to init database: %v", err)
		}
		defer db.Close()

		var api *slack.Client
		if cfg.SlackBotToken != "" {
			api = slack.New(cfg.SlackBotToken)
		}
		log.Println("Starting intent evaluation scheduler...")
		if err := StartEvaluationScheduler(cfg, db, api); err != nil {
			log.Fatalf("Scheduler error: %v", err)
		}

	case "history":
		db, err := InitDB(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to init database: %v", err)
		}
		defer db.Close()
		if err := printHistory(db); err != nil {
			log.Fatalf("History error: %v", err)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <command>

Commands:
  classify <text>   classify one input with the configured method
  evaluate          run the full evaluation over the configured dataset
  schedule          run evaluations on the configured cron schedule
  history           show recent evaluation runs
`, os.Args[0])
}

// runClassify classifies a single input and prints the result.
func runClassify(cfg Config, input string) error {
	method, err := buildConfiguredMethod(cfg)
	if err != nil {
		return err
	}

	result, err := method.Classify(context.Background(), ClassificationRequest{Input: input})
	if err != nil {
		return err
	}
	fmt.Printf("type:       %s\n", result.Type)
	fmt.Printf("confidence: %.2f\n", result.Confidence)
	fmt.Printf("method:     %s\n", result.Method)
	if result.Model != "" {
		fmt.Printf("model:      %s\n", result.Model)
	}
	fmt.Printf("reasoning:  %s\n", result.Reasoning)
	fmt.Printf("latency:    %dms\n", result.LatencyMs)
	return nil
}

// runEvaluation is the shared entry for the evaluate command and the
// scheduler: harness run, report render and write, persistence.
func runEvaluation(ctx context.Context, cfg Config, db *sql.DB) (*EvaluationRun, string, error) {
	builder, err := newConfiguredBuilder(cfg)
	if err != nil {
		return nil, "", err
	}

	harness := NewHarness(cfg, builder)
	run, err := harness.Run(ctx)
	if err != nil {
		return nil, "", err
	}

	report := RenderReport(run)
	reportPath, err := WriteReportFile(report, cfg.ReportOutputDir, run.StartedAt)
	if err != nil {
		return run, "", fmt.Errorf("writing report: %w", err)
	}

	if err := SaveRun(db, run); err != nil {
		return run, reportPath, fmt.Errorf("saving run: %w", err)
	}
	return run, reportPath, nil
}

func printHistory(db *sql.DB) error {
	runs, err := GetRecentRuns(db, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No evaluation runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %.2f%% (%d/%d correct, %d errors)  methods=%s models=%s\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.ID, r.AccuracyRate,
			r.Correct, r.TotalTests, r.Errors, r.Methods, r.Models)
	}
	return nil
}

func newConfiguredBuilder(cfg Config) (*MethodBuilder, error) {
	oracle, err := NewOracle(cfg)
	if err != nil {
		return nil, err
	}

	var lexicon *RuleLexicon
	if cfg.LexiconPath != "" {
		lexicon, err = LoadRuleLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("loading lexicon: %w", err)
		}
	}
	return NewMethodBuilder(cfg, NewSchemaRegistry(), oracle, lexicon), nil
}

func buildConfiguredMethod(cfg Config) (Method, error) {
	builder, err := newConfiguredBuilder(cfg)
	if err != nil {
		return nil, err
	}
	kind, err := ParseMethodKind(cfg.Method)
	if err != nil {
		return nil, err
	}
	return builder.Build(kind, cfg.LLMModel)
}
