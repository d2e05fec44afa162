package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunState is the harness lifecycle. failed is reachable only from loading:
// once classification starts, per-sample failures become outcome data and the
// run always finishes.
type RunState string

const (
	RunLoading   RunState = "loading"
	RunRunning   RunState = "running"
	RunReporting RunState = "reporting"
	RunDone      RunState = "done"
	RunFailed    RunState = "failed"
)

// evalPair is one (model, method) configuration under evaluation.
type evalPair struct {
	model  string
	method Method
}

// Harness replays a labeled dataset through every configured (model, method)
// pair. One harness drives one run and exclusively owns its outcome list.
type Harness struct {
	cfg     Config
	builder *MethodBuilder
	state   RunState
}

func NewHarness(cfg Config, builder *MethodBuilder) *Harness {
	return &Harness{cfg: cfg, builder: builder, state: RunLoading}
}

func (h *Harness) State() RunState { return h.state }

// Run executes the evaluation. Every (sample, model, method) triple yields
// exactly one outcome; classification errors are data, never run failures.
func (h *Harness) Run(ctx context.Context) (*EvaluationRun, error) {
	h.state = RunLoading
	start := time.Now()

	dataset, err := LoadDataset(h.cfg.DataPath)
	if err != nil {
		h.state = RunFailed
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	pairs, err := h.buildPairs()
	if err != nil {
		h.state = RunFailed
		return nil, fmt.Errorf("building methods: %w", err)
	}

	h.state = RunRunning
	run := &EvaluationRun{
		ID:        uuid.NewString(),
		StartedAt: start,
		DataPath:  h.cfg.DataPath,
		Dataset:   dataset.Metadata,
		Models:    h.cfg.EvalModels,
		Methods:   h.cfg.EvalMethods,
	}
	run.Outcomes = make([]EvaluationOutcome, 0, len(dataset.Samples)*len(pairs))

	batchSize := h.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 10
	}

	for _, pair := range pairs {
		log.Printf("evaluation pair model=%s method=%s samples=%d batch_size=%d",
			pair.model, pair.method.Name(), len(dataset.Samples), batchSize)
		for batchStart := 0; batchStart < len(dataset.Samples); batchStart += batchSize {
			end := batchStart + batchSize
			if end > len(dataset.Samples) {
				end = len(dataset.Samples)
			}
			batch := dataset.Samples[batchStart:end]

			// Batch members run concurrently; outcomes accumulate only after
			// the whole batch settles, keeping the list append race-free.
			outcomes := make([]EvaluationOutcome, len(batch))
			var wg sync.WaitGroup
			for i, sample := range batch {
				wg.Add(1)
				go func(idx int, sample TestSample) {
					defer wg.Done()
					outcomes[idx] = h.classifyOne(ctx, pair, sample)
				}(i, sample)
			}
			wg.Wait()
			run.Outcomes = append(run.Outcomes, outcomes...)
		}
	}

	h.state = RunReporting
	run.Metrics = CalculateMetrics(run.Outcomes)
	run.Duration = time.Since(start)
	h.state = RunDone
	return run, nil
}

func (h *Harness) classifyOne(ctx context.Context, pair evalPair, sample TestSample) EvaluationOutcome {
	callStart := time.Now()
	result, err := pair.method.Classify(ctx, ClassificationRequest{Input: sample.Input})
	latency := time.Since(callStart).Milliseconds()

	outcome := EvaluationOutcome{
		SampleID:  sample.ID,
		Input:     sample.Input,
		Expected:  sample.Expected,
		Model:     pair.model,
		Method:    pair.method.Name(),
		LatencyMs: latency,
	}
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Result = result
	outcome.Correct = result.Type == sample.Expected
	return outcome
}

// buildPairs constructs every (model, method) combination up front, so a
// configuration mistake aborts from loading before any classification runs.
func (h *Harness) buildPairs() ([]evalPair, error) {
	if len(h.cfg.EvalMethods) == 0 {
		return nil, classifyErr(ErrUnsupportedMethod, "", "eval_methods is empty")
	}
	models := h.cfg.EvalModels
	if len(models) == 0 {
		models = []string{h.cfg.LLMModel}
	}

	var pairs []evalPair
	for _, model := range models {
		for _, name := range h.cfg.EvalMethods {
			kind, err := ParseMethodKind(name)
			if err != nil {
				return nil, err
			}
			method, err := h.builder.Build(kind, model)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, evalPair{model: model, method: method})
		}
	}
	return pairs, nil
}
