package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

// HybridMethod runs the rules first and escalates to the model only when the
// rule confidence falls strictly below the threshold. Model failures fall
// back to the rule result, so hybrid never fails as long as rules can run.
type HybridMethod struct {
	rules     Method
	model     Method
	threshold float64
}

func NewHybridMethod(rules, model Method, threshold float64) *HybridMethod {
	return &HybridMethod{rules: rules, model: model, threshold: threshold}
}

func (m *HybridMethod) Name() string { return "hybrid" }

func (m *HybridMethod) Classify(ctx context.Context, req ClassificationRequest) (ClassificationResult, error) {
	start := time.Now()

	ruleResult, err := m.rules.Classify(ctx, req)
	if err != nil {
		// Only a misconfigured rules layer can fail here.
		return ClassificationResult{}, tagMethod(err, m.Name())
	}

	if ruleResult.Confidence >= m.threshold {
		ruleResult.Method = m.Name()
		ruleResult.LatencyMs = time.Since(start).Milliseconds()
		return ruleResult, nil
	}

	modelResult, err := m.model.Classify(ctx, req)
	if err != nil {
		log.Printf("hybrid model fallback cause=%v", err)
		ruleResult.Method = m.Name()
		ruleResult.Reasoning = truncateReasoning(ruleResult.Reasoning + " (model unavailable)")
		ruleResult.LatencyMs = time.Since(start).Milliseconds()
		return ruleResult, nil
	}

	// The rule reasoning rides along as supplementary context.
	modelResult.Method = m.Name()
	modelResult.Reasoning = truncateReasoning(fmt.Sprintf("%s; rules: %s", modelResult.Reasoning, ruleResult.Reasoning))
	modelResult.LatencyMs = time.Since(start).Milliseconds()
	return modelResult, nil
}
