package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// EnsembleMethod fans the request out to every configured sub-method
// concurrently and aggregates only after all of them have settled. Member
// order is the configured priority order and breaks otherwise-exact ties.
type EnsembleMethod struct {
	members []Method
	quorum  int
}

func NewEnsembleMethod(members []Method, quorum int) *EnsembleMethod {
	return &EnsembleMethod{members: members, quorum: quorum}
}

func (m *EnsembleMethod) Name() string { return "ensemble" }

// ensembleGroup accumulates the vote of one intent type.
type ensembleGroup struct {
	sum      float64 // summed confidence of the group's members
	best     float64 // highest single member confidence
	firstIdx int     // earliest configured member index in the group
}

func (m *EnsembleMethod) Classify(ctx context.Context, req ClassificationRequest) (ClassificationResult, error) {
	start := time.Now()
	n := len(m.members)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Indexed slices keep accumulation race-free without locks.
	results := make([]ClassificationResult, n)
	errs := make([]error, n)

	// Once more members have failed than the quorum can spare, the decision
	// is doomed; cancel the outstanding calls instead of waiting them out.
	maxFailures := int32(n - m.quorum)
	var failures atomic.Int32

	var wg sync.WaitGroup
	for i, sub := range m.members {
		wg.Add(1)
		go func(idx int, sub Method) {
			defer wg.Done()
			res, err := sub.Classify(subCtx, req)
			if err != nil {
				errs[idx] = err
				if failures.Add(1) > maxFailures {
					cancel()
				}
				return
			}
			results[idx] = res
		}(i, sub)
	}
	wg.Wait()

	var succeeded int
	for i := range m.members {
		if errs[i] == nil {
			succeeded++
		}
	}
	if succeeded < m.quorum {
		return ClassificationResult{}, classifyErr(ErrInsufficientQuorum, m.Name(),
			"%d of %d sub-methods succeeded, quorum is %d (first failure: %v)",
			succeeded, n, m.quorum, firstErr(errs))
	}

	// Group the successful subset by type. Score is the summed confidence;
	// ties prefer the group holding the single most confident member, then
	// the group seen earliest in configured order.
	groups := map[IntentType]*ensembleGroup{}
	for i := range m.members {
		if errs[i] != nil {
			continue
		}
		r := results[i]
		g, ok := groups[r.Type]
		if !ok {
			g = &ensembleGroup{firstIdx: i}
			groups[r.Type] = g
		}
		if r.Confidence > g.best {
			g.best = r.Confidence
		}
		g.sum += r.Confidence
	}

	var winner IntentType
	var won *ensembleGroup
	for _, label := range AllIntentTypes {
		g, ok := groups[label]
		if !ok {
			continue
		}
		if won == nil || g.sum > won.sum ||
			(g.sum == won.sum && g.best > won.best) ||
			(g.sum == won.sum && g.best == won.best && g.firstIdx < won.firstIdx) {
			winner = label
			won = g
		}
	}

	confidence := won.sum / float64(n)
	if confidence > 1.0 {
		confidence = 1.0
	}

	return ClassificationResult{
		Type:       winner,
		Confidence: confidence,
		Reasoning:  truncateReasoning(voteSummary(groups, succeeded, n)),
		Method:     m.Name(),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func voteSummary(groups map[IntentType]*ensembleGroup, succeeded, n int) string {
	parts := make([]string, 0, len(groups))
	for label, g := range groups {
		parts = append(parts, fmt.Sprintf("%s=%.2f", label, g.sum))
	}
	sort.Strings(parts)
	return fmt.Sprintf("vote: %s (%d/%d succeeded)", strings.Join(parts, " "), succeeded, n)
}
