package main

import "sort"

// CalculateMetrics reduces a completed outcome list to accuracy statistics.
// It is a pure function: the same outcomes always produce the same metrics,
// and the category set comes from the labels actually observed.
func CalculateMetrics(outcomes []EvaluationOutcome) AccuracyMetrics {
	m := AccuracyMetrics{TotalTests: len(outcomes)}
	if len(outcomes) == 0 {
		return m
	}

	byLabel := map[IntentType]*CategoryMetrics{}
	var totalLatency int64
	for _, o := range outcomes {
		cat, ok := byLabel[o.Expected]
		if !ok {
			cat = &CategoryMetrics{Label: o.Expected}
			byLabel[o.Expected] = cat
		}
		cat.TotalTests++
		totalLatency += o.LatencyMs

		switch {
		case o.Err != nil:
			m.Errors++
			cat.Errors++
		case o.Correct:
			m.Correct++
			cat.Correct++
		default:
			m.Incorrect++
			cat.Incorrect++
		}
	}

	m.AccuracyRate = float64(m.Correct) / float64(m.TotalTests) * 100
	m.AverageLatencyMs = float64(totalLatency) / float64(m.TotalTests)

	m.Categories = make([]CategoryMetrics, 0, len(byLabel))
	for _, cat := range byLabel {
		if cat.TotalTests > 0 {
			cat.Accuracy = float64(cat.Correct) / float64(cat.TotalTests) * 100
		}
		m.Categories = append(m.Categories, *cat)
	}
	sort.Slice(m.Categories, func(i, j int) bool {
		return m.Categories[i].Label < m.Categories[j].Label
	})
	return m
}
