package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// LoadDataset reads and validates a labeled dataset file. The returned
// dataset is read-only for the lifetime of a run.
func LoadDataset(path string) (*TestDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var ds TestDataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset json: %w", err)
	}

	if len(ds.Samples) == 0 {
		return nil, fmt.Errorf("dataset %s contains no samples", path)
	}
	if ds.Metadata.TotalSamples != 0 && ds.Metadata.TotalSamples != len(ds.Samples) {
		return nil, fmt.Errorf("dataset %s: metadata claims %d samples, file has %d",
			path, ds.Metadata.TotalSamples, len(ds.Samples))
	}

	seen := make(map[string]bool, len(ds.Samples))
	counts := map[string]int{}
	for i, s := range ds.Samples {
		if s.ID == "" {
			return nil, fmt.Errorf("dataset %s: sample %d has no id", path, i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("dataset %s: duplicate sample id %q", path, s.ID)
		}
		seen[s.ID] = true
		if s.Input == "" {
			return nil, fmt.Errorf("dataset %s: sample %q has empty input", path, s.ID)
		}
		if _, err := ParseIntentType(string(s.Expected)); err != nil {
			return nil, fmt.Errorf("dataset %s: sample %q: %w", path, s.ID, err)
		}
		counts[string(s.Expected)]++
	}

	// Distribution drift is worth a warning but not a refusal: the samples
	// themselves are the ground truth.
	for label, claimed := range ds.Metadata.Distribution {
		if counts[label] != claimed {
			log.Printf("dataset %s: distribution mismatch label=%s claimed=%d actual=%d",
				path, label, claimed, counts[label])
		}
	}

	ds.Metadata.TotalSamples = len(ds.Samples)
	return &ds, nil
}
