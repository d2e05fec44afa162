package main

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubOracle scripts oracle behavior per call. fn receives the 1-based call
// number.
type stubOracle struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (string, error)
}

func (s *stubOracle) Complete(_ context.Context, _, _, _ string, _ *Schema) (string, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call)
}

func (s *stubOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newSchemaMethod(t *testing.T, oracle Oracle, maxRetries int) *SchemaConstrainedMethod {
	t.Helper()
	return NewSchemaConstrainedMethod(oracle, mustSchema(t, "standard"), "test-model", time.Second, maxRetries)
}

func TestSchemaConstrainedSuccess(t *testing.T) {
	oracle := &stubOracle{fn: func(int) (string, error) {
		return `{"type": "prompt", "confidence": 0.82, "reasoning": "simple greeting"}`, nil
	}}
	m := newSchemaMethod(t, oracle, 0)

	res, err := m.Classify(context.Background(), ClassificationRequest{Input: "hello"})
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if res.Type != IntentPrompt || res.Confidence != 0.82 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Method != "schema-constrained" || res.Model != "test-model" {
		t.Fatalf("result not tagged: %+v", res)
	}
}

func TestSchemaConstrainedFencedReply(t *testing.T) {
	oracle := &stubOracle{fn: func(int) (string, error) {
		return "```json\n{\"type\": \"workflow\", \"confidence\": 0.9, \"reasoning\": \"multi-step\"}\n```", nil
	}}
	m := newSchemaMethod(t, oracle, 0)

	res, err := m.Classify(context.Background(), ClassificationRequest{Input: "deploy and test"})
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if res.Type != IntentWorkflow {
		t.Fatalf("expected workflow, got %s", res.Type)
	}
}

func TestSchemaConstrainedParseErrorNotRetried(t *testing.T) {
	oracle := &stubOracle{fn: func(int) (string, error) {
		return "the model rambled with no json at all", nil
	}}
	m := newSchemaMethod(t, oracle, 2)

	_, err := m.Classify(context.Background(), ClassificationRequest{Input: "hello"})
	if err == nil || KindOf(err) != ErrParse {
		t.Fatalf("expected parse error, got %v", err)
	}
	if oracle.callCount() != 1 {
		t.Fatalf("parse failure should not retry, got %d calls", oracle.callCount())
	}
}

func TestSchemaConstrainedValidationError(t *testing.T) {
	oracle := &stubOracle{fn: func(int) (string, error) {
		return `{"type": "prompt", "confidence": 1.5, "reasoning": "overconfident"}`, nil
	}}
	m := newSchemaMethod(t, oracle, 0)

	_, err := m.Classify(context.Background(), ClassificationRequest{Input: "hello"})
	if err == nil || KindOf(err) != ErrSchemaValidation {
		t.Fatalf("expected schema_validation, got %v", err)
	}
}

func TestSchemaConstrainedRetriesTransient(t *testing.T) {
	oracle := &stubOracle{fn: func(call int) (string, error) {
		if call == 1 {
			return "", classifyErr(ErrConnection, "", "refused")
		}
		return `{"type": "prompt", "confidence": 0.7, "reasoning": "recovered"}`, nil
	}}
	m := newSchemaMethod(t, oracle, 2)

	res, err := m.Classify(context.Background(), ClassificationRequest{Input: "hello"})
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if res.Type != IntentPrompt {
		t.Fatalf("unexpected result: %+v", res)
	}
	if oracle.callCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", oracle.callCount())
	}
}

func TestSchemaConstrainedTimeoutExhaustsRetries(t *testing.T) {
	oracle := &stubOracle{fn: func(int) (string, error) {
		return "", classifyErr(ErrTimeout, "", "deadline exceeded")
	}}
	m := newSchemaMethod(t, oracle, 1)

	_, err := m.Classify(context.Background(), ClassificationRequest{Input: "hello"})
	if err == nil || KindOf(err) != ErrTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if oracle.callCount() != 2 {
		t.Fatalf("expected initial call plus one retry, got %d calls", oracle.callCount())
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{`{"type": "prompt"}`, false},
		{"Sure! Here it is: {\"type\": \"prompt\"} hope that helps", false},
		{"```json\n{\"type\": \"prompt\"}\n```", false},
		{"no braces here", true},
		{"{not valid json}", true},
	}
	for _, c := range cases {
		_, err := extractJSONObject(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("extractJSONObject(%q): err=%v, wantErr=%v", c.in, err, c.wantErr)
		}
	}
}

func TestClassificationSystemPromptIncludesFields(t *testing.T) {
	s := mustSchema(t, "context_aware")
	prompt := buildClassificationSystemPrompt(s)
	for _, want := range []string{"conversation_context", "step_count", "requires_coordination", "COMMAND", "WORKFLOW"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
}
