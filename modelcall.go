package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaConstrainedMethod asks the oracle for a JSON reply matching one of
// the registry's contracts and validates what comes back. All four failure
// kinds of the oracle path can surface here.
type SchemaConstrainedMethod struct {
	oracle     Oracle
	schema     *Schema
	model      string
	timeout    time.Duration
	maxRetries int
}

func NewSchemaConstrainedMethod(oracle Oracle, schema *Schema, model string, timeout time.Duration, maxRetries int) *SchemaConstrainedMethod {
	return &SchemaConstrainedMethod{
		oracle:     oracle,
		schema:     schema,
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

func (m *SchemaConstrainedMethod) Name() string { return "schema-constrained" }

func (m *SchemaConstrainedMethod) Classify(ctx context.Context, req ClassificationRequest) (ClassificationResult, error) {
	start := time.Now()

	systemPrompt := buildClassificationSystemPrompt(m.schema)
	userPrompt := buildClassificationUserPrompt(req)

	text, err := completeWithRetry(ctx, m.oracle, m.model, systemPrompt, userPrompt, m.schema, m.timeout, m.maxRetries)
	if err != nil {
		return ClassificationResult{}, tagMethod(err, m.Name())
	}

	payload, err := extractJSONObject(text)
	if err != nil {
		return ClassificationResult{}, tagMethod(err, m.Name())
	}
	if err := m.schema.Validate(payload); err != nil {
		return ClassificationResult{}, tagMethod(err, m.Name())
	}

	// Validate guarantees type and confidence are present and in range.
	intent, _ := ParseIntentType(payload["type"].(string))
	confidence := payload["confidence"].(float64)
	reasoning, _ := payload["reasoning"].(string)
	if reasoning == "" {
		reasoning = fmt.Sprintf("model classified as %s", intent)
	}

	return ClassificationResult{
		Type:       intent,
		Confidence: confidence,
		Reasoning:  truncateReasoning(reasoning),
		Method:     m.Name(),
		Model:      m.model,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// extractJSONObject pulls the first JSON object out of a possibly fenced or
// prose-wrapped reply and decodes it.
func extractJSONObject(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, classifyErr(ErrParse, "", "no JSON object in response: %s", snippet(text))
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &payload); err != nil {
		return nil, classifyErr(ErrParse, "", "invalid JSON in response: %v", err)
	}
	return payload, nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// buildClassificationSystemPrompt renders the classification rules plus the
// schema-specific analysis addenda and the exact JSON contract expected back.
func buildClassificationSystemPrompt(schema *Schema) string {
	var b strings.Builder
	b.WriteString(`You are a text classifier. Analyze the user's input and classify it as "command", "prompt" or "workflow".

Classification rules:
- COMMAND: inputs that start with a slash, invoking a named operation directly.
  Examples: "/status", "/help", "/deploy staging"
- PROMPT: single-step requests, questions, greetings, simple tasks that can be completed directly.
  Examples: "hi", "what is recursion?", "write a function", "explain this concept"
- WORKFLOW: multi-step tasks requiring coordination, orchestration, or sequential operations.
  Examples: "create a new project with tests and documentation", "fix bugs and deploy", "analyze the codebase and suggest improvements"

Key indicators:
- Multiple actions: "and", "then", "also", "with", "plus"
- File operations: "create", "update", "fix" combined with file references
- Testing requirements: "with tests", "run tests", "verify"
- Coordination needs: multiple systems, tools, or sequential steps
`)

	switch schema.Name {
	case "context_aware":
		b.WriteString(`
Additional analysis required:
- conversation_context: "greeting" for hi/hello, "question" for queries, "task_request" for work requests, "multi_step" for orchestrated tasks
- step_count: estimated steps (1 = prompt, 2+ = workflow)
- requires_coordination: true if multiple tools or services are needed
`)
	case "detailed":
		b.WriteString(`
Additional analysis required:
- indicators: key words or phrases that influenced the decision
- complexity_score: rate 1-5 (1 = very simple, 5 = very complex)
`)
	case "optimized":
		b.WriteString(`
Additional analysis required:
- task_steps: estimated number of distinct steps needed
`)
	}

	b.WriteString("\nRespond with JSON only (no markdown) containing exactly these fields:\n")
	for _, f := range schema.Fields {
		b.WriteString(fmt.Sprintf("- %s: %s\n", f.Name, f.Description))
	}
	b.WriteString("\nProvide a confidence score between 0.0 and 1.0. When in doubt, prefer \"prompt\" for simple requests and \"workflow\" only for clearly multi-step tasks.")
	return b.String()
}

func buildClassificationUserPrompt(req ClassificationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Classify this input: %q", req.Input)
	if len(req.Context) > 0 {
		b.WriteString("\n\nContext:\n")
		keys := make([]string, 0, len(req.Context))
		for k := range req.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, req.Context[k])
		}
	}
	return b.String()
}
