package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Oracle is the only network boundary: (prompt, schema) -> raw response text.
// Implementations must honor the context deadline and return failures from
// the taxonomy in errors.go; they never interpret the response.
type Oracle interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string, schema *Schema) (string, error)
}

// NewOracle selects the backend for the configured provider.
func NewOracle(cfg Config) (Oracle, error) {
	switch cfg.LLMProvider {
	case "", "ollama":
		return &OllamaOracle{
			baseURL:     strings.TrimRight(cfg.LLMBaseURL, "/"),
			temperature: cfg.LLMTemperature,
			httpClient:  externalHTTPClient,
		}, nil
	case "anthropic":
		opts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.LLMBaseURL))
		}
		client := anthropic.NewClient(opts...)
		return &AnthropicOracle{
			client:      &client,
			temperature: cfg.LLMTemperature,
			maxTokens:   cfg.LLMMaxTokens,
		}, nil
	}
	return nil, classifyErr(ErrUnsupportedMethod, "",
		"unknown llm_provider %q (valid: ollama, anthropic)", cfg.LLMProvider)
}

// completeWithRetry calls the oracle with a fresh per-attempt deadline,
// retrying only transient failures. Parse and schema errors are deterministic
// for a given reply and surface immediately.
func completeWithRetry(ctx context.Context, o Oracle, model, systemPrompt, userPrompt string, schema *Schema, timeout time.Duration, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("llm retry attempt=%d model=%s cause=%v", attempt, model, lastErr)
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := o.Complete(callCtx, model, systemPrompt, userPrompt, schema)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
	}
	return "", lastErr
}

// transportErr maps a transport failure onto the taxonomy. Deadline and net
// timeouts are timeouts; everything else at this layer means the oracle was
// unreachable or refused us.
func transportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return classifyErr(ErrTimeout, "", "oracle call timed out: %v", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classifyErr(ErrTimeout, "", "oracle call timed out: %v", err)
	}
	return classifyErr(ErrConnection, "", "oracle unreachable: %v", err)
}

// --- Ollama-style HTTP backend ---

// OllamaOracle speaks the /api/chat JSON shape of an Ollama-compatible
// endpoint. The schema rides in the "format" field as a JSON shape, which
// conforming servers use for constrained decoding.
type OllamaOracle struct {
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   map[string]any  `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}

func (o *OllamaOracle) Complete(ctx context.Context, model, systemPrompt, userPrompt string, schema *Schema) (string, error) {
	reqBody := ollamaRequest{
		Model: model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:  false,
		Options: map[string]any{"temperature": o.temperature},
	}
	if schema != nil {
		reqBody.Format = schema.JSONShape()
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", classifyErr(ErrConnection, "", "marshaling request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", classifyErr(ErrConnection, "", "creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", transportErr(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportErr(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyErr(ErrConnection, "", "oracle returned HTTP %d: %s",
			resp.StatusCode, firstLine(respBody))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", classifyErr(ErrParse, "", "invalid oracle envelope: %v", err)
	}
	if parsed.Error != "" {
		return "", classifyErr(ErrConnection, "", "oracle error: %s", parsed.Error)
	}

	log.Printf("llm ollama response model=%s size=%d", model, len(parsed.Message.Content))
	return parsed.Message.Content, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// --- Anthropic backend ---

type AnthropicOracle struct {
	client      *anthropic.Client
	temperature float64
	maxTokens   int
}

func (o *AnthropicOracle) Complete(ctx context.Context, model, systemPrompt, userPrompt string, schema *Schema) (string, error) {
	maxTokens := o.maxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	message, err := o.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(o.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", transportErr(err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response model=%s size=%d tokens_in=%d tokens_out=%d",
				model, len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", classifyErr(ErrParse, "", "no text content in anthropic response")
}
