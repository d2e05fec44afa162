package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ruleFallbackConfidence is the confidence of the neutral fallback when no
// rule fires. It sits at the default escalation threshold so hybrid setups
// escalate unresolved inputs.
const ruleFallbackConfidence = 0.5

// commandConfidence is assigned to prefix-detected commands.
const commandConfidence = 0.95

// rawKeyword is an uncompiled lexicon entry. Exact entries match the phrase
// with strict word boundaries; non-exact single words tolerate common verb
// suffixes (deploy -> deploys, deployed, deploying).
type rawKeyword struct {
	phrase string
	weight float64
	exact  bool
}

var workflowKeywords = []rawKeyword{
	{phrase: "workflow", weight: 1.0},
	{phrase: "orchestrate", weight: 1.0},
	{phrase: "and then", weight: 1.0, exact: true},
	{phrase: "after that", weight: 0.9, exact: true},
	{phrase: "deploy", weight: 0.9},
	{phrase: "pipeline", weight: 0.9},
	{phrase: "with tests", weight: 0.9, exact: true},
	{phrase: "and deploy", weight: 0.9, exact: true},
	{phrase: "and run", weight: 0.8, exact: true},
	{phrase: "and update", weight: 0.7, exact: true},
	{phrase: "and document", weight: 0.7, exact: true},
	{phrase: "test suite", weight: 0.8, exact: true},
	{phrase: "run the tests", weight: 0.8, exact: true},
	{phrase: "migrate", weight: 0.8},
	{phrase: "integrate", weight: 0.8},
	{phrase: "set up", weight: 0.8, exact: true},
	{phrase: "refactor", weight: 0.7},
	{phrase: "release", weight: 0.7},
	{phrase: "across", weight: 0.6, exact: true},
	{phrase: "multiple files", weight: 0.8, exact: true},
	{phrase: "entire codebase", weight: 0.9, exact: true},
}

var promptKeywords = []rawKeyword{
	{phrase: "hi", weight: 0.5, exact: true},
	{phrase: "hello", weight: 0.5, exact: true},
	{phrase: "hey", weight: 0.5, exact: true},
	{phrase: "thanks", weight: 0.5, exact: true},
	{phrase: "thank you", weight: 0.5, exact: true},
	{phrase: "what is", weight: 0.9, exact: true},
	{phrase: "what are", weight: 0.8, exact: true},
	{phrase: "how does", weight: 0.9, exact: true},
	{phrase: "how do i", weight: 0.8, exact: true},
	{phrase: "explain", weight: 0.9},
	{phrase: "tell me", weight: 0.8, exact: true},
	{phrase: "show me", weight: 0.7, exact: true},
	{phrase: "define", weight: 0.7},
	{phrase: "summarize", weight: 0.6},
	{phrase: "write a function", weight: 0.7, exact: true},
	{phrase: "why", weight: 0.6, exact: true},
}

// questionMarkWeight is added to the prompt score when the input ends in '?'.
const questionMarkWeight = 0.5

// keywordRule is a compiled lexicon entry.
type keywordRule struct {
	pattern *regexp.Regexp
	phrase  string
	weight  float64
}

func compileKeywords(raws []rawKeyword) []keywordRule {
	out := make([]keywordRule, len(raws))
	for i, rk := range raws {
		var pattern string
		if rk.exact || strings.Contains(rk.phrase, " ") {
			pattern = `(?i)\b` + regexp.QuoteMeta(rk.phrase) + `\b`
		} else {
			pattern = `(?i)\b` + regexp.QuoteMeta(rk.phrase) + `(?:es|s|ed|ing)?\b`
		}
		out[i] = keywordRule{
			pattern: regexp.MustCompile(pattern),
			phrase:  rk.phrase,
			weight:  rk.weight,
		}
	}
	return out
}

// RuleLexicon is the optional yaml overrides file. Entries extend the builtin
// lexicon; they never replace it.
type RuleLexicon struct {
	Keywords []LexiconKeyword `yaml:"keywords"`
	Commands []string         `yaml:"command_prefixes"`
}

type LexiconKeyword struct {
	Phrase string  `yaml:"phrase"`
	Intent string  `yaml:"intent"`
	Weight float64 `yaml:"weight"`
}

func LoadRuleLexicon(path string) (*RuleLexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	var lex RuleLexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	for _, kw := range lex.Keywords {
		if _, err := ParseIntentType(kw.Intent); err != nil {
			return nil, fmt.Errorf("lexicon phrase %q: %w", kw.Phrase, err)
		}
		if kw.Weight <= 0 || kw.Weight > 1 {
			return nil, fmt.Errorf("lexicon phrase %q: weight %g outside (0, 1]", kw.Phrase, kw.Weight)
		}
	}
	return &lex, nil
}

// RuleBasedMethod is the deterministic baseline: same input, same output, no
// hidden state, and it never returns an error.
type RuleBasedMethod struct {
	commandPrefixes []string
	lexicon         map[IntentType][]keywordRule
}

// NewRuleBasedMethod builds the baseline matcher, extended by the optional
// lexicon overrides.
func NewRuleBasedMethod(overrides *RuleLexicon) *RuleBasedMethod {
	m := &RuleBasedMethod{
		commandPrefixes: []string{"/"},
		lexicon: map[IntentType][]keywordRule{
			IntentWorkflow: compileKeywords(workflowKeywords),
			IntentPrompt:   compileKeywords(promptKeywords),
		},
	}
	if overrides == nil {
		return m
	}
	for _, p := range overrides.Commands {
		p = strings.TrimSpace(p)
		if p != "" && !containsString(m.commandPrefixes, p) {
			m.commandPrefixes = append(m.commandPrefixes, p)
		}
	}
	byIntent := map[IntentType][]rawKeyword{}
	for _, kw := range overrides.Keywords {
		intent, _ := ParseIntentType(kw.Intent)
		byIntent[intent] = append(byIntent[intent], rawKeyword{phrase: kw.Phrase, weight: kw.Weight, exact: true})
	}
	for intent, raws := range byIntent {
		m.lexicon[intent] = append(m.lexicon[intent], compileKeywords(raws)...)
	}
	return m
}

func (m *RuleBasedMethod) Name() string { return "rule-based" }

// Classify scores the input against the command prefixes and the keyword
// lexicons. No rule firing yields the neutral prompt fallback.
func (m *RuleBasedMethod) Classify(_ context.Context, req ClassificationRequest) (ClassificationResult, error) {
	start := time.Now()
	trimmed := strings.TrimSpace(req.Input)

	for _, prefix := range m.commandPrefixes {
		if strings.HasPrefix(trimmed, prefix) && len(trimmed) > len(prefix) {
			return ClassificationResult{
				Type:       IntentCommand,
				Confidence: commandConfidence,
				Reasoning:  fmt.Sprintf("command prefix %q", prefix),
				Method:     m.Name(),
				LatencyMs:  time.Since(start).Milliseconds(),
			}, nil
		}
	}

	scores := map[IntentType]float64{}
	matched := map[IntentType][]string{}
	for intent, rules := range m.lexicon {
		for _, rule := range rules {
			if rule.pattern.MatchString(trimmed) {
				scores[intent] += rule.weight
				matched[intent] = append(matched[intent], rule.phrase)
			}
		}
	}
	if strings.HasSuffix(trimmed, "?") {
		scores[IntentPrompt] += questionMarkWeight
		matched[IntentPrompt] = append(matched[IntentPrompt], "?")
	}

	if len(scores) == 0 {
		return ClassificationResult{
			Type:       IntentPrompt,
			Confidence: ruleFallbackConfidence,
			Reasoning:  "no rule fired; neutral fallback",
			Method:     m.Name(),
			LatencyMs:  time.Since(start).Milliseconds(),
		}, nil
	}

	// Equal scores resolve to prompt: when in doubt, prefer the simpler label.
	// Command can only score through lexicon overrides.
	winner := IntentPrompt
	for _, intent := range []IntentType{IntentCommand, IntentWorkflow} {
		if scores[intent] > scores[winner] {
			winner = intent
		}
	}

	phrases := matched[winner]
	sort.Strings(phrases)
	return ClassificationResult{
		Type:       winner,
		Confidence: normalizeConfidence(scores[winner]),
		Reasoning:  truncateReasoning(fmt.Sprintf("matched: %s", strings.Join(phrases, ", "))),
		Method:     m.Name(),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// normalizeConfidence maps a raw keyword score to [0, 1] with diminishing
// returns: one strong keyword lands near 0.7, several push toward 1.0.
func normalizeConfidence(score float64) float64 {
	const k = 0.35
	c := score / (score + k)
	if c > 1.0 {
		return 1.0
	}
	return c
}
