package main

import (
	"math"
	"sort"
	"strings"
)

// FieldType is the wire type a schema field must carry in the model's JSON
// reply. intent and context are string fields with a closed value set.
type FieldType string

const (
	FieldIntent  FieldType = "intent"
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldString  FieldType = "string"
	FieldBool    FieldType = "boolean"
	FieldStrings FieldType = "string_list"
	FieldContext FieldType = "context"
)

// conversationContexts is the closed value set for context_aware responses.
var conversationContexts = []string{"greeting", "question", "follow_up", "task_request", "multi_step"}

// FieldSpec is one typed, named field of a schema contract.
type FieldSpec struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	MinLen      int // strings; 0 means unbounded
	MaxLen      int
	Min         float64 // numbers/integers; used only when HasRange
	Max         float64
	HasRange    bool
}

// Schema is a named response contract. Immutable after registry construction.
type Schema struct {
	Name            string
	ComplexityLevel int // 1 = minimal .. 5 = context-aware
	Fields          []FieldSpec
}

// SchemaRegistry holds the named contracts. Built once at startup and passed
// by reference to everything that needs lookup; never mutated afterwards.
type SchemaRegistry struct {
	byName map[string]*Schema
	names  []string // sorted, for error messages
}

// NewSchemaRegistry builds the registry with the five shipped contracts.
func NewSchemaRegistry() *SchemaRegistry {
	typeField := FieldSpec{
		Name: "type", Type: FieldIntent, Required: true,
		Description: "Classification: command, prompt (single-step) or workflow (multi-step)",
	}
	confidenceField := FieldSpec{
		Name: "confidence", Type: FieldNumber, Required: true,
		Description: "Confidence score from 0.0 to 1.0",
		Min:         0, Max: 1, HasRange: true,
	}

	schemas := []*Schema{
		{
			Name:            "minimal",
			ComplexityLevel: 1,
			Fields:          []FieldSpec{typeField, confidenceField},
		},
		{
			Name:            "standard",
			ComplexityLevel: 2,
			Fields: []FieldSpec{
				typeField, confidenceField,
				{Name: "reasoning", Type: FieldString, Required: true, MaxLen: 150,
					Description: "Brief explanation of why this classification was chosen"},
			},
		},
		{
			Name:            "detailed",
			ComplexityLevel: 3,
			Fields: []FieldSpec{
				typeField, confidenceField,
				{Name: "reasoning", Type: FieldString, Required: true, MaxLen: 200,
					Description: "Detailed explanation of classification decision"},
				{Name: "indicators", Type: FieldStrings, Required: true,
					Description: "Key indicators that led to this classification"},
				{Name: "complexity_score", Type: FieldInteger, Required: true,
					Min: 1, Max: 5, HasRange: true,
					Description: "Task complexity rating: 1=simple, 5=very complex"},
			},
		},
		{
			Name:            "optimized",
			ComplexityLevel: 4,
			Fields: []FieldSpec{
				typeField, confidenceField,
				{Name: "reasoning", Type: FieldString, Required: true, MinLen: 10, MaxLen: 100,
					Description: "Concise reasoning for this classification"},
				{Name: "task_steps", Type: FieldInteger, Required: true,
					Min: 1, Max: math.MaxInt32, HasRange: true,
					Description: "Estimated number of steps required to complete this task"},
			},
		},
		{
			Name:            "context_aware",
			ComplexityLevel: 5,
			Fields: []FieldSpec{
				typeField, confidenceField,
				{Name: "reasoning", Type: FieldString, Required: true, MaxLen: 150,
					Description: "Brief explanation of classification decision"},
				{Name: "conversation_context", Type: FieldContext, Required: true,
					Description: "Context type: greeting/question/follow_up always prompt, task_request/multi_step may be workflow"},
				{Name: "step_count", Type: FieldInteger, Required: true,
					Min: 1, Max: math.MaxInt32, HasRange: true,
					Description: "Estimated number of steps needed (1=prompt, 2+=workflow)"},
				{Name: "requires_coordination", Type: FieldBool, Required: true,
					Description: "Does this require coordinating multiple tools/services?"},
			},
		},
	}

	r := &SchemaRegistry{byName: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		r.byName[s.Name] = s
		r.names = append(r.names, s.Name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the schema for name, or an unsupported-method failure naming
// the available contracts.
func (r *SchemaRegistry) Lookup(name string) (*Schema, error) {
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, classifyErr(ErrUnsupportedMethod, "",
			"unknown schema %q (available: %s)", name, strings.Join(r.names, ", "))
	}
	return s, nil
}

// Names returns the registered schema names in sorted order.
func (r *SchemaRegistry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// JSONShape renders the schema as a plain JSON-schema object. Ollama-style
// endpoints take this as the "format" constraint for structured output.
func (s *Schema) JSONShape() map[string]any {
	props := make(map[string]any, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		p := map[string]any{"description": f.Description}
		switch f.Type {
		case FieldIntent:
			p["type"] = "string"
			p["enum"] = []string{"command", "prompt", "workflow"}
		case FieldContext:
			p["type"] = "string"
			p["enum"] = conversationContexts
		case FieldNumber:
			p["type"] = "number"
		case FieldInteger:
			p["type"] = "integer"
		case FieldBool:
			p["type"] = "boolean"
		case FieldStrings:
			p["type"] = "array"
			p["items"] = map[string]any{"type": "string"}
		default:
			p["type"] = "string"
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Validate checks a decoded model reply against the contract. It returns the
// schema-validation failure for the first violated constraint. Confidence out
// of [0,1] is a violation here, never clamped.
func (s *Schema) Validate(payload map[string]any) error {
	for _, f := range s.Fields {
		raw, ok := payload[f.Name]
		if !ok || raw == nil {
			if f.Required {
				return classifyErr(ErrSchemaValidation, "",
					"schema %s: missing required field %q", s.Name, f.Name)
			}
			continue
		}

		switch f.Type {
		case FieldIntent:
			str, ok := raw.(string)
			if !ok {
				return s.typeErr(f, raw)
			}
			if _, err := ParseIntentType(str); err != nil {
				return classifyErr(ErrSchemaValidation, "", "schema %s: field %q: %v", s.Name, f.Name, err)
			}
		case FieldContext:
			str, ok := raw.(string)
			if !ok {
				return s.typeErr(f, raw)
			}
			if !containsString(conversationContexts, strings.ToLower(strings.TrimSpace(str))) {
				return classifyErr(ErrSchemaValidation, "",
					"schema %s: field %q: invalid context %q (valid: %s)",
					s.Name, f.Name, str, strings.Join(conversationContexts, ", "))
			}
		case FieldNumber:
			n, ok := raw.(float64)
			if !ok {
				return s.typeErr(f, raw)
			}
			if f.HasRange && (n < f.Min || n > f.Max) {
				return s.rangeErr(f, n)
			}
		case FieldInteger:
			// encoding/json decodes every JSON number as float64.
			n, ok := raw.(float64)
			if !ok || n != math.Trunc(n) {
				return s.typeErr(f, raw)
			}
			if f.HasRange && (n < f.Min || n > f.Max) {
				return s.rangeErr(f, n)
			}
		case FieldString:
			str, ok := raw.(string)
			if !ok {
				return s.typeErr(f, raw)
			}
			if f.MinLen > 0 && len(str) < f.MinLen {
				return classifyErr(ErrSchemaValidation, "",
					"schema %s: field %q: shorter than %d chars", s.Name, f.Name, f.MinLen)
			}
			if f.MaxLen > 0 && len(str) > f.MaxLen {
				return classifyErr(ErrSchemaValidation, "",
					"schema %s: field %q: longer than %d chars", s.Name, f.Name, f.MaxLen)
			}
		case FieldBool:
			if _, ok := raw.(bool); !ok {
				return s.typeErr(f, raw)
			}
		case FieldStrings:
			items, ok := raw.([]any)
			if !ok {
				return s.typeErr(f, raw)
			}
			for _, item := range items {
				if _, ok := item.(string); !ok {
					return classifyErr(ErrSchemaValidation, "",
						"schema %s: field %q: non-string list element %v", s.Name, f.Name, item)
				}
			}
		}
	}
	return nil
}

func (s *Schema) typeErr(f FieldSpec, raw any) error {
	return classifyErr(ErrSchemaValidation, "",
		"schema %s: field %q: expected %s, got %T", s.Name, f.Name, f.Type, raw)
}

func (s *Schema) rangeErr(f FieldSpec, n float64) error {
	return classifyErr(ErrSchemaValidation, "",
		"schema %s: field %q: %g outside [%g, %g]", s.Name, f.Name, n, f.Min, f.Max)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
