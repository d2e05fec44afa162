package main

import (
	"context"
	"time"
)

// Method is the one capability every classification strategy implements.
// Implementations are safe for concurrent use and mutate no shared state.
type Method interface {
	Name() string
	Classify(ctx context.Context, req ClassificationRequest) (ClassificationResult, error)
}

// MethodKind is the closed set of strategies. Adding a kind without handling
// it in Build is caught by the default branch returning unsupported_method,
// and by TestBuildAllMethodKinds.
type MethodKind string

const (
	MethodRuleBased         MethodKind = "rule-based"
	MethodSchemaConstrained MethodKind = "schema-constrained"
	MethodHybrid            MethodKind = "hybrid"
	MethodEnsemble          MethodKind = "ensemble"
)

// AllMethodKinds lists the valid kinds in their canonical order.
var AllMethodKinds = []MethodKind{MethodRuleBased, MethodSchemaConstrained, MethodHybrid, MethodEnsemble}

func ParseMethodKind(s string) (MethodKind, error) {
	for _, k := range AllMethodKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", classifyErr(ErrUnsupportedMethod, "",
		"unknown method %q (valid: rule-based, schema-constrained, hybrid, ensemble)", s)
}

// MethodBuilder constructs methods from validated configuration. The registry
// and lexicon are shared read-only; each Build call returns a fresh method.
type MethodBuilder struct {
	cfg      Config
	registry *SchemaRegistry
	oracle   Oracle
	lexicon  *RuleLexicon
}

func NewMethodBuilder(cfg Config, registry *SchemaRegistry, oracle Oracle, lexicon *RuleLexicon) *MethodBuilder {
	return &MethodBuilder{cfg: cfg, registry: registry, oracle: oracle, lexicon: lexicon}
}

// Build constructs the method for (kind, model). model is ignored by
// rule-based; empty model falls back to the configured default.
func (b *MethodBuilder) Build(kind MethodKind, model string) (Method, error) {
	if model == "" {
		model = b.cfg.LLMModel
	}

	switch kind {
	case MethodRuleBased:
		return NewRuleBasedMethod(b.lexicon), nil

	case MethodSchemaConstrained:
		return b.buildSchemaConstrained(model)

	case MethodHybrid:
		modelCall, err := b.buildSchemaConstrained(model)
		if err != nil {
			return nil, err
		}
		return NewHybridMethod(NewRuleBasedMethod(b.lexicon), modelCall, b.cfg.ConfidenceThreshold), nil

	case MethodEnsemble:
		return b.buildEnsemble(model)
	}
	return nil, classifyErr(ErrUnsupportedMethod, "", "unknown method kind %q", kind)
}

func (b *MethodBuilder) buildSchemaConstrained(model string) (Method, error) {
	schema, err := b.registry.Lookup(b.cfg.SchemaName)
	if err != nil {
		return nil, err
	}
	return NewSchemaConstrainedMethod(
		b.oracle, schema, model,
		time.Duration(b.cfg.LLMTimeoutMs)*time.Millisecond,
		b.cfg.LLMMaxRetries,
	), nil
}

func (b *MethodBuilder) buildEnsemble(defaultModel string) (Method, error) {
	members := b.cfg.Ensemble.Members
	if len(members) == 0 {
		return nil, classifyErr(ErrUnsupportedMethod, "", "ensemble configured with no members")
	}

	built := make([]Method, 0, len(members))
	for _, mc := range members {
		kind, err := ParseMethodKind(mc.Method)
		if err != nil {
			return nil, err
		}
		if kind == MethodEnsemble {
			return nil, classifyErr(ErrUnsupportedMethod, "", "ensemble members cannot be ensembles")
		}
		model := mc.Model
		if model == "" {
			model = defaultModel
		}
		sub, err := b.Build(kind, model)
		if err != nil {
			return nil, err
		}
		built = append(built, sub)
	}

	quorum := b.cfg.Ensemble.Quorum
	if quorum <= 0 {
		quorum = len(built)/2 + 1 // simple majority
	}
	if quorum > len(built) {
		return nil, classifyErr(ErrUnsupportedMethod, "",
			"ensemble quorum %d exceeds member count %d", quorum, len(built))
	}
	return NewEnsembleMethod(built, quorum), nil
}
