package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/clawminium/agentkernel/internal/tools"
)

// SchemaSource resolves a tool's definition; *tools.Registry satisfies it.
type SchemaSource interface {
	Lookup(name string) (tools.Definition, bool)
}

// InputSchemaPolicy blocks calls whose arguments violate the tool's declared
// input schema. Compiled schemas are cached per tool.
type InputSchemaPolicy struct {
	name    string
	reason  string
	tools   map[string]struct{}
	source  SchemaSource
	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
}

func NewInputSchemaPolicy(name, reason string, source SchemaSource, tools []string) (*InputSchemaPolicy, error) {
	if source == nil {
		return nil, fmt.Errorf("policy %q: schema source is required", name)
	}
	return &InputSchemaPolicy{
		name:    name,
		reason:  reason,
		tools:   toSet(tools),
		source:  source,
		schemas: make(map[string]*gojsonschema.Schema),
	}, nil
}

func (p *InputSchemaPolicy) Name() string { return p.name }

func (p *InputSchemaPolicy) EvaluateCall(call Call) Verdict {
	if !appliesTo(p.tools, call.Tool) {
		return Allow()
	}
	schema, err := p.compiled(call.Tool)
	if err != nil {
		log.Error().Err(err).Str("policy", p.name).Str("tool", call.Tool).Msg("input schema unusable")
		return Allow()
	}
	if schema == nil {
		// unknown tools are the dispatcher's concern
		return Allow()
	}
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return Block(p.name, fmt.Sprintf("%s: %v", p.reason, err))
	}
	if res.Valid() {
		return Allow()
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return Block(p.name, fmt.Sprintf("%s: %s", p.reason, strings.Join(msgs, "; ")))
}

func (p *InputSchemaPolicy) compiled(tool string) (*gojsonschema.Schema, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.schemas[tool]; ok {
		return s, nil
	}
	def, ok := p.source.Lookup(tool)
	if !ok || def.InputSchema == nil {
		return nil, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.InputSchema))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", tool, err)
	}
	p.schemas[tool] = s
	return s, nil
}
