package transform

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vyrodovalexey/apimorph/internal/model"
	"github.com/vyrodovalexey/apimorph/internal/observability"
)

// RuleConfig describes a declarative transformer.
type RuleConfig struct {
	// Resource is the resource key the rule applies to.
	Resource string

	// Allow lists the field paths to keep. Empty keeps all fields.
	Allow []string

	// Deny lists the field paths to remove.
	Deny []string

	// Rename maps source field paths to target field paths.
	Rename map[string]string

	// Links maps link names to URL templates. "{field}" placeholders are
	// replaced with the record's attribute values.
	Links map[string]string

	// Filter is a CEL expression over "item"; collection members for which
	// it yields false are dropped. Records transformed on their own are
	// never filtered.
	Filter string

	// Meta entries are added to the response metadata when the rule
	// transforms the bound content itself, not a nested relation.
	Meta map[string]any
}

// Rule is a Transformer built from a RuleConfig. Related records nested in
// the attributes are transformed with their own rules first.
type Rule struct {
	cfg    RuleConfig
	filter *celFilter
	logger observability.Logger
}

// RuleOption is a functional option for configuring a rule.
type RuleOption func(*Rule)

// WithRuleLogger sets the logger for the rule.
func WithRuleLogger(logger observability.Logger) RuleOption {
	return func(r *Rule) {
		r.logger = logger
	}
}

// NewRule validates cfg and compiles its filter.
func NewRule(cfg RuleConfig, opts ...RuleOption) (*Rule, error) {
	if cfg.Resource == "" {
		return nil, fmt.Errorf("%w: resource is required", ErrInvalidRule)
	}

	r := &Rule{cfg: cfg, logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}

	if strings.TrimSpace(cfg.Filter) != "" {
		filter, err := compileFilter(cfg.Filter)
		if err != nil {
			return nil, err
		}
		r.filter = filter
	}

	return r, nil
}

// Resource returns the resource key the rule applies to.
func (r *Rule) Resource() string { return r.cfg.Resource }

// Transform implements Transformer.
func (r *Rule) Transform(ctx context.Context, rec model.Record, scope *Scope) (model.Record, error) {
	attrs := copyMap(rec.Attributes())

	if err := r.nest(ctx, attrs, scope); err != nil {
		return nil, err
	}

	if r.filter != nil && scope != nil && scope.Member() {
		keep, err := r.filter.Match(ctx, rec.ResourceKey(), attrs)
		if err != nil {
			return nil, err
		}
		if !keep {
			r.logger.Debug("record filtered out",
				observability.String("resource", rec.ResourceKey()))
			return nil, nil
		}
	}

	links := r.links(attrs)

	attrs = allowFields(attrs, r.cfg.Allow)
	attrs = denyFields(attrs, r.cfg.Deny)

	for _, from := range sortedKeys(r.cfg.Rename) {
		renameField(attrs, from, r.cfg.Rename[from])
	}

	if len(links) > 0 {
		attrs["links"] = links
	}

	if scope != nil && scope.Depth() == 0 {
		for _, k := range sortedKeys(r.cfg.Meta) {
			scope.AddMeta(k, r.cfg.Meta[k])
		}
	}

	return model.NewResource(rec.ResourceKey(), attrs), nil
}

// nest replaces related records and collections with their transformed
// attribute form.
func (r *Rule) nest(ctx context.Context, attrs map[string]any, scope *Scope) error {
	for key, value := range attrs {
		switch value.(type) {
		case model.Record, model.Collection:
		default:
			continue
		}

		out := value
		if scope != nil {
			nested, err := scope.Nested(ctx, value)
			if err != nil {
				return err
			}
			out = nested
		}

		switch t := out.(type) {
		case nil:
			delete(attrs, key)
		case model.Record:
			attrs[key] = copyMap(t.Attributes())
		case model.Collection:
			items := make([]any, 0, len(t.Records()))
			for _, item := range t.Records() {
				items = append(items, copyMap(item.Attributes()))
			}
			attrs[key] = items
		}
	}
	return nil
}

func (r *Rule) links(attrs map[string]any) map[string]any {
	if len(r.cfg.Links) == 0 {
		return nil
	}
	links := make(map[string]any, len(r.cfg.Links))
	for name, tmpl := range r.cfg.Links {
		links[name] = expandTemplate(tmpl, attrs)
	}
	return links
}

// expandTemplate replaces "{field}" placeholders with attribute values.
// Unknown fields expand to an empty string.
func expandTemplate(tmpl string, attrs map[string]any) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			break
		}
		b.WriteString(tmpl[:open])
		if v, ok := attrs[tmpl[open+1:open+end]]; ok && v != nil {
			b.WriteString(fmt.Sprint(v))
		}
		tmpl = tmpl[open+end+1:]
	}
	b.WriteString(tmpl)
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
