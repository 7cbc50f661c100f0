package transform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apimorph/internal/model"
	"github.com/vyrodovalexey/apimorph/internal/observability"
)

var transformTracer = otel.Tracer("apimorph/transform")

// Factory keeps one transformer per resource key and implements Resolver.
type Factory struct {
	logger  observability.Logger
	metrics *Metrics

	mu           sync.RWMutex
	transformers map[string]Transformer
}

// FactoryOption is a functional option for configuring the factory.
type FactoryOption func(*Factory)

// WithFactoryLogger sets the logger for the factory.
func WithFactoryLogger(logger observability.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithFactoryMetrics sets the metrics for the factory.
func WithFactoryMetrics(metrics *Metrics) FactoryOption {
	return func(f *Factory) {
		f.metrics = metrics
	}
}

// NewFactory creates an empty factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		logger:       observability.NopLogger(),
		transformers: make(map[string]Transformer),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Register sets the transformer for records with the given resource key.
func (f *Factory) Register(kind string, t Transformer) error {
	if kind == "" || t == nil {
		return fmt.Errorf("%w: kind=%q", ErrInvalidRule, kind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.transformers[kind] = t
	return nil
}

// Has reports whether a transformer is registered for kind.
func (f *Factory) Has(kind string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	_, ok := f.transformers[kind]
	return ok
}

// Kinds returns the registered resource keys in lexical order.
func (f *Factory) Kinds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]string, 0, len(f.transformers))
	for k := range f.transformers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Transformable reports whether v is a record with a registered rule or a
// non-empty collection whose records all have one.
func (f *Factory) Transformable(v any) bool {
	if model.IsNil(v) {
		return false
	}
	switch t := v.(type) {
	case model.Record:
		return f.Has(t.ResourceKey())
	case model.Collection:
		records := t.Records()
		if len(records) == 0 {
			return false
		}
		for _, rec := range records {
			if model.IsNil(rec) || !f.Has(rec.ResourceKey()) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Transform transforms a record or collection. A transformer carried by b
// takes precedence over the registered ones. Other values are returned
// unchanged.
func (f *Factory) Transform(ctx context.Context, v any, b *Binding) (any, error) {
	if b == nil {
		b = NewBinding(v)
	}
	scope := &Scope{factory: f, binding: b}

	out, err := f.apply(ctx, v, scope, b.Transformer())
	if err != nil {
		return nil, err
	}

	switch t := out.(type) {
	case *model.Resource:
		t.WithMeta(b.Meta())
	case *model.List:
		t.WithMeta(b.Meta())
	}

	return out, nil
}

func (f *Factory) apply(ctx context.Context, v any, scope *Scope, override Transformer) (any, error) {
	switch t := v.(type) {
	case model.Record:
		rec, err := f.transformRecord(ctx, t, scope, override)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, nil
		}
		return rec, nil
	case model.Collection:
		return f.transformCollection(ctx, t, scope, override)
	default:
		return v, nil
	}
}

func (f *Factory) transformCollection(
	ctx context.Context,
	coll model.Collection,
	scope *Scope,
	override Transformer,
) (*model.List, error) {
	records := coll.Records()
	items := make([]model.Record, 0, len(records))
	member := &Scope{factory: scope.factory, binding: scope.binding, depth: scope.depth, member: true}

	for _, rec := range records {
		if model.IsNil(rec) {
			continue
		}
		out, err := f.transformRecord(ctx, rec, member, override)
		if err != nil {
			return nil, err
		}
		if out != nil {
			items = append(items, out)
		}
	}

	list := model.NewList(coll.CollectionKey(), items...)

	if scope.depth == 0 {
		if p, ok := coll.(model.Paginated); ok {
			if page, ok := p.Pagination(); ok {
				page.Count = len(items)
				list.Page = &page
				scope.AddMeta("pagination", page)
			}
		}
	}

	return list, nil
}

func (f *Factory) transformRecord(
	ctx context.Context,
	rec model.Record,
	scope *Scope,
	override Transformer,
) (*model.Resource, error) {
	kind := rec.ResourceKey()

	t := override
	if t == nil {
		f.mu.RLock()
		t = f.transformers[kind]
		f.mu.RUnlock()
	}
	if t == nil {
		return nil, transformationError(kind, ErrNoTransformer)
	}

	ctx, span := transformTracer.Start(ctx, "transform.record",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("transform.resource", kind),
			attribute.Int("transform.depth", scope.depth),
			attribute.Bool("transform.override", override != nil),
		),
	)
	defer span.End()

	start := time.Now()

	out, err := t.Transform(ctx, rec, scope)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		f.record(kind, "error", start)
		f.logger.WithContext(ctx).Debug("transformation failed",
			observability.String("resource", kind),
			observability.Error(err))
		return nil, transformationError(kind, err)
	}

	if out == nil {
		span.SetAttributes(attribute.Bool("transform.dropped", true))
		f.record(kind, "dropped", start)
		return nil, nil
	}

	f.record(kind, "success", start)
	return asResource(out), nil
}

func (f *Factory) record(kind, result string, start time.Time) {
	if f.metrics == nil {
		return
	}
	f.metrics.RecordTransform(kind, result, time.Since(start))
}

// asResource copies a transformed record into a fresh Resource so binding
// metadata is never attached to caller-owned values.
func asResource(rec model.Record) *model.Resource {
	return model.NewResource(rec.ResourceKey(), rec.Attributes())
}

// IsTransformationError reports whether err came from a transformer.
func IsTransformationError(err error) bool {
	return errors.Is(err, ErrTransformation)
}
