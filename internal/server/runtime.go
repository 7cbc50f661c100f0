package server

import (
	"fmt"

	"github.com/vyrodovalexey/apimorph/internal/config"
	"github.com/vyrodovalexey/apimorph/internal/events"
	"github.com/vyrodovalexey/apimorph/internal/format"
	"github.com/vyrodovalexey/apimorph/internal/observability"
	"github.com/vyrodovalexey/apimorph/internal/response"
	"github.com/vyrodovalexey/apimorph/internal/transform"
)

// Runtime is an immutable snapshot of everything a request needs to morph
// its response. A configuration reload builds a new Runtime and swaps it in
// whole.
type Runtime struct {
	Catalog    *format.Catalog
	Factory    *transform.Factory
	Negotiator *format.Negotiator
	Morpher    *response.Morpher

	DefaultFormat string
	FormatParam   string
	CallbackParam string
}

// RuntimeOption is a functional option for BuildRuntime.
type RuntimeOption func(*runtimeBuilder)

type runtimeBuilder struct {
	logger       observability.Logger
	publisher    events.Publisher
	transformers map[string]transform.Transformer
}

// WithRuntimeLogger sets the logger handed to every component.
func WithRuntimeLogger(logger observability.Logger) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.logger = logger
	}
}

// WithRuntimePublisher sets the publisher for morph events.
func WithRuntimePublisher(p events.Publisher) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.publisher = p
	}
}

// WithTransformer registers a transformer written in code. Rules from the
// configuration replace it when they name the same resource.
func WithTransformer(resource string, t transform.Transformer) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.transformers[resource] = t
	}
}

// BuildRuntime builds a sealed catalog, a transformer factory, a negotiator
// and a morpher from cfg. Without configured formats every built-in
// formatter is registered under its kind name.
func BuildRuntime(cfg *config.Config, opts ...RuntimeOption) (*Runtime, error) {
	b := &runtimeBuilder{
		logger:       observability.NopLogger(),
		publisher:    events.Nop(),
		transformers: make(map[string]transform.Transformer),
	}
	for _, opt := range opts {
		opt(b)
	}

	catalog, err := b.catalog(cfg.Formats)
	if err != nil {
		return nil, err
	}

	factory, err := b.factory(cfg.Transformers)
	if err != nil {
		return nil, err
	}

	if !catalog.Has(cfg.Server.DefaultFormat) {
		return nil, fmt.Errorf("default format %q is not registered", cfg.Server.DefaultFormat)
	}

	negotiator := format.NewNegotiator(catalog, cfg.Server.DefaultFormat,
		format.WithNegotiatorLogger(b.logger.Named("negotiator")),
		format.WithNegotiatorMetrics(format.GetMetrics()),
	)

	metrics := response.GetMetrics()
	metrics.Init(catalog.IDs()...)

	morpher := response.NewMorpher(catalog,
		response.WithResolver(factory),
		response.WithPublisher(b.publisher),
		response.WithLogger(b.logger.Named("morpher")),
		response.WithMetrics(metrics),
	)

	return &Runtime{
		Catalog:       catalog,
		Factory:       factory,
		Negotiator:    negotiator,
		Morpher:       morpher,
		DefaultFormat: cfg.Server.DefaultFormat,
		FormatParam:   cfg.Server.FormatParam,
		CallbackParam: cfg.Server.CallbackParam,
	}, nil
}

func (b *runtimeBuilder) catalog(formats []config.FormatConfig) (*format.Catalog, error) {
	catalog := format.NewCatalog(format.WithCatalogLogger(b.logger.Named("catalog")))

	if len(formats) == 0 {
		if err := format.RegisterBuiltins(catalog); err != nil {
			return nil, fmt.Errorf("failed to register built-in formats: %w", err)
		}
	}

	for _, fc := range formats {
		f, err := format.New(fc.Kind)
		if err != nil {
			return nil, fmt.Errorf("format %q: %w", fc.Name, err)
		}
		if err := catalog.Register(fc.Name, format.WithContentType(f, fc.ContentType), format.Options(fc.Options)); err != nil {
			return nil, fmt.Errorf("format %q: %w", fc.Name, err)
		}
	}

	catalog.Seal()
	return catalog, nil
}

func (b *runtimeBuilder) factory(transformers []config.TransformerConfig) (*transform.Factory, error) {
	factory := transform.NewFactory(
		transform.WithFactoryLogger(b.logger.Named("transform")),
		transform.WithFactoryMetrics(transform.GetMetrics()),
	)

	for resource, t := range b.transformers {
		if err := factory.Register(resource, t); err != nil {
			return nil, err
		}
	}

	for i := range transformers {
		rule, err := transform.NewRule(transformers[i].RuleConfig(),
			transform.WithRuleLogger(b.logger.Named("rule")))
		if err != nil {
			return nil, fmt.Errorf("transformer %q: %w", transformers[i].Resource, err)
		}
		if err := factory.Register(rule.Resource(), rule); err != nil {
			return nil, err
		}
	}

	return factory, nil
}
