package response

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apimorph/internal/events"
	"github.com/vyrodovalexey/apimorph/internal/format"
	"github.com/vyrodovalexey/apimorph/internal/observability"
	"github.com/vyrodovalexey/apimorph/internal/transform"
)

var morphTracer = otel.Tracer("apimorph/response")

const headerContentType = "Content-Type"

// Catalog provides formatters and their options by format id.
type Catalog interface {
	Get(id string) (format.Formatter, error)
	OptionsFor(id string) format.Options
}

// Morpher renders response content with the formatters of a catalog.
type Morpher struct {
	catalog   Catalog
	resolver  transform.Resolver
	publisher events.Publisher
	logger    observability.Logger
	metrics   *Metrics
}

// MorpherOption is a functional option for configuring the morpher.
type MorpherOption func(*Morpher)

// WithResolver sets the resolver used to transform bound content.
func WithResolver(r transform.Resolver) MorpherOption {
	return func(m *Morpher) {
		m.resolver = r
	}
}

// WithPublisher sets the publisher for morph events.
func WithPublisher(p events.Publisher) MorpherOption {
	return func(m *Morpher) {
		m.publisher = p
	}
}

// WithLogger sets the logger for the morpher.
func WithLogger(logger observability.Logger) MorpherOption {
	return func(m *Morpher) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics for the morpher.
func WithMetrics(metrics *Metrics) MorpherOption {
	return func(m *Morpher) {
		m.metrics = metrics
	}
}

// NewMorpher creates a morpher over catalog.
func NewMorpher(catalog Catalog, opts ...MorpherOption) *Morpher {
	m := &Morpher{
		catalog:   catalog,
		publisher: events.Nop(),
		logger:    observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.publisher == nil {
		m.publisher = events.Nop()
	}

	return m
}

// MorphOption adjusts a single Morph call.
type MorphOption func(*morphCall)

type morphCall struct {
	overrides format.Options
}

// WithOptions merges opts over the catalog's options for this call only.
func WithOptions(opts format.Options) MorphOption {
	return func(c *morphCall) {
		c.overrides = c.overrides.Merge(opts)
	}
}

// Morph renders the response content as formatID and stores the result as
// the response body.
//
// Bound content that the resolver accepts is transformed first. The
// formatter's content type replaces the Content-Type header unless it is
// empty. Records, collections and structured values are rendered by the
// formatter, strings become the body verbatim, and any other value leaves
// the body and the Content-Type header as they were.
func (m *Morpher) Morph(ctx context.Context, resp *Response, formatID string, opts ...MorphOption) (*Response, error) {
	call := &morphCall{}
	for _, opt := range opts {
		opt(call)
	}

	ctx, span := morphTracer.Start(ctx, "response.morph",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("morph.format", formatID)),
	)
	defer span.End()

	start := time.Now()
	logger := m.logger.WithContext(ctx)

	content := resp.Content()
	if content == nil {
		content = ""
	}

	m.publisher.Publish(ctx, &MorphingEvent{Response: resp, Content: content})

	if b := resp.Binding(); transform.Accepts(m.resolver, content, b) {
		transformed, err := m.transform(ctx, content, b)
		if err != nil {
			m.fail(span, formatID, "transform", "error", start, err)
			return nil, err
		}
		content = transformed
	}

	formatter, err := m.catalog.Get(formatID)
	if err != nil {
		logger.Warn("unsupported response format",
			observability.String("format", formatID),
			observability.Error(err))
		m.fail(span, formatID, "unknown", "unsupported", start, err)
		return nil, err
	}

	options := m.catalog.OptionsFor(formatID).Merge(call.overrides)

	header := resp.Header()
	defaultContentType := header.Get(headerContentType)
	if ct := format.ContentTypeOf(formatter, options); ct != "" {
		header.Set(headerContentType, ct)
	}

	m.publisher.Publish(ctx, &MorphedEvent{Response: resp, Content: content})

	shape := Classify(content)
	span.SetAttributes(attribute.String("morph.shape", shape.Kind.String()))

	var body []byte
	switch shape.Kind {
	case ShapeRecord:
		body, err = formatter.FormatRecord(shape.Record, options)
	case ShapeCollection:
		body, err = formatter.FormatCollection(shape.Collection, options)
	case ShapeStructured:
		body, err = formatter.FormatStructured(shape.Value, options)
	case ShapeString:
		body = shape.Text
	case ShapeOpaque:
		body = resp.body
		if defaultContentType != "" {
			header.Set(headerContentType, defaultContentType)
		} else {
			header.Del(headerContentType)
		}
	}
	if err != nil {
		logger.Debug("formatter failed",
			observability.String("format", formatID),
			observability.String("shape", shape.Kind.String()),
			observability.Error(err))
		m.fail(span, formatID, shape.Kind.String(), "error", start, err)
		return nil, err
	}

	resp.body = body
	resp.morphed = true

	logger.Debug("response morphed",
		observability.String("format", formatID),
		observability.String("shape", shape.Kind.String()),
		observability.Int("bytes", len(body)))
	if m.metrics != nil {
		m.metrics.RecordMorph(formatID, shape.Kind.String(), "success", time.Since(start))
	}

	return resp, nil
}

func (m *Morpher) transform(ctx context.Context, content any, b *transform.Binding) (any, error) {
	if m.resolver != nil {
		return m.resolver.Transform(ctx, content, b)
	}
	// Binding overrides run through an empty factory when no resolver is set.
	return transform.NewFactory(transform.WithFactoryLogger(m.logger)).Transform(ctx, content, b)
}

func (m *Morpher) fail(span trace.Span, formatID, shape, result string, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if m.metrics != nil {
		m.metrics.RecordMorph(formatID, shape, result, time.Since(start))
	}
}

// StatusCode returns the HTTP status an error from Morph maps to, or 500.
func StatusCode(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
