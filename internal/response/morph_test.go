package response

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vyrodovalexey/apimorph/internal/events"
	"github.com/vyrodovalexey/apimorph/internal/format"
	"github.com/vyrodovalexey/apimorph/internal/model"
	"github.com/vyrodovalexey/apimorph/internal/observability"
	"github.com/vyrodovalexey/apimorph/internal/transform"
)

// spyFormatter records every call it receives.
type spyFormatter struct {
	contentType string
	err         error
	calls       []spyCall
}

type spyCall struct {
	method string
	value  any
	opts   format.Options
}

func (s *spyFormatter) ContentType() string { return s.contentType }

func (s *spyFormatter) FormatRecord(rec model.Record, opts format.Options) ([]byte, error) {
	s.calls = append(s.calls, spyCall{method: "record", value: rec, opts: opts})
	return []byte("record"), s.err
}

func (s *spyFormatter) FormatCollection(coll model.Collection, opts format.Options) ([]byte, error) {
	s.calls = append(s.calls, spyCall{method: "collection", value: coll, opts: opts})
	return []byte("collection"), s.err
}

func (s *spyFormatter) FormatStructured(v any, opts format.Options) ([]byte, error) {
	s.calls = append(s.calls, spyCall{method: "structured", value: v, opts: opts})
	return []byte("structured"), s.err
}

// spyResolver accepts every record and collection and tags records.
type spyResolver struct {
	transformable bool
	err           error
	calls         int
}

func (s *spyResolver) Transformable(any) bool { return s.transformable }

func (s *spyResolver) Transform(_ context.Context, v any, b *transform.Binding) (any, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	b.AddMeta("resolved", true)
	if rec, ok := v.(model.Record); ok {
		return model.NewResource(rec.ResourceKey(), map[string]any{"transformed": true}), nil
	}
	return v, nil
}

func newCatalog(t *testing.T, entries map[string]format.Formatter) *format.Catalog {
	t.Helper()

	c := format.NewCatalog()
	for id, f := range entries {
		require.NoError(t, c.Register(id, f, nil))
	}
	c.Seal()
	return c
}

func TestMorph_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"json": format.NewJSONFormatter()}))

	resp := New(map[string]any{"a": 1}, 0, nil)
	_, err := m.Morph(context.Background(), resp, "xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, format.ErrUnsupportedFormat)
	assert.Equal(t, http.StatusNotAcceptable, StatusCode(err))
	assert.False(t, resp.Morphed())
	assert.Empty(t, resp.Header().Get("Content-Type"))
}

func TestMorph_JSONMap(t *testing.T) {
	t.Parallel()

	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"json": format.NewJSONFormatter()}))

	resp, err := m.Morph(context.Background(), New(map[string]any{"a": 1}, 0, nil), "json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(resp.Body()))
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.True(t, resp.Morphed())
}

func TestMorph_NoBindingSkipsTransformation(t *testing.T) {
	t.Parallel()

	spy := &spyFormatter{contentType: "application/x-spy"}
	resolver := &spyResolver{transformable: true}
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}), WithResolver(resolver))

	rec := model.NewResource("user", map[string]any{"id": 1})
	_, err := m.Morph(context.Background(), New(rec, 0, nil), "spy")
	require.NoError(t, err)

	assert.Equal(t, 0, resolver.calls)
	require.Len(t, spy.calls, 1)
	assert.Equal(t, "record", spy.calls[0].method)
	assert.Same(t, rec, spy.calls[0].value)
}

func TestMorph_TransformedRecord(t *testing.T) {
	t.Parallel()

	spy := &spyFormatter{contentType: "application/x-spy"}
	resolver := &spyResolver{transformable: true}
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}), WithResolver(resolver))

	rec := model.NewResource("user", map[string]any{"id": 1})
	resp := New(rec, 0, nil)
	resp.Bind(transform.NewBinding(rec))

	_, err := m.Morph(context.Background(), resp, "spy")
	require.NoError(t, err)

	assert.Equal(t, 1, resolver.calls)
	require.Len(t, spy.calls, 1)
	assert.Equal(t, "record", spy.calls[0].method)
	got := spy.calls[0].value.(model.Record)
	assert.Equal(t, map[string]any{"transformed": true}, got.Attributes())

	v, ok := resp.Meta().Get("resolved")
	require.True(t, ok)
	assert.Equal(t, true, v)

	// Original content is untouched
	assert.Same(t, rec, resp.Content())
}

func TestMorph_NotTransformableWithBinding(t *testing.T) {
	t.Parallel()

	spy := &spyFormatter{contentType: "application/x-spy"}
	resolver := &spyResolver{transformable: false}
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}), WithResolver(resolver))

	resp := New(map[string]any{"a": 1}, 0, nil).AddMeta("k", "v")
	_, err := m.Morph(context.Background(), resp, "spy")
	require.NoError(t, err)

	assert.Equal(t, 0, resolver.calls)
	require.Len(t, spy.calls, 1)
	assert.Equal(t, "structured", spy.calls[0].method)
}

func TestMorph_CollectionWinsOverArrayable(t *testing.T) {
	t.Parallel()

	spy := &spyFormatter{contentType: "application/x-spy"}
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}))

	list := model.NewList("users", model.NewResource("user", nil))
	_, err := m.Morph(context.Background(), New(list, 0, nil), "spy")
	require.NoError(t, err)

	require.Len(t, spy.calls, 1)
	assert.Equal(t, "collection", spy.calls[0].method)
	assert.Same(t, list, spy.calls[0].value)
}

func TestMorph_StringPassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content any
		want    string
	}{
		{name: "string", content: "héllo <b>", want: "héllo <b>"},
		{name: "bytes", content: []byte{0xff, 0x00, 'x'}, want: "\xff\x00x"},
		{name: "nil becomes empty", content: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spy := &spyFormatter{contentType: "application/x-spy"}
			m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}))

			resp, err := m.Morph(context.Background(), New(tt.content, 0, nil), "spy")
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(resp.Body()))
			assert.Empty(t, spy.calls)
			assert.Equal(t, "application/x-spy", resp.Header().Get("Content-Type"))
		})
	}
}

func TestMorph_OpaqueRestoresContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		before string
	}{
		{name: "previous header", before: "text/plain"},
		{name: "no previous header", before: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spy := &spyFormatter{contentType: "application/x-spy"}
			m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}))

			resp := New(42, 0, nil)
			if tt.before != "" {
				resp.WithHeader("Content-Type", tt.before)
			}

			_, err := m.Morph(context.Background(), resp, "spy")
			require.NoError(t, err)

			assert.Empty(t, spy.calls)
			assert.Empty(t, resp.Body())
			assert.Equal(t, tt.before, resp.Header().Get("Content-Type"))
			_, present := resp.Header()["Content-Type"]
			assert.Equal(t, tt.before != "", present)
		})
	}
}

func TestMorph_TypedNilContentIsOpaque(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content any
		bind    bool
	}{
		{name: "nil record", content: (*model.Resource)(nil)},
		{name: "nil bound record", content: (*model.Resource)(nil), bind: true},
		{name: "nil list", content: (*model.List)(nil), bind: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := format.NewCatalog()
			require.NoError(t, format.RegisterBuiltins(c))
			c.Seal()
			factory := transform.NewFactory()
			require.NoError(t, factory.Register("user", transform.TransformerFunc(
				func(context.Context, model.Record, *transform.Scope) (model.Record, error) {
					return nil, errors.New("must not run")
				})))
			m := NewMorpher(c, WithResolver(factory))

			resp := New(tt.content, 0, nil).WithHeader("Content-Type", "text/plain")
			if tt.bind {
				resp.Bind(transform.NewBinding(tt.content))
			}

			var err error
			require.NotPanics(t, func() {
				_, err = m.Morph(context.Background(), resp, "json")
			})
			require.NoError(t, err)
			assert.Empty(t, resp.Body())
			assert.Equal(t, "text/plain", resp.Header().Get("Content-Type"))
		})
	}
}

func TestMorph_EmptyContentTypeKeepsHeader(t *testing.T) {
	t.Parallel()

	spy := &spyFormatter{}
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}))

	resp := New(map[string]any{}, 0, nil).WithHeader("Content-Type", "text/csv")
	_, err := m.Morph(context.Background(), resp, "spy")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
}

func TestMorph_ThreeRecordsWithMeta(t *testing.T) {
	t.Parallel()

	factory := transform.NewFactory()
	rule, err := transform.NewRule(transform.RuleConfig{
		Resource: "user",
		Deny:     []string{"password"},
		Meta:     map[string]any{"source": "users"},
	})
	require.NoError(t, err)
	require.NoError(t, factory.Register("user", rule))

	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"json": format.NewJSONFormatter()}),
		WithResolver(factory))

	list := model.NewList("",
		model.NewResource("user", map[string]any{"id": 1, "password": "a"}),
		model.NewResource("user", map[string]any{"id": 2, "password": "b"}),
		model.NewResource("user", map[string]any{"id": 3, "password": "c"}),
	)
	resp := New(list, 0, nil)
	resp.Bind(transform.NewBinding(list))
	resp.AddMeta("page", 1)

	_, err = m.Morph(context.Background(), resp, "json")
	require.NoError(t, err)

	assert.Equal(t, `{"users":[{"id":1},{"id":2},{"id":3}],"meta":{"page":1,"source":"users"}}`, string(resp.Body()))
	assert.Equal(t, []string{"page", "source"}, resp.Meta().Keys())
}

func TestMorph_Events(t *testing.T) {
	t.Parallel()

	resolver := &spyResolver{transformable: true}
	var seen []string
	var morphedContent any
	var morphedContentType string

	bus := events.NewBus(func(_ context.Context, e events.Event) {
		seen = append(seen, e.Name())
		switch ev := e.(type) {
		case *MorphingEvent:
			assert.Empty(t, ev.Response.Header().Get("Content-Type"))
		case *MorphedEvent:
			morphedContent = ev.Content
			morphedContentType = ev.Response.Header().Get("Content-Type")
		}
	})

	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"json": format.NewJSONFormatter()}),
		WithResolver(resolver), WithPublisher(bus))

	rec := model.NewResource("user", map[string]any{"id": 1})
	resp := New(rec, 0, nil).Bind(transform.NewBinding(rec))

	_, err := m.Morph(context.Background(), resp, "json")
	require.NoError(t, err)

	assert.Equal(t, []string{EventMorphing, EventMorphed}, seen)
	assert.Equal(t, "application/json", morphedContentType)
	assert.Equal(t, map[string]any{"transformed": true}, morphedContent.(model.Record).Attributes())
}

func TestMorph_PerCallOptions(t *testing.T) {
	t.Parallel()

	c := format.NewCatalog()
	require.NoError(t, c.Register("json", format.NewJSONFormatter(), format.Options{"pretty_print": true}))
	require.NoError(t, c.Register("jsonp", format.NewJSONPFormatter(), nil))
	c.Seal()

	m := NewMorpher(c)

	resp, err := m.Morph(context.Background(), New(map[string]any{"a": 1}, 0, nil), "json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(resp.Body()))

	resp, err = m.Morph(context.Background(), New(map[string]any{"a": 1}, 0, nil), "json",
		WithOptions(format.Options{"pretty_print": false}))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(resp.Body()))
	assert.Equal(t, true, c.OptionsFor("json")["pretty_print"])

	resp, err = m.Morph(context.Background(), New(map[string]any{"a": 1}, 0, nil), "jsonp",
		WithOptions(format.Options{"callback": "cb"}))
	require.NoError(t, err)
	assert.Equal(t, `/**/cb({"a":1});`, string(resp.Body()))
	assert.Equal(t, "application/javascript", resp.Header().Get("Content-Type"))
}

func TestMorph_Errors(t *testing.T) {
	t.Parallel()

	boom := &transform.TransformationError{Kind: "user", Cause: errors.New("boom")}
	resolver := &spyResolver{transformable: true, err: boom}
	spy := &spyFormatter{contentType: "application/x-spy"}
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}), WithResolver(resolver))

	rec := model.NewResource("user", nil)
	_, err := m.Morph(context.Background(), New(rec, 0, nil).Bind(transform.NewBinding(rec)), "spy")
	assert.Same(t, boom, err)
	assert.Empty(t, spy.calls)

	// Transformation runs before the formatter lookup
	resolver.calls = 0
	_, err = m.Morph(context.Background(), New(rec, 0, nil).Bind(transform.NewBinding(rec)), "missing")
	assert.Same(t, boom, err)
	assert.Equal(t, 1, resolver.calls)

	failing := &spyFormatter{contentType: "application/x-spy", err: format.ErrSerialization}
	m = NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": failing}))
	_, err = m.Morph(context.Background(), New(map[string]any{}, 0, nil), "spy")
	assert.ErrorIs(t, err, format.ErrSerialization)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestMorph_BindingOverrideWithoutResolver(t *testing.T) {
	t.Parallel()

	spy := &spyFormatter{contentType: "application/x-spy"}
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"spy": spy}), WithPublisher(nil))

	override := transform.TransformerFunc(func(_ context.Context, rec model.Record, _ *transform.Scope) (model.Record, error) {
		return model.NewResource(rec.ResourceKey(), map[string]any{"over": true}), nil
	})
	rec := model.NewResource("post", map[string]any{"id": 1})
	resp := New(rec, 0, nil).Bind(transform.NewBinding(rec, transform.WithTransformer(override)))

	_, err := m.Morph(context.Background(), resp, "spy")
	require.NoError(t, err)
	require.Len(t, spy.calls, 1)
	assert.Equal(t, map[string]any{"over": true}, spy.calls[0].value.(model.Record).Attributes())
}

func TestMorph_Rerun(t *testing.T) {
	t.Parallel()

	c := newCatalog(t, map[string]format.Formatter{
		"json": format.NewJSONFormatter(),
		"yaml": format.NewYAMLFormatter(),
	})
	m := NewMorpher(c, WithLogger(observability.NopLogger()))

	resp := New(map[string]any{"a": 1}, 0, nil)
	_, err := m.Morph(context.Background(), resp, "json")
	require.NoError(t, err)
	_, err = m.Morph(context.Background(), resp, "yaml")
	require.NoError(t, err)

	assert.Equal(t, "a: 1\n", string(resp.Body()))
	assert.Equal(t, "application/yaml", resp.Header().Get("Content-Type"))
}

func TestMorph_Metrics(t *testing.T) {
	metrics := GetMetrics()
	metrics.Init("metrics_probe")
	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"metrics_probe": format.NewJSONFormatter()}),
		WithMetrics(metrics))

	success := metrics.morphTotal.WithLabelValues("metrics_probe", "structured", "success")
	unsupported := metrics.morphTotal.WithLabelValues("nope", "unknown", "unsupported")
	beforeSuccess := testutil.ToFloat64(success)
	beforeUnsupported := testutil.ToFloat64(unsupported)

	_, err := m.Morph(context.Background(), New([]any{1}, 0, nil), "metrics_probe")
	require.NoError(t, err)
	_, err = m.Morph(context.Background(), New([]any{1}, 0, nil), "nope")
	require.Error(t, err)

	assert.InDelta(t, beforeSuccess+1, testutil.ToFloat64(success), 0.001)
	assert.InDelta(t, beforeUnsupported+1, testutil.ToFloat64(unsupported), 0.001)
}

// TestMorph_OTELSpan is not parallel because it replaces the global tracer
// provider.
func TestMorph_OTELSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	oldTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	morphTracer = otel.Tracer("apimorph/response")
	defer func() {
		otel.SetTracerProvider(oldTP)
		morphTracer = otel.Tracer("apimorph/response")
	}()

	m := NewMorpher(newCatalog(t, map[string]format.Formatter{"json": format.NewJSONFormatter()}))
	_, err := m.Morph(context.Background(), New(model.NewResource("user", nil), 0, nil), "json")
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "response.morph", spans[0].Name)

	attrs := make(map[string]any)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	assert.Equal(t, "json", attrs["morph.format"])
	assert.Equal(t, "record", attrs["morph.shape"])
}
