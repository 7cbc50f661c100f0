package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/apimorph/internal/observability"
)

type testEvent string

func (e testEvent) Name() string { return string(e) }

func TestBus_OrderedDelivery(t *testing.T) {
	t.Parallel()

	var calls []string
	record := func(tag string) Observer {
		return func(_ context.Context, e Event) {
			calls = append(calls, tag+":"+e.Name())
		}
	}

	b := NewBus(record("a"), nil, record("b"))
	b.Subscribe(record("c"))
	assert.Equal(t, 3, b.Len())

	b.Publish(context.Background(), testEvent("one"))
	b.Publish(context.Background(), testEvent("two"))

	assert.Equal(t, []string{"a:one", "b:one", "c:one", "a:two", "b:two", "c:two"}, calls)
}

func TestBus_NilAndEmpty(t *testing.T) {
	t.Parallel()

	var nilBus *Bus
	assert.NotPanics(t, func() {
		nilBus.Publish(context.Background(), testEvent("x"))
		Nop().Publish(context.Background(), testEvent("x"))
		NewBus().Publish(context.Background(), testEvent("x"))
	})
	assert.Equal(t, 0, nilBus.Len())
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	t.Parallel()

	b := NewBus()
	calls := 0
	b.Subscribe(func(_ context.Context, _ Event) {
		calls++
		b.Subscribe(func(context.Context, Event) { calls += 10 })
	})

	b.Publish(context.Background(), testEvent("x"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, b.Len())
}

func TestLoggingObserver(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	o := LoggingObserver(observability.NewLoggerFromZap(zap.New(core)))

	ctx := observability.ContextWithRequestID(context.Background(), "req-1")
	o(ctx, testEvent("response.morphed"))

	entries := logs.FilterMessage("event published").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "response.morphed", fields["event"])
		assert.Equal(t, "req-1", fields["request_id"])
	}

	assert.NotPanics(t, func() { LoggingObserver(nil)(context.Background(), testEvent("x")) })
}

func TestMetricsObserver(t *testing.T) {
	o := MetricsObserver()
	counter := eventsTotal.WithLabelValues("metrics.test")
	before := testutil.ToFloat64(counter)

	o(context.Background(), testEvent("metrics.test"))
	o(context.Background(), testEvent("metrics.test"))

	assert.InDelta(t, before+2, testutil.ToFloat64(counter), 0.001)
}
