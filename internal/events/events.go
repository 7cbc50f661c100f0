// Package events provides a minimal synchronous publish/subscribe bus for
// lifecycle notifications.
package events

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/apimorph/internal/observability"
)

// Event is a named notification.
type Event interface {
	Name() string
}

// Observer receives published events.
type Observer func(ctx context.Context, e Event)

// Publisher publishes events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers events to its observers synchronously, in subscription
// order. A nil *Bus is a valid publisher that drops every event.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewBus creates a bus with the given observers.
func NewBus(observers ...Observer) *Bus {
	b := &Bus{}
	for _, o := range observers {
		b.Subscribe(o)
	}
	return b
}

// Subscribe appends an observer. Nil observers are ignored.
func (b *Bus) Subscribe(o Observer) {
	if o == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Len returns the number of observers.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Publish calls every observer with e before returning.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()

	for _, o := range observers {
		o(ctx, e)
	}
}

// Nop returns a publisher that drops every event.
func Nop() Publisher {
	return (*Bus)(nil)
}

// LoggingObserver logs every event at debug level.
func LoggingObserver(logger observability.Logger) Observer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return func(ctx context.Context, e Event) {
		logger.WithContext(ctx).Debug("event published", observability.String("event", e.Name()))
	}
}

var (
	eventsTotal     *prometheus.CounterVec
	eventsTotalOnce sync.Once
)

// MetricsObserver counts published events by name.
func MetricsObserver() Observer {
	eventsTotalOnce.Do(func() {
		eventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apimorph",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of published events",
			},
			[]string{"event"},
		)
	})
	return func(_ context.Context, e Event) {
		eventsTotal.WithLabelValues(e.Name()).Inc()
	}
}
