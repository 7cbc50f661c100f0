package format

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vyrodovalexey/apimorph/internal/observability"
)

// Catalog maps format ids to formatters and their options.
//
// A catalog has two phases. During registration Register and SetOptions may
// be called; Seal ends the phase, after which the catalog is read-only and
// readers take no locks.
type Catalog struct {
	logger observability.Logger

	mu         sync.RWMutex
	sealed     atomic.Bool
	formatters map[string]Formatter
	options    map[string]Options
}

// CatalogOption is a functional option for configuring the catalog.
type CatalogOption func(*Catalog)

// WithCatalogLogger sets the logger for the catalog.
func WithCatalogLogger(logger observability.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		logger:     observability.NopLogger(),
		formatters: make(map[string]Formatter),
		options:    make(map[string]Options),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Register binds a formatter to id, replacing any previous one. Non-nil
// opts replace the options of id; nil opts keep them.
func (c *Catalog) Register(id string, f Formatter, opts Options) error {
	if id == "" || f == nil {
		return fmt.Errorf("%w: id=%q", ErrInvalidRegistration, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrCatalogSealed, id)
	}

	if _, exists := c.formatters[id]; exists {
		c.logger.Debug("replacing formatter", observability.String("format", id))
	}
	c.formatters[id] = f
	if opts != nil {
		c.options[id] = opts.Clone()
	}

	return nil
}

// SetOptions replaces the options of id. The formatter does not need to be
// registered yet.
func (c *Catalog) SetOptions(id string, opts Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Load() {
		return fmt.Errorf("%w: cannot set options of %q", ErrCatalogSealed, id)
	}

	c.options[id] = opts.Clone()
	return nil
}

// Seal ends the registration phase.
func (c *Catalog) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Swap(true) {
		return
	}
	c.logger.Debug("format catalog sealed", observability.Strings("formats", c.idsLocked()))
}

// Sealed reports whether Seal has been called.
func (c *Catalog) Sealed() bool {
	return c.sealed.Load()
}

// Has reports whether a formatter is registered for id.
func (c *Catalog) Has(id string) bool {
	unlock := c.rlock()
	defer unlock()

	_, ok := c.formatters[id]
	return ok
}

// Get returns the formatter registered for id, or an *UnsupportedFormatError.
func (c *Catalog) Get(id string) (Formatter, error) {
	unlock := c.rlock()
	defer unlock()

	f, ok := c.formatters[id]
	if !ok {
		return nil, &UnsupportedFormatError{Format: id}
	}
	return f, nil
}

// OptionsFor returns a copy of the options of id. The result is never nil.
func (c *Catalog) OptionsFor(id string) Options {
	unlock := c.rlock()
	defer unlock()

	return c.options[id].Clone()
}

// IDs returns the registered format ids in lexical order.
func (c *Catalog) IDs() []string {
	unlock := c.rlock()
	defer unlock()

	return c.idsLocked()
}

// ContentTypes maps each produced content type to the first format id (in
// lexical order) producing it. Formatters with an empty content type are
// skipped.
func (c *Catalog) ContentTypes() map[string]string {
	unlock := c.rlock()
	defer unlock()

	out := make(map[string]string, len(c.formatters))
	for _, id := range c.idsLocked() {
		ct := ContentTypeOf(c.formatters[id], c.options[id])
		if ct == "" {
			continue
		}
		if _, taken := out[ct]; !taken {
			out[ct] = id
		}
	}
	return out
}

func (c *Catalog) idsLocked() []string {
	ids := make([]string, 0, len(c.formatters))
	for id := range c.formatters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// rlock takes the read lock while the catalog is still open for
// registration.
func (c *Catalog) rlock() func() {
	if c.sealed.Load() {
		return func() {}
	}
	c.mu.RLock()
	return c.mu.RUnlock
}
