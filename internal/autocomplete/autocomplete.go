// Package autocomplete turns keystrokes in the search input into suggestion
// lists.
package autocomplete

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/search"
)

const (
	DefaultThreshold  = 3
	DefaultDebounce   = 300 * time.Millisecond
	DefaultMaxResults = 10
)

// ErrSuperseded is returned for a query overtaken by a newer keystroke.
var ErrSuperseded = errors.New("autocomplete query superseded")

// Setup wires a results source to an input.
type Setup struct {
	GetResults func(ctx context.Context, input string) ([]search.AutocompleteResult, error)
	// Input identifies the search input element (CSS selector).
	Input    string
	OnSelect func(r search.AutocompleteResult)
}

// Provider is the autocomplete plug-in contract.
type Provider interface {
	SetParent(parent event.Dispatcher)
	Setup(s Setup)
}

// Wait blocks for d or until ctx ends.
type Wait func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Debounced answers queries once typing pauses for the debounce window.
type Debounced struct {
	Threshold  int
	Debounce   time.Duration
	MaxResults int

	logger *zap.Logger
	wait   Wait

	mu      sync.Mutex
	parent  event.Dispatcher
	setup   Setup
	gen     uint64
	results []search.AutocompleteResult
}

// Option configures a Debounced provider.
type Option func(*Debounced)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Debounced) { d.logger = l }
}

// WithWait replaces the debounce wait.
func WithWait(w Wait) Option {
	return func(d *Debounced) { d.wait = w }
}

// NewDebounced creates a provider with default limits.
func NewDebounced(opts ...Option) *Debounced {
	d := &Debounced{
		Threshold:  DefaultThreshold,
		Debounce:   DefaultDebounce,
		MaxResults: DefaultMaxResults,
		logger:     zap.NewNop(),
		wait:       sleep,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Debounced) SetParent(parent event.Dispatcher) {
	d.mu.Lock()
	d.parent = parent
	d.mu.Unlock()
}

func (d *Debounced) Setup(s Setup) {
	d.mu.Lock()
	d.setup = s
	d.results = nil
	d.mu.Unlock()
}

// Input returns the configured input selector.
func (d *Debounced) Input() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setup.Input
}

// Query handles one keystroke. Inputs shorter than the threshold clear the
// suggestions. Results source errors degrade to an empty list.
func (d *Debounced) Query(ctx context.Context, input string) ([]search.AutocompleteResult, error) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	get := d.setup.GetResults
	d.mu.Unlock()

	if get == nil || utf8.RuneCountInString(input) < d.Threshold {
		d.store(gen, nil)
		return []search.AutocompleteResult{}, nil
	}

	if err := d.wait(ctx, d.Debounce); err != nil {
		return nil, err
	}
	if !d.current(gen) {
		return nil, ErrSuperseded
	}

	results, err := get(ctx, input)
	if err != nil {
		d.logger.Warn("autocomplete results failed", zap.String("input", input), zap.Error(err))
		results = nil
	}
	if len(results) > d.MaxResults {
		results = results[:d.MaxResults]
	}
	if !d.current(gen) {
		return nil, ErrSuperseded
	}
	d.store(gen, results)
	if results == nil {
		results = []search.AutocompleteResult{}
	}
	return results, nil
}

func (d *Debounced) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen
}

func (d *Debounced) store(gen uint64, results []search.AutocompleteResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen == gen {
		d.results = results
	}
}

// Suggestions returns the list shown for the latest query.
func (d *Debounced) Suggestions() []search.AutocompleteResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]search.AutocompleteResult(nil), d.results...)
}

// Select picks suggestion i and hands it to OnSelect.
func (d *Debounced) Select(i int) bool {
	d.mu.Lock()
	if i < 0 || i >= len(d.results) {
		d.mu.Unlock()
		return false
	}
	r := d.results[i]
	fn := d.setup.OnSelect
	d.results = nil
	d.mu.Unlock()

	if fn != nil {
		fn(r)
	}
	return true
}
