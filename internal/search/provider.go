// Package search resolves free text and postcodes to coordinates.
package search

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
)

// ErrTransport wraps network and upstream failures. "No results" is never an
// error.
var ErrTransport = errors.New("search transport error")

// Result is one geocoding match.
type Result struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Name         string  `json:"name"`
	OriginalInfo any     `json:"originalInfo,omitempty"`
}

// AutocompleteResult is a Result shaped for a suggestion list.
type AutocompleteResult struct {
	Title  string `json:"title"`
	Result Result `json:"result"`
}

// Provider is a geocoding backend.
type Provider interface {
	Search(ctx context.Context, text string) ([]Result, error)
	SearchZip(ctx context.Context, zip string) ([]Result, error)
	// AutocompleteData returns the results of the most recently started
	// search that completed.
	AutocompleteData() []AutocompleteResult
}

var postcode = regexp.MustCompile(`^(([0-8][0-9])|(9[0-5])|(2[ab]))[0-9]{3}$`)

// IsPostcode reports whether text looks like a French postcode.
func IsPostcode(text string) bool {
	return postcode.MatchString(text)
}

// Dispatch sends postcodes to SearchZip and everything else to Search.
func Dispatch(ctx context.Context, p Provider, text string) ([]Result, error) {
	text = strings.TrimSpace(text)
	if IsPostcode(text) {
		return p.SearchZip(ctx, text)
	}
	return p.Search(ctx, text)
}

// Latest keeps the result set of the newest started call. A call that
// finishes after a newer one has stored its results is discarded.
type Latest struct {
	mu      sync.Mutex
	next    uint64
	stored  uint64
	results []Result
}

// Begin reserves a sequence number for a call about to start.
func (l *Latest) Begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	return l.next
}

// Commit stores results for call seq unless a newer call already did.
// Failed calls commit nil.
func (l *Latest) Commit(seq uint64, results []Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq < l.stored {
		return
	}
	l.stored = seq
	l.results = results
}

// Autocomplete returns the stored results as suggestions.
func (l *Latest) Autocomplete() []AutocompleteResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AutocompleteResult, len(l.results))
	for i, r := range l.results {
		out[i] = AutocompleteResult{Title: r.Name, Result: r}
	}
	return out
}
