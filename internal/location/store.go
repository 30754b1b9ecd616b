package location

import (
	"cmp"
	"slices"

	"github.com/joeblew999/plat-locator/internal/geo"
)

// Sorter orders two records; it replaces distance ordering when configured.
type Sorter func(a, b Record) int

// Filterer is an extra predicate ANDed with the filter-set rule.
type Filterer func(r Record, filters []string) bool

// Store holds the canonical location list and its filtered/sorted view.
// It is not safe for concurrent use; the owning controller serializes access.
type Store struct {
	locations []Record
	filtered  []Record
	filters   []string
	sorter    Sorter
	filterer  Filterer
}

// NewStore creates a store. Both sorter and filterer are optional.
func NewStore(sorter Sorter, filterer Filterer) *Store {
	return &Store{sorter: sorter, filterer: filterer}
}

// Replace swaps the canonical list wholesale. Records are expected to have
// gone through Parse already.
func (s *Store) Replace(records []Record) {
	s.locations = slices.Clone(records)
}

// Locations returns the canonical list.
func (s *Store) Locations() []Record {
	return s.locations
}

// Filtered returns the current filtered view.
func (s *Store) Filtered() []Record {
	return s.filtered
}

// Filters returns the active filter set.
func (s *Store) Filters() []string {
	return s.filters
}

// SetFilters replaces the active filter set. A nil or empty set disables filtering.
func (s *Store) SetFilters(filters []string) {
	s.filters = slices.Clone(filters)
}

// UpdateDistances recomputes every distance from the reference position and
// sorts ascending (stable). A configured Sorter is applied afterwards and wins.
func (s *Store) UpdateDistances(from geo.Position) []Record {
	next := make([]Record, len(s.locations))
	for i, r := range s.locations {
		r.Distance = geo.Between(r.Position(), from)
		next[i] = r
	}
	slices.SortStableFunc(next, func(a, b Record) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if s.sorter != nil {
		slices.SortStableFunc(next, s.sorter)
	}
	s.locations = next
	return next
}

// ApplyFilters recomputes the filtered view from the canonical list.
func (s *Store) ApplyFilters() []Record {
	filtered := make([]Record, 0, len(s.locations))
	for _, r := range s.locations {
		if !Matches(r, s.filters) {
			continue
		}
		if s.filterer != nil && !s.filterer(r, s.filters) {
			continue
		}
		filtered = append(filtered, r)
	}
	if s.sorter != nil {
		slices.SortStableFunc(filtered, s.sorter)
	}
	s.filtered = filtered
	return filtered
}

// Find returns the current record with the given id.
func (s *Store) Find(id string) (Record, bool) {
	i := slices.IndexFunc(s.locations, func(r Record) bool { return r.ID == id })
	if i < 0 {
		return Record{}, false
	}
	return s.locations[i], true
}

// Visible reports whether the id is part of the filtered view.
func (s *Store) Visible(id string) bool {
	return slices.ContainsFunc(s.filtered, func(r Record) bool { return r.ID == id })
}

// Matches applies the filter-set rule: an empty set passes everything,
// otherwise the record tags must intersect the set.
func Matches(r Record, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, tag := range r.Tags() {
		if slices.Contains(filters, tag) {
			return true
		}
	}
	return false
}
