package locator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/autocomplete"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/pagination"
	"github.com/joeblew999/plat-locator/internal/search"
	"github.com/joeblew999/plat-locator/internal/timer"
)

type config struct {
	base         map[string]any
	overrides    []func(*Settings)
	mapProvider  mapprovider.Provider
	searcher     search.Provider
	searchConfig search.Config
	pager        pagination.Provider
	autocomplete autocomplete.Provider
	geolocator   Geolocator
	view         View
	scheduler    timer.Scheduler
	logger       *zap.Logger
	sorter       location.Sorter
	filterer     location.Filterer
	icon         mapprovider.IconFunc
}

// Option configures a Map.
type Option func(*config)

// WithBaseSettings sets values read from a settings file; data-settings and
// WithSettings take precedence.
func WithBaseSettings(m map[string]any) Option {
	return func(c *config) { c.base = m }
}

// WithSettings applies explicit overrides after every other source.
func WithSettings(fn func(s *Settings)) Option {
	return func(c *config) { c.overrides = append(c.overrides, fn) }
}

// WithMapProvider sets the map adapter instead of building one from the
// mapProvider setting.
func WithMapProvider(p mapprovider.Provider) Option {
	return func(c *config) { c.mapProvider = p }
}

// WithSearchProvider sets the search backend.
func WithSearchProvider(p search.Provider) Option {
	return func(c *config) { c.searcher = p }
}

// WithSearchConfig is used when the backend is built from the
// searchProvider setting.
func WithSearchConfig(sc search.Config) Option {
	return func(c *config) { c.searchConfig = sc }
}

// WithPaginationProvider sets the paginator.
func WithPaginationProvider(p pagination.Provider) Option {
	return func(c *config) { c.pager = p }
}

// WithAutocompleteProvider sets the autocomplete plug-in.
func WithAutocompleteProvider(p autocomplete.Provider) Option {
	return func(c *config) { c.autocomplete = p }
}

// WithGeolocator sets the position source. Without one, geolocation reports
// ErrGeolocationUnavailable.
func WithGeolocator(g Geolocator) Option {
	return func(c *config) { c.geolocator = g }
}

// WithView sets the receiver of rendered regions.
func WithView(v View) Option {
	return func(c *config) { c.view = v }
}

// WithScheduler sets the scheduler for hover and geolocation timers.
func WithScheduler(s timer.Scheduler) Option {
	return func(c *config) { c.scheduler = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCustomSorter replaces distance ordering.
func WithCustomSorter(fn location.Sorter) Option {
	return func(c *config) { c.sorter = fn }
}

// WithCustomFilterer adds a predicate ANDed with the filter set.
func WithCustomFilterer(fn location.Filterer) Option {
	return func(c *config) { c.filterer = fn }
}

// WithIcon sets a per-record marker icon callback.
func WithIcon(fn mapprovider.IconFunc) Option {
	return func(c *config) { c.icon = fn }
}

// resolveProviders builds providers named in the settings that were not
// passed explicitly.
func (m *Map) resolveProviders(c config) error {
	s := m.settings
	if m.mapProvider == nil && s.MapProvider != "" {
		kind, err := mapprovider.ParseKind(s.MapProvider)
		if err != nil {
			return err
		}
		m.mapProvider = mapprovider.NewRemote(kind,
			mapprovider.WithScheduler(c.scheduler),
			mapprovider.WithLogger(m.log))
	}
	if m.searcher == nil && s.SearchProvider != "" {
		sc := c.searchConfig
		if sc.Logger == nil {
			sc.Logger = m.log
		}
		p, err := search.New(s.SearchProvider, sc)
		if err != nil {
			return fmt.Errorf("search provider: %w", err)
		}
		m.searcher = p
	}
	if m.pager == nil {
		switch s.PaginationProvider {
		case "":
		case "list", "pagination":
			m.pager = pagination.NewList(s.PageSize)
		default:
			return fmt.Errorf("unknown pagination provider %q", s.PaginationProvider)
		}
	}
	if m.autocomplete == nil {
		switch s.AutocompleteProvider {
		case "":
		case "autocomplete", "debounced":
			m.autocomplete = autocomplete.NewDebounced(autocomplete.WithLogger(m.log))
		default:
			return fmt.Errorf("unknown autocomplete provider %q", s.AutocompleteProvider)
		}
	}
	return nil
}
