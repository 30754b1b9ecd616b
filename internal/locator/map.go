// Package locator is the controller of a locations map: it keeps the map,
// the rendered list and the popups in sync while locations, filters and the
// reference position change.
package locator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/autocomplete"
	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/pagination"
	"github.com/joeblew999/plat-locator/internal/search"
	"github.com/joeblew999/plat-locator/internal/templates"
	"github.com/joeblew999/plat-locator/internal/timer"
)

var (
	ErrMissingMapProvider     = errors.New("missing map provider")
	ErrInvalidDelimiters      = templates.ErrInvalidDelimiters
	ErrGeolocationUnavailable = errors.New("geolocation not available")
	ErrNoSearchProvider       = errors.New("no search provider configured")
)

// State is the lifecycle stage of a Map.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// View receives the regions of the host page that changed.
type View interface {
	Patch(selector, html string)
	Alert(message string)
	ScrollIntoView(selector string)
}

// Geolocator resolves the user's current position.
type Geolocator interface {
	Locate(ctx context.Context) (geo.Position, error)
}

// Map is the controller for one container. Mutations are serialized through
// Do; Init, Geolocate, SubmitSearch, DoSearch and AutocompleteResults call Do
// themselves and may be used from any goroutine. Every other method must run
// inside Do or inside an event listener.
type Map struct {
	mu sync.Mutex

	settings  Settings
	log       *zap.Logger
	bus       *event.Bus
	doc       *goquery.Document
	container Container
	library   *templates.Library
	delims    templates.Delimiters
	formatter *templates.Formatter
	store     *location.Store
	markers   []mapprovider.Marker
	icon      mapprovider.IconFunc

	mapProvider  mapprovider.Provider
	searcher     search.Provider
	pager        pagination.Provider
	autocomplete autocomplete.Provider
	geolocator   Geolocator
	view         View
	timers       *timer.Set

	ctx    context.Context
	cancel context.CancelFunc

	state            State
	position         geo.Position
	geolocalized     bool
	hasClientAddress bool
	selected         *mapprovider.Marker
	hovered          string
	popupHTML        string

	dirtyList   bool
	dirtyPopups bool
}

// New builds a Map for the container matched by selector in doc. Settings
// are merged as: defaults < WithBaseSettings < data-settings < WithSettings.
func New(doc *goquery.Document, selector string, opts ...Option) (*Map, error) {
	container, err := FindContainer(doc, selector)
	if err != nil {
		return nil, err
	}

	cfg := config{scheduler: timer.Real{}, logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}

	settings := DefaultSettings()
	if err := settings.MergeMap(cfg.base); err != nil {
		return nil, err
	}
	if err := settings.Merge(container.Settings()); err != nil {
		return nil, err
	}
	for _, fn := range cfg.overrides {
		fn(&settings)
	}

	delims, err := templates.ParseDelimiters(settings.TemplateDelimiters)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Map{
		settings:     settings,
		log:          cfg.logger,
		bus:          event.NewBus(),
		doc:          doc,
		container:    container,
		library:      templates.NewLibrary(doc.Selection),
		delims:       delims,
		formatter:    templates.NewFormatter(doc.Find("html").AttrOr("lang", "")),
		store:        location.NewStore(cfg.sorter, cfg.filterer),
		icon:         cfg.icon,
		mapProvider:  cfg.mapProvider,
		searcher:     cfg.searcher,
		pager:        cfg.pager,
		autocomplete: cfg.autocomplete,
		geolocator:   cfg.geolocator,
		view:         cfg.view,
		timers:       timer.NewSet(cfg.scheduler),
		ctx:          ctx,
		cancel:       cancel,
		position:     geo.Position{Latitude: settings.Latitude, Longitude: settings.Longitude},
	}
	if err := m.resolveProviders(cfg); err != nil {
		cancel()
		return nil, err
	}
	if m.mapProvider == nil {
		cancel()
		return nil, ErrMissingMapProvider
	}
	if m.icon == nil && settings.Icon != "" {
		m.icon = mapprovider.StaticIcon(settings.Icon)
	}
	if m.pager != nil {
		m.pager.SetParent(m)
	}
	if m.autocomplete != nil {
		m.autocomplete.SetParent(m)
	}

	markActions(container.Root)
	m.store.SetFilters(settings.Filters)
	m.store.Replace(m.parseLocations(settings.Locations))
	return m, nil
}

// Do runs fn with exclusive access to the map, then pushes changed regions
// to the view.
func (m *Map) Do(fn func(m *Map)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
	m.flush()
}

func (m *Map) flush() {
	if m.view == nil {
		m.dirtyList, m.dirtyPopups = false, false
		return
	}
	if m.dirtyList && m.container.HasList() {
		if html, err := m.container.List.Html(); err == nil {
			m.view.Patch("#"+ListID, html)
		}
	}
	if m.dirtyPopups && m.container.Popups.Length() > 0 {
		if html, err := m.container.Popups.First().Html(); err == nil {
			m.view.Patch(PopupSelector, html)
		}
	}
	m.dirtyList, m.dirtyPopups = false, false
}

// Init brings the map up: it waits for the map provider, creates markers,
// wires search and autocomplete, schedules the startup geolocation, then
// renders the content. Provider errors are returned unchanged.
func (m *Map) Init(ctx context.Context) error {
	var (
		targetID string
		ms       mapprovider.Settings
		proceed  bool
		err      error
	)
	m.Do(func(m *Map) {
		if m.state != Uninitialized {
			return
		}
		proceed = true
		m.state = Initializing
		m.Dispatch(event.Initializing, &SettingsDetail{Detail: m.base(), Settings: m.settings})
		m.mapProvider.SetParent(m)

		if targetID = m.targetID(); targetID == "" {
			m.state = Uninitialized
			err = ErrMissingMapTarget
			return
		}
		ms = mapprovider.Settings{
			Center:      m.position,
			Zoom:        m.settings.Zoom,
			Icon:        m.icon,
			Cluster:     m.settings.ClusterSettings,
			Credentials: m.settings.Credentials,
		}
	})
	if err != nil || !proceed {
		return err
	}

	if err := m.mapProvider.InitializeMap(ctx, targetID, ms); err != nil {
		m.Do(func(m *Map) { m.state = Uninitialized })
		return fmt.Errorf("initialize map: %w", err)
	}

	m.Do(func(m *Map) {
		m.createMarkers()
		m.initSearchForm()
		m.scheduleStartupGeolocation()
		m.addListeners()
		m.state = Ready
		m.Dispatch(event.Initialized, &SettingsDetail{Detail: m.base(), Settings: m.settings})
		m.updateContent(true)
	})
	return nil
}

func (m *Map) targetID() string {
	t := m.container.Target
	if t.Length() == 0 {
		return ""
	}
	id := t.AttrOr("id", "")
	if id == "" {
		id = DefaultTargetID
		t.SetAttr("id", id)
	}
	return id
}

func (m *Map) createMarkers() {
	m.markers = mapprovider.Markers(m.store.Locations())
	m.mapProvider.AddMapMarkers(m.markers)
}

func (m *Map) initSearchForm() {
	if !m.container.HasSearch() || m.autocomplete == nil {
		return
	}
	m.autocomplete.Setup(autocomplete.Setup{
		GetResults: m.AutocompleteResults,
		Input:      SearchFormSelector + " " + SearchInputSel,
		OnSelect: func(r search.AutocompleteResult) {
			m.Do(func(m *Map) { m.UpdateFromSearch(r.Result) })
		},
	})
}

func (m *Map) addListeners() {
	m.mapProvider.AddMarkerClickCallback(func(r location.Record) {
		if mk, ok := m.marker(r.ID); ok {
			m.onMarkerClick(mk)
		}
	})
	m.bus.On(event.ClosedPopup, func(*event.Event) { m.ClosePopups() })
}

// Dispose stops timers and cancels background work. The map must not be
// used afterwards.
func (m *Map) Dispose() {
	m.Do(func(m *Map) {
		m.state = Disposed
		m.timers.StopAll()
		m.cancel()
		if r, ok := m.mapProvider.(interface{ Close() }); ok {
			r.Close()
		}
	})
}

// State returns the lifecycle stage.
func (m *Map) State() State { return m.state }

// Settings returns the merged settings.
func (m *Map) Settings() Settings { return m.settings }

// Container returns the DOM subtree owned by the map.
func (m *Map) Container() Container { return m.container }

// Locations returns the canonical location list.
func (m *Map) Locations() []location.Record { return m.store.Locations() }

// FilteredLocations returns the filtered, sorted view.
func (m *Map) FilteredLocations() []location.Record { return m.store.Filtered() }

// Filters returns the active filter set.
func (m *Map) Filters() []string { return m.store.Filters() }

// Markers returns the markers handed to the map provider.
func (m *Map) Markers() []mapprovider.Marker { return m.markers }

// MapProvider returns the underlying map adapter.
func (m *Map) MapProvider() mapprovider.Provider { return m.mapProvider }

// SearchProvider returns the search backend, or nil.
func (m *Map) SearchProvider() search.Provider { return m.searcher }

// PaginationProvider returns the paginator, or nil.
func (m *Map) PaginationProvider() pagination.Provider { return m.pager }

// AutocompleteProvider returns the autocomplete plug-in, or nil.
func (m *Map) AutocompleteProvider() autocomplete.Provider { return m.autocomplete }

// Position returns the reference position.
func (m *Map) Position() geo.Position { return m.position }

// Geolocalized reports whether the position came from a live fix.
func (m *Map) Geolocalized() bool { return m.geolocalized }

// HasClientAddress reports whether the user supplied a position through
// geolocation or search.
func (m *Map) HasClientAddress() bool { return m.hasClientAddress }

// Selected returns the marker whose popup is open.
func (m *Map) Selected() (mapprovider.Marker, bool) {
	if m.selected == nil {
		return mapprovider.Marker{}, false
	}
	return *m.selected, true
}

// Hovered returns the id of the list item pending hover focus.
func (m *Map) Hovered() string { return m.hovered }

// PopupHTML returns the markup shown in off-map popup containers.
func (m *Map) PopupHTML() string { return m.popupHTML }

// ListElement implements pagination.Parent.
func (m *Map) ListElement() *goquery.Selection { return m.container.List }

// FilteredCount implements pagination.Parent.
func (m *Map) FilteredCount() int { return len(m.store.Filtered()) }

// ClearTemplatesCache drops cached template markup.
func (m *Map) ClearTemplatesCache() { m.library.Clear() }

func (m *Map) marker(id string) (mapprovider.Marker, bool) {
	for _, mk := range m.markers {
		if mk.Location.ID == id {
			return mk, true
		}
	}
	return mapprovider.Marker{}, false
}
