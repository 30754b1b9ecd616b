package locator

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/search"
)

const geolocateTimer = "geolocate"

// SetMapPosition commits a new reference position from a live fix and
// refreshes the content. The map pans unless this is the automatic first
// fix and scrollToGeolocation is off.
func (m *Map) SetMapPosition(pos geo.Position, firstTime bool) {
	m.position = pos
	m.geolocalized = true
	if !firstTime || m.settings.ScrollToGeolocation {
		m.mapProvider.PanTo(pos, mapprovider.KeepZoom)
	}
	m.updateContent(true)
	m.Dispatch(event.UpdatedMapPosition, &MapPositionDetail{Detail: m.base(), Position: pos, FirstTime: firstTime})
}

func (m *Map) scheduleStartupGeolocation() {
	if !m.settings.GeolocateOnStart || m.geolocator == nil {
		return
	}
	ctx := m.ctx
	m.timers.Start(geolocateTimer, m.settings.geolocateDelay(), func() {
		pos, err := m.geolocator.Locate(ctx)
		if err != nil {
			m.log.Debug("startup geolocation failed", zap.Error(err))
			return
		}
		m.Do(func(m *Map) {
			if m.state == Ready {
				m.SetMapPosition(pos, true)
			}
		})
	})
}

// Geolocate asks the geolocator for the user's position. On success a
// vetoable geolocated event runs before the position is committed. Failures
// dispatch geolocationFailed and, unless vetoed, alert the user.
func (m *Map) Geolocate(ctx context.Context) (geo.Position, error) {
	if m.geolocator == nil {
		m.Do(func(m *Map) { m.geolocationFailed(ErrGeolocationUnavailable, "Geolocation not available") })
		return geo.Position{}, ErrGeolocationUnavailable
	}

	pos, err := m.geolocator.Locate(ctx)
	if err != nil {
		m.Do(func(m *Map) { m.geolocationFailed(err, err.Error()) })
		return geo.Position{}, err
	}

	m.Do(func(m *Map) {
		if !m.Dispatch(event.Geolocated, &GeolocatedDetail{Detail: m.base(), Position: pos}) {
			return
		}
		m.hasClientAddress = true
		m.SetMapPosition(pos, false)
	})
	return pos, nil
}

func (m *Map) geolocationFailed(err error, message string) {
	m.log.Warn("geolocation failed", zap.Error(err))
	if m.Dispatch(event.GeolocationFailed, &GeolocationFailedDetail{Detail: m.base(), Err: err}) && m.view != nil {
		m.view.Alert(message)
	}
}

// SearchValue returns the current value of the search input.
func (m *Map) SearchValue() string {
	return m.container.SearchInput.AttrOr("value", "")
}

// SetSearchValue mirrors what the user typed into the search input.
func (m *Map) SetSearchValue(v string) {
	m.container.SearchInput.SetAttr("value", v)
}

// SubmitSearch handles a search form submission: the input takes value, a
// vetoable search event is dispatched and, if allowed, DoSearch runs.
func (m *Map) SubmitSearch(ctx context.Context, value string) error {
	allowed := false
	m.Do(func(m *Map) {
		m.SetSearchValue(value)
		allowed = m.Dispatch(event.Search, &SearchDetail{Detail: m.base(), Query: value})
	})
	if !allowed {
		return nil
	}
	return m.DoSearch(ctx)
}

// DoSearch runs the search for the input value. An empty input while
// geolocalized resets the view to the configured zoom and clears the live
// position flag. Otherwise the first result becomes the new position.
func (m *Map) DoSearch(ctx context.Context) error {
	var (
		value string
		reset bool
	)
	m.Do(func(m *Map) {
		value = strings.TrimSpace(m.SearchValue())
		if value == "" && m.geolocalized {
			reset = true
			m.mapProvider.PanTo(m.position, m.settings.Zoom)
			m.geolocalized = false
			m.updateContent(true)
		}
	})
	if reset || value == "" {
		return nil
	}
	if m.searcher == nil {
		return ErrNoSearchProvider
	}

	results, err := search.Dispatch(ctx, m.searcher, value)
	if err != nil {
		m.Do(func(m *Map) {
			m.log.Warn("search failed", zap.String("query", value), zap.Error(err))
			if m.view != nil && !errors.Is(err, context.Canceled) {
				m.view.Alert("Search failed")
			}
		})
		return err
	}
	if len(results) == 0 {
		return nil
	}
	m.Do(func(m *Map) { m.UpdateFromSearch(results[0]) })
	return nil
}

// UpdateFromSearch commits a chosen search result as the new position and
// frames it at the focused area zoom. Vetoed by updatingFromSearch.
func (m *Map) UpdateFromSearch(r search.Result) {
	if !m.Dispatch(event.UpdatingFromSearch, &SearchResultDetail{Detail: m.base(), Result: r}) {
		return
	}
	pos := geo.Position{Latitude: r.Latitude, Longitude: r.Longitude}
	m.position = pos
	m.geolocalized = true
	m.hasClientAddress = true
	m.mapProvider.PanTo(pos, m.settings.focusedAreaZoom())
	m.updateContent(true)
	m.Dispatch(event.UpdatedMapPosition, &MapPositionDetail{Detail: m.base(), Position: pos})
	m.Dispatch(event.UpdatedFromSearch, &SearchResultDetail{Detail: m.base(), Result: r})
}

// AutocompleteResults runs a search for input and returns the suggestions
// of the search provider.
func (m *Map) AutocompleteResults(ctx context.Context, input string) ([]search.AutocompleteResult, error) {
	if m.searcher == nil {
		return []search.AutocompleteResult{}, nil
	}
	if _, err := search.Dispatch(ctx, m.searcher, input); err != nil {
		return nil, err
	}
	return m.searcher.AutocompleteData(), nil
}
