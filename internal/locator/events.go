package locator

import (
	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/search"
)

// Detail is embedded in every event payload.
type Detail struct {
	Map *Map
}

type (
	// SettingsDetail: initializing, initialized.
	SettingsDetail struct {
		Detail
		Settings Settings
	}
	// LocationsDetail: parseLocations, updatedLocations.
	LocationsDetail struct {
		Detail
		Locations []location.Record
	}
	// FiltersDetail: appliedFilters. Filters is nil when the set was kept.
	FiltersDetail struct {
		Detail
		Filters []string
	}
	// ListContentDetail: updatedLocationListContent.
	ListContentDetail struct {
		Detail
		HTML string
	}
	// CountDetail: updatedLocationsCount.
	CountDetail struct {
		Detail
		HTML     string
		Count    int
		Template string
	}
	// SearchDetail: search.
	SearchDetail struct {
		Detail
		Query string
	}
	// SearchResultDetail: updatingFromSearch, updatedFromSearch.
	SearchResultDetail struct {
		Detail
		Result search.Result
	}
	// GeolocatedDetail: geolocated.
	GeolocatedDetail struct {
		Detail
		Position geo.Position
	}
	// GeolocationFailedDetail: geolocationFailed.
	GeolocationFailedDetail struct {
		Detail
		Err error
	}
	// PopupDetail: showPopup, showPopupOutsideMap, showPopupOnMap.
	PopupDetail struct {
		Detail
		Marker    mapprovider.Marker
		Location  location.Record
		PopupHTML string
	}
	// ListInteractionDetail: listClick, listHover.
	ListInteractionDetail struct {
		Detail
		LocationID string
		Location   location.Record
	}
	// MapPositionDetail: updatedMapPosition.
	MapPositionDetail struct {
		Detail
		Position  geo.Position
		FirstTime bool
	}
	// PlaceholdersDetail: replaceHTMLPlaceholders.
	PlaceholdersDetail struct {
		Detail
		HTML     string
		Location location.Record
	}
	// LocationHTMLDetail: generateLocationHTML.
	LocationHTMLDetail struct {
		Detail
		HTML       string
		InnerHTML  string
		IsSelected bool
		Location   location.Record
	}
	// PopupHTMLDetail: generateLocationPopupHTML.
	PopupHTMLDetail struct {
		Detail
		HTML      string
		InnerHTML string
		Location  location.Record
	}
	// ContentDetail: updatingContent, updatedContent.
	ContentDetail struct {
		Detail
		KeepPopupsOpen bool
	}
)

// On registers a listener on the map's event bus. Listeners run inside the
// map's critical section and must not call Do.
func (m *Map) On(name event.Name, fn event.Listener) func() {
	return m.bus.On(name, fn)
}

// Events returns the bus for typed handlers and remote subscribers.
func (m *Map) Events() *event.Bus {
	return m.bus
}

// Dispatch sends an event. A nil detail becomes a bare Detail so every
// payload carries the map back-reference.
func (m *Map) Dispatch(name event.Name, detail any) bool {
	if detail == nil {
		detail = &Detail{Map: m}
	}
	return m.bus.Dispatch(name, detail)
}

func (m *Map) base() Detail { return Detail{Map: m} }
