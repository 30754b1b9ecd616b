package locator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joeblew999/plat-locator/internal/location"
)

// Settings is the merged widget configuration. JSON names match the
// data-settings attribute of the container.
type Settings struct {
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Zoom      int               `json:"zoom"`
	Locations []location.Record `json:"locations"`
	Filters   []string          `json:"filters"`

	DisplaySearch        bool   `json:"displaySearch"`
	MapProvider          string `json:"mapProvider"`
	SearchProvider       string `json:"searchProvider"`
	PaginationProvider   string `json:"paginationProvider"`
	AutocompleteProvider string `json:"autocompleteProvider"`
	// Credentials is the API key or access token of the map kit.
	Credentials     string         `json:"credentials,omitempty"`
	Icon            string         `json:"icon,omitempty"`
	ClusterSettings map[string]any `json:"clusterSettings,omitempty"`

	GeolocateOnStart    bool `json:"geolocateOnStart"`
	GeolocateDelay      int  `json:"geolocateDelay"`
	ScrollToGeolocation bool `json:"scrollToGeolocation"`
	FocusOnClick        bool `json:"focusOnClick"`
	OpenOnListClick     bool `json:"openOnListClick"`
	FocusOnHover        bool `json:"focusOnHover"`
	FocusOnHoverTimeout int  `json:"focusOnHoverTimeout"`
	FocusedZoom         int  `json:"focusedZoom"`
	FocusedAreaZoom     int  `json:"focusedAreaZoom"`

	TemplateDelimiters           []string `json:"templateDelimiters,omitempty"`
	AlwaysDisplayDistance        bool     `json:"alwaysDisplayDistance"`
	PreventDispatchingHTMLEvents bool     `json:"preventDispatchingHtmlEvents"`
	PageSize                     int      `json:"pageSize,omitempty"`
}

// Built-in values used when nothing else is configured.
const (
	DefaultZoom            = 6
	DefaultFocusedZoom     = 17
	DefaultFocusedAreaZoom = 10
	DefaultHoverTimeout    = 1000
	DefaultGeolocateDelay  = 2500
)

// DefaultSettings returns the built-in configuration.
func DefaultSettings() Settings {
	return Settings{
		Zoom:                DefaultZoom,
		Locations:           []location.Record{},
		Filters:             []string{},
		GeolocateOnStart:    true,
		GeolocateDelay:      DefaultGeolocateDelay,
		FocusOnClick:        true,
		FocusOnHoverTimeout: DefaultHoverTimeout,
		FocusedZoom:         DefaultFocusedZoom,
		FocusedAreaZoom:     DefaultFocusedAreaZoom,
	}
}

// Merge overlays a JSON object on s. Only keys present in raw change s.
func (s *Settings) Merge(raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}
	return nil
}

// MergeMap overlays a decoded settings map, e.g. one loaded from a file.
func (s *Settings) MergeMap(m map[string]any) error {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.Merge(raw)
}

func (s Settings) hoverTimeout() time.Duration {
	return time.Duration(s.FocusOnHoverTimeout) * time.Millisecond
}

func (s Settings) geolocateDelay() time.Duration {
	if s.GeolocateDelay <= 0 {
		return DefaultGeolocateDelay * time.Millisecond
	}
	return time.Duration(s.GeolocateDelay) * time.Millisecond
}

func (s Settings) focusedZoom() int {
	if s.FocusedZoom == 0 {
		return DefaultFocusedZoom
	}
	return s.FocusedZoom
}

func (s Settings) focusedAreaZoom() int {
	if s.FocusedAreaZoom == 0 {
		return DefaultFocusedAreaZoom
	}
	return s.FocusedAreaZoom
}
