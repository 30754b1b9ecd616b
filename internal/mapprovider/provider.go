// Package mapprovider defines the map surface the locator drives and a remote
// implementation that forwards every call to the browser map kit.
package mapprovider

import (
	"context"
	"errors"

	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/location"
)

var (
	ErrMissingCredentials = errors.New("map provider credentials missing")
	ErrMissingParent      = errors.New("map provider has no parent")
	ErrMissingTarget      = errors.New("map target element id missing")
	ErrNotReady           = errors.New("map did not become ready")
	ErrUnknownKind        = errors.New("unknown map provider")
)

// KeepZoom passed to PanTo leaves the zoom level unchanged.
const KeepZoom = -1

// Marker is the map projection of a location record.
type Marker struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Location  location.Record `json:"location"`
}

// NewMarker projects a record.
func NewMarker(r location.Record) Marker {
	return Marker{Latitude: r.Latitude, Longitude: r.Longitude, Location: r}
}

// Markers projects every record.
func Markers(records []location.Record) []Marker {
	out := make([]Marker, len(records))
	for i, r := range records {
		out[i] = NewMarker(r)
	}
	return out
}

// Icon describes a marker image.
type Icon struct {
	URL     string `json:"url"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	AnchorX int    `json:"anchorX,omitempty"`
	AnchorY int    `json:"anchorY,omitempty"`
}

// IconFunc picks an icon for a record; selected is true for the highlighted
// marker.
type IconFunc func(r location.Record, selected bool) Icon

// StaticIcon returns an IconFunc using the same image for every state.
func StaticIcon(url string) IconFunc {
	return func(location.Record, bool) Icon { return Icon{URL: url} }
}

// Settings configures map initialization.
type Settings struct {
	Center      geo.Position
	Zoom        int
	Icon        IconFunc
	Cluster     map[string]any
	Credentials string
}

// Provider is the capability set the locator relies on. Every method except
// InitializeMap is fire-and-forget.
type Provider interface {
	SetParent(parent event.Dispatcher)
	InitializeMap(ctx context.Context, targetID string, s Settings) error
	AddMapMarkers(markers []Marker)
	AddMarkerClickCallback(fn func(r location.Record))
	FilterMarkers(visible func(m Marker) bool)
	HighlightMapMarker(m Marker)
	UnhighlightMarkers()
	PanTo(pos geo.Position, zoom int)
	SetZoom(zoom int)
	ZoomToContent()
	DisplayMarkerTooltip(m Marker, html string)
	CloseMarkerTooltip()
}
