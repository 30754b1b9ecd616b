package mapprovider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/timer"
)

// Kind names a browser map kit.
type Kind string

const (
	Leaflet Kind = "leaflet"
	Google  Kind = "google"
	Mapbox  Kind = "mapbox"
)

// ParseKind validates a provider name; empty means Leaflet.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "":
		return Leaflet, nil
	case Leaflet, Google, Mapbox:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// NeedsCredentials reports whether the kit requires an API key or token.
func (k Kind) NeedsCredentials() bool {
	return k == Google || k == Mapbox
}

// ZoomDelay separates a pan from the zoom that follows it.
const ZoomDelay = 300 * time.Millisecond

// Command is one instruction for the browser map kit.
type Command struct {
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

// Bounds is a south-west / north-east box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Tooltip is the open on-map popup.
type Tooltip struct {
	ID   string
	HTML string
}

// Remote implements Provider by queuing commands for a browser client and
// keeping the resulting map state.
type Remote struct {
	kind   Kind
	log    *zap.Logger
	timers *timer.Set

	mu          sync.Mutex
	parent      event.Dispatcher
	settings    Settings
	markers     []Marker
	visible     map[string]bool
	highlighted string
	tooltip     *Tooltip
	center      geo.Position
	zoom        int
	onClick     func(location.Record)
	queue       []Command
	notify      chan struct{}
	ready       chan struct{}
	readyOnce   sync.Once
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithScheduler sets the scheduler for the delayed zoom.
func WithScheduler(s timer.Scheduler) RemoteOption {
	return func(r *Remote) { r.timers = timer.NewSet(s) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RemoteOption {
	return func(r *Remote) { r.log = l }
}

// Ready marks the map ready from the start, for headless use.
func Ready() RemoteOption {
	return func(r *Remote) { r.MarkReady() }
}

// NewRemote creates a remote adapter for kind.
func NewRemote(kind Kind, opts ...RemoteOption) *Remote {
	r := &Remote{
		kind:    kind,
		log:     zap.NewNop(),
		timers:  timer.NewSet(nil),
		visible: make(map[string]bool),
		zoom:    KeepZoom,
		notify:  make(chan struct{}, 1),
		ready:   make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Kind returns the browser map kit.
func (r *Remote) Kind() Kind { return r.kind }

// SetParent registers the dispatcher receiving closedPopup.
func (r *Remote) SetParent(parent event.Dispatcher) {
	r.mu.Lock()
	r.parent = parent
	r.mu.Unlock()
}

// MarkReady is called once the browser map kit is interactive.
func (r *Remote) MarkReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// InitializeMap queues the init command and blocks until the client reports
// the map ready or ctx ends.
func (r *Remote) InitializeMap(ctx context.Context, targetID string, s Settings) error {
	r.mu.Lock()
	if r.parent == nil {
		r.mu.Unlock()
		return ErrMissingParent
	}
	if targetID == "" {
		r.mu.Unlock()
		return ErrMissingTarget
	}
	if r.kind.NeedsCredentials() && s.Credentials == "" {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMissingCredentials, r.kind)
	}
	r.settings = s
	r.center = s.Center
	r.zoom = s.Zoom
	payload := map[string]any{
		"kind":      r.kind,
		"target":    targetID,
		"latitude":  s.Center.Latitude,
		"longitude": s.Center.Longitude,
		"zoom":      s.Zoom,
	}
	if s.Credentials != "" {
		payload["credentials"] = s.Credentials
	}
	if s.Cluster != nil {
		payload["cluster"] = s.Cluster
	}
	r.push("init", payload)
	r.mu.Unlock()

	select {
	case <-r.ready:
		r.log.Debug("map ready", zap.String("kind", string(r.kind)), zap.String("target", targetID))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotReady, ctx.Err())
	}
}

type markerPayload struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Icon      *Icon   `json:"icon,omitempty"`
}

func (r *Remote) icon(m Marker, selected bool) *Icon {
	if r.settings.Icon == nil {
		return nil
	}
	ic := r.settings.Icon(m.Location, selected)
	if ic.URL == "" {
		return nil
	}
	return &ic
}

// AddMapMarkers replaces every marker; all start visible.
func (r *Remote) AddMapMarkers(markers []Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers = append([]Marker(nil), markers...)
	r.visible = make(map[string]bool, len(markers))
	r.highlighted = ""
	payload := make([]markerPayload, len(markers))
	for i, m := range markers {
		r.visible[m.Location.ID] = true
		payload[i] = markerPayload{ID: m.Location.ID, Latitude: m.Latitude, Longitude: m.Longitude, Icon: r.icon(m, false)}
	}
	r.push("markers", payload)
}

// AddMarkerClickCallback registers the single click callback.
func (r *Remote) AddMarkerClickCallback(fn func(location.Record)) {
	r.mu.Lock()
	r.onClick = fn
	r.mu.Unlock()
}

// Click reports a marker click from the client. Unknown ids are ignored.
func (r *Remote) Click(id string) bool {
	r.mu.Lock()
	fn := r.onClick
	var rec *location.Record
	for _, m := range r.markers {
		if m.Location.ID == id {
			loc := m.Location
			rec = &loc
			break
		}
	}
	r.mu.Unlock()
	if fn == nil || rec == nil {
		return false
	}
	fn(*rec)
	return true
}

// FilterMarkers sets each marker's visibility from the predicate.
func (r *Remote) FilterMarkers(visible func(Marker) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var shown, hidden []string
	for _, m := range r.markers {
		v := visible(m)
		r.visible[m.Location.ID] = v
		if v {
			shown = append(shown, m.Location.ID)
		} else {
			hidden = append(hidden, m.Location.ID)
		}
	}
	r.push("filter", map[string]any{"visible": shown, "hidden": hidden})
}

// HighlightMapMarker switches m to its selected icon. No-op without icons.
func (r *Remote) HighlightMapMarker(m Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ic := r.icon(m, true)
	if ic == nil {
		return
	}
	r.highlighted = m.Location.ID
	r.push("highlight", map[string]any{"id": m.Location.ID, "icon": ic})
}

// UnhighlightMarkers restores default icons. No-op without icons.
func (r *Remote) UnhighlightMarkers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings.Icon == nil {
		return
	}
	r.highlighted = ""
	r.push("unhighlight", nil)
}

// PanTo recenters the map; a zoom other than KeepZoom is applied after
// ZoomDelay.
func (r *Remote) PanTo(pos geo.Position, zoom int) {
	r.mu.Lock()
	r.center = pos
	r.push("panTo", map[string]any{"latitude": pos.Latitude, "longitude": pos.Longitude})
	r.mu.Unlock()

	if zoom == KeepZoom {
		r.timers.Stop("zoom")
		return
	}
	r.timers.Start("zoom", ZoomDelay, func() { r.SetZoom(zoom) })
}

// SetZoom sets the zoom level.
func (r *Remote) SetZoom(zoom int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zoom = zoom
	r.push("setZoom", map[string]any{"zoom": zoom})
}

// ZoomToContent fits the map to the visible markers, padded by half the
// extent on every side.
func (r *Remote) ZoomToContent() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mp orb.MultiPoint
	for _, m := range r.markers {
		if r.visible[m.Location.ID] {
			mp = append(mp, orb.Point{m.Longitude, m.Latitude})
		}
	}
	if len(mp) == 0 {
		return
	}
	b := mp.Bound()
	dx, dy := (b.Max.X()-b.Min.X())*0.5, (b.Max.Y()-b.Min.Y())*0.5
	b = orb.Bound{Min: orb.Point{b.Min.X() - dx, b.Min.Y() - dy}, Max: orb.Point{b.Max.X() + dx, b.Max.Y() + dy}}
	c := b.Center()
	r.center = geo.FromPoint(c)
	r.push("fitBounds", Bounds{South: b.Min.Y(), West: b.Min.X(), North: b.Max.Y(), East: b.Max.X()})
}

// DisplayMarkerTooltip opens the on-map popup at m.
func (r *Remote) DisplayMarkerTooltip(m Marker, html string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tooltip = &Tooltip{ID: m.Location.ID, HTML: html}
	r.push("tooltip", map[string]any{
		"id":        m.Location.ID,
		"latitude":  m.Latitude,
		"longitude": m.Longitude,
		"html":      html,
	})
}

// CloseMarkerTooltip closes the on-map popup if open.
func (r *Remote) CloseMarkerTooltip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tooltip == nil {
		return
	}
	r.tooltip = nil
	r.push("closeTooltip", nil)
}

// TooltipClosed reports that the user dismissed the popup on the map.
func (r *Remote) TooltipClosed() {
	r.mu.Lock()
	r.tooltip = nil
	parent := r.parent
	r.mu.Unlock()
	if parent != nil {
		parent.Dispatch(event.ClosedPopup, nil)
	}
}

func (r *Remote) push(name string, payload any) {
	r.queue = append(r.queue, Command{Name: name, Payload: payload})
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Notify signals that commands are waiting.
func (r *Remote) Notify() <-chan struct{} { return r.notify }

// Drain returns and clears the queued commands.
func (r *Remote) Drain() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.queue
	r.queue = nil
	return out
}

// Visible reports whether the marker for id is shown.
func (r *Remote) Visible(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible[id]
}

// Highlighted returns the highlighted marker id, or "".
func (r *Remote) Highlighted() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highlighted
}

// OpenTooltip returns the open on-map popup, if any.
func (r *Remote) OpenTooltip() (Tooltip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tooltip == nil {
		return Tooltip{}, false
	}
	return *r.tooltip, true
}

// Center returns the last requested center.
func (r *Remote) Center() geo.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.center
}

// Zoom returns the last applied zoom.
func (r *Remote) Zoom() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zoom
}

// Close stops pending delayed zooms.
func (r *Remote) Close() {
	r.timers.StopAll()
}
