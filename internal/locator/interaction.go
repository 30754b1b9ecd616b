package locator

import (
	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
)

// onMarkerClick shows the popup for a marker. The record is always looked up
// again so the popup never shows a stale snapshot.
func (m *Map) onMarkerClick(mk mapprovider.Marker) {
	r, ok := m.store.Find(mk.Location.ID)
	if !ok {
		return
	}
	mk.Location = r
	popup := m.popupHTMLFor(r)

	d := &PopupDetail{Detail: m.base(), Marker: mk, Location: r, PopupHTML: popup}
	if !m.Dispatch(event.ShowPopup, d) {
		return
	}

	m.selected = &mk
	m.mapProvider.UnhighlightMarkers()
	m.mapProvider.HighlightMapMarker(mk)

	if m.container.HasList() {
		m.clearListFocus()
		m.listItem(r.ID).AddClass("in-focus")
		m.dirtyList = true
	}

	if m.Dispatch(event.ShowPopupOutsideMap, d) {
		m.popupHTML = d.PopupHTML
		m.container.Popups.SetHtml(d.PopupHTML)
		markActions(m.container.Popups)
		m.dirtyPopups = true
	}
	if m.Dispatch(event.ShowPopupOnMap, d) {
		m.mapProvider.DisplayMarkerTooltip(mk, d.PopupHTML)
	}
}

// MarkerClick handles a click on the marker of id, as reported by the map.
func (m *Map) MarkerClick(id string) bool {
	mk, ok := m.marker(id)
	if !ok {
		return false
	}
	m.onMarkerClick(mk)
	return true
}

// ClosePopups clears the selection, the on-map tooltip, every off-map popup
// container and the list highlight. Safe when nothing is open.
func (m *Map) ClosePopups() {
	m.selected = nil
	m.mapProvider.CloseMarkerTooltip()
	m.mapProvider.UnhighlightMarkers()
	if m.popupHTML != "" || m.container.Popups.Text() != "" {
		m.container.Popups.SetHtml("")
		m.dirtyPopups = true
	}
	m.popupHTML = ""
	m.clearListFocus()
}

// OpenLocation opens the popup of id and focuses the map on it. It reports
// false for unknown ids.
func (m *Map) OpenLocation(id string) bool {
	mk, ok := m.marker(id)
	if !ok {
		return false
	}
	m.onMarkerClick(mk)
	if r, ok := m.store.Find(id); ok {
		m.FocusOnLocation(r)
	}
	return true
}

// FocusOnLocation pans to r at the focused zoom.
func (m *Map) FocusOnLocation(r location.Record) {
	m.mapProvider.PanTo(r.Position(), m.settings.focusedZoom())
}

// SetZoom sets the map zoom.
func (m *Map) SetZoom(zoom int) {
	m.mapProvider.SetZoom(zoom)
}

// ZoomToContent fits the map to the visible markers.
func (m *Map) ZoomToContent() {
	m.mapProvider.ZoomToContent()
}

// ScrollTo scrolls the list item of id into view, or the first item when id
// is empty.
func (m *Map) ScrollTo(id string) {
	if m.view == nil {
		return
	}
	selector := "#" + ListID + " " + ItemSelector
	if id != "" {
		if m.listItem(id).Length() == 0 {
			return
		}
		selector = "#" + ListID + " " + itemSelector(id)
	}
	m.view.ScrollIntoView(selector)
}

// ListClick handles a click inside the list. Clicks outside an item or
// inside a link are ignored. A vetoed listClick leaves everything as is.
func (m *Map) ListClick(t ListTarget) {
	if t.ID == "" || t.InAnchor {
		return
	}
	allowed := true
	if r, ok := m.store.Find(t.ID); ok {
		allowed = m.Dispatch(event.ListClick, &ListInteractionDetail{Detail: m.base(), LocationID: t.ID, Location: r})
		if allowed {
			switch {
			case m.settings.OpenOnListClick:
				m.OpenLocation(r.ID)
			case m.settings.FocusOnClick:
				m.FocusOnLocation(r)
			}
		}
	}
	if allowed && !m.settings.OpenOnListClick {
		m.ClosePopups()
	}
}

const hoverTimer = "hover"

// ListHover starts the delayed focus on a hovered item. Hovering the same
// item again before the delay is a no-op.
func (m *Map) ListHover(t ListTarget) {
	if !m.settings.FocusOnHover || t.ID == "" || t.InAnchor {
		return
	}
	r, ok := m.store.Find(t.ID)
	if !ok || m.hovered == r.ID {
		return
	}
	if !m.Dispatch(event.ListHover, &ListInteractionDetail{Detail: m.base(), LocationID: t.ID, Location: r}) {
		return
	}
	m.hovered = r.ID
	id := r.ID
	m.timers.Start(hoverTimer, m.settings.hoverTimeout(), func() {
		m.Do(func(m *Map) {
			if m.hovered != id {
				return
			}
			if current, ok := m.store.Find(id); ok {
				m.FocusOnLocation(current)
			}
		})
	})
}

// ListHoverOut abandons the pending focus when the pointer leaves the
// hovered item.
func (m *Map) ListHoverOut(t ListTarget) {
	if m.hovered == "" || t.ID == "" || t.InAnchor {
		return
	}
	if t.ID == m.hovered {
		m.hovered = ""
		m.timers.Stop(hoverTimer)
	}
}

// SetPage moves the paginated list to page. It reports false when the
// pagination provider cannot page.
func (m *Map) SetPage(page int) bool {
	p, ok := m.pager.(interface{ SetPage(int) })
	if !ok {
		return false
	}
	p.SetPage(page)
	m.dirtyList = true
	return true
}
