package locator

import (
	"html"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/templates"
)

func (m *Map) parseLocations(records []location.Record) []location.Record {
	parsed := location.Parse(records)
	m.Dispatch(event.ParseLocations, &LocationsDetail{Detail: m.base(), Locations: parsed})
	return parsed
}

// SetFilters replaces the filter set, re-renders the list and closes popups.
// A nil set keeps the current filters.
func (m *Map) SetFilters(filters []string) {
	m.applyFilters(filters, filters != nil)
	m.renderList()
	m.ClosePopups()
}

// SetLocations replaces every location, recreates the markers and refreshes
// the content keeping an open popup open.
func (m *Map) SetLocations(records []location.Record) {
	m.store.Replace(m.parseLocations(records))
	if m.state == Ready {
		m.createMarkers()
	}
	m.updateContent(true)
}

// UpdateLocations replaces the locations with fn applied to the current list.
func (m *Map) UpdateLocations(fn func(current []location.Record) []location.Record) {
	current := append([]location.Record(nil), m.store.Locations()...)
	m.SetLocations(fn(current))
}

// UpdateContent recomputes distances and filters, re-renders the list and
// either regenerates the open popup or closes every popup.
func (m *Map) UpdateContent(keepPopupsOpen bool) {
	m.updateContent(keepPopupsOpen)
}

func (m *Map) updateContent(keepPopupsOpen bool) {
	m.Dispatch(event.UpdatingContent, &ContentDetail{Detail: m.base(), KeepPopupsOpen: keepPopupsOpen})

	m.updateDistances()
	m.applyFilters(nil, false)
	m.renderList()

	if keepPopupsOpen {
		if m.selected != nil {
			if _, ok := m.store.Find(m.selected.Location.ID); ok {
				m.onMarkerClick(*m.selected)
			} else {
				m.ClosePopups()
			}
		}
	} else {
		m.ClosePopups()
	}

	m.Dispatch(event.UpdatedContent, &ContentDetail{Detail: m.base(), KeepPopupsOpen: keepPopupsOpen})
}

func (m *Map) updateDistances() {
	updated := m.store.UpdateDistances(m.position)
	m.Dispatch(event.UpdatedLocations, &LocationsDetail{Detail: m.base(), Locations: updated})
}

func (m *Map) applyFilters(filters []string, replace bool) {
	if replace {
		m.store.SetFilters(filters)
	}
	m.store.ApplyFilters()
	if m.state == Ready {
		m.mapProvider.FilterMarkers(func(mk mapprovider.Marker) bool {
			return m.store.Visible(mk.Location.ID)
		})
	}
	var applied []string
	if replace {
		applied = m.store.Filters()
	}
	m.Dispatch(event.AppliedFilters, &FiltersDetail{Detail: m.base(), Filters: applied})
}

func (m *Map) renderList() {
	if !m.container.HasList() {
		return
	}
	filtered := m.store.Filtered()

	var b strings.Builder
	b.WriteString(m.resultsCount(len(filtered)))
	b.WriteString(`<ul class="list locations-list-inner">`)
	for _, r := range filtered {
		b.WriteString("<li>")
		b.WriteString(m.locationHTML(r))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")

	m.container.List.SetHtml(b.String())
	m.container.List.SetAttr("id", ListID)
	if m.pager != nil {
		m.pager.Paginate()
	}
	m.dirtyList = true

	markup, _ := m.container.List.Html()
	m.Dispatch(event.UpdatedLocationListContent, &ListContentDetail{Detail: m.base(), HTML: markup})
}

func (m *Map) resultsCount(count int) string {
	candidates := []string{"template.template-results-single"}
	if count > 1 {
		candidates = []string{"template.template-results-multiple"}
	} else if count == 0 {
		candidates = []string{"template.template-results-none", "template.template-results-single"}
	}
	markup, selector, ok := m.library.Resolve(candidates...)
	if ok {
		markup = templates.Substitute(markup, map[string]string{"results": strconv.Itoa(count)}, m.delims)
	}
	if m.settings.PreventDispatchingHTMLEvents {
		return markup
	}
	d := &CountDetail{Detail: m.base(), HTML: markup, Count: count, Template: selector}
	m.Dispatch(event.UpdatedLocationsCount, d)
	return d.HTML
}

func typedSelectors(class, typ string) []string {
	generic := class + ":not([data-location-type])"
	if typ == "" {
		return []string{generic}
	}
	quoted := strings.ReplaceAll(typ, `"`, `\"`)
	return []string{class + `[data-location-type="` + quoted + `"]`, generic}
}

func (m *Map) template(class string, r location.Record) (string, bool) {
	selectors := typedSelectors(class, r.Type)
	markup, _, ok := m.library.Resolve(selectors...)
	if !ok {
		m.log.Warn("template not found",
			zap.String("selector", selectors[0]),
			zap.String("location", r.ID))
	}
	return markup, ok
}

func (m *Map) locationHTML(r location.Record) string {
	tmpl, ok := m.template(".template-location", r)
	if !ok {
		return ""
	}
	inner := m.replacePlaceholders(tmpl, r)
	selected := m.selected != nil && m.selected.Location.ID == r.ID
	class := "location-wrapper location-item-wrapper"
	if selected {
		class += " in-focus"
	}
	out := `<div class="` + class + `" data-property="` + html.EscapeString(r.ID) +
		`" data-type="` + html.EscapeString(r.Type) + `">` + inner + `</div>`
	if m.settings.PreventDispatchingHTMLEvents {
		return out
	}
	d := &LocationHTMLDetail{Detail: m.base(), HTML: out, InnerHTML: inner, IsSelected: selected, Location: r}
	m.Dispatch(event.GenerateLocationHTML, d)
	return d.HTML
}

func (m *Map) popupHTMLFor(r location.Record) string {
	tmpl, ok := m.template(".template-popup-location", r)
	if !ok {
		return ""
	}
	inner := m.replacePlaceholders(tmpl, r)
	out := `<div class="location-wrapper location-popup-wrapper" data-property="` + html.EscapeString(r.ID) +
		`" data-type="` + html.EscapeString(r.Type) + `">` + inner + `</div>`
	if m.settings.PreventDispatchingHTMLEvents {
		return out
	}
	d := &PopupHTMLDetail{Detail: m.base(), HTML: out, InnerHTML: inner, Location: r}
	m.Dispatch(event.GenerateLocationPopupHTML, d)
	return d.HTML
}

// showDistance is the single gate for distance display: the position must
// come from the user (geolocation or search) unless always-display is set.
func (m *Map) showDistance() bool {
	return m.hasClientAddress || m.geolocalized || m.settings.AlwaysDisplayDistance
}

func (m *Map) placeholderValues(r location.Record) map[string]string {
	raw := r.Values()
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[k] = location.Stringify(v)
	}
	values["distance"], values["distance_km"] = "", ""
	if m.showDistance() {
		d := m.formatter.Distance(r.Distance)
		values["distance"] = d
		values["distance_km"] = d + " km"
	}
	return values
}

func (m *Map) replacePlaceholders(markup string, r location.Record) string {
	out, err := templates.Prune(templates.Substitute(markup, m.placeholderValues(r), m.delims))
	if err != nil {
		m.log.Warn("conditional visibility skipped", zap.String("location", r.ID), zap.Error(err))
	}
	if m.settings.PreventDispatchingHTMLEvents {
		return out
	}
	d := &PlaceholdersDetail{Detail: m.base(), HTML: out, Location: r}
	m.Dispatch(event.ReplaceHTMLPlaceholders, d)
	return d.HTML
}

var selectorQuote = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// itemSelector matches the list item of id.
func itemSelector(id string) string {
	return ItemSelector + `[data-property="` + selectorQuote.Replace(id) + `"]`
}

func (m *Map) listItem(id string) *goquery.Selection {
	return m.container.List.Find(itemSelector(id))
}

func (m *Map) clearListFocus() {
	if !m.container.HasList() {
		return
	}
	focused := m.container.List.Find(ItemSelector + ".in-focus")
	if focused.Length() > 0 {
		focused.RemoveClass("in-focus")
		m.dirtyList = true
	}
}
