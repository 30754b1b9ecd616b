package locator

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/search"
	"github.com/joeblew999/plat-locator/internal/timer"
)

const testLocations = `[
  {"id": 1, "latitude": 48.8606, "longitude": 2.3376, "type": "museum", "name": "Louvre"},
  {"id": 2, "latitude": "45.764", "longitude": "4.8357", "type": "shop", "name": "Lyon shop"},
  {"id": 3, "latitude": 43.2965, "longitude": 5.3698, "type": "park", "filterTypes": ["park", "outdoor"], "name": "Vieux Port"}
]`

const testTemplates = `
<template class="template-location"><h3>{{ name }}</h3><span class="distance" data-visible-if="{{ distance }}">{{ distance_km }}</span></template>
<template class="template-location" data-location-type="shop"><h3 class="shop">{{name}}</h3></template>
<template class="template-popup-location"><p class="popup">{{ name }}</p><button data-close-popup>x</button></template>
<template class="template-results-single">{{ results }} result</template>
<template class="template-results-multiple">{{ results }} results</template>
<template class="template-results-none">No results</template>`

func testPage(settings, templates string) string {
	return `<html lang="en"><body>
<locations-map-container data-settings='` + settings + `'>
  <form data-location-search><input type="search" name="q"/><button type="button" data-geolocate-trigger>Near me</button></form>
  <locations-map-target></locations-map-target>
  <locations-map-list></locations-map-list>
  <locations-map-popup class="side"></locations-map-popup>
  <locations-map-popup class="bottom"></locations-map-popup>
</locations-map-container>` + templates + `</body></html>`
}

func defaultPage() string {
	return testPage(`{"latitude": 48.8566, "longitude": 2.3522, "locations": `+testLocations+`}`, testTemplates)
}

type recordingView struct {
	patches map[string]string
	alerts  []string
	scrolls []string
}

func newRecordingView() *recordingView {
	return &recordingView{patches: map[string]string{}}
}

func (v *recordingView) Patch(selector, html string) { v.patches[selector] = html }
func (v *recordingView) Alert(msg string)            { v.alerts = append(v.alerts, msg) }
func (v *recordingView) ScrollIntoView(sel string)   { v.scrolls = append(v.scrolls, sel) }

type fakeGeolocator struct {
	pos   geo.Position
	err   error
	calls int
}

func (g *fakeGeolocator) Locate(context.Context) (geo.Position, error) {
	g.calls++
	return g.pos, g.err
}

type fakeSearch struct {
	searched, zipped []string
	results          []search.Result
	err              error
}

func (f *fakeSearch) Search(_ context.Context, text string) ([]search.Result, error) {
	f.searched = append(f.searched, text)
	return f.results, f.err
}

func (f *fakeSearch) SearchZip(_ context.Context, zip string) ([]search.Result, error) {
	f.zipped = append(f.zipped, zip)
	return f.results, f.err
}

func (f *fakeSearch) AutocompleteData() []search.AutocompleteResult {
	out := make([]search.AutocompleteResult, len(f.results))
	for i, r := range f.results {
		out[i] = search.AutocompleteResult{Title: r.Name, Result: r}
	}
	return out
}

type fixture struct {
	m      *Map
	remote *mapprovider.Remote
	clock  *timer.Manual
	view   *recordingView
}

func newFixture(t *testing.T, page string, opts ...Option) *fixture {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	clock := timer.NewManual()
	remote := mapprovider.NewRemote(mapprovider.Leaflet, mapprovider.Ready(), mapprovider.WithScheduler(clock))
	view := newRecordingView()
	base := []Option{WithMapProvider(remote), WithScheduler(clock), WithView(view)}

	m, err := New(doc, "", append(base, opts...)...)
	require.NoError(t, err)
	return &fixture{m: m, remote: remote, clock: clock, view: view}
}

func newReadyFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := newFixture(t, defaultPage(), opts...)
	require.NoError(t, f.m.Init(context.Background()))
	return f
}

func (f *fixture) listHTML(t *testing.T) string {
	t.Helper()
	var html string
	f.m.Do(func(m *Map) {
		var err error
		html, err = m.Container().List.Html()
		require.NoError(t, err)
	})
	return html
}

func (f *fixture) list() *goquery.Selection {
	return f.m.Container().List
}

