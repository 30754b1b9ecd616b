package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html lang="fr"><body><div class="locations-map-container">
<template class="template-location"><h3>{{ name }}</h3></template>
<template class="template-location" data-location-type="shop"><h3 class="shop">{{name}}</h3></template>
<script type="text/template" class="template-popup-location"><p>{{ name }}</p></script>
</div></body></html>`

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

func TestLibrary_HTMLBySelector(t *testing.T) {
	lib := NewLibrary(mustDoc(t, page).Selection)

	got, ok := lib.HTMLBySelector(`template.template-location[data-location-type="shop"]`)
	require.True(t, ok)
	assert.Equal(t, `<h3 class="shop">{{name}}</h3>`, got)

	got, ok = lib.HTMLBySelector("script.template-popup-location")
	require.True(t, ok)
	assert.Equal(t, "<p>{{ name }}</p>", got)

	_, ok = lib.HTMLBySelector("template.missing")
	assert.False(t, ok)
	assert.Equal(t, 2, lib.Len())
}

func TestLibrary_Resolve_FallsBack(t *testing.T) {
	lib := NewLibrary(mustDoc(t, page).Selection)
	_, sel, ok := lib.Resolve(
		`template.template-location[data-location-type="park"]`,
		`template.template-location:not([data-location-type])`,
	)
	require.True(t, ok)
	assert.Equal(t, `template.template-location:not([data-location-type])`, sel)

	_, _, ok = lib.Resolve("template.none", "")
	assert.False(t, ok)
}

func TestLibrary_ConnectedEntriesNeverExpire(t *testing.T) {
	doc := mustDoc(t, page)
	lib := NewLibrary(doc.Selection)
	now := time.Unix(0, 0)
	lib.SetClock(func() time.Time { return now })

	sel := "template.template-location:not([data-location-type])"
	_, ok := lib.HTMLBySelector(sel)
	require.True(t, ok)

	now = now.Add(time.Hour)
	got, ok := lib.HTMLBySelector(sel)
	require.True(t, ok)
	assert.Equal(t, "<h3>{{ name }}</h3>", got)
}

func TestLibrary_DetachedEntriesExpire(t *testing.T) {
	doc := mustDoc(t, page)
	lib := NewLibrary(doc.Selection)
	now := time.Unix(0, 0)
	lib.SetClock(func() time.Time { return now })

	sel := "template.template-location:not([data-location-type])"
	_, ok := lib.HTMLBySelector(sel)
	require.True(t, ok)

	doc.Find(sel).Remove()

	now = now.Add(30 * time.Second)
	_, ok = lib.HTMLBySelector(sel)
	assert.True(t, ok, "detached entry still served within the TTL")

	now = now.Add(31 * time.Second)
	_, ok = lib.HTMLBySelector(sel)
	assert.False(t, ok)
}

func TestLibrary_Clear(t *testing.T) {
	lib := NewLibrary(mustDoc(t, page).Selection)
	lib.HTMLBySelector("script.template-popup-location")
	lib.Clear()
	assert.Zero(t, lib.Len())
}

func TestSubstitute(t *testing.T) {
	out := Substitute(`{{ name }}|{{name}}|{{ distance_km }}|{{ distance }}|{{ other }}`,
		map[string]string{"name": "Paris", "distance": "3.2", "distance_km": "3.2 km"},
		DefaultDelimiters)
	assert.Equal(t, "Paris|Paris|3.2 km|3.2|{{ other }}", out)
}

func TestSubstitute_CustomDelimiters(t *testing.T) {
	d, err := ParseDelimiters([]string{"[[", "]]"})
	require.NoError(t, err)
	out := Substitute("[[ id ]] [[id]] {{ id }}", map[string]string{"id": "7"}, d)
	assert.Equal(t, "7 7 {{ id }}", out)
}

func TestParseDelimiters(t *testing.T) {
	d, err := ParseDelimiters(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDelimiters, d)

	for _, bad := range [][]string{{}, {"{{"}, {"a", "b", "c"}, {"", "}}"}} {
		_, err := ParseDelimiters(bad)
		assert.ErrorIs(t, err, ErrInvalidDelimiters, "%v", bad)
	}
}

func TestPrune(t *testing.T) {
	cases := map[string]string{
		`<p data-visible-if="">a</p><p>b</p>`:          `<p>b</p>`,
		`<p data-visible-if="0">a</p>`:                  ``,
		`<p data-visible-if="false">a</p>`:              ``,
		`<p data-visible-if="yes">a</p>`:                `<p data-visible-if="yes">a</p>`,
		`<p data-hidden-if="1">a</p><i>b</i>`:           `<i>b</i>`,
		`<p data-hidden-if="">a</p>`:                    `<p data-hidden-if="">a</p>`,
		`<div><span data-hidden-if="x">a</span>b</div>`: `<div>b</div>`,
		`<b>plain {{ x }}</b>`:                          `<b>plain {{ x }}</b>`,
		`<li data-hidden-if="1">a</li><b>{{x}}</b>`:     `<b>{{x}}</b>`,
	}
	for in, want := range cases {
		got, err := Prune(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestRoundDistance(t *testing.T) {
	assert.Equal(t, 21.0, RoundDistance(20.6))
	assert.Equal(t, 3.3, RoundDistance(3.25))
	assert.Equal(t, 20.0, RoundDistance(19.98))
}

func TestFormatter_Distance(t *testing.T) {
	assert.Equal(t, "1,235", NewFormatter("en").Distance(1234.6))
	assert.Equal(t, "3.2", NewFormatter("").Distance(3.24))
	assert.Equal(t, "3,2", NewFormatter("fr").Distance(3.24))
}

func TestRenderer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "locator.html"), []byte(
		`<locations-map-container data-session="{% .Session %}" data-settings='{% json .Settings %}'>`+
			`<template class="template-location"><h3>{{ name }}</h3></template></locations-map-container>`), 0o644))

	r, err := New(dir)
	require.NoError(t, err)
	assert.True(t, r.Has("locator.html"))
	assert.False(t, r.Has("missing.html"))

	out, err := r.Render("locator.html", map[string]any{"Session": "abc", "Settings": map[string]any{"zoom": 9}})
	require.NoError(t, err)

	doc := mustDoc(t, out)
	root := doc.Find("locations-map-container")
	assert.Equal(t, "abc", root.AttrOr("data-session", ""))
	assert.JSONEq(t, `{"zoom": 9}`, root.AttrOr("data-settings", ""))
	markup, ok := NewLibrary(doc.Selection).HTMLBySelector("template.template-location")
	require.True(t, ok)
	assert.Equal(t, "<h3>{{ name }}</h3>", markup)

	_, err = r.Render("missing.html", nil)
	assert.Error(t, err)
	require.NoError(t, r.Reload())
}
