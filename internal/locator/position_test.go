package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-locator/internal/autocomplete"
	"github.com/joeblew999/plat-locator/internal/event"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/search"
)

var lyon = geo.Position{Latitude: 45.764, Longitude: 4.8357}

func TestGeolocate_Unavailable(t *testing.T) {
	f := newReadyFixture(t)
	failed := 0
	f.m.On(event.GeolocationFailed, func(*event.Event) { failed++ })

	_, err := f.m.Geolocate(context.Background())
	assert.ErrorIs(t, err, ErrGeolocationUnavailable)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"Geolocation not available"}, f.view.alerts)
}

func TestGeolocate_Failure(t *testing.T) {
	denied := errors.New("user denied geolocation")
	f := newReadyFixture(t, WithGeolocator(&fakeGeolocator{err: denied}))

	_, err := f.m.Geolocate(context.Background())
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, []string{"user denied geolocation"}, f.view.alerts)
	assert.False(t, f.m.Geolocalized())

	f.m.On(event.GeolocationFailed, func(e *event.Event) { e.PreventDefault() })
	_, _ = f.m.Geolocate(context.Background())
	assert.Len(t, f.view.alerts, 1, "a vetoed failure is not alerted")
}

func TestGeolocate_Success(t *testing.T) {
	f := newReadyFixture(t, WithGeolocator(&fakeGeolocator{pos: lyon}))
	var moved []MapPositionDetail
	event.Handle(f.m.Events(), event.UpdatedMapPosition, func(_ *event.Event, d *MapPositionDetail) {
		moved = append(moved, *d)
	})

	pos, err := f.m.Geolocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lyon, pos)
	assert.Equal(t, lyon, f.m.Position())
	assert.Equal(t, lyon, f.remote.Center())
	assert.True(t, f.m.Geolocalized())
	assert.True(t, f.m.HasClientAddress())
	assert.Equal(t, []string{"2", "3", "1"}, recordIDs(f.m.FilteredLocations()), "sorted by distance from the fix")
	require.Len(t, moved, 1)
	assert.False(t, moved[0].FirstTime)
}

func TestGeolocate_Vetoed(t *testing.T) {
	f := newReadyFixture(t, WithGeolocator(&fakeGeolocator{pos: lyon}))
	f.m.On(event.Geolocated, func(e *event.Event) { e.PreventDefault() })

	_, err := f.m.Geolocate(context.Background())
	require.NoError(t, err)
	assert.False(t, f.m.Geolocalized())
	assert.NotEqual(t, lyon, f.m.Position())
}

func TestStartupGeolocation(t *testing.T) {
	gl := &fakeGeolocator{pos: lyon}
	f := newReadyFixture(t, WithGeolocator(gl))
	center := f.remote.Center()

	f.clock.Advance(2 * time.Second)
	assert.Zero(t, gl.calls)

	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, gl.calls)
	assert.Equal(t, lyon, f.m.Position())
	assert.True(t, f.m.Geolocalized())
	assert.False(t, f.m.HasClientAddress())
	assert.Equal(t, center, f.remote.Center(), "first fix does not pan by default")
	assert.Equal(t, 2, f.list().Find("span.distance").Length())
}

func TestStartupGeolocation_Scrolls(t *testing.T) {
	gl := &fakeGeolocator{pos: lyon}
	f := newReadyFixture(t, WithGeolocator(gl), WithSettings(func(s *Settings) {
		s.ScrollToGeolocation = true
		s.GeolocateDelay = 100
	}))
	f.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, lyon, f.remote.Center())
}

func TestStartupGeolocation_Disabled(t *testing.T) {
	gl := &fakeGeolocator{pos: lyon}
	f := newReadyFixture(t, WithGeolocator(gl), WithSettings(func(s *Settings) { s.GeolocateOnStart = false }))
	f.clock.Advance(time.Minute)
	assert.Zero(t, gl.calls)
}

func TestSubmitSearch_Postcode(t *testing.T) {
	fs := &fakeSearch{results: []search.Result{{Latitude: 48.8625, Longitude: 2.3364, Name: "Paris 1er"}}}
	f := newReadyFixture(t, WithSearchProvider(fs))

	require.NoError(t, f.m.SubmitSearch(context.Background(), "75001"))
	assert.Equal(t, []string{"75001"}, fs.zipped)
	assert.Empty(t, fs.searched)

	want := geo.Position{Latitude: 48.8625, Longitude: 2.3364}
	assert.Equal(t, want, f.m.Position())
	assert.Equal(t, want, f.remote.Center())
	assert.True(t, f.m.HasClientAddress())
	assert.True(t, f.m.Geolocalized())

	f.clock.Advance(time.Second)
	assert.Equal(t, DefaultFocusedAreaZoom, f.remote.Zoom())
	assert.Equal(t, "75001", f.m.SearchValue())
}

func TestSubmitSearch_Text(t *testing.T) {
	fs := &fakeSearch{results: []search.Result{{Latitude: lyon.Latitude, Longitude: lyon.Longitude, Name: "Lyon"}}}
	f := newReadyFixture(t, WithSearchProvider(fs))

	var got []search.Result
	event.Handle(f.m.Events(), event.UpdatedFromSearch, func(_ *event.Event, d *SearchResultDetail) {
		got = append(got, d.Result)
	})
	require.NoError(t, f.m.SubmitSearch(context.Background(), "  Lyon "))
	assert.Equal(t, []string{"Lyon"}, fs.searched)
	require.Len(t, got, 1)
	assert.Equal(t, "Lyon", got[0].Name)
	assert.Equal(t, "2", f.m.FilteredLocations()[0].ID)
}

func TestSubmitSearch_Vetoed(t *testing.T) {
	fs := &fakeSearch{results: []search.Result{{Latitude: 1, Longitude: 1}}}
	f := newReadyFixture(t, WithSearchProvider(fs))
	f.m.On(event.Search, func(e *event.Event) { e.PreventDefault() })

	require.NoError(t, f.m.SubmitSearch(context.Background(), "Lyon"))
	assert.Empty(t, fs.searched)
	assert.False(t, f.m.HasClientAddress())
}

func TestSubmitSearch_UpdatingFromSearchVetoed(t *testing.T) {
	fs := &fakeSearch{results: []search.Result{{Latitude: 1, Longitude: 1}}}
	f := newReadyFixture(t, WithSearchProvider(fs))
	f.m.On(event.UpdatingFromSearch, func(e *event.Event) { e.PreventDefault() })

	require.NoError(t, f.m.SubmitSearch(context.Background(), "Lyon"))
	assert.Equal(t, []string{"Lyon"}, fs.searched)
	assert.False(t, f.m.HasClientAddress())
}

func TestSubmitSearch_Failure(t *testing.T) {
	fs := &fakeSearch{err: search.ErrTransport}
	f := newReadyFixture(t, WithSearchProvider(fs))

	err := f.m.SubmitSearch(context.Background(), "Lyon")
	assert.ErrorIs(t, err, search.ErrTransport)
	assert.Equal(t, []string{"Search failed"}, f.view.alerts)
}

func TestSubmitSearch_NoResults(t *testing.T) {
	f := newReadyFixture(t, WithSearchProvider(&fakeSearch{}))
	before := f.m.Position()
	require.NoError(t, f.m.SubmitSearch(context.Background(), "nowhere"))
	assert.Equal(t, before, f.m.Position())
}

func TestSubmitSearch_NoProvider(t *testing.T) {
	f := newReadyFixture(t)
	assert.ErrorIs(t, f.m.SubmitSearch(context.Background(), "Lyon"), ErrNoSearchProvider)
}

func TestDoSearch_EmptyInputResets(t *testing.T) {
	gl := &fakeGeolocator{pos: lyon}
	fs := &fakeSearch{}
	f := newReadyFixture(t, WithGeolocator(gl), WithSearchProvider(fs))
	f.remote.Drain()

	require.NoError(t, f.m.SubmitSearch(context.Background(), ""))
	assert.Empty(t, f.remote.Drain(), "nothing happens without a live position")

	_, err := f.m.Geolocate(context.Background())
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	require.NoError(t, f.m.SubmitSearch(context.Background(), "   "))
	assert.False(t, f.m.Geolocalized())
	assert.Empty(t, fs.searched)
	f.clock.Advance(time.Second)
	assert.Equal(t, DefaultZoom, f.remote.Zoom())
}

func TestAutocomplete(t *testing.T) {
	fs := &fakeSearch{results: []search.Result{
		{Latitude: lyon.Latitude, Longitude: lyon.Longitude, Name: "Lyon"},
		{Latitude: 45.75, Longitude: 4.85, Name: "Lyon 3e"},
	}}
	ac := autocomplete.NewDebounced(autocomplete.WithWait(func(context.Context, time.Duration) error { return nil }))
	f := newReadyFixture(t, WithSearchProvider(fs), WithAutocompleteProvider(ac))
	assert.Equal(t, `[data-location-search] input[type="search"]`, ac.Input())

	results, err := ac.Query(context.Background(), "Ly")
	require.NoError(t, err)
	assert.Empty(t, results, "under the threshold")

	results, err = ac.Query(context.Background(), "Lyon")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Lyon 3e", results[1].Title)

	require.True(t, ac.Select(0))
	assert.Equal(t, lyon, f.m.Position())
	assert.True(t, f.m.HasClientAddress())
}

func TestAutocompleteResults_NoProvider(t *testing.T) {
	f := newReadyFixture(t)
	results, err := f.m.AutocompleteResults(context.Background(), "Lyon")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	built := 0
	build := func() (*Map, error) {
		built++
		return newFixture(t, defaultPage()).m, nil
	}

	a, err := r.Make("page-1", build)
	require.NoError(t, err)
	b, err := r.Make("page-1", build)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, built)

	_, err = r.Make("broken", func() (*Map, error) { return nil, ErrMissingContainer })
	assert.ErrorIs(t, err, ErrMissingContainer)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Dispose("page-1"))
	assert.Equal(t, Disposed, a.State())
	assert.False(t, r.Dispose("page-1"))
	_, ok := r.Get("page-1")
	assert.False(t, ok)
}

func TestUpdateFromSearch(t *testing.T) {
	f := newReadyFixture(t)
	var updated int
	f.m.On(event.UpdatedMapPosition, func(*event.Event) { updated++ })

	f.m.Do(func(m *Map) { m.UpdateFromSearch(search.Result{Latitude: lyon.Latitude, Longitude: lyon.Longitude, Name: "Lyon"}) })
	assert.Equal(t, lyon, f.m.Position())
	assert.True(t, f.m.Geolocalized())
	assert.True(t, f.m.HasClientAddress())
	assert.Equal(t, lyon, f.remote.Center())
	assert.Equal(t, 1, updated)

	f.clock.Advance(time.Second)
	assert.Equal(t, DefaultFocusedAreaZoom, f.remote.Zoom())
	assert.Equal(t, "2", f.m.Locations()[0].ID, "Lyon shop is now nearest")
}
