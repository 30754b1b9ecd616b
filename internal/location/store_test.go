package location

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeblew999/plat-locator/internal/geo"
)

func sample() []Record {
	return []Record{
		{ID: "1", Latitude: 48.8566, Longitude: 2.3522, Type: "shop"},
		{ID: "2", Latitude: 45.7640, Longitude: 4.8357, FilterTypes: []string{"location", "forest"}},
		{ID: "3", Latitude: 43.2965, Longitude: 5.3698, FilterTypes: []string{"location"}},
		{ID: "4", Latitude: 50.6292, Longitude: 3.0573, Type: "shop"},
	}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestStore_EmptyFiltersPassAll(t *testing.T) {
	s := NewStore(nil, nil)
	s.Replace(sample())
	s.SetFilters([]string{})
	assert.Len(t, s.ApplyFilters(), len(s.Locations()))
}

func TestStore_UnknownFilterYieldsNothing(t *testing.T) {
	s := NewStore(nil, nil)
	s.Replace(sample())
	s.SetFilters([]string{"a"})
	assert.Empty(t, s.ApplyFilters())
}

func TestStore_FilterTypesIntersection(t *testing.T) {
	s := NewStore(nil, nil)
	s.Replace(sample())
	s.SetFilters([]string{"forest"})
	assert.Equal(t, []string{"2"}, ids(s.ApplyFilters()))

	s.SetFilters([]string{"shop", "forest"})
	assert.Equal(t, []string{"1", "2", "4"}, ids(s.ApplyFilters()))
}

func TestStore_SortsByDistance(t *testing.T) {
	s := NewStore(nil, nil)
	s.Replace(sample())
	// Marseille
	sorted := s.UpdateDistances(geo.Position{Latitude: 43.2965, Longitude: 5.3698})

	assert.Equal(t, []string{"3", "2", "1", "4"}, ids(sorted))
	assert.Equal(t, 0.0, sorted[0].Distance)
	for i := 1; i < len(sorted); i++ {
		assert.LessOrEqual(t, sorted[i-1].Distance, sorted[i].Distance)
	}
}

func TestStore_StableForEqualDistances(t *testing.T) {
	s := NewStore(nil, nil)
	s.Replace([]Record{
		{ID: "b", Latitude: 1, Longitude: 1},
		{ID: "a", Latitude: 1, Longitude: 1},
		{ID: "c", Latitude: 0, Longitude: 0},
	})
	assert.Equal(t, []string{"c", "b", "a"}, ids(s.UpdateDistances(geo.Position{})))
}

func TestStore_CustomSorterWins(t *testing.T) {
	byID := func(a, b Record) int { return strings.Compare(b.ID, a.ID) }
	s := NewStore(byID, nil)
	s.Replace(sample())
	s.UpdateDistances(geo.Position{Latitude: 43.2965, Longitude: 5.3698})

	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(s.Locations()))
	assert.Equal(t, []string{"4", "3", "2", "1"}, ids(s.ApplyFilters()))
}

func TestStore_CustomFiltererIsAnded(t *testing.T) {
	north := func(r Record, _ []string) bool { return r.Latitude > 48 }
	s := NewStore(nil, north)
	s.Replace(sample())
	s.SetFilters([]string{"shop"})
	assert.Equal(t, []string{"1", "4"}, ids(s.ApplyFilters()))

	s.SetFilters(nil)
	assert.Equal(t, []string{"1", "4"}, ids(s.ApplyFilters()))
}

func TestStore_FindAndVisible(t *testing.T) {
	s := NewStore(nil, nil)
	s.Replace(sample())
	s.SetFilters([]string{"forest"})
	s.ApplyFilters()

	r, ok := s.Find("3")
	assert.True(t, ok)
	assert.Equal(t, 43.2965, r.Latitude)
	_, ok = s.Find("nope")
	assert.False(t, ok)

	assert.True(t, s.Visible("2"))
	assert.False(t, s.Visible("3"))
}
