package location

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_IdenticalCoordinates(t *testing.T) {
	in := []Record{
		{ID: "1", Latitude: 40.2, Longitude: 44.2},
		{ID: "2", Latitude: 40.2, Longitude: 44.2},
	}
	out := Parse(in)
	require.Len(t, out, 2)

	assert.Equal(t, 40.2, out[0].Latitude, "lower id is unmoved")
	assert.InDelta(t, OverlapThreshold, math.Abs(out[1].Latitude-out[0].Latitude), 1e-12)
	assert.Equal(t, 44.2, out[1].Longitude)
}

func TestParse_DoesNotMutateInput(t *testing.T) {
	in := []Record{
		{ID: "1", Latitude: 1, Longitude: 1, Fields: map[string]any{"a": 1}},
		{ID: "2", Latitude: 1, Longitude: 1, Fields: map[string]any{"a": 2}},
	}
	out := Parse(in)
	out[1].Fields["a"] = 99

	assert.Equal(t, 1.0, in[1].Latitude)
	assert.Equal(t, 2, in[1].Fields["a"])
}

func TestParse_NudgesAwayFromNeighbour(t *testing.T) {
	in := []Record{
		{ID: "5", Latitude: 10.00005, Longitude: 20},
		{ID: "9", Latitude: 10.00000, Longitude: 20},
	}
	out := Parse(in)
	assert.Equal(t, 10.00005, out[0].Latitude)
	assert.InDelta(t, 10.0-OverlapThreshold, out[1].Latitude, 1e-12)
}

func TestParse_DistantRecordsUntouched(t *testing.T) {
	in := []Record{
		{ID: "1", Latitude: 48.85, Longitude: 2.35},
		{ID: "2", Latitude: 48.86, Longitude: 2.35},
		{ID: "3", Latitude: 45.76, Longitude: 4.83},
	}
	out := Parse(in)
	for i := range in {
		assert.Equal(t, in[i].Latitude, out[i].Latitude)
	}
}

func TestParse_OrderIndependentOfIDOrder(t *testing.T) {
	in := []Record{
		{ID: "2", Latitude: 5, Longitude: 5},
		{ID: "1", Latitude: 5, Longitude: 5},
	}
	out := Parse(in)
	assert.Equal(t, 5.0+OverlapThreshold, out[0].Latitude, "higher id moves even when listed first")
	assert.Equal(t, 5.0, out[1].Latitude)

	again := Parse(in)
	assert.Equal(t, out, again)
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(nil))
}
