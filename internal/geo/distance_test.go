package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_SamePoint(t *testing.T) {
	for _, p := range []Position{{0, 0}, {40.2, 44.2}, {-33.8688, 151.2093}, {90, 180}} {
		assert.Equal(t, 0.0, Distance(p.Latitude, p.Longitude, p.Latitude, p.Longitude, Kilometers))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]Position{
		{{48.8566, 2.3522}, {51.5074, -0.1278}},
		{{40.7128, -74.0060}, {35.6762, 139.6503}},
		{{0, 0}, {0.0001, 0.0001}},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		for _, u := range []Unit{Kilometers, Miles, NauticalMiles} {
			assert.InDelta(t,
				Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude, u),
				Distance(b.Latitude, b.Longitude, a.Latitude, a.Longitude, u),
				1e-9)
		}
	}
}

func TestDistance_OneDegreeAtEquator(t *testing.T) {
	d := Distance(0, 0, 0, 1, Kilometers)
	assert.InEpsilon(t, 111.19, d, 0.01)
}

func TestDistance_Units(t *testing.T) {
	miles := Distance(48.8566, 2.3522, 51.5074, -0.1278, Miles)
	assert.InDelta(t, miles*1.609344, Distance(48.8566, 2.3522, 51.5074, -0.1278, Kilometers), 1e-9)
	assert.InDelta(t, miles*0.8684, Distance(48.8566, 2.3522, 51.5074, -0.1278, NauticalMiles), 1e-9)
}

func TestDistance_AntipodesClamped(t *testing.T) {
	d := Distance(0, 0, 0, 180, Kilometers)
	assert.False(t, math.IsNaN(d))
	assert.InEpsilon(t, 20015, d, 0.01)
}

func TestPosition_Point(t *testing.T) {
	p := Position{Latitude: 10, Longitude: 20}
	assert.Equal(t, 20.0, p.Point().Lon())
	assert.Equal(t, p, FromPoint(p.Point()))
	assert.True(t, p.Valid())
	assert.False(t, Position{Latitude: 91}.Valid())
}

func TestBetween(t *testing.T) {
	paris := Position{Latitude: 48.8566, Longitude: 2.3522}
	lyon := Position{Latitude: 45.764, Longitude: 4.8357}
	assert.Equal(t, Distance(paris.Latitude, paris.Longitude, lyon.Latitude, lyon.Longitude, Kilometers), Between(paris, lyon))
	assert.InDelta(t, 392, Between(paris, lyon), 3)
	assert.InDelta(t, Between(paris, lyon), Between(lyon, paris), 1e-9)
}
