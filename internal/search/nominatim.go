package search

import (
	"context"
	"net/url"
	"strconv"
)

// NominatimURL is the public OpenStreetMap geocoder.
const NominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim searches OpenStreetMap by city name or postal code.
type Nominatim struct {
	client
}

// NewNominatim creates a Nominatim client.
func NewNominatim(opts ...Option) *Nominatim {
	return &Nominatim{client: newClient(NominatimURL, opts)}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Class       string `json:"class,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Search looks up a city.
func (n *Nominatim) Search(ctx context.Context, text string) ([]Result, error) {
	return n.query(ctx, "city", text)
}

// SearchZip looks up a postal code.
func (n *Nominatim) SearchZip(ctx context.Context, zip string) ([]Result, error) {
	return n.query(ctx, "postalcode", zip)
}

func (n *Nominatim) query(ctx context.Context, field, value string) ([]Result, error) {
	return n.track(func() ([]Result, error) {
		var places []nominatimPlace
		q := url.Values{"format": {"json"}, field: {value}}
		if err := n.getJSON(ctx, "/search", q, &places); err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(places))
		for _, p := range places {
			lat, err1 := strconv.ParseFloat(p.Lat, 64)
			lon, err2 := strconv.ParseFloat(p.Lon, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			out = append(out, Result{Latitude: lat, Longitude: lon, Name: p.DisplayName, OriginalInfo: p})
		}
		return out, nil
	})
}
