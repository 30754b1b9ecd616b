package search

import (
	"context"
	"fmt"
	"net/url"
)

// GoogleURL is the Geocoding API endpoint.
const GoogleURL = "https://maps.googleapis.com"

// Google resolves addresses with the Google Geocoding API. Postcodes and free
// text use the same query.
type Google struct {
	client
	key      string
	region   string
	language string
}

// NewGoogle creates a client with an API key. region biases results (e.g.
// "FR") and language is appended to the address like the page language.
func NewGoogle(key, region, language string, opts ...Option) *Google {
	return &Google{client: newClient(GoogleURL, opts), key: key, region: region, language: language}
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Search geocodes an address.
func (g *Google) Search(ctx context.Context, text string) ([]Result, error) {
	return g.geocode(ctx, text)
}

// SearchZip geocodes a postcode.
func (g *Google) SearchZip(ctx context.Context, zip string) ([]Result, error) {
	return g.geocode(ctx, zip)
}

func (g *Google) geocode(ctx context.Context, text string) ([]Result, error) {
	return g.track(func() ([]Result, error) {
		address := text
		if g.language != "" {
			address += ", " + g.language
		}
		q := url.Values{"address": {address}, "key": {g.key}}
		if g.region != "" {
			q.Set("region", g.region)
		}

		var resp googleResponse
		if err := g.getJSON(ctx, "/maps/api/geocode/json", q, &resp); err != nil {
			return nil, err
		}
		switch resp.Status {
		case "OK":
		case "ZERO_RESULTS":
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: google status %s %s", ErrTransport, resp.Status, resp.ErrorMessage)
		}

		out := make([]Result, len(resp.Results))
		for i, r := range resp.Results {
			out[i] = Result{
				Latitude:     r.Geometry.Location.Lat,
				Longitude:    r.Geometry.Location.Lng,
				Name:         r.FormattedAddress,
				OriginalInfo: map[string]string{"place_id": r.PlaceID},
			}
		}
		return out, nil
	})
}
