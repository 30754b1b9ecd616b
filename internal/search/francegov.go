package search

import (
	"context"
	"net/url"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FranceGovURL is the French national address API.
const FranceGovURL = "https://api-adresse.data.gouv.fr"

// FranceGov searches the French address database.
type FranceGov struct {
	client
	kind string
}

// NewFranceGov creates a client. kind restricts results ("municipality",
// "street", ...); empty means any.
func NewFranceGov(kind string, opts ...Option) *FranceGov {
	return &FranceGov{client: newClient(FranceGovURL, opts), kind: kind}
}

// Search runs a free-text address search.
func (f *FranceGov) Search(ctx context.Context, text string) ([]Result, error) {
	q := url.Values{"q": {text}, "limit": {"10"}}
	if f.kind != "" {
		q.Set("type", f.kind)
	}
	return f.query(ctx, q)
}

// SearchZip searches postcodes only.
func (f *FranceGov) SearchZip(ctx context.Context, zip string) ([]Result, error) {
	return f.query(ctx, url.Values{"q": {zip}, "type": {"postcode"}, "limit": {"10"}})
}

func (f *FranceGov) query(ctx context.Context, q url.Values) ([]Result, error) {
	return f.track(func() ([]Result, error) {
		fc := geojson.NewFeatureCollection()
		if err := f.getJSON(ctx, "/search/", q, fc); err != nil {
			return nil, err
		}
		out := make([]Result, 0, len(fc.Features))
		for _, feat := range fc.Features {
			pt, ok := feat.Geometry.(orb.Point)
			if !ok {
				continue
			}
			out = append(out, Result{
				Latitude:     pt.Lat(),
				Longitude:    pt.Lon(),
				Name:         feat.Properties.MustString("label", ""),
				OriginalInfo: feat.Properties,
			})
		}
		return out, nil
	})
}
