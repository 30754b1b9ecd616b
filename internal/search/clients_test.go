package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatim_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if r.URL.Query().Get("postalcode") == "75001" {
			w.Write([]byte(`[{"lat":"48.86","lon":"2.34","display_name":"75001, Paris"}]`))
			return
		}
		assert.Equal(t, "Lyon", r.URL.Query().Get("city"))
		w.Write([]byte(`[{"lat":"45.75","lon":"4.85","display_name":"Lyon, France"},{"lat":"bad","lon":"1","display_name":"x"}]`))
	}))
	defer server.Close()

	n := NewNominatim(WithBaseURL(server.URL))
	results, err := n.Search(context.Background(), "Lyon")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Lyon, France", results[0].Name)
	assert.InDelta(t, 45.75, results[0].Latitude, 1e-9)

	results, err = n.SearchZip(context.Background(), "75001")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "75001, Paris", n.AutocompleteData()[0].Title)
}

func TestNominatim_EmptyIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	results, err := NewNominatim(WithBaseURL(server.URL)).Search(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestNominatim_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewNominatim(WithBaseURL(server.URL))
	_, err := n.Search(context.Background(), "Lyon")
	assert.ErrorIs(t, err, ErrTransport)
	assert.Empty(t, n.AutocompleteData())
}

const franceGovBody = `{
  "type": "FeatureCollection",
  "version": "draft",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [2.347, 48.862]},
     "properties": {"label": "Paris 1er", "postcode": "75001", "type": "municipality"}}
  ]
}`

func TestFranceGov_Search(t *testing.T) {
	var lastQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/", r.URL.Path)
		lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			lastQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(franceGovBody))
	}))
	defer server.Close()

	f := NewFranceGov("municipality", WithBaseURL(server.URL))
	results, err := f.Search(context.Background(), "paris")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Paris 1er", results[0].Name)
	assert.InDelta(t, 48.862, results[0].Latitude, 1e-9)
	assert.InDelta(t, 2.347, results[0].Longitude, 1e-9)
	assert.Equal(t, "municipality", lastQuery["type"])
	assert.Equal(t, "10", lastQuery["limit"])

	_, err = f.SearchZip(context.Background(), "75001")
	require.NoError(t, err)
	assert.Equal(t, "postcode", lastQuery["type"])
	assert.Equal(t, "75001", lastQuery["q"])
}

func TestGoogle_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "FR", r.URL.Query().Get("region"))
		switch r.URL.Query().Get("address") {
		case "Lyon, fr":
			w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Lyon, France","place_id":"p1","geometry":{"location":{"lat":45.76,"lng":4.83}}}]}`))
		case "nowhere, fr":
			w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		default:
			w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
		}
	}))
	defer server.Close()

	g := NewGoogle("secret", "FR", "fr", WithBaseURL(server.URL))
	results, err := g.Search(context.Background(), "Lyon")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Lyon, France", results[0].Name)

	results, err = g.SearchZip(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = g.Search(context.Background(), "denied")
	assert.ErrorIs(t, err, ErrTransport)
}
