package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stores = `[
  {"id": 1, "latitude": 48.8606, "longitude": 2.3376, "type": "shop", "name": "Louvre", "address": "Rue de Rivoli"},
  {"id": 2, "latitude": 45.764, "longitude": 4.8357, "type": "park", "name": "Lyon", "address": "Place Bellecour"}
]`

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "sources"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "sources", "stores.json"), []byte(stores), 0o644))

	srv, err := New(Config{
		Host:         "localhost",
		Port:         "8087",
		DataDir:      dataDir,
		WebDir:       filepath.Join("..", "..", "web"),
		Source:       "stores.json",
		DBExtensions: []string{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	t.Run("health links", func(t *testing.T) {
		rec := get(t, srv, "/health")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Values("Link"), `</api/v1/locations>; rel="locations"`)
		assert.Contains(t, rec.Header().Values("Link"), `</openapi.json>; rel="service-desc"`)
	})

	t.Run("locations", func(t *testing.T) {
		rec := get(t, srv, "/api/v1/locations?lat=45.76&lon=4.83&limit=1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total":2`)
		assert.Contains(t, rec.Body.String(), `"id":"2"`)
	})

	t.Run("host page opens a session", func(t *testing.T) {
		rec := get(t, srv, "/")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		body := rec.Body.String()
		assert.Contains(t, body, "<locations-map-container")
		assert.Contains(t, body, `data-locator-base="/api/v1/widget/`)
		assert.Contains(t, body, "{{ name }}")
		assert.Equal(t, 1, srv.widgets.Hub().Len())
	})

	t.Run("unknown page", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, srv, "/nope").Code)
	})

	t.Run("openapi", func(t *testing.T) {
		paths := srv.OpenAPI().Paths
		assert.Contains(t, paths, "/api/v1/widget/{session}/events")
		assert.Contains(t, paths, "/api/v1/locations/{id}")
	})
}

func TestNew_BadSettingsFile(t *testing.T) {
	_, err := New(Config{SettingsFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
