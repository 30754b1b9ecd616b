package location

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_ArrayAndWrapped(t *testing.T) {
	records, err := DecodeJSON([]byte(`[{"id":1,"latitude":1,"longitude":2}]`))
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = DecodeJSON([]byte(`{"locations":[{"id":"a","lat":"1.5","lon":"2.5"}]}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1.5, records[0].Latitude)
}

func TestDecodeGeoJSON(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "id": 7, "geometry": {"type": "Point", "coordinates": [2.35, 48.85]}, "properties": {"name": "Paris", "type": "shop"}},
			{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}, "properties": {}},
			{"type": "Feature", "geometry": {"type": "Point", "coordinates": [4.83, 45.76]}, "properties": {"id": "lyon"}}
		]
	}`)
	records, err := DecodeGeoJSON(data)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "7", records[0].ID)
	assert.Equal(t, 48.85, records[0].Latitude)
	assert.Equal(t, 2.35, records[0].Longitude)
	assert.Equal(t, "shop", records[0].Type)
	assert.Equal(t, "lyon", records[1].ID)
}

func TestSources_ListAndOpen(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "sources")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "stores.json"), []byte(`[{"id":1,"latitude":1,"longitude":1}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("x"), 0644))

	s := NewSources(dir)
	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "stores.json", files[0].Name)
	assert.Equal(t, "JSON", files[0].FileType)

	records, err := s.Open("stores.json")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = s.Open("../secret.json")
	assert.Error(t, err)
}

func TestSources_MissingDir(t *testing.T) {
	files, err := NewSources(t.TempDir()).List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "sources")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "stores.json"), []byte(`{"locations": [{"id":1,"latitude":1,"longitude":1}]}`), 0644))
	other := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(other, []byte(`[{"id":"a","lat":"2","lng":"3"}]`), 0644))

	l := Loader{Sources: NewSources(dir)}
	ctx := context.Background()

	records, err := l.Load(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = l.Load(ctx, "stores.json")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = l.Load(ctx, other)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3.0, records[0].Longitude)

	_, err = l.Load(ctx, "duckdb:SELECT 1")
	assert.Error(t, err)
}
