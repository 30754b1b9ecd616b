package location

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SourceFile describes a location data file available in the data directory.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"stores.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type: JSON or GeoJSON" example:"GeoJSON"`
}

// Sources lists and loads location files from a directory.
type Sources struct {
	dir string
}

// NewSources creates a source listing rooted at dataDir/sources.
func NewSources(dataDir string) *Sources {
	return &Sources{dir: filepath.Join(dataDir, "sources")}
}

// Dir returns the sources directory.
func (s *Sources) Dir() string {
	return s.dir
}

var extToType = map[string]string{
	".json":    "JSON",
	".geojson": "GeoJSON",
}

// List returns the supported files in the sources directory.
func (s *Sources) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType, ok := extToType[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}
	return files, nil
}

// Open loads a named file from the sources directory.
func (s *Sources) Open(name string) ([]Record, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid source name %q", name)
	}
	return LoadFile(filepath.Join(s.dir, name))
}

// LoadFile reads records from a JSON array, a {"locations": [...]} object or
// a GeoJSON FeatureCollection of points, depending on the extension.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading locations: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".geojson") {
		return DecodeGeoJSON(data)
	}
	return DecodeJSON(data)
}

// DecodeJSON decodes either a bare array of records or an object holding a
// "locations" array.
func DecodeJSON(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Locations []Record `json:"locations"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding locations: %w", err)
	}
	return wrapped.Locations, nil
}

// DecodeGeoJSON converts point features into records. Feature properties
// become record fields; the feature id is used when properties carry none.
func DecodeGeoJSON(data []byte) ([]Record, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	records := make([]Record, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		props := map[string]any(f.Properties.Clone())
		if props == nil {
			props = map[string]any{}
		}
		if _, ok := props["id"]; !ok {
			if f.ID != nil {
				props["id"] = f.ID
			} else {
				props["id"] = int64(i + 1)
			}
		}
		props["latitude"] = p.Lat()
		props["longitude"] = p.Lon()
		r, err := FromMap(props)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// LoadSQL runs a query and turns each row into a record. Column names map to
// record keys, so the query must expose id, latitude and longitude.
func LoadSQL(ctx context.Context, db *sql.DB, query string) ([]Record, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		r, err := FromMap(row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SQLPrefix marks a source spec that is a SQL query.
const SQLPrefix = "duckdb:"

// Loader resolves a source spec: "duckdb:<query>", a file in the sources
// directory or a path to a file.
type Loader struct {
	Sources *Sources
	// DB opens the database for SQL specs on demand.
	DB func() (*sql.DB, error)
}

// Load returns the records of spec. An empty spec yields no records.
func (l Loader) Load(ctx context.Context, spec string) ([]Record, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return []Record{}, nil
	case strings.HasPrefix(spec, SQLPrefix):
		if l.DB == nil {
			return nil, fmt.Errorf("no database for source %q", spec)
		}
		conn, err := l.DB()
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return LoadSQL(ctx, conn, strings.TrimPrefix(spec, SQLPrefix))
	case l.Sources != nil && !strings.ContainsAny(spec, `/\`):
		return l.Sources.Open(spec)
	}
	return LoadFile(spec)
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
