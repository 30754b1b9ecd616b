// Package location owns location records, their ingestion rules and the
// filter/sort pipeline that produces the list shown next to the map.
package location

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-locator/internal/geo"
)

// ErrInvalidCoordinates is returned when a record has no usable latitude/longitude.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Record is one point of interest.
// Fields keeps every key of the source payload so templates can reference
// arbitrary display values; the typed fields are authoritative.
type Record struct {
	ID          string
	Latitude    float64
	Longitude   float64
	Type        string
	FilterTypes []string
	Distance    float64
	Fields      map[string]any
}

// Position returns the record coordinates.
func (r Record) Position() geo.Position {
	return geo.Position{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Tags returns the tags used for filter matching: FilterTypes when present,
// otherwise Type.
func (r Record) Tags() []string {
	if r.FilterTypes != nil {
		return r.FilterTypes
	}
	if r.Type == "" {
		return nil
	}
	return []string{r.Type}
}

// Values returns the template values of the record. Typed fields override
// the raw payload keys of the same name.
func (r Record) Values() map[string]any {
	values := make(map[string]any, len(r.Fields)+5)
	maps.Copy(values, r.Fields)
	values["id"] = r.ID
	values["latitude"] = r.Latitude
	values["longitude"] = r.Longitude
	values["distance"] = r.Distance
	values["distance_km"] = r.Distance
	if r.Type != "" {
		values["type"] = r.Type
	}
	return values
}

// clone returns a deep enough copy for the record to be mutated independently.
func (r Record) clone() Record {
	r.Fields = maps.Clone(r.Fields)
	if r.FilterTypes != nil {
		r.FilterTypes = append([]string(nil), r.FilterTypes...)
	}
	return r
}

// FromMap builds a record from a decoded payload. Coordinates may be numbers
// or numeric strings.
func FromMap(m map[string]any) (Record, error) {
	r := Record{Fields: maps.Clone(m)}
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}

	r.ID = Stringify(m["id"])

	lat, err := toFloat(m["latitude"], m["lat"])
	if err != nil {
		return Record{}, fmt.Errorf("location %q latitude: %w", r.ID, err)
	}
	lon, err := toFloat(m["longitude"], m["lon"], m["lng"])
	if err != nil {
		return Record{}, fmt.Errorf("location %q longitude: %w", r.ID, err)
	}
	r.Latitude, r.Longitude = lat, lon

	r.Type = Stringify(m["type"])

	switch ft := m["filterTypes"].(type) {
	case nil:
	case string:
		r.FilterTypes = []string{ft}
	case []string:
		r.FilterTypes = append([]string(nil), ft...)
	case []any:
		r.FilterTypes = make([]string, 0, len(ft))
		for _, v := range ft {
			r.FilterTypes = append(r.FilterTypes, Stringify(v))
		}
	default:
		return Record{}, fmt.Errorf("location %q: unsupported filterTypes %T", r.ID, ft)
	}

	if d, err := toFloat(m["distance"]); err == nil {
		r.Distance = d
	}
	return r, nil
}

// UnmarshalJSON decodes a record from an arbitrary JSON object.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			m[k] = numberValue(n)
		}
	}
	rec, err := FromMap(m)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// MarshalJSON encodes the record as a flat object.
func (r Record) MarshalJSON() ([]byte, error) {
	out := r.Values()
	delete(out, "distance_km")
	if r.FilterTypes != nil {
		out["filterTypes"] = r.FilterTypes
	}
	return json.Marshal(out)
}

// CompareIDs orders two ids numerically when both are numbers, lexically otherwise.
func CompareIDs(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

// toFloat returns the first non-nil candidate as a float.
func toFloat(candidates ...any) (float64, error) {
	for _, v := range candidates {
		switch n := v.(type) {
		case nil:
			continue
		case float64:
			return checkFinite(n)
		case float32:
			return checkFinite(float64(n))
		case int:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinates, n)
			}
			return f, nil
		case []byte:
			return parseFloat(string(n))
		case string:
			return parseFloat(n)
		default:
			return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidCoordinates, v)
		}
	}
	return 0, fmt.Errorf("%w: missing", ErrInvalidCoordinates)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
	}
	return checkFinite(f)
}

func checkFinite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCoordinates, f)
	}
	return f, nil
}

// Stringify renders a payload value the way templates display it.
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case fmt.Stringer:
		return s.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
