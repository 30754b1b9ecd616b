// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/humastar"
	"github.com/joeblew999/plat-locator/internal/location"
)

// Services holds the dependencies of the API handlers.
type Services struct {
	Loader  location.Loader
	Sources *location.Sources
	// Source is the spec used when a request names none.
	Source string
}

// Types

type IDInput struct {
	ID     string `path:"id" doc:"Location ID" example:"42"`
	Source string `query:"source" doc:"Source spec: a file in the sources directory, a path, or duckdb:<query>"`
}

type LocationsInput struct {
	Source    string   `query:"source" doc:"Source spec: a file in the sources directory, a path, or duckdb:<query>"`
	Latitude  float64  `query:"lat" minimum:"-90" maximum:"90" doc:"Reference latitude"`
	Longitude float64  `query:"lon" minimum:"-180" maximum:"180" doc:"Reference longitude"`
	Filter    []string `query:"filter" doc:"Filter set; a location passes when one of its types is in the set"`
	Offset    int      `query:"offset" minimum:"0" default:"0" doc:"Offset of the first item"`
	Limit     int      `query:"limit" minimum:"1" maximum:"500" default:"20" doc:"Page size"`
}

// LocationItem is the API shape of a location record.
type LocationItem struct {
	ID          string         `json:"id" doc:"Location ID"`
	Latitude    float64        `json:"latitude" doc:"Latitude in degrees"`
	Longitude   float64        `json:"longitude" doc:"Longitude in degrees"`
	Type        string         `json:"type,omitempty" doc:"Primary type"`
	FilterTypes []string       `json:"filterTypes,omitempty" doc:"Extra filter tags"`
	Distance    float64        `json:"distance" doc:"Distance from the reference position in km"`
	Fields      map[string]any `json:"fields,omitempty" doc:"Display values of the source record"`
}

func itemOf(r location.Record) LocationItem {
	return LocationItem{
		ID:          r.ID,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Type:        r.Type,
		FilterTypes: r.FilterTypes,
		Distance:    r.Distance,
		Fields:      r.Values(),
	}
}

type LocationsOutput struct {
	Body humastar.PageBody[LocationItem]
}

type LocationOutput struct {
	Body LocationItem
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	if svc == nil {
		svc = &Services{}
	}
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLocations registers location listing routes.
func (h *APIHandler) RegisterLocations(api huma.API) {
	huma.Get(api, "/api/v1/locations", h.GetLocations, huma.OperationTags("locations"))
	huma.Get(api, "/api/v1/locations/{id}", h.GetLocation, huma.OperationTags("locations"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) load(ctx context.Context, spec string) ([]location.Record, error) {
	if spec == "" {
		spec = h.svc.Source
	}
	records, err := h.svc.Loader.Load(ctx, spec)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("source not found")
		}
		return nil, huma.Error400BadRequest("failed to load locations: " + err.Error())
	}
	return location.Parse(records), nil
}

// GetLocations runs the list pipeline: distance from lat/lon, ascending
// order, then the filter set.
func (h *APIHandler) GetLocations(ctx context.Context, input *LocationsInput) (*LocationsOutput, error) {
	records, err := h.load(ctx, input.Source)
	if err != nil {
		return nil, err
	}

	store := location.NewStore(nil, nil)
	store.Replace(records)
	store.SetFilters(splitFilters(input.Filter))
	store.UpdateDistances(geo.Position{Latitude: input.Latitude, Longitude: input.Longitude})
	filtered := store.ApplyFilters()

	items := make([]LocationItem, len(filtered))
	for i, r := range filtered {
		items[i] = itemOf(r)
	}
	return &LocationsOutput{Body: humastar.Page(items, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetLocation(ctx context.Context, input *IDInput) (*LocationOutput, error) {
	records, err := h.load(ctx, input.Source)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(records, func(r location.Record) bool { return r.ID == input.ID })
	if i < 0 {
		return nil, huma.Error404NotFound("location not found")
	}
	return &LocationOutput{Body: itemOf(records[i])}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []location.SourceFile }, error) {
	if h.svc.Sources == nil {
		return &struct{ Body []location.SourceFile }{Body: []location.SourceFile{}}, nil
	}
	sources, err := h.svc.Sources.List()
	if err != nil {
		return &struct{ Body []location.SourceFile }{Body: []location.SourceFile{}}, nil
	}
	return &struct{ Body []location.SourceFile }{Body: sources}, nil
}

// splitFilters accepts repeated and comma separated filter values.
func splitFilters(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}
