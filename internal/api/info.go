package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// InfoConfig describes the running service for GET /api/v1/info.
type InfoConfig struct {
	DataDir string
	Source  string
	DB      bool
	// Sessions reports the number of open widget sessions.
	Sessions func() int
}

// InfoHandler serves service metadata.
type InfoHandler struct {
	cfg InfoConfig
}

func NewInfoHandler(cfg InfoConfig) *InfoHandler {
	return &InfoHandler{cfg: cfg}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Source   string   `json:"source,omitempty" doc:"Default location source"`
	DB       bool     `json:"db" doc:"Whether DuckDB sources are available"`
	Sessions int      `json:"sessions" doc:"Open widget sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-locator",
		Version:  "0.1.0",
		DataDir:  h.cfg.DataDir,
		Source:   h.cfg.Source,
		DB:       h.cfg.DB,
		Features: []string{"locations", "geojson", "search", "autocomplete", "widget"},
	}
	if h.cfg.DB {
		body.Features = append(body.Features, "duckdb")
	}
	if h.cfg.Sessions != nil {
		body.Sessions = h.cfg.Sessions()
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
