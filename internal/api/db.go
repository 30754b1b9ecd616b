package api

import (
	"context"
	"database/sql"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-locator/internal/location"
)

// DBHandler exposes the DuckDB location database.
type DBHandler struct {
	db *sql.DB
}

func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers the database routes. A nil db answers 503.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("database"))
	huma.Post(api, "/api/v1/locations/query", h.QueryLocations, huma.OperationTags("database"))
}

// TablesOutput lists the DuckDB tables usable in duckdb: sources.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"Table names"`
	}
}

// ListTables returns the tables of the location database.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("database not available")
	}
	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("listing tables", err)
	}
	defer rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, huma.Error500InternalServerError("reading table name", err)
		}
		out.Body.Tables = append(out.Body.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error500InternalServerError("listing tables", err)
	}
	return out, nil
}

// QueryInput is the input for location queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query returning id, latitude and longitude columns" example:"SELECT * FROM 'stores.parquet'"`
	}
}

// QueryOutput is the response for location queries.
type QueryOutput struct {
	Body struct {
		Locations []LocationItem `json:"locations" doc:"Locations built from the result rows"`
		Count     int            `json:"count" doc:"Number of locations returned"`
	}
}

// QueryLocations runs a SQL query against DuckDB and reads every row as a
// location record.
func (h *DBHandler) QueryLocations(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("database not available")
	}

	records, err := location.LoadSQL(ctx, h.db, input.Body.Query)
	if err != nil {
		if errors.Is(err, location.ErrInvalidCoordinates) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error400BadRequest("query failed: " + err.Error())
	}

	out := &QueryOutput{}
	out.Body.Locations = make([]LocationItem, len(records))
	for i, r := range records {
		out.Body.Locations[i] = itemOf(r)
	}
	out.Body.Count = len(records)
	return out, nil
}
