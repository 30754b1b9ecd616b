package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/api"
	"github.com/joeblew999/plat-locator/internal/api/widget"
	"github.com/joeblew999/plat-locator/internal/config"
	"github.com/joeblew999/plat-locator/internal/db"
	"github.com/joeblew999/plat-locator/internal/humastar"
	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/search"
	"github.com/joeblew999/plat-locator/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Path to web/ directory for static files and host pages

	// SettingsFile holds the base widget settings (YAML, JSON or TOML).
	SettingsFile string
	// Source is the default location source spec.
	Source string
	Logger *zap.Logger
	// DBExtensions are loaded into DuckDB; nil means db.DefaultExtensions.
	DBExtensions []string

	RedisAddr      string
	SearchCacheTTL time.Duration
	GoogleKey      string
	MapboxToken    string
}

// Server is the locator HTTP server.
type Server struct {
	config   Config
	log      *zap.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	redis    *redis.Client
	services *api.Services
	renderer *templates.Renderer
	widgets  *widget.Handler
}

// New creates a new locator server.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	log := cfg.Logger
	mux := http.NewServeMux()

	settings, err := config.Load(cfg.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	s := &Server{config: cfg, log: log, mux: mux}

	// Links are derived once every route is registered; the transformer
	// reads them through s.
	humaConfig := huma.DefaultConfig("plat-locator API", "1.0.0")
	humaConfig.Info.Description = "Store locator API: location sources, distance-ordered listings and server-driven map widgets."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, func(ctx huma.Context, status string, v any) (any, error) {
		return s.links.Transformer()(ctx, status, v)
	})
	s.humaAPI = humago.New(mux, humaConfig)

	// Initialize DuckDB connection
	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "locations", Extensions: cfg.DBExtensions})
	if err != nil {
		log.Warn("duckdb unavailable", zap.Error(err))
	} else {
		s.db = conn
	}

	sources := location.NewSources(cfg.DataDir)
	s.services = &api.Services{
		Loader:  location.Loader{Sources: sources, DB: s.database},
		Sources: sources,
		Source:  cfg.Source,
	}

	if cfg.WebDir != "" {
		pagesDir := filepath.Join(cfg.WebDir, "templates")
		if r, err := templates.New(pagesDir); err == nil {
			s.renderer = r
			log.Info("loaded host pages", zap.String("dir", pagesDir))
		} else {
			log.Warn("no host pages", zap.String("dir", pagesDir), zap.Error(err))
		}
	}

	hub := widget.NewHub(widget.Config{
		Renderer: s.renderer,
		Settings: settings,
		Locations: func(ctx context.Context) ([]location.Record, error) {
			return s.services.Loader.Load(ctx, cfg.Source)
		},
		Search: search.Config{
			GoogleKey: cfg.GoogleKey,
			Logger:    log.Named("search"),
			Cache:     s.searchCache(),
			CacheTTL:  cfg.SearchCacheTTL,
		},
		Credentials: map[mapprovider.Kind]string{
			mapprovider.Google: cfg.GoogleKey,
			mapprovider.Mapbox: cfg.MapboxToken,
		},
		Logger: log.Named("widget"),
	})
	s.widgets = widget.NewHandler(hub, log.Named("widget"))

	s.routes()
	return s, nil
}

func (s *Server) database() (*sql.DB, error) {
	if s.db == nil {
		return nil, errors.New("database not available")
	}
	return s.db, nil
}

// searchCache picks Redis when configured and reachable, memory otherwise.
func (s *Server) searchCache() search.Cache {
	if s.config.RedisAddr == "" {
		return search.NewMemory()
	}
	client, err := search.DialRedis(context.Background(), s.config.RedisAddr)
	if err != nil {
		s.log.Warn("redis unavailable, caching searches in memory",
			zap.String("addr", s.config.RedisAddr), zap.Error(err))
		return search.NewMemory()
	}
	s.redis = client
	return search.NewRedis(client, "locator:search:")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close ends every widget session and closes server resources.
func (s *Server) Close() error {
	s.widgets.Hub().Shutdown()
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, db.Close())
	return errors.Join(errs...)
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(api.InfoConfig{
		DataDir:  s.config.DataDir,
		Source:   s.config.Source,
		DB:       s.db != nil,
		Sessions: s.widgets.Hub().Len,
	}).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Widget SSE routes using Huma + Datastar SDK
	s.widgets.RegisterRoutes(s.humaAPI)

	s.links = humastar.AutoLinks(s.humaAPI, humastar.LinkOptions{
		Entry:    "/health",
		Search:   "/api/v1/locations",
		SkipTags: []string{"widget"},
	})

	// Static files
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("/", s.handleRoot)
}

// handleRoot opens a widget session and serves its host page.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	session, err := s.widgets.Hub().Open(r.Context())
	if err != nil {
		if errors.Is(err, widget.ErrNoRenderer) {
			http.Error(w, "no host page configured", http.StatusServiceUnavailable)
			return
		}
		s.log.Error("opening widget session", zap.Error(err))
		http.Error(w, "failed to open locator", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(session.HTML))
}
