// Package widget serves locator sessions: one server-side locator.Map per
// browser page, driven by Datastar actions and streamed back over SSE.
package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/location"
	"github.com/joeblew999/plat-locator/internal/locator"
	"github.com/joeblew999/plat-locator/internal/mapprovider"
	"github.com/joeblew999/plat-locator/internal/search"
	"github.com/joeblew999/plat-locator/internal/templates"
	"github.com/joeblew999/plat-locator/internal/timer"
)

// Browser event names.
const (
	CommandEvent   = "locations-map-command"
	GeolocateEvent = "locations-map-geolocate"
	ScrollEvent    = "locations-map-scroll"
)

// DefaultPage is the host page rendered for new sessions.
const DefaultPage = "locator.html"

var (
	ErrNoRenderer      = errors.New("no host page renderer configured")
	ErrSessionNotFound = errors.New("widget session not found")
	ErrNotRemote       = errors.New("map provider is not browser driven")
)

// Config configures a Hub.
type Config struct {
	Renderer *templates.Renderer
	// Page is the host page template; DefaultPage when empty.
	Page string
	// Settings are the base widget settings, usually from a settings file.
	Settings map[string]any
	// Locations feeds sessions whose page declares no locations.
	Locations func(ctx context.Context) ([]location.Record, error)
	Search    search.Config
	// Credentials holds the API key or token per map kit.
	Credentials      map[mapprovider.Kind]string
	Logger           *zap.Logger
	GeolocateTimeout time.Duration
	Scheduler        timer.Scheduler
	// Options are appended to every session's locator options.
	Options []locator.Option
}

// PageData is passed to the host page template.
type PageData struct {
	Session  string
	Base     string
	Settings map[string]any
}

// Session is one browser page and the Map driving it.
type Session struct {
	ID     string
	HTML   string
	Map    *locator.Map
	Remote *mapprovider.Remote

	out     *outbox
	geo     *browserGeolocator
	ctx     context.Context
	cancel  context.CancelFunc
	started sync.Once
}

// start runs Init in the background once per session.
func (s *Session) start(log *zap.Logger) {
	s.started.Do(func() {
		go func() {
			if err := s.Map.Init(s.ctx); err != nil {
				if s.ctx.Err() == nil {
					log.Warn("locator init failed", zap.String("session", s.ID), zap.Error(err))
					s.out.Alert(err.Error())
				}
			}
		}()
	})
}

// Hub owns the live sessions.
type Hub struct {
	cfg  Config
	log  *zap.Logger
	maps *locator.Registry

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates a hub.
func NewHub(cfg Config) *Hub {
	if cfg.Page == "" {
		cfg.Page = DefaultPage
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = timer.Real{}
	}
	return &Hub{
		cfg:      cfg,
		log:      cfg.Logger,
		maps:     locator.NewRegistry(),
		sessions: make(map[string]*Session),
	}
}

// Open renders the host page for a new session and builds its Map.
func (h *Hub) Open(ctx context.Context) (*Session, error) {
	if h.cfg.Renderer == nil {
		return nil, ErrNoRenderer
	}
	id := uuid.NewString()
	page, err := h.cfg.Renderer.Render(h.cfg.Page, PageData{
		Session:  id,
		Base:     BasePath + "/" + id,
		Settings: h.cfg.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("render host page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse host page: %w", err)
	}

	var records []location.Record
	if h.cfg.Locations != nil {
		if records, err = h.cfg.Locations(ctx); err != nil {
			return nil, fmt.Errorf("load locations: %w", err)
		}
	}

	out := newOutbox()
	gl := newBrowserGeolocator(out, h.cfg.GeolocateTimeout)
	log := h.log.With(zap.String("session", id))

	m, err := h.maps.Make(locator.Handle(id), func() (*locator.Map, error) {
		opts := []locator.Option{
			locator.WithBaseSettings(h.cfg.Settings),
			locator.WithView(out),
			locator.WithGeolocator(gl),
			locator.WithSearchConfig(h.cfg.Search),
			locator.WithScheduler(h.cfg.Scheduler),
			locator.WithLogger(log),
			locator.WithSettings(func(s *locator.Settings) {
				if len(s.Locations) == 0 {
					s.Locations = records
				}
				if s.MapProvider == "" {
					s.MapProvider = string(mapprovider.Leaflet)
				}
				if s.Credentials == "" {
					s.Credentials = h.cfg.Credentials[mapprovider.Kind(s.MapProvider)]
				}
			}),
		}
		return locator.New(doc, "", append(opts, h.cfg.Options...)...)
	})
	if err != nil {
		return nil, err
	}
	remote, ok := m.MapProvider().(*mapprovider.Remote)
	if !ok {
		h.maps.Dispose(locator.Handle(id))
		return nil, ErrNotRemote
	}
	// The Map annotated the page while binding to it.
	m.Do(func(*locator.Map) { page, err = goquery.OuterHtml(doc.Selection) })
	if err != nil {
		h.maps.Dispose(locator.Handle(id))
		return nil, fmt.Errorf("render session page: %w", err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:     id,
		HTML:   page,
		Map:    m,
		Remote: remote,
		out:    out,
		geo:    gl,
		ctx:    sctx,
		cancel: cancel,
	}
	h.mu.Lock()
	h.sessions[id] = s
	h.mu.Unlock()

	log.Debug("session opened", zap.Int("locations", len(m.Locations())))
	return s, nil
}

// Get returns a live session.
func (h *Hub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// Close ends a session and disposes its Map.
func (h *Hub) Close(id string) bool {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return false
	}
	s.cancel()
	h.maps.Dispose(locator.Handle(id))
	h.log.Debug("session closed", zap.String("session", id))
	return true
}

// Shutdown closes every session.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.Close(id)
	}
}

// Len reports the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
