package widget

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-locator/internal/autocomplete"
	"github.com/joeblew999/plat-locator/internal/geo"
	"github.com/joeblew999/plat-locator/internal/humastar"
	"github.com/joeblew999/plat-locator/internal/locator"
	"github.com/joeblew999/plat-locator/internal/search"
)

// BasePath prefixes every session route.
const BasePath = "/api/v1/widget"

// SuggestionsSelector is where autocomplete suggestions are patched.
const SuggestionsSelector = "[data-location-suggestions]"

var sessionActions = []humastar.ActionDef{
	{Rel: "events", Pattern: BasePath + "/%s/events", Method: http.MethodGet, Title: "Stream page updates"},
	{Rel: "ready", Pattern: BasePath + "/%s/ready", Method: http.MethodPost, Title: "Report the map ready"},
	{Rel: "search", Pattern: BasePath + "/%s/search", Method: http.MethodPost, Title: "Search an address"},
	{Rel: "geolocate", Pattern: BasePath + "/%s/geolocate", Method: http.MethodPost, Title: "Locate the user"},
	{Rel: "filters", Pattern: BasePath + "/%s/filters", Method: http.MethodPost, Title: "Apply filters"},
	{Rel: "close-popups", Pattern: BasePath + "/%s/popups/close", Method: http.MethodPost, Title: "Close popups"},
	{Rel: "delete", Pattern: BasePath + "/%s", Method: http.MethodDelete, Title: "End the session"},
}

// Handler exposes widget sessions over Huma.
type Handler struct {
	humastar.Handler
	hub *Hub
}

// NewHandler creates a handler for hub.
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{Handler: humastar.Handler{Logger: logger}, hub: hub}
}

// Hub returns the session hub.
func (h *Handler) Hub() *Hub { return h.hub }

// Types

type SessionInput struct {
	Session string `path:"session" doc:"Widget session ID"`
}

type ActionInput struct {
	Session string `path:"session" doc:"Widget session ID"`
	RawBody []byte
}

func (i *ActionInput) signals() (humastar.Signals, error) {
	in := humastar.SignalsInput{RawBody: i.RawBody}
	return in.MustParse()
}

type ItemInput struct {
	Session string `path:"session" doc:"Widget session ID"`
	ID      string `path:"id" doc:"Location ID" example:"42"`
}

type PageInput struct {
	Session string `path:"session" doc:"Widget session ID"`
	Page    int    `path:"page" minimum:"1" doc:"Page number, starting at 1"`
}

type IndexInput struct {
	Session string `path:"session" doc:"Widget session ID"`
	Index   int    `path:"index" minimum:"0" doc:"Suggestion index"`
}

// SessionBody describes a live session.
type SessionBody struct {
	ID        string       `json:"id" doc:"Session ID"`
	State     string       `json:"state" doc:"Controller state" enum:"uninitialized,initializing,ready,disposed"`
	Provider  string       `json:"provider" doc:"Browser map kit"`
	Locations int          `json:"locations" doc:"Number of locations"`
	Shown     int          `json:"shown" doc:"Number of locations passing the filters"`
	Filters   []string     `json:"filters" doc:"Active filters"`
	Position  geo.Position `json:"position" doc:"Reference position"`
}

// Actions implements humastar.Actor.
func (b SessionBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, sessionActions)
}

type SessionOutput struct {
	Body SessionBody
}

// Routes

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("widget")
	huma.Register(api, huma.Operation{
		OperationID:   "create-widget-session",
		Method:        http.MethodPost,
		Path:          BasePath,
		Summary:       "Create widget session",
		Tags:          []string{"widget"},
		DefaultStatus: http.StatusCreated,
	}, h.Create)
	huma.Get(api, BasePath+"/{session}", h.Info, tags)
	huma.Delete(api, BasePath+"/{session}", h.Delete, tags)
	huma.Get(api, BasePath+"/{session}/events", h.Events, tags)

	huma.Post(api, BasePath+"/{session}/ready", h.Ready, tags)
	huma.Post(api, BasePath+"/{session}/markers/{id}/click", h.MarkerClick, tags)
	huma.Post(api, BasePath+"/{session}/tooltip/close", h.TooltipClosed, tags)
	huma.Post(api, BasePath+"/{session}/popups/close", h.ClosePopups, tags)
	huma.Post(api, BasePath+"/{session}/list/click", h.ListClick, tags)
	huma.Post(api, BasePath+"/{session}/list/hover", h.ListHover, tags)
	huma.Post(api, BasePath+"/{session}/list/leave", h.ListLeave, tags)
	huma.Post(api, BasePath+"/{session}/search", h.Search, tags)
	huma.Post(api, BasePath+"/{session}/autocomplete", h.Autocomplete, tags)
	huma.Post(api, BasePath+"/{session}/autocomplete/{index}", h.SelectSuggestion, tags)
	huma.Post(api, BasePath+"/{session}/geolocate", h.Geolocate, tags)
	huma.Post(api, BasePath+"/{session}/position", h.Position, tags)
	huma.Post(api, BasePath+"/{session}/filters", h.Filters, tags)
	huma.Post(api, BasePath+"/{session}/page/{page}", h.Page, tags)
	huma.Post(api, BasePath+"/{session}/locations/{id}/open", h.OpenLocation, tags)
}

func (h *Handler) session(id string) (*Session, error) {
	s, ok := h.hub.Get(id)
	if !ok {
		return nil, huma.Error404NotFound(ErrSessionNotFound.Error())
	}
	return s, nil
}

func describe(s *Session) SessionBody {
	var b SessionBody
	s.Map.Do(func(m *locator.Map) {
		b = SessionBody{
			ID:        s.ID,
			State:     m.State().String(),
			Provider:  string(s.Remote.Kind()),
			Locations: len(m.Locations()),
			Shown:     m.FilteredCount(),
			Filters:   append([]string{}, m.Filters()...),
			Position:  m.Position(),
		}
	})
	return b
}

// Handlers

func (h *Handler) Create(ctx context.Context, _ *humastar.EmptyInput) (*SessionOutput, error) {
	s, err := h.hub.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRenderer) {
			return nil, huma.Error503ServiceUnavailable(err.Error())
		}
		return nil, huma.Error500InternalServerError("failed to open session", err)
	}
	return &SessionOutput{Body: describe(s)}, nil
}

func (h *Handler) Info(ctx context.Context, in *SessionInput) (*SessionOutput, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: describe(s)}, nil
}

func (h *Handler) Delete(ctx context.Context, in *SessionInput) (*struct{}, error) {
	if !h.hub.Close(in.Session) {
		return nil, huma.Error404NotFound(ErrSessionNotFound.Error())
	}
	return &struct{}{}, nil
}

// Events starts the session's Map and streams its page updates, map
// commands and event notices until the client goes away.
func (h *Handler) Events(ctx context.Context, in *SessionInput) (*huma.StreamResponse, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	return h.Stream(func(sse humastar.SSE) {
		notices := s.Map.Events().Subscribe()
		defer s.Map.Events().Unsubscribe(notices)
		s.start(h.Log())

		for {
			flush(sse, s)
			select {
			case <-ctx.Done():
				return
			case <-s.ctx.Done():
				return
			case <-s.Remote.Notify():
			case <-s.out.Notify():
			case n, ok := <-notices:
				if !ok {
					return
				}
				sse.Dispatch(n.Name.Qualified(), map[string]any{"canceled": n.Canceled})
			}
		}
	}), nil
}

// flush writes the queued map commands and page ops.
func flush(sse humastar.SSE, s *Session) {
	for _, cmd := range s.Remote.Drain() {
		sse.Dispatch(CommandEvent, cmd)
	}
	for _, op := range s.out.Drain() {
		switch op.Kind {
		case OpPatch:
			sse.Patch(op.HTML, op.Selector)
		case OpAlert:
			sse.Error(op.Message)
		case OpScroll:
			sse.Dispatch(ScrollEvent, map[string]any{"selector": op.Selector})
		case OpEvent:
			sse.Dispatch(op.Name, op.Payload)
		}
	}
}

func (h *Handler) Ready(ctx context.Context, in *SessionInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	s.Remote.MarkReady()
	return &struct{}{}, nil
}

func (h *Handler) MarkerClick(ctx context.Context, in *ItemInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	var ok bool
	s.Map.Do(func(*locator.Map) { ok = s.Remote.Click(in.ID) })
	if !ok {
		return nil, huma.Error404NotFound("marker not found")
	}
	return &struct{}{}, nil
}

func (h *Handler) TooltipClosed(ctx context.Context, in *SessionInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	s.Map.Do(func(*locator.Map) { s.Remote.TooltipClosed() })
	return &struct{}{}, nil
}

func (h *Handler) ClosePopups(ctx context.Context, in *SessionInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	s.Map.Do(func(m *locator.Map) { m.ClosePopups() })
	return &struct{}{}, nil
}

func listTarget(in *ActionInput) (locator.ListTarget, error) {
	signals, err := in.signals()
	if err != nil {
		return locator.ListTarget{}, err
	}
	return locator.ListTarget{ID: signals.String("location"), InAnchor: signals.Bool("anchor")}, nil
}

func (h *Handler) ListClick(ctx context.Context, in *ActionInput) (*struct{}, error) {
	return h.onList(in, (*locator.Map).ListClick)
}

func (h *Handler) ListHover(ctx context.Context, in *ActionInput) (*struct{}, error) {
	return h.onList(in, (*locator.Map).ListHover)
}

func (h *Handler) ListLeave(ctx context.Context, in *ActionInput) (*struct{}, error) {
	return h.onList(in, (*locator.Map).ListHoverOut)
}

func (h *Handler) onList(in *ActionInput, fn func(*locator.Map, locator.ListTarget)) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	t, err := listTarget(in)
	if err != nil {
		return nil, err
	}
	s.Map.Do(func(m *locator.Map) { fn(m, t) })
	return &struct{}{}, nil
}

// Search submits the search form. Failures were already shown to the user.
func (h *Handler) Search(ctx context.Context, in *ActionInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	signals, err := in.signals()
	if err != nil {
		return nil, err
	}
	if err := s.Map.SubmitSearch(ctx, signals.String("search")); err != nil {
		h.Log().Warn("search failed", zap.String("session", s.ID), zap.Error(err))
	}
	return &struct{}{}, nil
}

// Autocomplete answers a keystroke with the suggestion list.
func (h *Handler) Autocomplete(ctx context.Context, in *ActionInput) (*huma.StreamResponse, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	d, ok := s.Map.AutocompleteProvider().(*autocomplete.Debounced)
	if !ok {
		return nil, huma.Error404NotFound("autocomplete not enabled")
	}
	signals, err := in.signals()
	if err != nil {
		return nil, err
	}
	input := signals.String("search")
	s.Map.Do(func(m *locator.Map) { m.SetSearchValue(input) })

	results, err := d.Query(ctx, input)
	if errors.Is(err, autocomplete.ErrSuperseded) {
		return h.Stream(func(humastar.SSE) {}), nil
	}
	if err != nil {
		return nil, huma.Error502BadGateway("autocomplete failed", err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(suggestionsHTML(s.ID, results), SuggestionsSelector)
	}), nil
}

func suggestionsHTML(session string, results []search.AutocompleteResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, `<li><button type="button" data-on:click="@post('%s/%s/autocomplete/%d')">%s</button></li>`,
			BasePath, session, i, template.HTMLEscapeString(r.Title))
	}
	return b.String()
}

func (h *Handler) SelectSuggestion(ctx context.Context, in *IndexInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	d, ok := s.Map.AutocompleteProvider().(*autocomplete.Debounced)
	if !ok {
		return nil, huma.Error404NotFound("autocomplete not enabled")
	}
	if !d.Select(in.Index) {
		return nil, huma.Error404NotFound("suggestion not found")
	}
	return &struct{}{}, nil
}

// Geolocate asks the browser for its position. The answer arrives on the
// position endpoint, so the lookup runs in the background.
func (h *Handler) Geolocate(ctx context.Context, in *SessionInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	go func() {
		if _, err := s.Map.Geolocate(s.ctx); err != nil {
			h.Log().Debug("geolocation failed", zap.String("session", s.ID), zap.Error(err))
		}
	}()
	return &struct{}{}, nil
}

// Position receives the browser's geolocation answer.
func (h *Handler) Position(ctx context.Context, in *ActionInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	signals, err := in.signals()
	if err != nil {
		return nil, err
	}
	var (
		pos    geo.Position
		reason error
	)
	if msg := signals.String("error"); msg != "" {
		reason = errors.New(msg)
	} else {
		pos = geo.Position{Latitude: signals.Float("latitude"), Longitude: signals.Float("longitude")}
		if !pos.Valid() {
			return nil, huma.Error422UnprocessableEntity("invalid position")
		}
	}
	if !s.geo.Resolve(pos, reason) {
		return nil, huma.Error409Conflict("no geolocation pending")
	}
	return &struct{}{}, nil
}

func (h *Handler) Filters(ctx context.Context, in *ActionInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	signals, err := in.signals()
	if err != nil {
		return nil, err
	}
	filters := signals.Strings("filters")
	if filters == nil {
		filters = []string{}
	}
	s.Map.Do(func(m *locator.Map) { m.SetFilters(filters) })
	return &struct{}{}, nil
}

func (h *Handler) Page(ctx context.Context, in *PageInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	var ok bool
	s.Map.Do(func(m *locator.Map) { ok = m.SetPage(in.Page) })
	if !ok {
		return nil, huma.Error404NotFound("pagination not enabled")
	}
	return &struct{}{}, nil
}

func (h *Handler) OpenLocation(ctx context.Context, in *ItemInput) (*struct{}, error) {
	s, err := h.session(in.Session)
	if err != nil {
		return nil, err
	}
	var ok bool
	s.Map.Do(func(m *locator.Map) { ok = m.OpenLocation(in.ID) })
	if !ok {
		return nil, huma.Error404NotFound("location not found")
	}
	return &struct{}{}, nil
}
