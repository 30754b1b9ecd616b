// Package humastar connects Huma operations to Datastar server-sent events.
//
// Widget handlers embed [Handler] and answer with [Handler.Stream]; the
// callback receives an [SSE] that patches page regions, raises the error
// signal or dispatches browser events. Request signals are read through
// [SignalsInput].
//
//	func (h *WidgetHandler) Search(ctx context.Context, in *humastar.SignalsInput) (*huma.StreamResponse, error) {
//	    signals, err := in.MustParse()
//	    if err != nil {
//	        return nil, err
//	    }
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Patch(resultsHTML(signals.String("search")), "[data-location-suggestions]")
//	    }), nil
//	}
package humastar

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

// Handler is embedded by Huma handlers that stream Datastar events.
type Handler struct {
	Logger *zap.Logger
}

// Stream wraps fn in a Huma streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			fn(NewSSE(ctx))
		},
	}
}

// Log returns the handler logger, never nil.
func (h *Handler) Log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// SSE is a Datastar event writer bound to one streaming request.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE opens the event stream of a humago request.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch morphs html into the children of the elements matching selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Error sets the page's error signal, which the host page shows as a notice.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Dispatch fires a DOM CustomEvent named name on the document with payload
// as its detail. Browser map kits listen for these.
func (s SSE) Dispatch(name string, payload any) {
	s.DispatchCustomEvent(name, payload)
}

// Signals is the flat JSON object Datastar posts with every action.
type Signals map[string]any

// ParseSignals decodes a request body; an empty body has no signals.
func ParseSignals(body []byte) (Signals, error) {
	signals := Signals{}
	if len(body) == 0 {
		return signals, nil
	}
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns the signal as a string, or "" when missing or not a string.
func (s Signals) String(key string) string {
	str, _ := s[key].(string)
	return str
}

// Float returns a numeric signal, or 0.
func (s Signals) Float(key string) float64 {
	f, _ := s[key].(float64)
	return f
}

// Bool returns a boolean signal, or false.
func (s Signals) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// Strings returns the string items of a list signal. Nil when the key is
// missing or not a list.
func (s Signals) Strings(key string) []string {
	list, ok := s[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// EmptyInput is the input of operations without parameters.
type EmptyInput struct{}

// SignalsInput carries the raw Datastar signals body.
type SignalsInput struct {
	RawBody []byte
}

// MustParse parses the signals, answering 400 on malformed JSON.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid signals: " + err.Error())
	}
	return signals, nil
}
