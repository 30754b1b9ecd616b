package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joeblew999/plat-locator/internal/geo"
)

// DefaultGeolocateTimeout bounds how long a session waits for the browser
// to answer a geolocation request.
const DefaultGeolocateTimeout = 10 * time.Second

// ErrGeolocationTimeout is returned when the browser never reports back.
var ErrGeolocationTimeout = errors.New("browser did not report a position")

type fix struct {
	pos geo.Position
	err error
}

// browserGeolocator asks the page for navigator.geolocation and waits for
// the answer posted back to the position endpoint.
type browserGeolocator struct {
	out     *outbox
	timeout time.Duration

	mu      sync.Mutex
	waiting []chan fix
}

func newBrowserGeolocator(out *outbox, timeout time.Duration) *browserGeolocator {
	if timeout <= 0 {
		timeout = DefaultGeolocateTimeout
	}
	return &browserGeolocator{out: out, timeout: timeout}
}

func (g *browserGeolocator) Locate(ctx context.Context) (geo.Position, error) {
	ch := make(chan fix, 1)
	g.mu.Lock()
	g.waiting = append(g.waiting, ch)
	g.mu.Unlock()

	g.out.Send(GeolocateEvent, nil)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	select {
	case f := <-ch:
		return f.pos, f.err
	case <-ctx.Done():
		g.forget(ch)
		return geo.Position{}, fmt.Errorf("%w: %v", ErrGeolocationTimeout, ctx.Err())
	}
}

// Resolve answers every pending Locate call and reports whether any was
// waiting.
func (g *browserGeolocator) Resolve(pos geo.Position, err error) bool {
	g.mu.Lock()
	waiting := g.waiting
	g.waiting = nil
	g.mu.Unlock()

	for _, ch := range waiting {
		ch <- fix{pos: pos, err: err}
	}
	return len(waiting) > 0
}

func (g *browserGeolocator) forget(ch chan fix) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, w := range g.waiting {
		if w == ch {
			g.waiting = append(g.waiting[:i:i], g.waiting[i+1:]...)
			return
		}
	}
}
