package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single geocoding request.
const DefaultTimeout = 10 * time.Second

// Option configures an HTTP search client.
type Option func(*client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *client) { c.httpClient = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *client) { c.logger = l }
}

type client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
	latest     Latest
}

func newClient(baseURL string, opts []Option) client {
	c := client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    baseURL,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c *client) AutocompleteData() []AutocompleteResult {
	return c.latest.Autocomplete()
}

// getJSON performs a GET and decodes a JSON body into out.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	c.logger.Debug("calling geocoder", zap.String("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("geocoder request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("geocoder returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	return nil
}

// track runs a search call under the last-call-wins holder.
func (c *client) track(fn func() ([]Result, error)) ([]Result, error) {
	seq := c.latest.Begin()
	results, err := fn()
	if err != nil {
		c.latest.Commit(seq, nil)
		return nil, err
	}
	if results == nil {
		results = []Result{}
	}
	c.latest.Commit(seq, results)
	return results, nil
}
