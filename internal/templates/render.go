package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"
)

// PageDelimiters are the action delimiters of host pages. They differ from
// the placeholder delimiters so item templates pass through untouched.
var PageDelimiters = Delimiters{Open: "{%", Close: "%}"}

var pageFuncs = template.FuncMap{
	// json renders a value for a data-settings attribute.
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Renderer executes host pages: the documents carrying a locator container
// and its item templates.
type Renderer struct {
	dir string

	mu    sync.RWMutex
	pages *template.Template
}

// New parses every *.html page of dir.
func New(dir string) (*Renderer, error) {
	pages, err := parsePages(dir)
	if err != nil {
		return nil, err
	}
	return &Renderer{dir: dir, pages: pages}, nil
}

func parsePages(dir string) (*template.Template, error) {
	pages, err := template.New("").
		Delims(PageDelimiters.Open, PageDelimiters.Close).
		Funcs(pageFuncs).
		ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("parse host pages in %s: %w", dir, err)
	}
	return pages, nil
}

// Render executes the page called name.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	pages := r.pages
	r.mu.RUnlock()

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Has reports whether a page called name exists.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pages.Lookup(name) != nil
}

// Reload parses the pages again; a failed parse keeps the current set.
func (r *Renderer) Reload() error {
	pages, err := parsePages(r.dir)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.pages = pages
	r.mu.Unlock()
	return nil
}
