package templates

import (
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DetachedTTL is how long a cached template whose element left the document
// is still served.
const DetachedTTL = 60 * time.Second

type cached struct {
	html string
	node *html.Node
	at   time.Time
}

// Library looks up template markup by CSS selector inside a document and
// caches the inner HTML per selector.
type Library struct {
	mu    sync.Mutex
	root  *goquery.Selection
	cache map[string]cached
	now   func() time.Time
}

// NewLibrary creates a library searching below root.
func NewLibrary(root *goquery.Selection) *Library {
	return &Library{
		root:  root,
		cache: make(map[string]cached),
		now:   time.Now,
	}
}

// SetClock replaces the time source.
func (l *Library) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// HTMLBySelector returns the inner HTML of the first element matching
// selector. Entries for elements still attached to the document never
// expire; detached ones are re-queried once older than DetachedTTL.
func (l *Library) HTMLBySelector(selector string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.cache[selector]; ok {
		if Connected(c.node) || l.now().Sub(c.at) <= DetachedTTL {
			return c.html, true
		}
		delete(l.cache, selector)
	}

	sel := l.root.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	var markup string
	if goquery.NodeName(sel) == "script" {
		// raw text content, must not be entity-escaped
		markup = sel.Text()
	} else {
		var err error
		if markup, err = sel.Html(); err != nil {
			return "", false
		}
	}
	l.cache[selector] = cached{html: markup, node: sel.Get(0), at: l.now()}
	return markup, true
}

// Resolve tries each selector in order and returns the first hit together
// with the selector that matched.
func (l *Library) Resolve(selectors ...string) (markup, selector string, ok bool) {
	for _, s := range selectors {
		if s == "" {
			continue
		}
		if markup, ok := l.HTMLBySelector(s); ok {
			return markup, s, true
		}
	}
	return "", "", false
}

// Clear drops every cached entry.
func (l *Library) Clear() {
	l.mu.Lock()
	l.cache = make(map[string]cached)
	l.mu.Unlock()
}

// Len reports the number of cached selectors.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

// Connected reports whether n is still reachable from a document node.
func Connected(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type == html.DocumentNode {
			return true
		}
	}
	return false
}
