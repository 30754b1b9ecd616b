package templates

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultDelimiters wrap placeholder keys unless configured otherwise.
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// ErrInvalidDelimiters is returned for a delimiter setting that is not a pair
// of non-empty strings.
var ErrInvalidDelimiters = errors.New("template delimiters must be two non-empty strings")

// Delimiters is the placeholder token pair.
type Delimiters struct {
	Open  string
	Close string
}

// ParseDelimiters validates a [open, close] setting.
func ParseDelimiters(pair []string) (Delimiters, error) {
	if pair == nil {
		return DefaultDelimiters, nil
	}
	if len(pair) != 2 || pair[0] == "" || pair[1] == "" {
		return Delimiters{}, ErrInvalidDelimiters
	}
	return Delimiters{Open: pair[0], Close: pair[1]}, nil
}

// Substitute replaces every "{{ key }}" and "{{key}}" occurrence with the
// value of key. Keys are applied in sorted order so output is stable.
func Substitute(markup string, values map[string]string, d Delimiters) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*4)
	for _, k := range keys {
		v := values[k]
		pairs = append(pairs, d.Open+" "+k+" "+d.Close, v, d.Open+k+d.Close, v)
	}
	if len(pairs) == 0 {
		return markup
	}
	return strings.NewReplacer(pairs...).Replace(markup)
}

const (
	attrVisibleIf = "data-visible-if"
	attrHiddenIf  = "data-hidden-if"
)

func falsy(v string) bool {
	return v == "" || v == "0" || v == "false"
}

// Prune removes elements whose data-visible-if value is falsy ("", "0",
// "false") and elements whose data-hidden-if value is anything else.
// Markup without either attribute is returned untouched. On error the
// markup is returned as given along with the error.
func Prune(markup string) (string, error) {
	if !strings.Contains(markup, attrVisibleIf) && !strings.Contains(markup, attrHiddenIf) {
		return markup, nil
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return markup, fmt.Errorf("parse fragment: %w", err)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if removed(n) {
			continue
		}
		pruneChildren(n)
		if err := html.Render(&buf, n); err != nil {
			return markup, fmt.Errorf("render fragment: %w", err)
		}
	}
	return buf.String(), nil
}

func removed(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		switch a.Key {
		case attrVisibleIf:
			if falsy(a.Val) {
				return true
			}
		case attrHiddenIf:
			if !falsy(a.Val) {
				return true
			}
		}
	}
	return false
}

func pruneChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if removed(c) {
			n.RemoveChild(c)
		} else {
			pruneChildren(c)
		}
		c = next
	}
}
