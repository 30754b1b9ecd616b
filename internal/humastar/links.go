package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Links are the RFC 8288 Link header values of each operation path,
// derived from the OpenAPI document.
type Links struct {
	byPath map[string][]string
}

// LinkOptions tunes AutoLinks.
type LinkOptions struct {
	// Entry links to every collection and to the API description.
	Entry string
	// Search is advertised from every other collection with rel="search".
	Search string
	// SkipTags leaves out operations carrying one of these tags.
	SkipTags []string
}

// AutoLinks derives links between the registered operations:
//   - an item path /a/{id} and its parent collection /a link each other
//   - the entry links to each collection, which links back with rel="up"
//   - collections sharing a tag link to each other
//
// Call it once every route is registered.
func AutoLinks(api huma.API, opts LinkOptions) *Links {
	oapi := api.OpenAPI()
	l := &Links{byPath: map[string][]string{}}

	tags := map[string][]string{}
	var collections, items []string
	for p, pi := range oapi.Paths {
		t := tagsOf(pi)
		if overlaps(t, opts.SkipTags) {
			continue
		}
		tags[p] = t
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := tags[parent]; !ok {
			continue
		}
		l.add(item, parent, "collection")
		l.add(item, parent, "up")
		l.add(parent, item, "item")
	}

	for _, c := range collections {
		if opts.Entry != "" && c != opts.Entry {
			l.add(opts.Entry, c, relName(c))
			l.add(c, opts.Entry, "up")
		}
		if opts.Search != "" && c != opts.Search {
			l.add(c, opts.Search, "search")
		}
		for _, other := range collections {
			if other != c && overlaps(tags[c], tags[other]) {
				l.add(c, other, relName(other))
			}
		}
	}

	if opts.Entry != "" {
		l.add(opts.Entry, "/openapi.json", "service-desc")
		l.add(opts.Entry, "/docs", "service-doc")
	}

	for p, values := range l.byPath {
		if pi, ok := oapi.Paths[p]; ok {
			document(pi, values)
		}
	}
	return l
}

// For returns the Link header values of an operation path. Nil-safe.
func (l *Links) For(p string) []string {
	if l == nil {
		return nil
	}
	return l.byPath[p]
}

// Transformer appends the derived links to each response, plus a self link
// on item paths, page links from [Pager] bodies and [Actor] actions.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}
		self := ctx.URL().Path
		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, self))
		}
		switch body := v.(type) {
		case Pager:
			for _, link := range body.PaginationLinks(self) {
				ctx.AppendHeader("Link", link)
			}
		case Actor:
			for _, a := range body.Actions() {
				ctx.AppendHeader("Link", a.LinkHeader())
			}
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	v := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if !slices.Contains(l.byPath[from], v) {
		l.byPath[from] = append(l.byPath[from], v)
	}
}

func operations(pi *huma.PathItem) []*huma.Operation {
	ops := []*huma.Operation{}
	for _, op := range []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete} {
		if op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

func tagsOf(pi *huma.PathItem) []string {
	for _, op := range operations(pi) {
		if len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func overlaps(a, b []string) bool {
	return slices.ContainsFunc(a, func(t string) bool { return slices.Contains(b, t) })
}

// relName names a collection link after its last path segment.
func relName(p string) string {
	return path.Base(strings.TrimRight(p, "/"))
}

// document records the links on each operation's first 2xx response.
func document(pi *huma.PathItem, values []string) {
	for _, op := range operations(pi) {
		for code, resp := range op.Responses {
			if !strings.HasPrefix(code, "2") {
				continue
			}
			if resp.Links == nil {
				resp.Links = map[string]*huma.Link{}
			}
			for _, v := range values {
				href, rel, ok := splitLink(v)
				if ok {
					resp.Links[rel] = &huma.Link{OperationRef: href, Description: "Related: " + rel}
				}
			}
			break
		}
	}
}

// splitLink parses `<href>; rel="rel"`.
func splitLink(v string) (href, rel string, ok bool) {
	target, params, found := strings.Cut(v, ";")
	if !found {
		return "", "", false
	}
	rel, found = strings.CutPrefix(strings.TrimSpace(params), "rel=")
	if !found {
		return "", "", false
	}
	return strings.Trim(strings.TrimSpace(target), "<>"), strings.Trim(rel, `"`), true
}
