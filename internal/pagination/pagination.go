// Package pagination splits the rendered location list into pages.
package pagination

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// DefaultPageSize is the number of list items per page.
const DefaultPageSize = 5

// ItemSelector matches rendered list items.
const ItemSelector = ".locations-list-inner > li"

// Parent exposes what a paginator needs from the locator.
type Parent interface {
	ListElement() *goquery.Selection
	FilteredCount() int
}

// Provider renders pagination controls.
type Provider interface {
	SetParent(p Parent)
	// Paginate re-renders controls for the current list. Calling it twice
	// without data changes yields the same markup.
	Paginate()
	// Clear removes pagination controls; safe when none exist.
	Clear()
}

// List hides items outside the current page and appends a ul.pagination
// control to the list element.
type List struct {
	parent   Parent
	pageSize int
	page     int
}

// NewList creates a paginator; a size below 1 uses DefaultPageSize.
func NewList(pageSize int) *List {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &List{pageSize: pageSize, page: 1}
}

func (l *List) SetParent(p Parent) { l.parent = p }

// Page returns the current page, starting at 1.
func (l *List) Page() int { return l.page }

// Pages returns the page count for the current filtered list.
func (l *List) Pages() int {
	if l.parent == nil {
		return 0
	}
	n := l.parent.FilteredCount()
	return (n + l.pageSize - 1) / l.pageSize
}

// SetPage moves to page p (clamped) and re-renders.
func (l *List) SetPage(p int) {
	l.page = p
	l.Paginate()
}

func (l *List) Paginate() {
	if l.parent == nil {
		return
	}
	list := l.parent.ListElement()
	if list == nil || list.Length() == 0 {
		return
	}
	l.Clear()

	pages := l.Pages()
	if l.page > pages {
		l.page = pages
	}
	if l.page < 1 {
		l.page = 1
	}
	if pages <= 1 {
		return
	}

	first := (l.page - 1) * l.pageSize
	list.Find(ItemSelector).Each(func(i int, s *goquery.Selection) {
		if i < first || i >= first+l.pageSize {
			s.SetAttr("hidden", "")
		}
	})

	html := `<ul class="pagination">`
	for p := 1; p <= pages; p++ {
		class := "page-item"
		if p == l.page {
			class += " active"
		}
		n := strconv.Itoa(p)
		html += `<li class="` + class + `"><a href="#" data-page="` + n + `">` + n + `</a></li>`
	}
	html += `</ul>`
	list.AppendHtml(html)
}

func (l *List) Clear() {
	if l.parent == nil {
		return
	}
	list := l.parent.ListElement()
	if list == nil {
		return
	}
	list.Find("ul.pagination").Remove()
	list.Find(ItemSelector).RemoveAttr("hidden")
}
