package locator

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// DOM contract of the host page.
const (
	ContainerSelector  = "locations-map-container"
	TargetSelector     = "locations-map-target"
	ListSelector       = "locations-map-list"
	PopupSelector      = "locations-map-popup"
	SearchFormSelector = "[data-location-search]"
	SearchInputSel     = `input[type="search"]`
	GeolocateTrigger   = "[data-geolocate-trigger]"
	ClosePopupTrigger  = "[data-close-popup]"
	ItemSelector       = ".location-wrapper"

	DefaultTargetID = "locations-map-target"
	ListID          = "locations-list"
)

// ActionAttr marks elements whose clicks the page script posts to the
// session path held in the attribute.
const (
	ActionAttr        = "data-locator-action"
	ActionGeolocate   = "geolocate"
	ActionClosePopups = "popups/close"
)

var (
	ErrMissingContainer = errors.New("missing UI container for the locations map")
	ErrMissingMapTarget = errors.New("missing map target element")
)

// Container is the resolved DOM subtree a Map owns.
type Container struct {
	Root        *goquery.Selection
	Target      *goquery.Selection
	List        *goquery.Selection
	SearchForm  *goquery.Selection
	SearchInput *goquery.Selection
	Popups      *goquery.Selection

	// GeolocateTriggers ask for the browser position when clicked.
	GeolocateTriggers *goquery.Selection
}

// FindContainer resolves the container matching selector (the default
// element when empty) and its parts.
func FindContainer(doc *goquery.Document, selector string) (Container, error) {
	if selector == "" {
		selector = ContainerSelector
	}
	root := doc.Find(selector).First()
	if root.Length() == 0 {
		return Container{}, fmt.Errorf("%w: %s", ErrMissingContainer, selector)
	}
	return NewContainer(root)
}

// NewContainer resolves the parts below root.
func NewContainer(root *goquery.Selection) (Container, error) {
	if root == nil || root.Length() == 0 {
		return Container{}, ErrMissingContainer
	}
	c := Container{
		Root:       root,
		Target:     root.Find(TargetSelector).First(),
		List:       root.Find(ListSelector).First(),
		SearchForm: root.Find(SearchFormSelector).First(),
		Popups:     root.Find(PopupSelector),

		GeolocateTriggers: root.Find(GeolocateTrigger),
	}
	c.SearchInput = c.SearchForm.Find(SearchInputSel).First()
	return c, nil
}

// Settings returns the raw data-settings JSON.
func (c Container) Settings() []byte {
	v, ok := c.Root.Attr("data-settings")
	if !ok {
		return nil
	}
	return []byte(v)
}

// markActions tags the geolocate and close-popup triggers below s with
// their session action.
func markActions(s *goquery.Selection) {
	s.Find(GeolocateTrigger).SetAttr(ActionAttr, ActionGeolocate)
	s.Find(ClosePopupTrigger).SetAttr(ActionAttr, ActionClosePopups)
}

// HasList reports whether the host page provides a list element.
func (c Container) HasList() bool { return c.List.Length() > 0 }

// HasSearch reports whether a search form with an input exists.
func (c Container) HasSearch() bool {
	return c.SearchForm.Length() > 0 && c.SearchInput.Length() > 0
}

// ListTarget identifies the list item a pointer event landed on.
type ListTarget struct {
	// ID is the data-property of the closest .location-wrapper, or "".
	ID string
	// InAnchor is true when the event started inside a link.
	InAnchor bool
}

// ResolveListTarget walks up from the element an event originated on.
func ResolveListTarget(origin *goquery.Selection) ListTarget {
	wrapper := origin.Closest(ItemSelector)
	return ListTarget{
		ID:       wrapper.AttrOr("data-property", ""),
		InAnchor: origin.Closest("a").Length() > 0,
	}
}
