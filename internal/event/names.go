package event

// Events emitted by the locator controller.
const (
	Initializing               Name = "initializing"
	Initialized                Name = "initialized"
	ParseLocations             Name = "parseLocations"
	AppliedFilters             Name = "appliedFilters"
	UpdatedLocations           Name = "updatedLocations"
	UpdatedLocationListContent Name = "updatedLocationListContent"
	UpdatedLocationsCount      Name = "updatedLocationsCount"
	Search                     Name = "search"
	UpdatingFromSearch         Name = "updatingFromSearch"
	UpdatedFromSearch          Name = "updatedFromSearch"
	Geolocated                 Name = "geolocated"
	GeolocationFailed          Name = "geolocationFailed"
	ShowPopup                  Name = "showPopup"
	ShowPopupOnMap             Name = "showPopupOnMap"
	ShowPopupOutsideMap        Name = "showPopupOutsideMap"
	ListClick                  Name = "listClick"
	ListHover                  Name = "listHover"
	UpdatedMapPosition         Name = "updatedMapPosition"
	ReplaceHTMLPlaceholders    Name = "replaceHTMLPlaceholders"
	GenerateLocationHTML       Name = "generateLocationHTML"
	GenerateLocationPopupHTML  Name = "generateLocationPopupHTML"
	UpdatingContent            Name = "updatingContent"
	UpdatedContent             Name = "updatedContent"
	ClosedPopup                Name = "closedPopup"
)
