package domain

// Field constants for mapstructure and JSON standardization.
const (
	// KeyID is the argument carrying a backend row identifier in update/delete tools.
	KeyID = "id"

	// KeyLimit is the optional page size argument of list tools.
	KeyLimit = "limit"
)

// Collection names a locally cached resource collection.
type Collection string

const (
	CollectionTensions       Collection = "tensions"
	CollectionBaselineFields Collection = "baseline_fields"
	CollectionCalendarStatus Collection = "calendar_status"
)

// Collections lists every cacheable collection in refresh order.
var Collections = []Collection{
	CollectionTensions,
	CollectionBaselineFields,
	CollectionCalendarStatus,
}

// Valid reports whether c names a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionTensions, CollectionBaselineFields, CollectionCalendarStatus:
		return true
	}
	return false
}
