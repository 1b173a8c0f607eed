package domain

// ContentType identifies one synchronized stream of ChMS records. Each
// content type has its own field mapping, snapshot partition, and run lock.
type ContentType string

const (
	ContentTypeEvents    ContentType = "events"
	ContentTypeGroups    ContentType = "groups"
	ContentTypeLocations ContentType = "locations"
)

// AllContentTypes lists every stream the service knows how to sync.
var AllContentTypes = []ContentType{ContentTypeEvents, ContentTypeGroups, ContentTypeLocations}

// Valid reports whether ct is a known content type.
func (ct ContentType) Valid() bool {
	switch ct {
	case ContentTypeEvents, ContentTypeGroups, ContentTypeLocations:
		return true
	}
	return false
}

func (ct ContentType) String() string { return string(ct) }
