package types

import "time"

// AllCategories selects every category in a Filter.
const AllCategories = "all"

// Filter narrows a catalog query.
type Filter struct {
	Category string `json:"category"` // AllCategories, empty, or a category id.
	Keyword  string `json:"keyword"`
	Deleted  bool   `json:"deleted"` // Select the trash view instead of active items.
}

// SortKey orders query results.
type SortKey string

// Recognized sort keys. Any other value leaves results unsorted.
const (
	SortDateDesc SortKey = "date-desc"
	SortDateAsc  SortKey = "date-asc"
	SortNameAsc  SortKey = "name-asc"
	SortNameDesc SortKey = "name-desc"
	SortSizeDesc SortKey = "size-desc"
	SortSizeAsc  SortKey = "size-asc"
)

var validSortKeys = map[SortKey]bool{
	SortDateDesc: true,
	SortDateAsc:  true,
	SortNameAsc:  true,
	SortNameDesc: true,
	SortSizeDesc: true,
	SortSizeAsc:  true,
}

// Valid reports whether k is a recognized sort key.
func (k SortKey) Valid() bool {
	return validSortKeys[k]
}

// ViewMode is the persisted presentation preference.
type ViewMode string

const (
	ViewGrid    ViewMode = "grid"
	ViewList    ViewMode = "list"
	ViewCompact ViewMode = "compact"
)

// Valid reports whether v is a known view mode.
func (v ViewMode) Valid() bool {
	return v == ViewGrid || v == ViewList || v == ViewCompact
}

// Settings is the persisted settings blob.
type Settings struct {
	SortBy   SortKey  `json:"sortBy"`
	ViewMode ViewMode `json:"viewMode"`
}

// DefaultSettings returns the settings used before any are saved.
func DefaultSettings() Settings {
	return Settings{SortBy: SortDateDesc, ViewMode: ViewGrid}
}

// Group is one category bucket of a grouped query.
type Group struct {
	Category Category `json:"category"`
	Items    []Item   `json:"items"`
}

// Statistics summarizes the catalog. Size and date aggregates cover active
// items only.
type Statistics struct {
	Total            int            `json:"total"`
	DeletedCount     int            `json:"deleted"`
	ByCategory       map[string]int `json:"byCategory"`
	TotalSize        int64          `json:"totalSize"`
	AverageSize      int64          `json:"averageSize"`
	MostRecentUpload *time.Time     `json:"mostRecentUpload"`
	OldestUpload     *time.Time     `json:"oldestUpload"`
}
