package types

import "time"

// DefaultCategoryID is the id of the protected category that always exists
// and absorbs items whose category can no longer be resolved.
const DefaultCategoryID = "default"

// Default category presentation.
const (
	DefaultCategoryName  = "默认"
	DefaultCategoryColor = "#64748b"
	DefaultCategoryIcon  = "📂"
	DefaultNewIcon       = "📁"
)

// CategoryPalette lists the colors assigned to new categories created
// without an explicit color.
var CategoryPalette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308",
	"#84cc16", "#22c55e", "#10b981", "#14b8a6",
	"#06b6d4", "#0ea5e9", "#3b82f6", "#6366f1",
	"#8b5cf6", "#a855f7", "#d946ef", "#ec4899",
	"#f43f5e", "#64748b", "#6b7280", "#71717a",
}

// Category is a user-defined grouping of items.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"` // Non-empty after trimming.
	CreatedAt time.Time `json:"createdAt"`
	Color     string    `json:"color,omitempty"`
	Icon      string    `json:"icon,omitempty"`
}

// DefaultCategory returns a fresh copy of the protected default category.
func DefaultCategory(createdAt time.Time) Category {
	return Category{
		ID:        DefaultCategoryID,
		Name:      DefaultCategoryName,
		CreatedAt: createdAt,
		Color:     DefaultCategoryColor,
		Icon:      DefaultCategoryIcon,
	}
}

// CategoryUpdate carries the mutable fields of a rename. Nil fields are kept.
type CategoryUpdate struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}
