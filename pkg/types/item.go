package types

import "time"

// Item is one cataloged image together with its derived text and category
// membership. JSON names follow the interchange document format.
type Item struct {
	ID              string     `json:"id"`                     // Opaque, unique, immutable.
	Filename        string     `json:"filename"`               // Original file name.
	AssetURL        string     `json:"imageUrl"`               // Hosted asset location.
	ThumbnailURL    string     `json:"thumbnailUrl,omitempty"` // Optional preview location.
	CategoryID      string     `json:"category"`               // Foreign key into the category registry.
	ExtractedText   string     `json:"ocrText"`                // OCR output, may be empty.
	Description     string     `json:"aiDescription"`          // Natural-language summary, may be empty.
	CreatedAt       time.Time  `json:"uploadDate"`             // Immutable upload time.
	ByteSize        int64      `json:"fileSize"`               // Non-negative.
	Width           int        `json:"width,omitempty"`
	Height          int        `json:"height,omitempty"`
	Format          string     `json:"format,omitempty"`
	ExternalAssetID string     `json:"cloudinaryId,omitempty"` // Handle held by the asset host.
	IsDeleted       bool       `json:"isDeleted"`
	DeletedAt       *time.Time `json:"deletedAt"` // Non-nil iff IsDeleted.
}

// Active reports whether the item is visible in default views.
func (it *Item) Active() bool {
	return !it.IsDeleted
}

// SoftDelete flags the item as deleted at the given time.
// Returns false if the item is already deleted.
func (it *Item) SoftDelete(at time.Time) bool {
	if it.IsDeleted {
		return false
	}
	it.IsDeleted = true
	it.DeletedAt = &at
	return true
}

// Restore clears the soft-delete flag.
// Returns false if the item is not currently deleted.
func (it *Item) Restore() bool {
	if !it.IsDeleted {
		return false
	}
	it.IsDeleted = false
	it.DeletedAt = nil
	return true
}

// NormalizeDeletion enforces the DeletedAt/IsDeleted pairing. A deleted item
// without a timestamp gets fallback; an active item loses any stale timestamp.
func (it *Item) NormalizeDeletion(fallback time.Time) {
	switch {
	case it.IsDeleted && it.DeletedAt == nil:
		it.DeletedAt = &fallback
	case !it.IsDeleted:
		it.DeletedAt = nil
	}
}

// Clone returns a deep copy so callers cannot alias store internals.
func (it Item) Clone() Item {
	if it.DeletedAt != nil {
		at := *it.DeletedAt
		it.DeletedAt = &at
	}
	return it
}

// ItemPatch carries the fields of a shallow update. Nil fields are left
// unchanged. ID and CreatedAt are immutable and therefore absent.
type ItemPatch struct {
	Filename        *string `json:"filename,omitempty"`
	AssetURL        *string `json:"imageUrl,omitempty"`
	ThumbnailURL    *string `json:"thumbnailUrl,omitempty"`
	CategoryID      *string `json:"category,omitempty"`
	ExtractedText   *string `json:"ocrText,omitempty"`
	Description     *string `json:"aiDescription,omitempty"`
	ByteSize        *int64  `json:"fileSize,omitempty"`
	Width           *int    `json:"width,omitempty"`
	Height          *int    `json:"height,omitempty"`
	Format          *string `json:"format,omitempty"`
	ExternalAssetID *string `json:"cloudinaryId,omitempty"`
}

// Apply merges the non-nil fields of p into it.
func (p ItemPatch) Apply(it *Item) {
	if p.Filename != nil {
		it.Filename = *p.Filename
	}
	if p.AssetURL != nil {
		it.AssetURL = *p.AssetURL
	}
	if p.ThumbnailURL != nil {
		it.ThumbnailURL = *p.ThumbnailURL
	}
	if p.CategoryID != nil {
		it.CategoryID = *p.CategoryID
	}
	if p.ExtractedText != nil {
		it.ExtractedText = *p.ExtractedText
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.ByteSize != nil && *p.ByteSize >= 0 {
		it.ByteSize = *p.ByteSize
	}
	if p.Width != nil {
		it.Width = *p.Width
	}
	if p.Height != nil {
		it.Height = *p.Height
	}
	if p.Format != nil {
		it.Format = *p.Format
	}
	if p.ExternalAssetID != nil {
		it.ExternalAssetID = *p.ExternalAssetID
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p == ItemPatch{}
}
