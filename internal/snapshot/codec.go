// Package snapshot converts catalogs to and from the interchange document
// used for export, import and remote sync. Decoding migrates old documents,
// validates every record and reports what it dropped or changed.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

// SchemaError reports a document that cannot be imported at all.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "invalid snapshot: " + e.Reason
}

// Unwrap lets callers test for types.ErrSchema.
func (e *SchemaError) Unwrap() error {
	return types.ErrSchema
}

func schemaErr(format string, args ...any) error {
	return &SchemaError{Reason: fmt.Sprintf(format, args...)}
}

// Warning describes a record that was dropped or adjusted while decoding.
// Index is the position in the source array, or -1 for document-level notes.
type Warning struct {
	Index   int
	ItemID  string
	Message string
}

func (w Warning) String() string {
	switch {
	case w.Index < 0:
		return w.Message
	case w.ItemID != "":
		return fmt.Sprintf("item %d (%s): %s", w.Index, w.ItemID, w.Message)
	default:
		return fmt.Sprintf("item %d: %s", w.Index, w.Message)
	}
}

// Result is a decoded document plus the warnings collected on the way.
type Result struct {
	Snapshot types.Snapshot
	Warnings []Warning
}

// Serialize builds a snapshot of the given state stamped with now.
// Items and categories are copied.
func Serialize(items []types.Item, categories []types.Category, aux json.RawMessage, now time.Time) types.Snapshot {
	snap := types.Snapshot{
		Items:         make([]types.Item, len(items)),
		Categories:    make([]types.Category, len(categories)),
		ExportedAt:    now,
		SchemaVersion: types.SnapshotVersion,
	}
	for i, it := range items {
		snap.Items[i] = it.Clone()
	}
	copy(snap.Categories, categories)
	if len(aux) > 0 {
		snap.AuxiliaryConfig = append(json.RawMessage(nil), aux...)
	}
	return snap
}

// Encode renders snap as indented JSON.
func Encode(snap types.Snapshot) ([]byte, error) {
	if snap.Items == nil {
		snap.Items = []types.Item{}
	}
	if snap.Categories == nil {
		snap.Categories = []types.Category{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Option configures decoding.
type Option func(*decoder)

// WithClock sets the time source used when a document carries no export date.
func WithClock(now func() time.Time) Option {
	return func(d *decoder) { d.now = now }
}

type decoder struct {
	now      func() time.Time
	warnings []Warning
}

func newDecoder(opts []Option) *decoder {
	d := &decoder{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *decoder) warn(index int, id, format string, args ...any) {
	d.warnings = append(d.warnings, Warning{Index: index, ItemID: id, Message: fmt.Sprintf(format, args...)})
}

// Deserialize parses, migrates and validates an interchange document.
// Invalid items are dropped with a warning; a document with no valid items
// fails with a *SchemaError.
func Deserialize(raw []byte, opts ...Option) (*Result, error) {
	d := newDecoder(opts)

	var v any
	if err := unmarshal(raw, &v); err != nil {
		return nil, schemaErr("malformed JSON: %v", err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, schemaErr("document is not a JSON object")
	}

	exportedAt, ok := coerceTime(doc["exportDate"])
	if !ok {
		exportedAt = d.now().UTC()
	}

	version, _ := doc["version"].(string)
	if version == "" {
		d.warn(-1, "", "document has no version, treating it as legacy")
	} else if compareVersions(version, types.SnapshotVersion) > 0 {
		d.warn(-1, "", "document version %s is newer than %s", version, types.SnapshotVersion)
	}

	rawItems, ok := doc["memes"]
	if !ok {
		rawItems, ok = doc["items"]
	}
	if !ok {
		return nil, schemaErr("missing memes array")
	}
	list, ok := rawItems.([]any)
	if !ok {
		return nil, schemaErr("memes must be an array")
	}

	categories, err := d.decodeCategories(doc["categories"], exportedAt)
	if err != nil {
		return nil, err
	}

	items := d.decodeItems(list, exportedAt)
	if len(items) == 0 {
		return nil, schemaErr("no valid items")
	}

	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	for i := range items {
		if !known[items[i].CategoryID] {
			d.warn(-1, items[i].ID, "item %s: unknown category %q moved to %s", items[i].ID, items[i].CategoryID, types.DefaultCategoryID)
			items[i].CategoryID = types.DefaultCategoryID
		}
	}

	var aux json.RawMessage
	switch x := doc["llmConfigs"].(type) {
	case nil:
	case map[string]any:
		aux, err = json.Marshal(x)
		if err != nil {
			return nil, schemaErr("llmConfigs: %v", err)
		}
	default:
		d.warn(-1, "", "llmConfigs is not an object, dropped")
	}

	if version == "" {
		version = "1.0"
	}
	return &Result{
		Snapshot: types.Snapshot{
			Items:           items,
			Categories:      categories,
			AuxiliaryConfig: aux,
			ExportedAt:      exportedAt,
			SchemaVersion:   version,
		},
		Warnings: d.warnings,
	}, nil
}

// DecodeItems migrates and validates a locally persisted items array.
// An empty array is legal here. Category references are left as stored.
func DecodeItems(raw []byte, fallback time.Time) ([]types.Item, []Warning, error) {
	d := newDecoder(nil)
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, nil
	}
	var v any
	if err := unmarshal(raw, &v); err != nil {
		return nil, nil, schemaErr("malformed JSON: %v", err)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, nil, schemaErr("items blob is not an array")
	}
	return d.decodeItems(list, fallback), d.warnings, nil
}

func unmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func (d *decoder) decodeItems(list []any, fallback time.Time) []types.Item {
	items := make([]types.Item, 0, len(list))
	seen := make(map[string]bool, len(list))
	for i, el := range list {
		rec, ok := el.(map[string]any)
		if !ok {
			d.warn(i, "", "not an object, dropped")
			continue
		}
		Migrate(rec)

		it, reason := d.decodeItem(i, rec, fallback)
		if reason != "" {
			d.warn(i, it.ID, "%s, dropped", reason)
			continue
		}
		if seen[it.ID] {
			d.warn(i, it.ID, "duplicate id, dropped")
			continue
		}
		seen[it.ID] = true
		items = append(items, it)
	}
	return items
}

// decodeItem converts one migrated record. A non-empty reason means the
// record is unusable.
func (d *decoder) decodeItem(i int, rec map[string]any, fallback time.Time) (types.Item, string) {
	it := types.Item{
		ID:         idString(rec["id"]),
		Filename:   str(rec["filename"]),
		AssetURL:   str(rec["imageUrl"]),
		CategoryID: str(rec["category"]),
	}
	switch {
	case it.ID == "":
		return it, "missing id"
	case it.Filename == "":
		return it, "missing filename"
	case it.AssetURL == "":
		return it, "missing imageUrl"
	case it.CategoryID == "":
		return it, "missing category"
	}

	it.ThumbnailURL = str(rec["thumbnailUrl"])
	it.ExtractedText = str(rec["ocrText"])
	it.Description = str(rec["aiDescription"])
	it.Format = str(rec["format"])
	it.ExternalAssetID = str(rec["cloudinaryId"])
	it.Width = int(num(rec["width"]))
	it.Height = int(num(rec["height"]))

	if created, ok := coerceTime(rec["uploadDate"]); ok {
		it.CreatedAt = created
	} else {
		d.warn(i, it.ID, "invalid uploadDate, using %s", fallback.Format(time.RFC3339))
		it.CreatedAt = fallback
	}

	if size := num(rec["fileSize"]); size < 0 {
		d.warn(i, it.ID, "negative fileSize clamped to 0")
	} else {
		it.ByteSize = size
	}

	it.IsDeleted, _ = rec["isDeleted"].(bool)
	if at, ok := coerceTime(rec["deletedAt"]); ok {
		it.DeletedAt = &at
	}
	it.NormalizeDeletion(fallback)
	return it, ""
}

func (d *decoder) decodeCategories(v any, fallback time.Time) ([]types.Category, error) {
	out := []types.Category{types.DefaultCategory(fallback)}
	if v == nil {
		return out, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, schemaErr("categories must be an array")
	}
	seen := map[string]bool{types.DefaultCategoryID: true}
	for i, el := range list {
		rec, ok := el.(map[string]any)
		if !ok {
			d.warn(-1, "", "category %d is not an object, dropped", i)
			continue
		}
		c := types.Category{
			ID:    idString(rec["id"]),
			Name:  strings.TrimSpace(str(rec["name"])),
			Color: str(rec["color"]),
			Icon:  str(rec["icon"]),
		}
		if c.ID == "" || c.Name == "" {
			d.warn(-1, "", "category %d lacks id or name, dropped", i)
			continue
		}
		if created, ok := coerceTime(rec["createdAt"]); ok {
			c.CreatedAt = created
		} else {
			c.CreatedAt = fallback
		}
		if c.ID == types.DefaultCategoryID {
			// Keep the document's rendering of default but pin it first.
			out[0] = fillCategory(c)
			continue
		}
		if seen[c.ID] {
			d.warn(-1, "", "category %s appears twice, dropped", c.ID)
			continue
		}
		seen[c.ID] = true
		out = append(out, fillCategory(c))
	}
	return out, nil
}

func fillCategory(c types.Category) types.Category {
	if c.Color == "" {
		c.Color = types.DefaultCategoryColor
	}
	if c.Icon == "" {
		c.Icon = types.DefaultCategoryIcon
	}
	return c
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// idString accepts string ids and the numeric ids older documents used.
func idString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	}
	return ""
}

func num(v any) int64 {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(x)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// compareVersions orders dotted numeric versions. Non-numeric parts
// compare as zero.
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
