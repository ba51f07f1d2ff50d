package snapshot

import "github.com/mesh-intelligence/memeshelf/pkg/types"

// migrations upgrade one raw item record in place, oldest shape first. They
// run when a document or the local items blob is read, so query code only
// ever sees the current shape. The local blob carries no version, so each
// migration keys off the record's shape and leaves current records alone.
var migrations = []func(rec map[string]any){
	migrateTagsToCategory,
	migrateSoftDelete,
}

// migrateTagsToCategory moves tag-based records into the default category.
// Tags are no longer part of the model and are dropped.
func migrateTagsToCategory(rec map[string]any) {
	if _, hasTags := rec["tags"]; !hasTags {
		return
	}
	if c, ok := rec["category"].(string); !ok || c == "" {
		rec["category"] = types.DefaultCategoryID
	}
	delete(rec, "tags")
}

// migrateSoftDelete defaults the soft-delete fields on records written
// before soft delete existed.
func migrateSoftDelete(rec map[string]any) {
	if _, ok := rec["isDeleted"]; !ok {
		rec["isDeleted"] = false
	}
	if _, ok := rec["deletedAt"]; !ok {
		rec["deletedAt"] = nil
	}
}

// Migrate applies every migration to rec, in order.
func Migrate(rec map[string]any) {
	for _, apply := range migrations {
		apply(rec)
	}
}
