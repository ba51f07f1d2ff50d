package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemSoftDeleteRestore(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	it := Item{ID: "a", Filename: "cat.png"}

	require.True(t, it.Active())
	assert.True(t, it.SoftDelete(at))
	assert.True(t, it.IsDeleted)
	require.NotNil(t, it.DeletedAt)
	assert.Equal(t, at, *it.DeletedAt)

	// Deleting twice is a no-op.
	assert.False(t, it.SoftDelete(at.Add(time.Hour)))
	assert.Equal(t, at, *it.DeletedAt)

	assert.True(t, it.Restore())
	assert.False(t, it.IsDeleted)
	assert.Nil(t, it.DeletedAt)
	assert.False(t, it.Restore())
}

func TestItemNormalizeDeletion(t *testing.T) {
	fallback := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	deleted := Item{IsDeleted: true}
	deleted.NormalizeDeletion(fallback)
	require.NotNil(t, deleted.DeletedAt)
	assert.Equal(t, fallback, *deleted.DeletedAt)

	active := Item{DeletedAt: &fallback}
	active.NormalizeDeletion(fallback)
	assert.Nil(t, active.DeletedAt)
}

func TestItemCloneDoesNotAlias(t *testing.T) {
	at := time.Now()
	orig := Item{ID: "a", IsDeleted: true, DeletedAt: &at}
	cp := orig.Clone()
	later := at.Add(time.Hour)
	*cp.DeletedAt = later
	assert.Equal(t, at, *orig.DeletedAt)
}

func TestItemPatchApply(t *testing.T) {
	name := "dog.png"
	size := int64(-5)
	text := ""
	it := Item{ID: "a", Filename: "cat.png", ExtractedText: "meow", ByteSize: 10}

	ItemPatch{Filename: &name, ByteSize: &size, ExtractedText: &text}.Apply(&it)

	assert.Equal(t, "dog.png", it.Filename)
	assert.Equal(t, "", it.ExtractedText)
	assert.Equal(t, int64(10), it.ByteSize, "negative sizes are ignored")
	assert.True(t, ItemPatch{}.IsEmpty())
	assert.False(t, ItemPatch{Filename: &name}.IsEmpty())
}

func TestSortKeyAndViewModeValid(t *testing.T) {
	for _, k := range []SortKey{SortDateDesc, SortDateAsc, SortNameAsc, SortNameDesc, SortSizeDesc, SortSizeAsc} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, SortKey("random").Valid())
	assert.True(t, ViewCompact.Valid())
	assert.False(t, ViewMode("tiles").Valid())
	assert.True(t, ImportMerge.Valid())
	assert.False(t, ImportMode("append").Valid())
}
