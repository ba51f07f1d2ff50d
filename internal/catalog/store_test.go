package catalog

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/memeshelf/internal/kvtest"
	"github.com/mesh-intelligence/memeshelf/internal/registry"
	"github.com/mesh-intelligence/memeshelf/internal/sqlite"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fixture struct {
	kv    *kvtest.Memory
	reg   *registry.Registry
	store *Store
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	kv := kvtest.NewMemory()
	reg := registry.New(kv, registry.WithClock(clock))
	t.Cleanup(reg.Close)
	require.NoError(t, reg.Load())

	opts = append([]Option{WithClock(clock)}, opts...)
	return &fixture{kv: kv, reg: reg, store: New(kv, reg, opts...)}
}

func item(id, filename string, age time.Duration, size int64) types.Item {
	return types.Item{
		ID:         id,
		Filename:   filename,
		AssetURL:   "https://assets.example/" + id,
		CategoryID: types.DefaultCategoryID,
		CreatedAt:  fixedNow.Add(-age),
		ByteSize:   size,
	}
}

func ids(items []types.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

var all = types.Filter{Category: types.AllCategories}

func TestAddRejectsEmptyID(t *testing.T) {
	f := newFixture(t)
	err := f.store.Add(item("  ", "x.png", 0, 1))
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Zero(t, f.store.Len())
}

func TestAddedItemsAreQueriedOnce(t *testing.T) {
	f := newFixture(t)
	want := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("m%d", i)
		require.NoError(t, f.store.Add(item(id, id+".png", time.Duration(i)*time.Minute, 1)))
		want = append(want, id)
	}
	assert.ElementsMatch(t, want, ids(f.store.Query(all, "")))
}

func TestAddNormalizesDeletion(t *testing.T) {
	f := newFixture(t)
	it := item("a", "a.png", 0, -5)
	it.IsDeleted = true
	require.NoError(t, f.store.Add(it))

	got, ok := f.store.Get("a")
	require.True(t, ok)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, fixedNow, *got.DeletedAt)
	assert.Zero(t, got.ByteSize)
}

func TestSoftDeleteRoundTrip(t *testing.T) {
	f := newFixture(t)
	before := item("a", "a.png", time.Hour, 42)
	require.NoError(t, f.store.Add(before))

	ok, err := f.store.Remove("a")
	require.NoError(t, err)
	assert.True(t, ok)
	deleted, _ := f.store.Get("a")
	assert.True(t, deleted.IsDeleted)
	assert.NotNil(t, deleted.DeletedAt)
	assert.Empty(t, f.store.Query(all, ""))
	assert.Equal(t, []string{"a"}, ids(f.store.Query(types.Filter{Deleted: true}, "")))

	ok, err = f.store.Remove("a")
	require.NoError(t, err)
	assert.False(t, ok, "already deleted")

	ok, err = f.store.Restore("a")
	require.NoError(t, err)
	assert.True(t, ok)
	after, _ := f.store.Get("a")
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"a"}, ids(f.store.Query(all, "")))

	ok, err = f.store.Restore("a")
	require.NoError(t, err)
	assert.False(t, ok, "not deleted")
}

func TestBulkDeleteAndRestoreCountChanges(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.store.Add(item(id, id, 0, 1)))
	}
	n, err := f.store.RemoveMany([]string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.store.RemoveMany([]string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.store.RestoreMany([]string{"a", "b", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPurgeIsTerminal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Add(item("a", "a.png", 0, 1)))
	require.NoError(t, f.store.Add(item("b", "b.png", 0, 1)))
	_, err := f.store.Remove("a")
	require.NoError(t, err)

	ok, err := f.store.Purge("a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.store.Restore("a")
	require.NoError(t, err)
	assert.False(t, ok)
	name := "renamed"
	ok, err = f.store.Update("a", types.ItemPatch{Filename: &name})
	require.NoError(t, err)
	assert.False(t, ok)
	_, found := f.store.Get("a")
	assert.False(t, found)
	assert.Equal(t, 1, f.store.Len())

	n, err := f.store.PurgeMany([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, f.store.Len())

	require.NoError(t, f.store.Add(item("a", "again.png", 0, 1)), "ids may be reused by the caller")
}

func TestUpdateKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	orig := item("a", "a.png", time.Hour, 1)
	require.NoError(t, f.store.Add(orig))

	text := "hello world"
	size := int64(-1)
	ok, err := f.store.Update("a", types.ItemPatch{ExtractedText: &text, ByteSize: &size})
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := f.store.Get("a")
	assert.Equal(t, "hello world", got.ExtractedText)
	assert.Equal(t, orig.CreatedAt, got.CreatedAt)
	assert.Equal(t, int64(1), got.ByteSize, "negative sizes are ignored")
	assert.Equal(t, []string{"a"}, ids(f.store.Query(types.Filter{Keyword: "hello world"}, "")), "index follows updates")
}

func TestRecategorizeAll(t *testing.T) {
	f := newFixture(t)
	cat, err := f.reg.Create("Cats", "", "")
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		it := item(id, id, 0, 1)
		it.CategoryID = cat.ID
		require.NoError(t, f.store.Add(it))
	}
	require.NoError(t, f.store.Add(item("d", "d", 0, 1)))
	_, err = f.store.Remove("c")
	require.NoError(t, err)

	n, err := f.store.RecategorizeAll(cat.ID, types.DefaultCategoryID)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "deleted items move too")
	for _, it := range f.store.Export().Items {
		assert.NotEqual(t, cat.ID, it.CategoryID)
	}

	n, err = f.store.RecategorizeAll(cat.ID, types.DefaultCategoryID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecategorizeSelectedFailsClosed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Add(item("a", "a", 0, 1)))
	require.NoError(t, f.store.Add(item("b", "b", 0, 1)))

	n, err := f.store.RecategorizeSelected([]string{"a"}, "nope")
	require.NoError(t, err)
	assert.Zero(t, n)
	got, _ := f.store.Get("a")
	assert.Equal(t, types.DefaultCategoryID, got.CategoryID)

	cat, err := f.reg.Create("Dogs", "", "")
	require.NoError(t, err)
	n, err = f.store.RecategorizeSelected([]string{"a", "missing"}, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _ = f.store.Get("a")
	assert.Equal(t, cat.ID, got.CategoryID)
}

func TestRecategorizeSelectedSkipsDeleted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Add(item("a", "a", 0, 1)))
	require.NoError(t, f.store.Add(item("b", "b", 0, 1)))
	_, err := f.store.Remove("b")
	require.NoError(t, err)
	cat, err := f.reg.Create("Dogs", "", "")
	require.NoError(t, err)

	n, err := f.store.RecategorizeSelected([]string{"a", "b"}, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := f.store.Get("a")
	assert.Equal(t, cat.ID, got.CategoryID)
	got, _ = f.store.Get("b")
	assert.Equal(t, types.DefaultCategoryID, got.CategoryID)
	assert.True(t, got.IsDeleted)
}

func TestDeleteCategory(t *testing.T) {
	f := newFixture(t)
	cats, err := f.reg.Create("Cats", "", "")
	require.NoError(t, err)
	dogs, err := f.reg.Create("Dogs", "", "")
	require.NoError(t, err)

	it := item("a", "a", 0, 1)
	it.CategoryID = cats.ID
	require.NoError(t, f.store.Add(it))

	tests := []struct {
		name, id, target string
	}{
		{"Default", types.DefaultCategoryID, cats.ID},
		{"Unknown", "nope", dogs.ID},
		{"DeadTarget", cats.ID, "nope"},
		{"SelfTarget", cats.ID, cats.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.DeleteCategory(tt.id, tt.target)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}

	n, err := f.store.DeleteCategory(cats.ID, dogs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, f.reg.Contains(cats.ID))
	got, _ := f.store.Get("a")
	assert.Equal(t, dogs.ID, got.CategoryID)
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	f := newFixture(t)
	f.kv.FailWrites(true)

	err := f.store.Add(item("a", "a.png", 0, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPersistence)
	assert.ErrorIs(t, err, types.ErrQuotaExceeded)
	assert.Equal(t, 1, f.store.Len())

	f.kv.FailWrites(false)
	ok, err := f.store.Remove("a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadRoundTripThroughSQLite(t *testing.T) {
	b := sqlite.NewBackend()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}
	require.NoError(t, b.Attach(cfg))
	t.Cleanup(func() { b.Detach() })

	reg := registry.New(b, registry.WithClock(clock))
	s := New(b, reg, WithClock(clock))
	require.NoError(t, s.Add(item("a", "a.png", time.Hour, 3)))
	require.NoError(t, s.SetSettings(types.Settings{SortBy: types.SortNameAsc, ViewMode: types.ViewList}))
	require.NoError(t, s.SetAuxiliaryConfig(json.RawMessage(`{"k":1}`)))
	_, err := s.Remove("a")
	require.NoError(t, err)

	reloaded := New(b, reg, WithClock(clock))
	warnings, err := reloaded.Load()
	require.NoError(t, err)
	assert.Empty(t, warnings)
	got, ok := reloaded.Get("a")
	require.True(t, ok)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, types.ViewList, reloaded.Settings().ViewMode)
	assert.JSONEq(t, `{"k":1}`, string(reloaded.AuxiliaryConfig()))
}

func TestLoadMigratesLegacyBlob(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.kv.Set(types.KeyItems, []byte(`[
		{"id":"1","filename":"old.png","imageUrl":"u","tags":["x"],"uploadDate":"2024-01-01T00:00:00Z"},
		{"id":"2","imageUrl":"u","category":"default"}
	]`)))
	require.NoError(t, f.kv.Set(types.KeySettings, []byte(`{"sortBy":"bogus","viewMode":"compact"}`)))

	warnings, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, warnings, 1)

	got, ok := f.store.Get("1")
	require.True(t, ok)
	assert.Equal(t, types.DefaultCategoryID, got.CategoryID)
	assert.False(t, got.IsDeleted)
	assert.Equal(t, types.Settings{SortBy: types.SortDateDesc, ViewMode: types.ViewCompact}, f.store.Settings())

	raw, err := f.kv.Get(types.KeyItems)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tags", "migrated blob is written back")
}

func TestLoadCorruptBlobStartsEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.kv.Set(types.KeyItems, []byte(`{broken`)))
	warnings, err := f.store.Load()
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Zero(t, f.store.Len())
}

func TestSettingsValidation(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, types.DefaultSettings(), f.store.Settings())
	assert.ErrorIs(t, f.store.SetSettings(types.Settings{SortBy: "weird", ViewMode: types.ViewGrid}), types.ErrValidation)
	assert.ErrorIs(t, f.store.SetSettings(types.Settings{SortBy: types.SortSizeAsc, ViewMode: "3d"}), types.ErrValidation)
	assert.ErrorIs(t, f.store.SetAuxiliaryConfig(json.RawMessage(`[1]`)), types.ErrValidation)

	require.NoError(t, f.store.SetAuxiliaryConfig(json.RawMessage(`{"a":true}`)))
	require.NoError(t, f.store.SetAuxiliaryConfig(nil))
	assert.Empty(t, f.store.AuxiliaryConfig())
	_, err := f.kv.Get(types.KeyAuxiliaryConfig)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
}
