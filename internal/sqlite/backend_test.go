package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

func attachTemp(t *testing.T, quota int64) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{
		Backend:    types.BackendSQLite,
		DataDir:    dir,
		QuotaBytes: quota,
	}))
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

func TestBackend_Attach(t *testing.T) {
	b, dir := attachTemp(t, 0)

	_, err := os.Stat(filepath.Join(dir, DBFileName))
	assert.NoError(t, err, "catalog.db should be created")

	err = b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	assert.ErrorIs(t, err, types.ErrAttached)
}

func TestBackend_AttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestBackend_Detach(t *testing.T) {
	b, _ := attachTemp(t, 0)

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should not error")

	_, err := b.Get(types.KeyItems)
	assert.ErrorIs(t, err, types.ErrDetached)
	assert.ErrorIs(t, b.Set(types.KeyItems, []byte("[]")), types.ErrDetached)
	assert.ErrorIs(t, b.Delete(types.KeyItems), types.ErrDetached)
}

func TestBackend_GetSetDelete(t *testing.T) {
	b, _ := attachTemp(t, 0)

	_, err := b.Get(types.KeyItems)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)

	require.NoError(t, b.Set(types.KeyItems, []byte(`[{"id":"1"}]`)))
	got, err := b.Get(types.KeyItems)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))

	require.NoError(t, b.Set(types.KeyItems, []byte(`[]`)))
	got, err = b.Get(types.KeyItems)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	require.NoError(t, b.Set(types.KeySettings, []byte(`{}`)))
	keys, err := b.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{types.KeySettings, types.KeyItems}, keys)

	require.NoError(t, b.Delete(types.KeyItems))
	require.NoError(t, b.Delete(types.KeyItems), "deleting a missing key succeeds")
	_, err = b.Get(types.KeyItems)
	assert.ErrorIs(t, err, types.ErrKeyNotFound)
}

func TestBackend_DataSurvivesReattach(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	require.NoError(t, b.Set(types.KeyCategories, []byte(`[{"id":"default"}]`)))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(cfg))
	defer b2.Detach()
	got, err := b2.Get(types.KeyCategories)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"default"}]`, string(got))
}

func TestBackend_Quota(t *testing.T) {
	b, _ := attachTemp(t, 16)

	require.NoError(t, b.Set(types.KeySettings, []byte("0123456789")))

	err := b.Set(types.KeyItems, []byte("0123456789"))
	assert.ErrorIs(t, err, types.ErrQuotaExceeded)
	_, err = b.Get(types.KeyItems)
	assert.ErrorIs(t, err, types.ErrKeyNotFound, "rejected write leaves nothing behind")

	// Replacing an existing key only counts the new value.
	require.NoError(t, b.Set(types.KeySettings, []byte("0123456789abcdef")))

	used, err := b.Usage()
	require.NoError(t, err)
	assert.Equal(t, int64(16), used)
}
