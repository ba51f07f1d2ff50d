package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/memeshelf/internal/snapshot"
	"github.com/mesh-intelligence/memeshelf/pkg/types"
)

const threeItemDoc = `{
	"version": "1.2",
	"exportDate": "2025-05-01T00:00:00Z",
	"categories": [{"id":"c1","name":"Cats","color":"#f00","icon":"🐱"}],
	"llmConfigs": {"provider":"gemini"},
	"memes": [
		{"id":"1","filename":"a.png","imageUrl":"u1","category":"c1","uploadDate":"2025-04-01T00:00:00Z","fileSize":5},
		{"id":"2","filename":"b.png","imageUrl":"u2","category":"default","uploadDate":"2025-04-02T00:00:00Z","fileSize":7},
		{"id":"3","imageUrl":"u3","category":"default","uploadDate":"2025-04-03T00:00:00Z"}
	]
}`

func TestImportDropsInvalidItemWithWarning(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Add(item("local", "local.png", 0, 1)))

	res, err := f.store.ImportJSON([]byte(threeItemDoc), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.ImportOverwrite, res.Mode)
	assert.Equal(t, 2, res.Items)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, "missing filename")

	assert.Equal(t, 2, f.store.Len())
	assert.ElementsMatch(t, []string{"1", "2"}, ids(f.store.Query(all, "")))
	assert.True(t, f.reg.Contains("c1"))
	assert.JSONEq(t, `{"provider":"gemini"}`, string(f.store.AuxiliaryConfig()))
}

func TestImportSchemaErrorChangesNothing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Add(item("local", "local.png", 0, 1)))

	_, err := f.store.ImportJSON([]byte(`{"memes":[{"id":"x"}]}`), ImportOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSchema)
	assert.Equal(t, []string{"local"}, ids(f.store.Query(all, "")))
	assert.Len(t, f.reg.List(), 1)
}

func TestImportRejectsUnknownMode(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.ImportJSON([]byte(threeItemDoc), ImportOptions{Mode: "replace-ish"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestImportMergeKeepsLocalOnClash(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Add(item("1", "mine.png", 0, 1)))
	require.NoError(t, f.store.SetAuxiliaryConfig(json.RawMessage(`{"local":true}`)))

	var calls [][2]int
	res, err := f.store.ImportJSON([]byte(threeItemDoc), ImportOptions{
		Mode:     types.ImportMerge,
		Progress: func(done, total int) { calls = append(calls, [2]int{done, total}) },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Categories)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)

	mine, _ := f.store.Get("1")
	assert.Equal(t, "mine.png", mine.Filename)
	assert.Equal(t, 2, f.store.Len())
	assert.JSONEq(t, `{"local":true}`, string(f.store.AuxiliaryConfig()))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newFixture(t)
	cat, err := src.reg.Create("Cats", "#000000", "🐱")
	require.NoError(t, err)
	a := item("a", "a.png", time.Hour, 10)
	a.CategoryID = cat.ID
	a.ExtractedText = "hello"
	require.NoError(t, src.store.Add(a))
	require.NoError(t, src.store.Add(item("b", "b.png", 2*time.Hour, 20)))
	_, err = src.store.Remove("b")
	require.NoError(t, err)

	data, err := src.store.ExportJSON()
	require.NoError(t, err)

	dst := newFixture(t)
	res, err := dst.store.ImportJSON(data, ImportOptions{Mode: types.ImportOverwrite})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, src.store.Export().Items, dst.store.Export().Items)
	assert.Equal(t, src.reg.List(), dst.reg.List())
	assert.Equal(t, []string{"a"}, ids(dst.store.Query(types.Filter{Keyword: "hello"}, "")))
}

func TestImportSnapshotValue(t *testing.T) {
	f := newFixture(t)
	snap := snapshot.Serialize([]types.Item{item("a", "a.png", 0, 1)}, nil, nil, fixedNow)
	res, err := f.store.Import(snap, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Items)

	_, err = f.store.Import(snapshot.Serialize(nil, nil, nil, fixedNow), ImportOptions{})
	assert.ErrorIs(t, err, types.ErrSchema, "an empty snapshot has no valid items")
}
