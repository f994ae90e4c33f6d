package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "model.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	run := createTestRun("file-run", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.LoadLatestRun(ctx)
	require.NoError(t, err)
	assertRunEqual(t, run, got)

	byID, err := store.LoadRun(ctx, "file-run")
	require.NoError(t, err)
	assert.Equal(t, "file-run", byID.ID)

	_, err = store.LoadRun(ctx, "other")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileStore_SaveReplacesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, createTestRun("first", time.Now())))
	require.NoError(t, store.SaveRun(ctx, createTestRun("second", time.Now())))

	got, err := store.LoadLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got.ID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")
}

func TestFileStore_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrEmptyString)

	missing, err := NewFileStore(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	_, err = missing.LoadLatestRun(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	badVersion := filepath.Join(dir, "version.json")
	require.NoError(t, os.WriteFile(badVersion, []byte(`{"version": 99, "run": null}`), 0600))
	store, err := NewFileStore(badVersion)
	require.NoError(t, err)
	_, err = store.LoadLatestRun(ctx)
	assert.ErrorIs(t, err, ErrInvalidRun)

	incomplete := filepath.Join(dir, "incomplete.json")
	require.NoError(t, os.WriteFile(incomplete, []byte(`{"version": 1, "run": {"ID": "x"}}`), 0600))
	store, err = NewFileStore(incomplete)
	require.NoError(t, err)
	_, err = store.LoadLatestRun(ctx)
	assert.ErrorIs(t, err, ErrIncompleteModel)

	run := createTestRun("bad", time.Now())
	run.Segmenter = nil
	assert.ErrorIs(t, store.SaveRun(ctx, run), ErrIncompleteModel)
}

func TestFileStore_RejectsEditedBundle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "model.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(ctx, createTestRun("edited", time.Now())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var b bundle
	require.NoError(t, json.Unmarshal(data, &b))
	b.Run.Segmenter.Centroids[1] = []float64{1}
	data, err = json.Marshal(b)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	_, err = store.LoadLatestRun(ctx)
	assert.ErrorIs(t, err, ErrInvalidRun)
	assert.ErrorIs(t, err, common.ErrShapeMismatch)
}
