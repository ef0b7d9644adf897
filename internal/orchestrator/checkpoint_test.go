package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib823/sapforensics/internal/extract"
	"github.com/ib823/sapforensics/internal/orchestrator"
)

func sampleResult(id string) extract.Result {
	return extract.Result{
		ExtractorID: id,
		Payload: map[string]any{
			"headers": []extract.Row{
				{"OBJECTID": "0000000001", "TCODE": "VA01"},
			},
			"count": 1,
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := orchestrator.NewFileStore(dir)
	require.NoError(t, err)

	_, ok := store.Load("finance", orchestrator.SlotResult)
	assert.False(t, ok)

	saved := sampleResult("finance")
	require.NoError(t, store.Save("finance", orchestrator.SlotResult, saved))

	loaded, ok := store.Load("finance", orchestrator.SlotResult)
	require.True(t, ok)
	assert.Equal(t, saved, loaded)

	assert.True(t, store.Progress()["finance"].Complete)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := orchestrator.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save("finance", orchestrator.SlotResult, sampleResult("finance")))

	second, err := orchestrator.NewFileStore(dir)
	require.NoError(t, err)

	assert.True(t, second.Progress()["finance"].Complete)

	loaded, ok := second.Load("finance", orchestrator.SlotResult)
	require.True(t, ok)
	assert.Equal(t, "finance", loaded.ExtractorID)
}

func TestFileStoreReset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := orchestrator.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("finance", orchestrator.SlotResult, sampleResult("finance")))

	require.NoError(t, store.Reset())

	assert.Empty(t, store.Progress())

	// Reset also persists, so a reopen starts clean too.
	reopened, err := orchestrator.NewFileStore(dir)
	require.NoError(t, err)
	assert.Empty(t, reopened.Progress())
}

func TestFileStoreNonResultSlotNotComplete(t *testing.T) {
	t.Parallel()

	store, err := orchestrator.NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("finance", "partial_rows", sampleResult("finance")))

	assert.False(t, store.Progress()["finance"].Complete)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := orchestrator.NewMemoryStore()

	_, ok := store.Load("finance", orchestrator.SlotResult)
	assert.False(t, ok)

	saved := sampleResult("finance")
	require.NoError(t, store.Save("finance", orchestrator.SlotResult, saved))

	loaded, ok := store.Load("finance", orchestrator.SlotResult)
	require.True(t, ok)
	assert.Equal(t, saved, loaded)

	assert.True(t, store.Progress()["finance"].Complete)
	assert.False(t, store.Progress()["other"].Complete)
}
