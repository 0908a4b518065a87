package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0xpix/hei-datahub/internal/catalog"
	"github.com/0xpix/hei-datahub/internal/index"
	"github.com/0xpix/hei-datahub/pkg/schema"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	fsys, err := mem.NewFS()
	require.NoError(t, err)
	cat, err := catalog.NewStore(fsys, "catalog")
	require.NoError(t, err)

	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	e := New(cat, idx, schema.Default(), zap.NewNop(), 50*time.Millisecond)
	t.Cleanup(e.Close)
	return e
}

func record(id, name, description string) *catalog.Record {
	return &catalog.Record{
		ID:          id,
		Name:        name,
		Description: description,
		Format:      "netcdf",
		Tags:        []string{"climate"},
	}
}

func TestUpsertSearchDeleteFlow(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Upsert(record("era5", "ERA5", "climatology grid")))

	results, err := e.Search(context.Background(), "clim", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "era5", results[0].ID)

	got, err := e.Get("era5")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ERA5", got.Name)

	require.NoError(t, e.Delete("era5"))
	results, err = e.Search(context.Background(), "clim", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReindexFromCards(t *testing.T) {
	e := newTestEngine(t)

	// Cards written to the canonical store only; the index knows nothing.
	require.NoError(t, e.catalog.Save(record("a", "Alpha", "first")))
	require.NoError(t, e.catalog.Save(record("b", "Beta", "second")))

	count, errs := e.Reindex()
	assert.Equal(t, 2, count)
	assert.Empty(t, errs)

	results, err := e.Search(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSuggestFromLiveIndex(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Upsert(record("a", "Alpha", "x")))

	sug, err := e.Suggest("format:")
	require.NoError(t, err)
	require.NotNil(t, sug)
	assert.Equal(t, "format:netcdf", sug.Text)
}

func TestDebouncedSearchLastRequestWins(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Upsert(record("era5", "ERA5", "climatology grid")))

	var mu sync.Mutex
	var delivered []int

	for i, text := range []string{"c", "cl", "cli", "clim"} {
		i := i
		e.DebouncedSearch(text, 0, func(results []index.RankedResult, err error) {
			require.NoError(t, err)
			mu.Lock()
			delivered = append(delivered, i)
			mu.Unlock()
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3}, delivered, "only the last request may deliver")
}

func TestVerifyHealthy(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Upsert(record("a", "Alpha", "x")))
	assert.NoError(t, e.Verify())
}
