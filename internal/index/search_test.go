package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xpix/hei-datahub/internal/catalog"
	"github.com/0xpix/hei-datahub/pkg/query"
	"github.com/0xpix/hei-datahub/pkg/schema"
)

func search(t *testing.T, s *Store, text string) []RankedResult {
	t.Helper()
	p := query.NewParser(schema.Default())
	results, err := s.Search(context.Background(), p.Parse(text), 0)
	require.NoError(t, err)
	return results
}

func resultIDs(results []RankedResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func TestEmptyQueryBrowsesInIDOrder(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, s.Upsert(testRecord(id)))
	}

	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, resultIDs(search(t, s, "")))
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, resultIDs(search(t, s, "   ")))
}

func TestPrefixExpansion(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert(testRecord("era5"))) // description contains "climatology"

	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "clim")))
	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "climatology")))

	// Quoting disables prefix expansion.
	assert.Empty(t, search(t, s, `"clim"`))
	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, `"climatology"`)))
}

func TestPhraseRequiresExactSequence(t *testing.T) {
	s := newTestStore(t)

	a := testRecord("ordered")
	a.Description = "sea surface temperature fields"
	b := testRecord("scrambled")
	b.Description = "temperature at the sea bottom surface"
	require.NoError(t, s.Upsert(a))
	require.NoError(t, s.Upsert(b))

	assert.Equal(t, []string{"ordered"}, resultIDs(search(t, s, `"sea surface temperature"`)))
}

func TestNumericFilterScenario(t *testing.T) {
	s := newTestStore(t)

	sizes := map[string]int64{"small": 500_000, "medium": 2_000_000, "large": 10_000_000}
	for id, size := range sizes {
		rec := testRecord(id)
		rec.SizeBytes = size
		require.NoError(t, s.Upsert(rec))
	}

	got := resultIDs(search(t, s, "size:>1000000"))
	assert.ElementsMatch(t, []string{"medium", "large"}, got)

	assert.Equal(t, []string{"small"}, resultIDs(search(t, s, "size:<=500KB")))
	assert.Equal(t, []string{"medium"}, resultIDs(search(t, s, "size:2MB")))
}

func TestDateFilterScenario(t *testing.T) {
	s := newTestStore(t)

	rec := testRecord("era5")
	rec.DateCreated = "2025-03-15"
	require.NoError(t, s.Upsert(rec))

	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "created:2025-03")))
	assert.Empty(t, search(t, s, "created:2025-04"))
	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "created:2025")))
	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "created:>=2025-03-15")))
	assert.Empty(t, search(t, s, "created:>2025-03"))
	assert.Empty(t, search(t, s, "created:<2025"))
}

func TestTextFilterIsCaseInsensitiveContains(t *testing.T) {
	s := newTestStore(t)

	rec := testRecord("era5")
	rec.Source = "ECMWF Copernicus"
	require.NoError(t, s.Upsert(rec))

	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "source:ecmwf")))
	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "source:coperni")))
	assert.Empty(t, search(t, s, "source:noaa"))

	// Tag filters match within the flattened tag list.
	assert.Equal(t, []string{"era5"}, resultIDs(search(t, s, "tag:reanalysis")))
}

func TestFiltersCombineConjunctively(t *testing.T) {
	s := newTestStore(t)

	a := testRecord("a")
	a.Format = "netcdf"
	a.SizeBytes = 5_000_000
	b := testRecord("b")
	b.Format = "netcdf"
	b.SizeBytes = 100
	c := testRecord("c")
	c.Format = "parquet"
	c.SizeBytes = 5_000_000
	for _, rec := range []*catalog.Record{a, b, c} {
		require.NoError(t, s.Upsert(rec))
	}

	assert.Equal(t, []string{"a"}, resultIDs(search(t, s, "format:netcdf size:>1MB")))
}

func TestUnknownFieldDegradesToFreeText(t *testing.T) {
	s := newTestStore(t)

	rec := testRecord("split-banana")
	rec.Description = "banana split dessert dataset"
	require.NoError(t, s.Upsert(rec))

	// The unknown-field token must still find the record via its words.
	assert.Equal(t, []string{"split-banana"}, resultIDs(search(t, s, "banana:split")))
}

func TestRankingPrefersHigherTermFrequency(t *testing.T) {
	s := newTestStore(t)

	sparse := testRecord("sparse")
	sparse.Description = "ocean temperatures measured daily near the coast"
	dense := testRecord("dense")
	dense.Description = "ocean ocean ocean temperatures measured daily near coast"
	require.NoError(t, s.Upsert(sparse))
	require.NoError(t, s.Upsert(dense))

	results := search(t, s, "ocean")
	require.Len(t, results, 2)
	assert.Equal(t, "dense", results[0].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFiltersDoNotRank(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert(testRecord("a")))
	require.NoError(t, s.Upsert(testRecord("b")))

	results := search(t, s, "format:netcdf")
	require.Len(t, results, 2)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, []string{"a", "b"}, resultIDs(results))
}

func TestLimitTruncates(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Upsert(testRecord(id)))
	}

	p := query.NewParser(schema.Default())
	results, err := s.Search(context.Background(), p.Parse(""), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resultIDs(results))
}

func TestSearchSeesWritesImmediately(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Upsert(testRecord("era5")))
	assert.Len(t, search(t, s, "reanalysis"), 1)

	require.NoError(t, s.Delete("era5"))
	assert.Empty(t, search(t, s, "reanalysis"))
}
