package searcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vaultsearch/internal/storage"
)

// axisVector returns a unit vector along one axis of the embedding space
func axisVector(axis int) []float32 {
	v := make([]float32, storage.EmbeddingDimension)
	v[axis] = 1
	return v
}

// mixVector blends two axes with the given weights
func mixVector(axisA int, weightA float32, axisB int, weightB float32) []float32 {
	v := make([]float32, storage.EmbeddingDimension)
	v[axisA] = weightA
	v[axisB] = weightB
	return v
}

func seedDocument(t *testing.T, store *storage.SQLiteStore, identifier string, vector []float32) {
	t.Helper()
	err := store.Upsert(context.Background(), storage.NamespaceDocument, &storage.EmbeddingRecord{
		Identifier:  identifier,
		Vector:      storage.SerializeVector(vector),
		ContentHash: storage.ContentHash(identifier),
		ModelTag:    "test",
		UpdatedAt:   time.Now(),
	})
	require.NoError(t, err)
}

func seedEntity(t *testing.T, store *storage.SQLiteStore, name string, vector []float32) {
	t.Helper()
	err := store.Upsert(context.Background(), storage.NamespaceEntity, &storage.EmbeddingRecord{
		Identifier:  name,
		Vector:      storage.SerializeVector(vector),
		ContentHash: storage.ContentHash(name),
		ModelTag:    "test",
		UpdatedAt:   time.Now(),
	})
	require.NoError(t, err)
}

func newSeededSearcher(t *testing.T) (*Searcher, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store), store
}

func TestSearchByQueryVector(t *testing.T) {
	s, store := newSeededSearcher(t)

	seedDocument(t, store, "exact.md", axisVector(0))
	seedDocument(t, store, "close.md", mixVector(0, 0.9, 1, 0.4359)) // ~0.9 cosine
	seedDocument(t, store, "unrelated.md", axisVector(1))

	results, err := s.SearchByQueryVector(context.Background(), axisVector(0), 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact.md", results[0].Identifier)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "close.md", results[1].Identifier)
	assert.Equal(t, "unrelated.md", results[2].Identifier)
	assert.Equal(t, 0.0, results[2].Score)

	assert.Equal(t, "exact", results[0].DisplayName)
}

func TestSearchByQueryVectorScoreRounding(t *testing.T) {
	s, store := newSeededSearcher(t)
	seedDocument(t, store, "close.md", mixVector(0, 0.9, 1, 0.4359))

	results, err := s.SearchByQueryVector(context.Background(), axisVector(0), 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Three-decimal display rounding
	assert.Equal(t, results[0].Score, roundScore(results[0].Score))
	assert.InDelta(t, 0.9, results[0].Score, 0.001)
}

func TestSearchByQueryVectorLimit(t *testing.T) {
	s, store := newSeededSearcher(t)
	for i := 0; i < 5; i++ {
		seedDocument(t, store, string(rune('a'+i))+".md", axisVector(i))
	}

	results, err := s.SearchByQueryVector(context.Background(), axisVector(0), 2, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchByQueryVectorExclusion(t *testing.T) {
	s, store := newSeededSearcher(t)
	seedDocument(t, store, "a.md", axisVector(0))
	seedDocument(t, store, "b.md", axisVector(0))

	results, err := s.SearchByQueryVector(context.Background(), axisVector(0), 10,
		map[string]struct{}{"a.md": {}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.md", results[0].Identifier)
}

func TestSearchByQueryVectorDimensionMismatch(t *testing.T) {
	s, store := newSeededSearcher(t)
	seedDocument(t, store, "good.md", axisVector(0))
	seedDocument(t, store, "stale.md", []float32{1, 2, 3}) // from an older model

	results, err := s.SearchByQueryVector(context.Background(), axisVector(0), 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good.md", results[0].Identifier)
}

func TestFindSimilarToDocument(t *testing.T) {
	s, store := newSeededSearcher(t)
	seedDocument(t, store, "source.md", axisVector(0))
	seedDocument(t, store, "twin.md", axisVector(0))
	seedDocument(t, store, "other.md", axisVector(1))

	results, err := s.FindSimilarToDocument(context.Background(), "source.md", 10, nil)
	require.NoError(t, err)

	// The source never appears in its own results
	for _, r := range results {
		assert.NotEqual(t, "source.md", r.Identifier)
	}
	require.NotEmpty(t, results)
	assert.Equal(t, "twin.md", results[0].Identifier)
}

func TestFindSimilarToDocumentMissing(t *testing.T) {
	s, _ := newSeededSearcher(t)

	results, err := s.FindSimilarToDocument(context.Background(), "missing.md", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEntityEmbeddingsMap(t *testing.T) {
	s, store := newSeededSearcher(t)
	seedEntity(t, store, "Ada", axisVector(0))
	seedEntity(t, store, "Compiler", axisVector(1))

	assert.Equal(t, 0, s.EntityVectorCount(), "map is empty before loading")

	require.NoError(t, s.LoadEntityEmbeddings(context.Background()))
	assert.Equal(t, 2, s.EntityVectorCount())

	vector, ok := s.EntityVector("Ada")
	require.True(t, ok)
	assert.Equal(t, float32(1), vector[0])

	_, ok = s.EntityVector("Nobody")
	assert.False(t, ok)
}

func TestRoundScore(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{0.12345, 0.123},
		{0.9996, 1.0},
		{-0.0004, 0.0},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, roundScore(tt.in), "roundScore(%v)", tt.in)
	}
}
