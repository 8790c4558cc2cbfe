package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vaultsearch/internal/embedder"
	"github.com/dshills/vaultsearch/internal/storage"
	"github.com/dshills/vaultsearch/internal/vault"
)

func newTestEngine(t *testing.T, notes map[string]string) *Engine {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range notes {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	v, err := vault.NewFSVault(dir)
	require.NoError(t, err)

	return New(v, store, embedder.NewService(embedder.NewOfflineProvider(), 0))
}

func TestEngineLifecycle(t *testing.T) {
	eng := newTestEngine(t, map[string]string{
		"garden.md":   "tomatoes basil and raised beds",
		"compiler.md": "register allocation and liveness analysis",
	})
	ctx := context.Background()

	assert.False(t, eng.IsEmbeddingsReady())

	has, err := eng.HasEmbeddingsIndex(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	progress, err := eng.BuildEmbeddingsIndex(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.Total)
	assert.True(t, eng.IsEmbeddingsReady(), "building the index loads the model")

	has, err = eng.HasEmbeddingsIndex(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	count, err := eng.GetEmbeddingsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEngineSemanticSearch(t *testing.T) {
	eng := newTestEngine(t, map[string]string{
		"garden.md":   "tomatoes basil and raised garden beds",
		"compiler.md": "register allocation and liveness analysis",
	})
	ctx := context.Background()

	_, err := eng.BuildEmbeddingsIndex(ctx, nil)
	require.NoError(t, err)

	results, err := eng.SemanticSearch(ctx, "growing tomatoes in garden beds", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "garden.md", results[0].Identifier,
		"word-overlapping note must outrank the unrelated one")
}

func TestEngineKeywordFeedsHybrid(t *testing.T) {
	eng := newTestEngine(t, map[string]string{
		"garden.md":   "tomatoes basil and raised beds",
		"compiler.md": "register allocation and liveness analysis",
	})
	ctx := context.Background()

	_, err := eng.BuildEmbeddingsIndex(ctx, nil)
	require.NoError(t, err)

	keyword, err := eng.KeywordSearch(ctx, "tomatoes", 20)
	require.NoError(t, err)
	require.Len(t, keyword, 1)

	results := eng.HybridSearch(ctx, keyword, "tomatoes", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "garden.md", results[0].Identifier)
}

func TestEngineEntityFlow(t *testing.T) {
	eng := newTestEngine(t, map[string]string{
		"people/ada.md": "---\ntitle: Ada\ncategory: person\naliases: [A. Lovelace]\n---\nWorks on the compiler.",
		"plain.md":      "an ordinary note",
	})
	ctx := context.Background()

	entities, err := eng.ExtractEntities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Ada", entities[0].Name)

	updated, err := eng.BuildEntityEmbeddingsIndex(ctx, entities, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	require.NoError(t, eng.LoadEntityEmbeddingsToMemory(ctx))
	vector, ok := eng.EntityVector("Ada")
	assert.True(t, ok)
	assert.Len(t, vector, embedder.Dimension)

	has, err := eng.HasEntityEmbeddingsIndex(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestEngineUpdateAndRemove(t *testing.T) {
	eng := newTestEngine(t, map[string]string{"a.md": "original text"})
	ctx := context.Background()

	require.NoError(t, eng.UpdateDocumentEmbedding(ctx, "a.md"))
	count, err := eng.GetEmbeddingsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, eng.RemoveDocumentEmbedding(ctx, "a.md"))
	count, err = eng.GetEmbeddingsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
