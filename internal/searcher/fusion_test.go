package searcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vaultsearch/internal/embedder"
	"github.com/dshills/vaultsearch/internal/storage"
)

// staticProvider returns a fixed vector for every text
type staticProvider struct {
	vector  []float32
	loadErr error
	err     error
}

func (p *staticProvider) Load(ctx context.Context) error { return p.loadErr }
func (p *staticProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.vector, nil
}
func (p *staticProvider) ModelTag() string { return "static" }
func (p *staticProvider) Close() error     { return nil }

func keywordList(paths ...string) []storage.KeywordResult {
	results := make([]storage.KeywordResult, len(paths))
	for i, p := range paths {
		results[i] = storage.KeywordResult{Path: p, Title: p}
	}
	return results
}

func resultPaths(results []ScoredCandidate) []string {
	paths := make([]string, len(results))
	for i, r := range results {
		paths[i] = r.Identifier
	}
	return paths
}

func TestReciprocalRankFusion(t *testing.T) {
	scores := ReciprocalRankFusion(
		[]string{"p1", "p2", "p3"},
		[]string{"p2", "p1", "p4"},
	)

	// Rank r contributes 1/(60 + r + 1)
	assert.InDelta(t, 1.0/61+1.0/62, scores["p1"], 1e-9)
	assert.InDelta(t, 1.0/62+1.0/61, scores["p2"], 1e-9)
	assert.InDelta(t, 1.0/63, scores["p3"], 1e-9)
	assert.InDelta(t, 1.0/63, scores["p4"], 1e-9)
}

func TestReciprocalRankFusionEmpty(t *testing.T) {
	assert.Empty(t, ReciprocalRankFusion())
	assert.Empty(t, ReciprocalRankFusion(nil, nil))
}

func newHybrid(t *testing.T, provider embedder.Provider) (*Hybrid, *storage.SQLiteStore, *embedder.Service) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := embedder.NewService(provider, 0)
	return NewHybrid(New(store), store, svc), store, svc
}

func TestHybridSearchEmptyIndexDegrades(t *testing.T) {
	h, _, _ := newHybrid(t, &staticProvider{})

	keyword := keywordList("a.md", "b.md", "c.md")
	results := h.Search(context.Background(), keyword, "anything", 2)

	// Keyword order survives, truncated to limit, with zero scores
	require.Len(t, results, 2)
	assert.Equal(t, []string{"a.md", "b.md"}, resultPaths(results))
	assert.Equal(t, 0.0, results[0].Score)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestHybridSearchEmbedErrorDegrades(t *testing.T) {
	provider := &staticProvider{err: errors.New("model crashed")}
	h, store, svc := newHybrid(t, provider)
	require.NoError(t, svc.Initialize(context.Background()))

	seedDocument(t, store, "a.md", axisVector(0))

	keyword := keywordList("a.md", "b.md")
	results := h.Search(context.Background(), keyword, "query", 10)

	assert.Equal(t, []string{"a.md", "b.md"}, resultPaths(results))
	assert.Equal(t, 0.0, results[0].Score)
}

func TestHybridSearchPseudoQuery(t *testing.T) {
	// Model not loaded: the query vector comes from the stored embeddings
	// of the top keyword results
	h, store, _ := newHybrid(t, &staticProvider{})
	ctx := context.Background()

	seedDocument(t, store, "a.md", axisVector(0))
	seedDocument(t, store, "b.md", axisVector(0))
	seedDocument(t, store, "related.md", mixVector(0, 0.9, 1, 0.4359))
	seedDocument(t, store, "unrelated.md", axisVector(1))

	keyword := keywordList("a.md", "b.md")
	results := h.Search(ctx, keyword, "query", 10)

	paths := resultPaths(results)
	// related.md entered via the semantic side despite not matching keywords
	assert.Contains(t, paths, "related.md")
	// Top keyword results keep their head start
	assert.Equal(t, "a.md", paths[0])
	// Top result is normalized to 1.0
	assert.Equal(t, 1.0, results[0].Score)
	for _, r := range results {
		assert.LessOrEqual(t, r.Score, 1.0)
		assert.Greater(t, r.Score, 0.0)
	}
}

func TestHybridSearchPseudoQueryNoStoredVectors(t *testing.T) {
	h, store, _ := newHybrid(t, &staticProvider{})

	// Embeddings exist, but none for the keyword results
	seedDocument(t, store, "elsewhere.md", axisVector(3))

	keyword := keywordList("a.md", "b.md")
	results := h.Search(context.Background(), keyword, "query", 10)

	// No pseudo-query can be formed: keyword-only fallback
	assert.Equal(t, []string{"a.md", "b.md"}, resultPaths(results))
	assert.Equal(t, 0.0, results[0].Score)
}

func TestHybridSearchRealQueryVector(t *testing.T) {
	provider := &staticProvider{vector: axisVector(0)}
	h, store, svc := newHybrid(t, provider)
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))

	seedDocument(t, store, "semantic-hit.md", axisVector(0))
	seedDocument(t, store, "keyword-hit.md", axisVector(1))

	keyword := keywordList("keyword-hit.md")
	results := h.Search(ctx, keyword, "query", 10)

	paths := resultPaths(results)
	assert.Contains(t, paths, "semantic-hit.md")
	assert.Contains(t, paths, "keyword-hit.md")

	// keyword-hit.md appears in both rankings, so it fuses higher
	assert.Equal(t, "keyword-hit.md", paths[0])
	assert.Equal(t, 1.0, results[0].Score)
}

func TestHybridSearchDemotesPeriodicNotes(t *testing.T) {
	provider := &staticProvider{vector: axisVector(0)}
	h, store, svc := newHybrid(t, provider)
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))

	seedDocument(t, store, "daily/2024-03-15.md", axisVector(0))
	seedDocument(t, store, "projects/plan.md", axisVector(0))

	// The daily note leads the keyword ranking
	keyword := keywordList("daily/2024-03-15.md", "projects/plan.md")
	results := h.Search(ctx, keyword, "query", 10)

	require.Len(t, results, 2)
	assert.Equal(t, "projects/plan.md", results[0].Identifier,
		"periodic note must be demoted below the project note")
	assert.Equal(t, 1.0, results[0].Score)
	assert.Less(t, results[1].Score, results[0].Score)
}

func TestHybridSearchLimit(t *testing.T) {
	provider := &staticProvider{vector: axisVector(0)}
	h, store, svc := newHybrid(t, provider)
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx))

	for i := 0; i < 6; i++ {
		seedDocument(t, store, string(rune('a'+i))+".md", axisVector(0))
	}

	results := h.Search(ctx, keywordList("a.md", "b.md", "c.md"), "query", 3)
	assert.Len(t, results, 3)
}

func TestMergeFusedTieBreak(t *testing.T) {
	fused := map[string]float64{"k1.md": 0.5, "k2.md": 0.5, "s1.md": 0.5}

	merged := mergeFused(fused,
		[]string{"k1.md", "k2.md"},
		[]string{"s1.md"},
		map[string]string{},
		0,
	)

	// Equal scores: keyword order first, then semantic-only entries
	assert.Equal(t, []string{"k1.md", "k2.md", "s1.md"}, resultPaths(merged))
	for _, r := range merged {
		assert.Equal(t, 1.0, r.Score)
	}
}

func TestMergeFusedNormalization(t *testing.T) {
	fused := map[string]float64{"top.md": 0.04, "mid.md": 0.02, "low.md": 0.01}

	merged := mergeFused(fused,
		[]string{"top.md", "mid.md", "low.md"},
		nil,
		map[string]string{"top.md": "Top Note"},
		0,
	)

	require.Len(t, merged, 3)
	assert.Equal(t, 1.0, merged[0].Score)
	assert.InDelta(t, 0.5, merged[1].Score, 1e-9)
	assert.InDelta(t, 0.25, merged[2].Score, 1e-9)
	assert.Equal(t, "Top Note", merged[0].DisplayName)
	assert.Equal(t, "mid", merged[1].DisplayName, "missing titles fall back to the filename")
}

func TestKeywordOnly(t *testing.T) {
	results := keywordOnly(keywordList("a.md", "b.md", "c.md"), 2)

	require.Len(t, results, 2)
	assert.Equal(t, "a.md", results[0].Identifier)
	assert.Equal(t, "b.md", results[1].Identifier)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestKeywordOnlyTitleFallback(t *testing.T) {
	results := keywordOnly([]storage.KeywordResult{{Path: "notes/untitled.md"}}, 10)
	require.Len(t, results, 1)
	assert.Equal(t, "untitled", results[0].DisplayName)
}
