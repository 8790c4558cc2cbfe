package searcher

import (
	"context"
	"log"

	"github.com/dshills/vaultsearch/internal/embedder"
	"github.com/dshills/vaultsearch/internal/storage"
	"github.com/dshills/vaultsearch/internal/vault"
)

const (
	// rrfK is the standard RRF smoothing constant. Not configurable.
	rrfK = 60

	// periodicPenalty demotes daily/weekly/journal notes in fused results
	periodicPenalty = 0.3

	// pseudoQuerySources is how many top keyword results feed the
	// pseudo-relevance-feedback query vector
	pseudoQuerySources = 5

	// pseudoQueryExclusions is how many top keyword results are withheld
	// from the semantic candidate set to avoid self-reinforcing boosts
	pseudoQueryExclusions = 3
)

// ReciprocalRankFusion merges ranked identifier lists: each item at
// zero-based rank r contributes 1/(k + r + 1) to its accumulator, summed
// across lists.
func ReciprocalRankFusion(lists ...[]string) map[string]float64 {
	scores := make(map[string]float64)
	for _, list := range lists {
		for rank, identifier := range list {
			scores[identifier] += 1.0 / float64(rrfK+rank+1)
		}
	}
	return scores
}

// Hybrid fuses an externally supplied keyword-ranked list with semantic
// search results, degrading to keyword-only when embeddings cannot help
type Hybrid struct {
	searcher *Searcher
	store    storage.EmbeddingStore
	embedder *embedder.Service
}

// NewHybrid creates a Hybrid searcher
func NewHybrid(s *Searcher, store storage.EmbeddingStore, emb *embedder.Service) *Hybrid {
	return &Hybrid{
		searcher: s,
		store:    store,
		embedder: emb,
	}
}

// Search merges keywordResults with semantic results for query. It never
// fails: any error in the semantic path degrades to the keyword list
// truncated to limit, in its original order.
func (h *Hybrid) Search(ctx context.Context, keywordResults []storage.KeywordResult, query string, limit int) (results []ScoredCandidate) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("searcher: hybrid search panic, serving keyword results: %v", r)
			results = keywordOnly(keywordResults, limit)
		}
	}()

	fused, err := h.fuse(ctx, keywordResults, query, limit)
	if err != nil {
		log.Printf("searcher: hybrid search degraded to keyword results: %v", err)
		return keywordOnly(keywordResults, limit)
	}
	return fused
}

// errKeywordOnly signals the caller should serve keyword results unchanged
type errKeywordOnly struct{ reason string }

func (e errKeywordOnly) Error() string { return e.reason }

// fuse runs the fallible part of hybrid search
func (h *Hybrid) fuse(ctx context.Context, keywordResults []storage.KeywordResult, query string, limit int) ([]ScoredCandidate, error) {
	count, err := h.store.Count(ctx, storage.NamespaceDocument)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errKeywordOnly{"no document embeddings"}
	}

	// Real query vector when the model is already loaded; otherwise a
	// pseudo-query from the top keyword results' stored embeddings, so
	// query time never pays the model-load cost.
	var queryVector []float32
	exclude := map[string]struct{}{}
	if h.embedder.Ready() {
		queryVector, err = h.embedder.EmbedText(ctx, query)
		if err != nil {
			return nil, err
		}
	} else {
		queryVector, err = h.pseudoQueryVector(ctx, keywordResults)
		if err != nil {
			return nil, err
		}
		for i, kr := range keywordResults {
			if i >= pseudoQueryExclusions {
				break
			}
			exclude[kr.Path] = struct{}{}
		}
	}

	semantic, err := h.searcher.SearchByQueryVector(ctx, queryVector, limit*2, exclude)
	if err != nil {
		return nil, err
	}

	keywordIDs := make([]string, len(keywordResults))
	titles := make(map[string]string, len(keywordResults))
	for i, kr := range keywordResults {
		keywordIDs[i] = kr.Path
		titles[kr.Path] = kr.Title
	}
	semanticIDs := make([]string, len(semantic))
	for i, sc := range semantic {
		semanticIDs[i] = sc.Identifier
		if _, ok := titles[sc.Identifier]; !ok {
			titles[sc.Identifier] = sc.DisplayName
		}
	}

	fused := ReciprocalRankFusion(keywordIDs, semanticIDs)

	// Domain demotion, applied after generic RRF
	for identifier, score := range fused {
		if IsPeriodicNote(identifier) {
			fused[identifier] = score * periodicPenalty
		}
	}

	return mergeFused(fused, keywordIDs, semanticIDs, titles, limit), nil
}

// pseudoQueryVector averages the stored embeddings of the top keyword
// results and L2-normalizes the mean (pseudo-relevance feedback)
func (h *Hybrid) pseudoQueryVector(ctx context.Context, keywordResults []storage.KeywordResult) ([]float32, error) {
	var vectors [][]float32
	for i, kr := range keywordResults {
		if i >= pseudoQuerySources {
			break
		}
		record, err := h.store.Get(ctx, storage.NamespaceDocument, kr.Path)
		if err == storage.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, storage.DeserializeVector(record.Vector))
	}

	if len(vectors) == 0 {
		return nil, errKeywordOnly{"no stored embeddings among top keyword results"}
	}

	return embedder.NormalizeVector(embedder.MeanPool(vectors)), nil
}

// mergeFused orders the union of both input lists by fused score,
// normalized so the top result scores 1.0. The pre-sort order (keyword
// list first, then semantic-only identifiers in rank order) is what
// breaks ties, via the stable sort.
func mergeFused(fused map[string]float64, keywordIDs, semanticIDs []string, titles map[string]string, limit int) []ScoredCandidate {
	var maxScore float64
	for _, score := range fused {
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore == 0 {
		maxScore = 1
	}

	ordered := make([]string, 0, len(fused))
	seen := make(map[string]struct{}, len(fused))
	for _, id := range keywordIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}
	for _, id := range semanticIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}

	merged := make([]ScoredCandidate, 0, len(ordered))
	for _, id := range ordered {
		title := titles[id]
		if title == "" {
			title = vault.Title(id)
		}
		merged = append(merged, ScoredCandidate{
			Identifier:  id,
			DisplayName: title,
			Score:       fused[id] / maxScore,
		})
	}

	sortCandidatesStable(merged)

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// keywordOnly converts the keyword list to candidates without rescoring
func keywordOnly(keywordResults []storage.KeywordResult, limit int) []ScoredCandidate {
	if limit > 0 && len(keywordResults) > limit {
		keywordResults = keywordResults[:limit]
	}

	results := make([]ScoredCandidate, len(keywordResults))
	for i, kr := range keywordResults {
		title := kr.Title
		if title == "" {
			title = vault.Title(kr.Path)
		}
		results[i] = ScoredCandidate{
			Identifier:  kr.Path,
			DisplayName: title,
		}
	}
	return results
}
