package searcher

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dshills/vaultsearch/internal/storage"
	"github.com/dshills/vaultsearch/internal/vault"
)

// ScoredCandidate is an ephemeral, query-time search hit
type ScoredCandidate struct {
	Identifier  string
	DisplayName string
	Score       float64
}

// Searcher answers similarity queries against the stored embeddings and
// holds the in-memory entity vector map
type Searcher struct {
	store storage.EmbeddingStore

	mu            sync.RWMutex
	entityVectors map[string][]float32
}

// New creates a Searcher
func New(store storage.EmbeddingStore) *Searcher {
	return &Searcher{store: store}
}

// SearchByQueryVector scores every stored document embedding against the
// query vector and returns the top limit candidates, best first. Scores
// are rounded to 3 decimal places for display stability.
func (s *Searcher) SearchByQueryVector(ctx context.Context, queryVector []float32, limit int, exclude map[string]struct{}) ([]ScoredCandidate, error) {
	records, err := s.store.GetAll(ctx, storage.NamespaceDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load document embeddings: %w", err)
	}

	candidates := make([]ScoredCandidate, 0, len(records))
	for _, record := range records {
		if _, skip := exclude[record.Identifier]; skip {
			continue
		}

		vector := storage.DeserializeVector(record.Vector)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, likely a model change mid-index
		}

		candidates = append(candidates, ScoredCandidate{
			Identifier:  record.Identifier,
			DisplayName: vault.Title(record.Identifier),
			Score:       roundScore(storage.CosineSimilarity(queryVector, vector)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// FindSimilarToDocument searches with the stored embedding of identifier
// as the query vector. A missing embedding yields an empty result, not
// an error. The source document itself is always excluded.
func (s *Searcher) FindSimilarToDocument(ctx context.Context, identifier string, limit int, exclude map[string]struct{}) ([]ScoredCandidate, error) {
	record, err := s.store.Get(ctx, storage.NamespaceDocument, identifier)
	if err == storage.ErrNotFound {
		return []ScoredCandidate{}, nil
	}
	if err != nil {
		return nil, err
	}

	combined := make(map[string]struct{}, len(exclude)+1)
	for id := range exclude {
		combined[id] = struct{}{}
	}
	combined[identifier] = struct{}{}

	return s.SearchByQueryVector(ctx, storage.DeserializeVector(record.Vector), limit, combined)
}

// LoadEntityEmbeddings snapshots the entity table into a plain map for
// O(1) repeated lookups. Callers needing fresh data re-invoke this after
// an entity index rebuild; there is no automatic invalidation.
func (s *Searcher) LoadEntityEmbeddings(ctx context.Context) error {
	records, err := s.store.GetAll(ctx, storage.NamespaceEntity)
	if err != nil {
		return fmt.Errorf("failed to load entity embeddings: %w", err)
	}

	vectors := make(map[string][]float32, len(records))
	for _, record := range records {
		vectors[record.Identifier] = storage.DeserializeVector(record.Vector)
	}

	s.mu.Lock()
	s.entityVectors = vectors
	s.mu.Unlock()
	return nil
}

// EntityVector returns the in-memory vector for an entity name
func (s *Searcher) EntityVector(name string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vector, ok := s.entityVectors[name]
	return vector, ok
}

// EntityVectorCount returns the size of the in-memory entity map
func (s *Searcher) EntityVectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entityVectors)
}

// roundScore rounds to 3 decimal places
func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

// sortCandidatesStable orders candidates by score descending, preserving
// input order among equal scores
func sortCandidatesStable(candidates []ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}
