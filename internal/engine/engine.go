package engine

import (
	"context"

	"github.com/dshills/vaultsearch/internal/embedder"
	"github.com/dshills/vaultsearch/internal/indexer"
	"github.com/dshills/vaultsearch/internal/searcher"
	"github.com/dshills/vaultsearch/internal/storage"
	"github.com/dshills/vaultsearch/internal/vault"
)

// Engine is the hybrid retrieval engine facade. One instance owns the
// embedding model lifecycle, the text -> vector cache, and the in-memory
// entity map; nothing is ambient module state, so independent instances
// (tests, multiple vaults) never interfere.
type Engine struct {
	vault    vault.Store
	store    storage.EmbeddingStore
	embedder *embedder.Service
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	hybrid   *searcher.Hybrid
}

// New wires an Engine from its collaborators
func New(v vault.Store, store storage.EmbeddingStore, emb *embedder.Service) *Engine {
	s := searcher.New(store)
	return &Engine{
		vault:    v,
		store:    store,
		embedder: emb,
		indexer:  indexer.New(v, store, emb),
		searcher: s,
		hybrid:   searcher.NewHybrid(s, store, emb),
	}
}

// InitializeEmbeddings loads the embedding model. Idempotent; concurrent
// callers share one in-flight load.
func (e *Engine) InitializeEmbeddings(ctx context.Context) error {
	return e.embedder.Initialize(ctx)
}

// IsEmbeddingsReady reports whether the model finished loading
func (e *Engine) IsEmbeddingsReady() bool {
	return e.embedder.Ready()
}

// BuildEmbeddingsIndex runs a full index pass over the vault
func (e *Engine) BuildEmbeddingsIndex(ctx context.Context, onProgress indexer.ProgressFunc) (indexer.Progress, error) {
	return e.indexer.BuildIndex(ctx, onProgress)
}

// UpdateDocumentEmbedding refreshes one document after a save event
func (e *Engine) UpdateDocumentEmbedding(ctx context.Context, path string) error {
	return e.indexer.UpdateDocument(ctx, path)
}

// RemoveDocumentEmbedding drops one document's index entries
func (e *Engine) RemoveDocumentEmbedding(ctx context.Context, path string) error {
	return e.indexer.RemoveDocument(ctx, path)
}

// BuildEntityEmbeddingsIndex indexes entity descriptions, returning how
// many were re-embedded
func (e *Engine) BuildEntityEmbeddingsIndex(ctx context.Context, entities []indexer.Entity, onProgress indexer.ProgressFunc) (int, error) {
	return e.indexer.BuildEntityIndex(ctx, entities, onProgress)
}

// ExtractEntities derives entities from vault notes whose frontmatter
// declares a category or aliases
func (e *Engine) ExtractEntities(ctx context.Context) ([]indexer.Entity, error) {
	return e.indexer.ExtractEntities(ctx)
}

// SemanticSearch embeds the query and returns the closest documents.
// Loads the model first if needed.
func (e *Engine) SemanticSearch(ctx context.Context, query string, limit int) ([]searcher.ScoredCandidate, error) {
	if err := e.embedder.Initialize(ctx); err != nil {
		return nil, err
	}

	queryVector, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.searcher.SearchByQueryVector(ctx, queryVector, limit, nil)
}

// FindSemanticallySimilar returns documents close to an indexed one.
// A document with no stored embedding yields an empty list.
func (e *Engine) FindSemanticallySimilar(ctx context.Context, path string, limit int, exclude map[string]struct{}) ([]searcher.ScoredCandidate, error) {
	return e.searcher.FindSimilarToDocument(ctx, path, limit, exclude)
}

// HybridSearch fuses an already-ranked keyword result list with semantic
// results. Never fails; degrades to the keyword list.
func (e *Engine) HybridSearch(ctx context.Context, keywordResults []storage.KeywordResult, query string, limit int) []searcher.ScoredCandidate {
	return e.hybrid.Search(ctx, keywordResults, query, limit)
}

// KeywordSearch queries the built-in keyword index. The result feeds
// HybridSearch but any other ranked source works too.
func (e *Engine) KeywordSearch(ctx context.Context, query string, limit int) ([]storage.KeywordResult, error) {
	return e.store.SearchNotes(ctx, query, limit)
}

// LoadEntityEmbeddingsToMemory snapshots the entity table for fast
// lookups. Call again after BuildEntityEmbeddingsIndex to refresh.
func (e *Engine) LoadEntityEmbeddingsToMemory(ctx context.Context) error {
	return e.searcher.LoadEntityEmbeddings(ctx)
}

// EntityVector returns an entity's in-memory embedding
func (e *Engine) EntityVector(name string) ([]float32, bool) {
	return e.searcher.EntityVector(name)
}

// HasEmbeddingsIndex reports whether any document embeddings exist
func (e *Engine) HasEmbeddingsIndex(ctx context.Context) (bool, error) {
	count, err := e.store.Count(ctx, storage.NamespaceDocument)
	return count > 0, err
}

// GetEmbeddingsCount returns the number of stored document embeddings
func (e *Engine) GetEmbeddingsCount(ctx context.Context) (int, error) {
	return e.store.Count(ctx, storage.NamespaceDocument)
}

// HasEntityEmbeddingsIndex reports whether any entity embeddings exist
func (e *Engine) HasEntityEmbeddingsIndex(ctx context.Context) (bool, error) {
	count, err := e.store.Count(ctx, storage.NamespaceEntity)
	return count > 0, err
}

// GetEntityEmbeddingsCount returns the number of stored entity embeddings
func (e *Engine) GetEntityEmbeddingsCount(ctx context.Context) (int, error) {
	return e.store.Count(ctx, storage.NamespaceEntity)
}
