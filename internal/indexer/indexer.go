package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dshills/vaultsearch/internal/embedder"
	"github.com/dshills/vaultsearch/internal/parser"
	"github.com/dshills/vaultsearch/internal/storage"
	"github.com/dshills/vaultsearch/internal/vault"
)

// Progress reports index build state after each processed document
type Progress struct {
	Total   int
	Current int
	Skipped int
}

// ProgressFunc observes build progress. It is a side channel for UIs,
// never a control input.
type ProgressFunc func(Progress)

// Entity is a named concept with a backing document, indexed in its own
// embedding namespace keyed by name
type Entity struct {
	Name         string
	Aliases      []string
	Category     string
	DocumentPath string
}

// entityExcerptChars bounds how much of the backing document feeds the
// synthetic entity embedding text
const entityExcerptChars = 500

// errSkipUnchanged signals a hash match: the document needs no re-embed
var errSkipUnchanged = errors.New("content unchanged")

// Indexer (re)computes embeddings for changed documents and entities,
// skipping unchanged content by hash comparison
type Indexer struct {
	vault    vault.Store
	store    storage.EmbeddingStore
	embedder *embedder.Service
	parser   *parser.Parser
}

// New creates an Indexer
func New(v vault.Store, store storage.EmbeddingStore, emb *embedder.Service) *Indexer {
	return &Indexer{
		vault:    v,
		store:    store,
		embedder: emb,
		parser:   parser.New(),
	}
}

// BuildIndex performs a full pass over the vault: embed changed documents,
// skip unchanged ones, and delete stored records whose document no longer
// exists. A single document's read or embed failure is counted as skipped
// and never aborts the batch. The context is checked once per document.
func (idx *Indexer) BuildIndex(ctx context.Context, onProgress ProgressFunc) (Progress, error) {
	if err := idx.embedder.Initialize(ctx); err != nil {
		return Progress{}, err
	}

	docs, err := idx.vault.ListDocuments(ctx)
	if err != nil {
		return Progress{}, fmt.Errorf("failed to enumerate vault: %w", err)
	}

	storedHashes, err := idx.store.LoadAllHashes(ctx, storage.NamespaceDocument)
	if err != nil {
		return Progress{}, fmt.Errorf("failed to load stored hashes: %w", err)
	}

	progress := Progress{Total: len(docs)}
	seen := make(map[string]struct{}, len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return progress, err
		}
		seen[doc.Path] = struct{}{}

		switch err := idx.indexDocument(ctx, doc.Path, storedHashes[doc.Path]); {
		case err == nil:
		case errors.Is(err, errSkipUnchanged):
			progress.Skipped++
		default:
			log.Printf("indexer: skipping %s: %v", doc.Path, err)
			progress.Skipped++
		}
		progress.Current++
		report(onProgress, progress)
	}

	// Deletion sync: previously seen identifiers minus current enumeration
	for identifier := range storedHashes {
		if _, ok := seen[identifier]; ok {
			continue
		}
		if err := idx.store.Delete(ctx, storage.NamespaceDocument, identifier); err != nil {
			return progress, fmt.Errorf("failed to delete stale embedding %s: %w", identifier, err)
		}
		if err := idx.store.DeleteNote(ctx, identifier); err != nil {
			return progress, fmt.Errorf("failed to delete stale note %s: %w", identifier, err)
		}
	}

	return progress, nil
}

// UpdateDocument refreshes a single document's embedding, with the same
// skip-if-unchanged logic as the full build. Called on save events.
func (idx *Indexer) UpdateDocument(ctx context.Context, path string) error {
	if err := idx.embedder.Initialize(ctx); err != nil {
		return err
	}

	var storedHash string
	record, err := idx.store.Get(ctx, storage.NamespaceDocument, path)
	if err == nil {
		storedHash = record.ContentHash
	} else if err != storage.ErrNotFound {
		return err
	}

	if err := idx.indexDocument(ctx, path, storedHash); err != nil && !errors.Is(err, errSkipUnchanged) {
		return err
	}
	return nil
}

// RemoveDocument deletes a document's embedding and keyword entry
func (idx *Indexer) RemoveDocument(ctx context.Context, path string) error {
	if err := idx.store.Delete(ctx, storage.NamespaceDocument, path); err != nil {
		return err
	}
	return idx.store.DeleteNote(ctx, path)
}

// BuildEntityIndex embeds a synthetic description per entity into the
// entity namespace, skipping entities whose text is unchanged. Returns
// the number of entities actually re-embedded.
func (idx *Indexer) BuildEntityIndex(ctx context.Context, entities []Entity, onProgress ProgressFunc) (int, error) {
	if err := idx.embedder.Initialize(ctx); err != nil {
		return 0, err
	}

	storedHashes, err := idx.store.LoadAllHashes(ctx, storage.NamespaceEntity)
	if err != nil {
		return 0, fmt.Errorf("failed to load entity hashes: %w", err)
	}

	progress := Progress{Total: len(entities)}
	updated := 0

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		text := idx.entityEmbeddingText(ctx, entity)
		hash := storage.ContentHash(text)
		if storedHashes[entity.Name] == hash {
			progress.Skipped++
			progress.Current++
			report(onProgress, progress)
			continue
		}

		vector, err := idx.embedder.EmbedText(ctx, text)
		if err != nil {
			log.Printf("indexer: skipping entity %s: %v", entity.Name, err)
			progress.Skipped++
			progress.Current++
			report(onProgress, progress)
			continue
		}

		err = idx.store.Upsert(ctx, storage.NamespaceEntity, &storage.EmbeddingRecord{
			Identifier:  entity.Name,
			Vector:      storage.SerializeVector(vector),
			ContentHash: hash,
			ModelTag:    idx.embedder.ModelTag(),
			UpdatedAt:   time.Now(),
		})
		if err != nil {
			return updated, fmt.Errorf("failed to store entity embedding %s: %w", entity.Name, err)
		}

		updated++
		progress.Current++
		report(onProgress, progress)
	}

	return updated, nil
}

// ExtractEntities scans the vault for notes that declare a category or
// aliases in their frontmatter and returns them as entities backed by
// their own document. An unreadable note is logged and skipped.
func (idx *Indexer) ExtractEntities(ctx context.Context) ([]Entity, error) {
	docs, err := idx.vault.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate vault: %w", err)
	}

	entities := make([]Entity, 0)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := idx.vault.ReadText(ctx, doc.Path)
		if err != nil {
			log.Printf("indexer: skipping entity scan of %s: %v", doc.Path, err)
			continue
		}

		note := idx.parser.Parse(doc.Path, text)
		if note.Category == "" && len(note.Aliases) == 0 {
			continue
		}

		entities = append(entities, Entity{
			Name:         note.Title,
			Aliases:      note.Aliases,
			Category:     note.Category,
			DocumentPath: doc.Path,
		})
	}

	return entities, nil
}

// indexDocument embeds one document unless its hash matches the stored one
func (idx *Indexer) indexDocument(ctx context.Context, path, storedHash string) error {
	text, err := idx.vault.ReadText(ctx, path)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}

	hash := storage.ContentHash(text)
	if storedHash != "" && storedHash == hash {
		return errSkipUnchanged
	}

	vector, err := idx.embedder.EmbedText(ctx, text)
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}

	err = idx.store.Upsert(ctx, storage.NamespaceDocument, &storage.EmbeddingRecord{
		Identifier:  path,
		Vector:      storage.SerializeVector(vector),
		ContentHash: hash,
		ModelTag:    idx.embedder.ModelTag(),
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("store failed: %w", err)
	}

	// Keep the keyword index in step with the embedding index. The
	// frontmatter title wins over the filename when a note declares one.
	note := idx.parser.Parse(path, text)
	if err := idx.store.UpsertNote(ctx, path, note.Title, text); err != nil {
		return fmt.Errorf("keyword index failed: %w", err)
	}

	return nil
}

// entityEmbeddingText builds the synthetic text an entity embeds from.
// The name appears twice to bias the vector toward the entity's own name.
func (idx *Indexer) entityEmbeddingText(ctx context.Context, entity Entity) string {
	var b strings.Builder
	b.WriteString(entity.Name)
	b.WriteString(" ")
	b.WriteString(entity.Name)
	for _, alias := range entity.Aliases {
		b.WriteString(" ")
		b.WriteString(alias)
	}
	if entity.Category != "" {
		b.WriteString(" ")
		b.WriteString(entity.Category)
	}

	if entity.DocumentPath != "" {
		// A missing backing document only drops the excerpt
		if text, err := idx.vault.ReadText(ctx, entity.DocumentPath); err == nil {
			b.WriteString(" ")
			b.WriteString(embedder.Truncate(text, entityExcerptChars))
		}
	}

	return b.String()
}

func report(onProgress ProgressFunc, p Progress) {
	if onProgress != nil {
		onProgress(p)
	}
}
