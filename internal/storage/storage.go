package storage

import (
	"context"
	"time"
)

// Namespace selects which of the two embedding tables an operation targets.
// Document records are keyed by vault-relative note path, entity records by
// entity name. The two namespaces share a row shape but never mix.
type Namespace string

const (
	// NamespaceDocument holds per-note embeddings keyed by path
	NamespaceDocument Namespace = "document"
	// NamespaceEntity holds per-entity embeddings keyed by entity name
	NamespaceEntity Namespace = "entity"
)

// EmbeddingRecord is the persisted unit for one identifier in one namespace.
// At most one live record exists per identifier; Upsert overwrites in place.
type EmbeddingRecord struct {
	Identifier  string
	Vector      []byte // serialized float32 array, little-endian, no header
	ContentHash string
	ModelTag    string
	UpdatedAt   time.Time
}

// KeywordResult is one entry of an already-ranked keyword search result list.
// Rank is implicit in slice order.
type KeywordResult struct {
	Path    string
	Title   string
	Snippet string
}

// EmbeddingStore is the persistence interface for the two embedding
// namespaces plus the note keyword index. Failures propagate to callers;
// no retry logic lives at this layer.
type EmbeddingStore interface {
	// Embedding operations
	Get(ctx context.Context, ns Namespace, identifier string) (*EmbeddingRecord, error)
	GetAll(ctx context.Context, ns Namespace) ([]*EmbeddingRecord, error)
	Upsert(ctx context.Context, ns Namespace, record *EmbeddingRecord) error
	Delete(ctx context.Context, ns Namespace, identifier string) error
	Count(ctx context.Context, ns Namespace) (int, error)

	// LoadAllHashes returns identifier -> content hash for change detection
	// without deserializing vectors
	LoadAllHashes(ctx context.Context, ns Namespace) (map[string]string, error)

	// Keyword index operations
	UpsertNote(ctx context.Context, path, title, content string) error
	DeleteNote(ctx context.Context, path string) error
	SearchNotes(ctx context.Context, query string, limit int) ([]KeywordResult, error)

	Close() error
}
