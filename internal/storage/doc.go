// Package storage persists note and entity embeddings in SQLite.
//
// Two tables share one row shape: document_embeddings keyed by
// vault-relative path and entity_embeddings keyed by entity name.
// Vectors are stored as contiguous little-endian IEEE-754 float32 BLOBs
// with no header. A notes table plus FTS5 index backs keyword search.
//
// The package also holds the pure helpers the rest of the engine builds
// on: the vector codec, the two-pass rolling content hash used for change
// detection, and cosine similarity.
package storage
