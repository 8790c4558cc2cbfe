// Package indexer maintains the vector index over a vault: full rebuilds
// with hash-based skip-on-unchanged and deletion sync, incremental
// single-document updates, and the synthetic-text entity index.
package indexer
