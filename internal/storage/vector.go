package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EmbeddingDimension is the fixed vector length produced by the embedding
// model and stored in the vector BLOB columns.
const EmbeddingDimension = 384

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice.
// The result is always a fresh allocation: SQLite drivers may reuse the
// returned blob buffer between rows, and the raw bytes are not guaranteed
// to satisfy float32 alignment.
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 when either vector has zero norm (never NaN).
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Seeds for the two independent rolling-hash passes. Two passes with
// different seeds cut the collision rate far below a single 32-bit hash;
// collisions surface only as a missed re-embed, never as corruption.
const (
	hashSeedA uint32 = 5381
	hashSeedB uint32 = 52711
)

// ContentHash computes a cheap, deterministic 64-bit digest of text as two
// 8-hex-digit halves. Used only for change detection, never for security.
func ContentHash(text string) string {
	return fmt.Sprintf("%08x%08x", rollingHash(text, hashSeedA), rollingHash(text, hashSeedB))
}

// rollingHash is a djb2-style multiplicative hash over the raw bytes
func rollingHash(text string, seed uint32) uint32 {
	h := seed
	for i := 0; i < len(text); i++ {
		h = h*33 + uint32(text[i])
	}
	return h
}

// SerializeVector is the exported form of the vector codec
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is the exported form of the vector codec
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is the exported similarity helper used by the search layer
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
