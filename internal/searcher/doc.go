// Package searcher answers similarity queries and fuses them with
// keyword results.
//
// Similarity search scans every stored document embedding with cosine
// similarity; at vault scale (thousands of notes, 384 dims) a linear scan
// beats maintaining an ANN structure. Hybrid search merges the keyword
// and semantic rankings with Reciprocal Rank Fusion (k=60), demotes
// periodic notes, and degrades to the keyword list whenever the semantic
// path fails for any reason.
package searcher
