// Package embedder turns text into fixed-length semantic vectors.
//
// A Provider wraps one external embedding model (a local Ollama server,
// or the deterministic offline fallback). The Service layered on top
// handles the model lifecycle: lazy one-time initialization shared by
// concurrent callers, input truncation, L2 normalization of outputs, and
// a bounded LRU cache of recent text -> vector results.
//
// Initialization failure clears the in-flight guard, so a later
// Initialize call retries the load. A server that is not running at all
// surfaces as ErrModelUnavailable with an actionable message.
package embedder
