package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Common errors
var (
	// ErrModelUnavailable means a required runtime dependency for the
	// embedding model is missing (e.g. the local model server is not
	// running). Distinct from generic failures so callers can surface an
	// actionable message.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	ErrProviderFailed   = errors.New("embedding provider failed")
	ErrNotInitialized   = errors.New("embeddings not initialized")
	ErrEmptyText        = errors.New("text cannot be empty")
	ErrBadDimension     = errors.New("unexpected embedding dimension")
)

const (
	// Dimension is the fixed vector length every provider must produce
	Dimension = 384

	// MaxInputChars bounds latency and memory on very large documents;
	// input is truncated before encoding
	MaxInputChars = 2000

	// DefaultCacheSize bounds the text -> vector cache
	DefaultCacheSize = 500
)

// Provider is the expensive-to-initialize external embedding model.
// Load is called at most once per successful lifecycle; EmbedText is
// comparatively cheap once loaded.
type Provider interface {
	// Load performs the one-time model initialization
	Load(ctx context.Context) error

	// EmbedText encodes text into a Dimension-length vector
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// ModelTag identifies the model for stored records
	ModelTag() string

	// Close releases any resources held by the provider
	Close() error
}

// Service wraps a Provider with lazy initialization, input truncation,
// output normalization, and a bounded text -> vector cache. Concurrent
// Initialize calls share a single in-flight load.
type Service struct {
	provider Provider
	cache    *lru.Cache[string, []float32]
	group    singleflight.Group

	mu    sync.RWMutex
	ready bool
}

// NewService creates a Service around a provider. cacheSize <= 0 selects
// the default capacity.
func NewService(provider Provider, cacheSize int) *Service {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		// Only reachable with a non-positive size, which we just excluded
		panic(fmt.Sprintf("failed to create embedding cache: %v", err))
	}

	return &Service{
		provider: provider,
		cache:    cache,
	}
}

// Initialize loads the model exactly once. Concurrent callers before
// completion all await the same in-flight load; on failure the guard is
// cleared so a later call may retry.
func (s *Service) Initialize(ctx context.Context) error {
	if s.Ready() {
		return nil
	}

	_, err, _ := s.group.Do("initialize", func() (interface{}, error) {
		// A caller that queued behind a successful load skips the reload
		if s.Ready() {
			return nil, nil
		}
		if err := s.provider.Load(ctx); err != nil {
			if errors.Is(err, ErrModelUnavailable) {
				return nil, fmt.Errorf("embedding model missing a runtime dependency: %w", err)
			}
			return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
		}
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// Ready reports whether a previous Initialize succeeded
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// ModelTag identifies the wrapped model
func (s *Service) ModelTag() string {
	return s.provider.ModelTag()
}

// EmbedText returns the embedding for text, truncated to MaxInputChars
// before encoding. Results are L2-normalized and cached.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if !s.Ready() {
		return nil, ErrNotInitialized
	}
	if text == "" {
		return nil, ErrEmptyText
	}

	text = Truncate(text, MaxInputChars)

	key := cacheKey(text)
	if cached, ok := s.cache.Get(key); ok {
		return copyVector(cached), nil
	}

	vector, err := s.provider.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(vector) != Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadDimension, len(vector), Dimension)
	}

	vector = NormalizeVector(vector)
	s.cache.Add(key, copyVector(vector))
	return vector, nil
}

// CacheLen returns the current number of cached embeddings
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

// Close releases the underlying provider
func (s *Service) Close() error {
	return s.provider.Close()
}

// Truncate limits text to at most maxChars characters
func Truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// NormalizeVector scales a vector to unit length. Zero vectors are
// returned unchanged. Already-normalized input is passed through.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}
	if math.Abs(sum-1.0) < 1e-6 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}

// MeanPool averages a set of token vectors into one vector
func MeanPool(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	pooled := make([]float32, len(vectors[0]))
	for _, vec := range vectors {
		for i, val := range vec {
			pooled[i] += val
		}
	}
	n := float32(len(vectors))
	for i := range pooled {
		pooled[i] /= n
	}
	return pooled
}

// cacheKey hashes text so oversized strings never become map keys
func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
