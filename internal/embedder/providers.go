package embedder

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider configuration
const (
	ProviderOllama  = "ollama"
	ProviderOffline = "offline"

	// DefaultOllamaModel is a 384-dimension sentence embedding model
	DefaultOllamaModel = "all-minilm"
	DefaultOllamaHost  = "http://localhost:11434"

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// OllamaProvider embeds text through a local Ollama server
type OllamaProvider struct {
	host       string
	model      string
	httpClient *http.Client
}

// NewOllamaProvider creates an Ollama-backed provider. Empty host or
// model select the defaults.
func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		host:  strings.TrimRight(host, "/"),
		model: model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Load verifies the server is reachable and the model is present.
// An unreachable server is a missing runtime dependency, reported as
// ErrModelUnavailable with an actionable message.
func (o *OllamaProvider) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama server not reachable at %s (is ollama running?): %v",
			ErrModelUnavailable, o.host, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama server error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode tags response: %w", err)
	}

	for _, m := range tags.Models {
		if m.Name == o.model || strings.HasPrefix(m.Name, o.model+":") {
			return nil
		}
	}
	return fmt.Errorf("%w: model %q not found on %s (run: ollama pull %s)",
		ErrModelUnavailable, o.model, o.host, o.model)
}

// EmbedText calls the embeddings endpoint with retry and backoff
func (o *OllamaProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	config := DefaultRetryConfig()
	return retryWithBackoff(ctx, config, func() ([]float32, error) {
		return o.callAPI(ctx, text)
	})
}

func (o *OllamaProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  o.model,
		"prompt": text,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return apiResp.Embedding, nil
}

func (o *OllamaProvider) ModelTag() string {
	return ProviderOllama + "/" + o.model
}

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// OfflineProvider is a deterministic, dependency-free embedder. Each
// character trigram hashes to a pseudo-random unit direction; the trigram
// vectors are mean-pooled into a document vector. Not semantically strong,
// but stable, offline, and good enough for tests and degraded setups.
type OfflineProvider struct{}

// NewOfflineProvider creates the offline embedder
func NewOfflineProvider() *OfflineProvider {
	return &OfflineProvider{}
}

func (p *OfflineProvider) Load(ctx context.Context) error {
	return nil
}

func (p *OfflineProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runes := []rune(strings.ToLower(text))
	if len(runes) == 0 {
		return make([]float32, Dimension), nil
	}

	var grams [][]float32
	for i := 0; i+3 <= len(runes); i++ {
		grams = append(grams, trigramVector(runes[i:i+3]))
	}
	if len(grams) == 0 {
		grams = append(grams, trigramVector(runes))
	}

	return MeanPool(grams), nil
}

func (p *OfflineProvider) ModelTag() string {
	return ProviderOffline + "/trigram-v1"
}

func (p *OfflineProvider) Close() error {
	return nil
}

// trigramVector maps a rune window to a sparse pseudo-random vector
func trigramVector(window []rune) []float32 {
	var buf [12]byte
	for i, r := range window {
		if i >= 3 {
			break
		}
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(r))
	}

	// splitmix64-style scrambling drives the component selection
	state := binary.LittleEndian.Uint64(buf[:8]) ^ uint64(binary.LittleEndian.Uint32(buf[8:12]))
	vec := make([]float32, Dimension)
	for i := 0; i < 8; i++ {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z ^= z >> 31

		idx := int(z % Dimension)
		if z&(1<<40) != 0 {
			vec[idx] += 1
		} else {
			vec[idx] -= 1
		}
	}
	return vec
}
