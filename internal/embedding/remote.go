package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Kailramiya/AI4Chat-ai-assistant/pkg/utils"
)

const (
	defaultRemoteBaseURL = "https://api.openai.com/v1"
	defaultRemoteModel   = "text-embedding-3-small"
	defaultRemoteTimeout = 30 * time.Second
	remoteMaxRetries     = 5
)

// RemoteProvider calls an OpenAI-compatible /embeddings endpoint. Requests
// carry the whole batch; the response must contain exactly one vector per
// input, in input order, or the call fails with ErrProviderFailure.
type RemoteProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client

	mu         sync.Mutex // guards dimensions; concurrent queries can race the first call
	dimensions int
}

// RemoteConfig configures a RemoteProvider.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewRemoteProvider creates a client for an OpenAI-compatible embeddings API.
func NewRemoteProvider(cfg RemoteConfig) (*RemoteProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote embedding provider requires an API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultRemoteBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultRemoteModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRemoteTimeout
	}
	return &RemoteProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Embed returns the embedding for a single text.
func (p *RemoteProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts in one request, retrying transient failures
// with exponential backoff and honoring Retry-After on 429s.
func (p *RemoteProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	body, err := json.Marshal(struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{Input: texts, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	url := p.baseURL + "/embeddings"
	var lastErr error
	for attempt := 0; attempt <= remoteMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build embeddings request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					_ = resp.Body.Close()
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(time.Duration(secs) * time.Second):
					}
					continue
				}
			}
			_ = resp.Body.Close()
			continue
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return p.decodeBatch(payload, len(texts))
	}
	return nil, fmt.Errorf("embeddings request exhausted retries: %w", lastErr)
}

// decodeBatch parses the response and enforces the one-vector-per-input
// contract. The API returns entries with an index field; vectors are placed
// by index so reordered responses still line up with the request.
func (p *RemoteProvider) decodeBatch(payload []byte, want int) ([][]float32, error) {
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrProviderFailure, err)
	}
	if len(out.Data) != want {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d", ErrProviderFailure, want, len(out.Data))
	}
	vectors := make([][]float32, want)
	for _, entry := range out.Data {
		if entry.Index < 0 || entry.Index >= want {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProviderFailure, entry.Index)
		}
		if len(entry.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrProviderFailure, entry.Index)
		}
		vectors[entry.Index] = entry.Embedding
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, fmt.Errorf("%w: no embedding for input %d", ErrProviderFailure, i)
		}
		if expect, ok := p.fixDimension(len(vec)); !ok {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, expected %d", ErrProviderFailure, i, len(vec), expect)
		}
		// Some deployments return unnormalized vectors; the index contract
		// expects unit norm, so normalize here.
		utils.NormalizeL2(vec)
	}
	return vectors, nil
}

// fixDimension pins the provider dimension to d on first use and reports
// whether d matches the pinned value on later calls.
func (p *RemoteProvider) fixDimension(d int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dimensions == 0 {
		p.dimensions = d
	}
	return p.dimensions, d == p.dimensions
}

// Dimensions returns the embedding dimension, 0 until the first successful call.
func (p *RemoteProvider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dimensions
}

// ModelName returns the provider identity recorded in build manifests.
func (p *RemoteProvider) ModelName() string {
	return p.model
}

// Close is a no-op for RemoteProvider.
func (p *RemoteProvider) Close() error {
	return nil
}

func retryDelay(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
	if d > 8*time.Second {
		d = 8 * time.Second
	}
	return d
}
