package embedding

import (
	"context"
	"math"

	"github.com/Kailramiya/AI4Chat-ai-assistant/pkg/utils"
)

// MockProvider is a deterministic provider for tests. The same text always
// maps to the same unit-norm vector, so rebuilds from identical documents are
// reproducible and similarity is exact for identical texts.
type MockProvider struct {
	dimensions int
	name       string
}

// NewMockProvider returns a provider producing deterministic embeddings of
// the given dimensions.
func NewMockProvider(dimensions int) *MockProvider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockProvider{dimensions: dimensions, name: "mock-embedder"}
}

// Embed returns a deterministic unit-norm embedding derived from the text hash.
func (m *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	vec := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch calls Embed for each text, preserving order.
func (m *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (m *MockProvider) Dimensions() int {
	return m.dimensions
}

// ModelName returns the provider identity recorded in build manifests.
func (m *MockProvider) ModelName() string {
	return m.name
}

// Close is a no-op for MockProvider.
func (m *MockProvider) Close() error {
	return nil
}
