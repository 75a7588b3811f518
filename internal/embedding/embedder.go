// Package embedding provides text embedding providers: local ONNX inference,
// a remote OpenAI-compatible client, and a deterministic mock for tests.
package embedding

import (
	"context"
	"errors"
)

// ErrProviderFailure is returned when a provider breaks its output contract,
// e.g. a different vector count than the request.
var ErrProviderFailure = errors.New("embedding provider failure")

// Provider produces fixed-dimension, L2-normalized vector embeddings for
// text. EmbedBatch must return exactly one vector per input, in input order;
// that ordering contract is what lets the builder assign ordinals by
// position. Providers are long-lived injected dependencies: construction may
// be expensive (model load), so callers reuse one instance across builds and
// queries rather than constructing per call.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ModelName identifies the provider for the build manifest. An index
	// built with one model must never be queried with another.
	ModelName() string
	Close() error
}
