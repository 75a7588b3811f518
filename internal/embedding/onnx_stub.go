//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXProvider stub type when built without CGO (see onnx.go for the real implementation).
type ONNXProvider struct{}

// NewONNXProvider returns an error when built without CGO (ONNX not available).
func NewONNXProvider(_, _ string, _, _, _ int) (*ONNXProvider, error) {
	return nil, errors.New("ONNX provider requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Embed is not available without CGO.
func (e *ONNXProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("ONNX provider not available")
}

// EmbedBatch is not available without CGO.
func (e *ONNXProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("ONNX provider not available")
}

// Dimensions returns 0 without CGO.
func (e *ONNXProvider) Dimensions() int { return 0 }

// ModelName returns an empty identity without CGO.
func (e *ONNXProvider) ModelName() string { return "" }

// Close is a no-op without CGO.
func (e *ONNXProvider) Close() error { return nil }
