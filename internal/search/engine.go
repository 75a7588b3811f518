// Package search serves ranked semantic queries over an installed index
// snapshot.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/artifact"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/config"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/embedding"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/metadata"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/vector"
	"github.com/Kailramiya/AI4Chat-ai-assistant/pkg/utils"
)

var (
	// ErrNotReady is returned by Query before any index has been installed.
	ErrNotReady = errors.New("no index installed")
	// ErrModelMismatch is returned when the query provider's model is not the
	// model the installed index was built with. Mixing embedding spaces would
	// produce silently meaningless scores, so this is a hard failure.
	ErrModelMismatch = errors.New("embedding model does not match index")
)

// snapshot is one immutable generation of the index: vectors, metadata, and
// the manifest they were built under. Queries hold a snapshot pointer for
// their whole duration, so an install never changes results mid-query.
type snapshot struct {
	index    vector.Index
	store    *metadata.Store
	manifest artifact.Manifest
}

// Engine answers search queries against the current snapshot. Installing a
// new snapshot is atomic with respect to queries.
type Engine struct {
	provider    embedding.Provider
	indexType   string
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for query and install events.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine with no snapshot installed. The provider is a
// long-lived dependency shared with the builder.
func NewEngine(provider embedding.Provider, cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		provider:    provider,
		indexType:   cfg.Search.IndexType,
		defaultTopK: cfg.Search.DefaultTopK,
		maxTopK:     cfg.Search.MaxTopK,
	}
	if e.defaultTopK <= 0 {
		e.defaultTopK = models.DefaultTopK
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Install builds an in-memory index from the artifact's vectors and swaps it
// in as the current snapshot. Queries in flight keep the old snapshot;
// queries started after Install returns see only the new one.
func (e *Engine) Install(ctx context.Context, art *artifact.Artifact) error {
	index, err := vector.NewIndex(e.indexType, art.Manifest.Dimension)
	if err != nil {
		return err
	}
	if len(art.Vectors) > 0 {
		if err := index.Add(ctx, art.Vectors); err != nil {
			index.Close()
			return fmt.Errorf("rebuild index from artifact: %w", err)
		}
	}
	if index.Size() != len(art.Chunks) {
		index.Close()
		return fmt.Errorf("%w: %d vectors, %d metadata entries",
			artifact.ErrCorruptArtifact, index.Size(), len(art.Chunks))
	}

	next := &snapshot{
		index:    index,
		store:    metadata.NewStoreFromChunks(art.Chunks),
		manifest: art.Manifest,
	}

	e.mu.Lock()
	prev := e.snap
	e.snap = next
	e.mu.Unlock()

	if prev != nil {
		prev.index.Close()
	}
	if e.logger != nil {
		e.logger.Info("index snapshot installed",
			zap.Int("vectors", next.manifest.NumVectors),
			zap.Int("dimension", next.manifest.Dimension),
			zap.String("model", next.manifest.ModelName))
	}
	return nil
}

// LoadFromDir loads the persisted artifact and installs it.
func (e *Engine) LoadFromDir(ctx context.Context, dir string) error {
	art, err := artifact.Load(dir)
	if err != nil {
		return err
	}
	return e.Install(ctx, art)
}

// Query embeds the query text, searches the current snapshot, and joins the
// ranked ordinals back to chunk metadata.
func (e *Engine) Query(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	topK := q.TopK
	if topK <= 0 {
		topK = e.defaultTopK
	}
	if e.maxTopK > 0 && topK > e.maxTopK {
		topK = e.maxTopK
	}

	snap := e.current()
	if snap == nil {
		return nil, ErrNotReady
	}
	if model := e.provider.ModelName(); model != snap.manifest.ModelName {
		return nil, fmt.Errorf("%w: index built with %q, provider is %q",
			ErrModelMismatch, snap.manifest.ModelName, model)
	}

	started := time.Now()
	queryVec, err := e.provider.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := snap.index.Search(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := snap.store.Get(hit.Ordinal)
		if err != nil {
			// Should be impossible given the install consistency check;
			// drop the hit rather than fail the whole query.
			if e.logger != nil {
				e.logger.Warn("ranked ordinal has no metadata", zap.Int("ordinal", hit.Ordinal), zap.Error(err))
			}
			continue
		}
		results = append(results, &models.SearchResult{
			Text:        chunk.Text,
			URL:         chunk.URL,
			Title:       chunk.Title,
			PageType:    chunk.PageType,
			ProductInfo: chunk.ProductInfo,
			Score:       hit.Score,
		})
	}

	elapsed := time.Since(started)
	if e.logger != nil {
		e.logger.Debug("query served",
			zap.String("query", utils.Truncate(q.Query, 120)),
			zap.Int("top_k", topK),
			zap.Int("results", len(results)),
			zap.Duration("elapsed", elapsed))
	}
	return &models.SearchResponse{
		Results:   results,
		Query:     q.Query,
		QueryTime: elapsed.Milliseconds(),
	}, nil
}

// Ready reports whether a snapshot is installed.
func (e *Engine) Ready() bool {
	return e.current() != nil
}

// Status describes the installed snapshot. ok is false before the first install.
func (e *Engine) Status() (manifest artifact.Manifest, size int, ok bool) {
	snap := e.current()
	if snap == nil {
		return artifact.Manifest{}, 0, false
	}
	return snap.manifest, snap.index.Size(), true
}

// Close releases the current snapshot's index.
func (e *Engine) Close() error {
	e.mu.Lock()
	snap := e.snap
	e.snap = nil
	e.mu.Unlock()
	if snap != nil {
		return snap.index.Close()
	}
	return nil
}

func (e *Engine) current() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}
