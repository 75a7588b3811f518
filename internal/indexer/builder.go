package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/artifact"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/config"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/embedding"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/metadata"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/vector"
)

// Builder turns a document corpus into a complete index artifact: chunk every
// document, embed every chunk, and append vectors and metadata in lockstep so
// ordinals match by construction. A build either produces a full artifact or
// fails with nothing persisted.
type Builder struct {
	provider  embedding.Provider
	chunker   *Chunker
	indexType string
	batchSize int
	logger    *zap.Logger // optional; when set, logs build progress
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build progress output.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder around a long-lived embedding provider.
// The chunking configuration is validated here, not discovered mid-build.
func NewBuilder(provider embedding.Provider, cfg *config.Config, opts ...BuilderOption) (*Builder, error) {
	chunker, err := NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		provider:  provider,
		chunker:   chunker,
		indexType: cfg.Search.IndexType,
		batchSize: cfg.Embedding.BatchSize,
	}
	if b.batchSize <= 0 {
		b.batchSize = 64
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build chunks and embeds the corpus and returns the in-memory artifact.
// The title is indexed as part of each document's text, so a query matching
// only the title still retrieves the document's chunks.
func (b *Builder) Build(ctx context.Context, docs []*models.Document) (*artifact.Artifact, error) {
	chunks := make([]*models.Chunk, 0)
	for _, doc := range docs {
		full := doc.Title + "\n\n" + doc.Content
		texts := b.chunker.Chunk(full)
		for i, text := range texts {
			chunks = append(chunks, &models.Chunk{
				Text:        text,
				URL:         doc.URL,
				Title:       doc.Title,
				PageType:    doc.PageType,
				ChunkIndex:  i,
				ProductInfo: doc.ProductInfo,
			})
		}
		if b.logger != nil {
			b.logger.Debug("document chunked", zap.String("url", doc.URL), zap.Int("chunks", len(texts)))
		}
	}
	if b.logger != nil {
		b.logger.Info("corpus chunked", zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))
	}

	index, err := vector.NewIndex(b.indexType, b.provider.Dimensions())
	if err != nil {
		return nil, err
	}
	defer index.Close()
	store := metadata.NewStore()
	vectors := make([][]float32, 0, len(chunks))

	// Embed in order-preserving sub-batches. Vectors and chunk records are
	// appended in lockstep per batch, so the ordinal of a chunk is the
	// ordinal of its vector by construction.
	for start := 0; start < len(chunks); start += b.batchSize {
		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}
		embedded, err := b.provider.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch at ordinal %d: %w", start, err)
		}
		if len(embedded) != len(texts) {
			return nil, fmt.Errorf("%w: requested %d embeddings, got %d",
				embedding.ErrProviderFailure, len(texts), len(embedded))
		}
		if err := index.Add(ctx, embedded); err != nil {
			return nil, fmt.Errorf("index batch at ordinal %d: %w", start, err)
		}
		for i, ch := range batch {
			ord := store.Append(ch)
			if ord != start+i {
				return nil, fmt.Errorf("ordinal drift: metadata assigned %d, expected %d", ord, start+i)
			}
		}
		vectors = append(vectors, embedded...)
	}

	if store.Len() != index.Size() {
		return nil, fmt.Errorf("build invariant violated: %d chunks, %d vectors", store.Len(), index.Size())
	}

	art := &artifact.Artifact{
		Manifest: artifact.Manifest{
			Dimension:  index.Dimension(),
			NumVectors: index.Size(),
			ModelName:  b.provider.ModelName(),
		},
		Vectors: vectors,
		Chunks:  store.Chunks(),
	}
	if b.logger != nil {
		b.logger.Info("index built",
			zap.Int("vectors", art.Manifest.NumVectors),
			zap.Int("dimension", art.Manifest.Dimension),
			zap.String("model", art.Manifest.ModelName))
	}
	return art, nil
}

// BuildAndSave builds the artifact and persists it to dir. Persistence only
// happens after the entire corpus has been embedded and indexed.
func (b *Builder) BuildAndSave(ctx context.Context, docs []*models.Document, dir string) (*artifact.Artifact, error) {
	art, err := b.Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := artifact.Save(dir, art); err != nil {
		return nil, fmt.Errorf("persist artifact: %w", err)
	}
	if b.logger != nil {
		b.logger.Info("artifact saved", zap.String("dir", dir))
	}
	return art, nil
}
