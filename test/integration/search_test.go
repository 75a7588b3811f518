// Package integration provides end-to-end pipeline tests: corpus in, build,
// persist, load, query out.
package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/artifact"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/config"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/embedding"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/indexer"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/search"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/storage"
)

func pipelineConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Chunking.ChunkSize = 120
	cfg.Chunking.ChunkOverlap = 20
	cfg.Embedding.Dimensions = 16
	return cfg
}

func shopCorpus() []*models.Document {
	return []*models.Document{
		{
			Title:    "Blue Shirt",
			Content:  "A soft blue cotton shirt with a relaxed fit. Machine washable. Available in small, medium, and large.",
			URL:      "https://shop.example/products/blue-shirt",
			PageType: models.PageTypeProduct,
			ProductInfo: map[string]interface{}{
				"price": "$25",
				"sizes": []interface{}{"S", "M", "L"},
			},
		},
		{
			Title:    "Wool Scarf",
			Content:  "A warm winter scarf knitted from merino wool. Hand wash only.",
			URL:      "https://shop.example/products/wool-scarf",
			PageType: models.PageTypeProduct,
		},
		{
			Title:    "Return Policy",
			Content:  "Returns are accepted within 30 days of delivery. Items must be unworn with tags attached. Refunds go to the original payment method.",
			URL:      "https://shop.example/policies/returns",
			PageType: models.PageTypePolicy,
		},
		{
			Title:    "Shipping FAQ",
			Content:  "Orders ship within two business days. Free shipping over $50. International delivery takes one to two weeks.",
			URL:      "https://shop.example/pages/shipping",
			PageType: models.PageTypeInfo,
		},
	}
}

func TestPipeline_BuildPersistLoadQuery(t *testing.T) {
	cfg := pipelineConfig()
	provider := embedding.NewMockProvider(cfg.Embedding.Dimensions)
	indexDir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	builder, err := indexer.NewBuilder(provider, cfg)
	if err != nil {
		t.Fatal(err)
	}
	built, err := builder.BuildAndSave(ctx, shopCorpus(), indexDir)
	if err != nil {
		t.Fatal(err)
	}
	if built.Manifest.NumVectors != len(built.Chunks) {
		t.Fatalf("manifest %d vectors vs %d chunks", built.Manifest.NumVectors, len(built.Chunks))
	}

	// A fresh engine loads only from disk, as the serving process would.
	engine := search.NewEngine(provider, cfg)
	defer engine.Close()
	if err := engine.LoadFromDir(ctx, indexDir); err != nil {
		t.Fatal(err)
	}

	// Query text lifted from one chunk embeds identically under the mock
	// provider, so its own document must rank first.
	resp, err := engine.Query(ctx, &models.SearchQuery{Query: built.Chunks[0].Text, TopK: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	top := resp.Results[0]
	if top.URL != "https://shop.example/products/blue-shirt" {
		t.Errorf("top result = %s", top.URL)
	}
	if top.PageType != models.PageTypeProduct {
		t.Errorf("page type = %s", top.PageType)
	}
	if top.ProductInfo["price"] != "$25" {
		t.Errorf("product info lost across persistence: %v", top.ProductInfo)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestPipeline_RebuildSwapServesNewCorpus(t *testing.T) {
	cfg := pipelineConfig()
	provider := embedding.NewMockProvider(cfg.Embedding.Dimensions)
	indexDir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	builder, err := indexer.NewBuilder(provider, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := builder.BuildAndSave(ctx, shopCorpus(), indexDir); err != nil {
		t.Fatal(err)
	}

	engine := search.NewEngine(provider, cfg)
	defer engine.Close()
	if err := engine.LoadFromDir(ctx, indexDir); err != nil {
		t.Fatal(err)
	}

	// Corpus shrinks to one document; the rebuild replaces the artifact on
	// disk and the loaded snapshot.
	reduced := shopCorpus()[:1]
	if _, err := builder.BuildAndSave(ctx, reduced, indexDir); err != nil {
		t.Fatal(err)
	}
	if err := engine.LoadFromDir(ctx, indexDir); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Query(ctx, &models.SearchQuery{Query: "return policy", TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.URL != "https://shop.example/products/blue-shirt" {
			t.Errorf("stale snapshot result: %s", r.URL)
		}
	}
}

func TestPipeline_CorruptArtifactRefusedAtLoad(t *testing.T) {
	cfg := pipelineConfig()
	provider := embedding.NewMockProvider(cfg.Embedding.Dimensions)
	indexDir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	builder, err := indexer.NewBuilder(provider, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := builder.BuildAndSave(ctx, shopCorpus(), indexDir); err != nil {
		t.Fatal(err)
	}

	// Truncate the vector file so row count disagrees with the manifest.
	vecPath := filepath.Join(indexDir, artifact.VectorsFile)
	info, err := os.Stat(vecPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(vecPath, info.Size()-int64(4*cfg.Embedding.Dimensions)); err != nil {
		t.Fatal(err)
	}

	engine := search.NewEngine(provider, cfg)
	defer engine.Close()
	if err := engine.LoadFromDir(ctx, indexDir); !errors.Is(err, artifact.ErrCorruptArtifact) {
		t.Fatalf("error = %v, want ErrCorruptArtifact", err)
	}
	if engine.Ready() {
		t.Error("engine must not serve a corrupt artifact")
	}
}

func TestPipeline_CorpusFileToSearchResults(t *testing.T) {
	cfg := pipelineConfig()
	dir := t.TempDir()
	cfg.Storage.DatabasePath = filepath.Join(dir, "documents.db")
	indexDir := filepath.Join(dir, "index")
	ctx := context.Background()

	corpusPath := filepath.Join(dir, "scraped_data.json")
	corpus := `[
		{"title": "Blue Shirt", "content": "A soft blue cotton shirt.", "url": "https://shop.example/p/shirt", "page_type": "product"},
		{"title": "Contact", "content": "Reach us at support@shop.example.", "url": "https://shop.example/pages/contact", "page_type": "info"}
	]`
	if err := os.WriteFile(corpusPath, []byte(corpus), 0644); err != nil {
		t.Fatal(err)
	}

	docs, err := storage.LoadDocumentsFile(corpusPath)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.ReplaceAll(ctx, docs); err != nil {
		t.Fatal(err)
	}

	stored, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	provider := embedding.NewMockProvider(cfg.Embedding.Dimensions)
	builder, err := indexer.NewBuilder(provider, cfg)
	if err != nil {
		t.Fatal(err)
	}
	art, err := builder.BuildAndSave(ctx, stored, indexDir)
	if err != nil {
		t.Fatal(err)
	}

	engine := search.NewEngine(provider, cfg)
	defer engine.Close()
	if err := engine.Install(ctx, art); err != nil {
		t.Fatal(err)
	}

	resp, err := engine.Query(ctx, &models.SearchQuery{Query: art.Chunks[0].Text})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 || resp.Results[0].URL != "https://shop.example/p/shirt" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}
