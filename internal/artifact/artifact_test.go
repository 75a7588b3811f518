package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
)

func sampleArtifact() *Artifact {
	return &Artifact{
		Manifest: Manifest{Dimension: 3, NumVectors: 2, ModelName: "mock-embedder"},
		Vectors:  [][]float32{{1, 0, 0}, {0, 0.6, 0.8}},
		Chunks: []*models.Chunk{
			{Text: "first chunk", URL: "https://shop.example/a", Title: "A", PageType: models.PageTypeProduct, ChunkIndex: 0,
				ProductInfo: map[string]interface{}{"best_price": "19.99"}},
			{Text: "second chunk", URL: "https://shop.example/b", Title: "B", PageType: models.PageTypeInfo, ChunkIndex: 0},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	art := sampleArtifact()
	if err := Save(dir, art); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Manifest != art.Manifest {
		t.Errorf("manifest mismatch: %+v vs %+v", loaded.Manifest, art.Manifest)
	}
	if len(loaded.Vectors) != 2 || len(loaded.Chunks) != 2 {
		t.Fatalf("loaded %d vectors, %d chunks", len(loaded.Vectors), len(loaded.Chunks))
	}
	for i := range art.Vectors {
		for j := range art.Vectors[i] {
			if loaded.Vectors[i][j] != art.Vectors[i][j] {
				t.Errorf("vector[%d][%d] = %f, want %f", i, j, loaded.Vectors[i][j], art.Vectors[i][j])
			}
		}
	}
	if loaded.Chunks[0].Text != "first chunk" || loaded.Chunks[0].ProductInfo["best_price"] != "19.99" {
		t.Errorf("chunk metadata not preserved: %+v", loaded.Chunks[0])
	}
	if loaded.Chunks[1].PageType != models.PageTypeInfo {
		t.Errorf("page type not preserved: %s", loaded.Chunks[1].PageType)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent"))
	if !errors.Is(err, ErrMissingArtifact) {
		t.Errorf("expected ErrMissingArtifact, got %v", err)
	}
}

func TestLoad_MissingSingleFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	if err := Save(dir, sampleArtifact()); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, ManifestFile)); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if !errors.Is(err, ErrMissingArtifact) {
		t.Errorf("expected ErrMissingArtifact, got %v", err)
	}
}

func TestLoad_CountMismatchIsCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	art := sampleArtifact()
	if err := Save(dir, art); err != nil {
		t.Fatal(err)
	}
	// Truncate the vector file to one row: 10 metadata entries vs 9 rows in
	// miniature. Load must fail eagerly, never silently truncate.
	path := filepath.Join(dir, VectorsFile)
	if err := os.Truncate(path, int64(art.Manifest.Dimension*4)); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestLoad_TornVectorFileIsCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	art := sampleArtifact()
	if err := Save(dir, art); err != nil {
		t.Fatal(err)
	}
	// A size that is not a whole number of rows.
	if err := os.Truncate(filepath.Join(dir, VectorsFile), 5); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestSaveLoad_EmptyBuild(t *testing.T) {
	// A build over an empty corpus has no vectors and no dimension yet (a
	// remote provider only learns its dimension from the first response).
	// What Save accepts, Load must accept back.
	dir := filepath.Join(t.TempDir(), "index")
	art := &Artifact{Manifest: Manifest{Dimension: 0, NumVectors: 0, ModelName: "mock-embedder"}}
	if err := Save(dir, art); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("empty artifact did not round-trip: %v", err)
	}
	if len(loaded.Vectors) != 0 || len(loaded.Chunks) != 0 {
		t.Errorf("loaded %d vectors, %d chunks from empty build", len(loaded.Vectors), len(loaded.Chunks))
	}
	if loaded.Manifest.ModelName != "mock-embedder" {
		t.Errorf("model name = %q", loaded.Manifest.ModelName)
	}
}

func TestSave_RefusesVectorsWithoutDimension(t *testing.T) {
	art := sampleArtifact()
	art.Manifest.Dimension = 0
	err := Save(filepath.Join(t.TempDir(), "index"), art)
	if !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestLoad_ZeroDimensionWithRowsIsCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	art := &Artifact{Manifest: Manifest{Dimension: 0, NumVectors: 0, ModelName: "mock-embedder"}}
	if err := Save(dir, art); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, VectorsFile), make([]byte, 12), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestSave_RefusesInconsistentCounts(t *testing.T) {
	art := sampleArtifact()
	art.Manifest.NumVectors = 5
	err := Save(filepath.Join(t.TempDir(), "index"), art)
	if !errors.Is(err, ErrCorruptArtifact) {
		t.Errorf("expected ErrCorruptArtifact, got %v", err)
	}
}

func TestSave_ReplacesExistingArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	art := sampleArtifact()
	if err := Save(dir, art); err != nil {
		t.Fatal(err)
	}
	art2 := &Artifact{
		Manifest: Manifest{Dimension: 3, NumVectors: 1, ModelName: "mock-embedder"},
		Vectors:  [][]float32{{0, 1, 0}},
		Chunks:   []*models.Chunk{{Text: "replacement"}},
	}
	if err := Save(dir, art2); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Manifest.NumVectors != 1 || loaded.Chunks[0].Text != "replacement" {
		t.Errorf("old artifact not replaced: %+v", loaded.Manifest)
	}
	if _, err := os.Stat(dir + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp dir left behind")
	}
	if _, err := os.Stat(dir + ".old"); !os.IsNotExist(err) {
		t.Error("old dir left behind")
	}
}
