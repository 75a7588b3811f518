// Package artifact persists and loads the index artifact: a vector file, a
// metadata file, and a manifest that must always agree on counts.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
)

// File names inside an index directory. The three files form one logical unit.
const (
	VectorsFile  = "vectors.f32"
	MetadataFile = "chunks_metadata.json"
	ManifestFile = "manifest.json"
)

var (
	// ErrMissingArtifact is returned at load when any of the three files is absent.
	ErrMissingArtifact = errors.New("index artifact missing")
	// ErrCorruptArtifact is returned at load when the vector rows, metadata
	// entries, and manifest num_vectors disagree. Detected eagerly, before
	// any query runs.
	ErrCorruptArtifact = errors.New("index artifact corrupt")
)

// Manifest describes a persisted index build.
type Manifest struct {
	Dimension  int    `json:"dimension"`
	NumVectors int    `json:"num_vectors"`
	ModelName  string `json:"model_name"`
}

// Artifact is a fully built index in memory: N vectors of Dimension floats,
// N chunk records in ordinal order, and the manifest. Immutable after build.
type Artifact struct {
	Manifest Manifest
	Vectors  [][]float32
	Chunks   []*models.Chunk
}

// Save writes the artifact to dir atomically: everything goes into a temp
// directory first, which is then renamed over the target, so a concurrent
// loader never observes a half-written artifact.
func Save(dir string, art *Artifact) error {
	if len(art.Vectors) != len(art.Chunks) || len(art.Vectors) != art.Manifest.NumVectors {
		return fmt.Errorf("%w: refusing to save %d vectors, %d chunks, manifest %d",
			ErrCorruptArtifact, len(art.Vectors), len(art.Chunks), art.Manifest.NumVectors)
	}
	if art.Manifest.NumVectors > 0 && art.Manifest.Dimension <= 0 {
		return fmt.Errorf("%w: refusing to save %d vectors with dimension %d",
			ErrCorruptArtifact, art.Manifest.NumVectors, art.Manifest.Dimension)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return fmt.Errorf("create index parent dir: %w", err)
	}
	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clean temp dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	if err := writeVectors(filepath.Join(tmp, VectorsFile), art.Vectors, art.Manifest.Dimension); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(tmp, MetadataFile), art.Chunks); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(tmp, ManifestFile), &art.Manifest); err != nil {
		return err
	}
	old := dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("clean old dir: %w", err)
	}
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, old); err != nil {
			return fmt.Errorf("move previous artifact aside: %w", err)
		}
	}
	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	_ = os.RemoveAll(old)
	return nil
}

// Load reads the artifact from dir and validates the consistency contract:
// vector rows, metadata entries, and manifest num_vectors must all agree.
// Any disagreement is corruption, surfaced here rather than during a query.
func Load(dir string) (*Artifact, error) {
	for _, name := range []string{VectorsFile, MetadataFile, ManifestFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, filepath.Join(dir, name))
			}
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
	}

	var manifest Manifest
	if err := readJSON(filepath.Join(dir, ManifestFile), &manifest); err != nil {
		return nil, err
	}
	if manifest.Dimension <= 0 && manifest.NumVectors != 0 {
		return nil, fmt.Errorf("%w: manifest dimension %d with %d vectors",
			ErrCorruptArtifact, manifest.Dimension, manifest.NumVectors)
	}

	var chunks []*models.Chunk
	if err := readJSON(filepath.Join(dir, MetadataFile), &chunks); err != nil {
		return nil, err
	}

	var vectors [][]float32
	if manifest.Dimension > 0 {
		var err error
		vectors, err = readVectors(filepath.Join(dir, VectorsFile), manifest.Dimension)
		if err != nil {
			return nil, err
		}
	} else {
		// An empty build has no dimension yet. The vector file must then be
		// empty too, so the artifact stays loadable.
		info, err := os.Stat(filepath.Join(dir, VectorsFile))
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", VectorsFile, err)
		}
		if info.Size() != 0 {
			return nil, fmt.Errorf("%w: manifest dimension 0 but %s has %d bytes",
				ErrCorruptArtifact, VectorsFile, info.Size())
		}
		vectors = [][]float32{}
	}

	if len(vectors) != manifest.NumVectors || len(chunks) != manifest.NumVectors {
		return nil, fmt.Errorf("%w: %d vector rows, %d metadata entries, manifest says %d",
			ErrCorruptArtifact, len(vectors), len(chunks), manifest.NumVectors)
	}

	return &Artifact{Manifest: manifest, Vectors: vectors, Chunks: chunks}, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrCorruptArtifact, filepath.Base(path), err)
	}
	return nil
}
