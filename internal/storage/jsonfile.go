package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
)

// LoadDocumentsFile reads a scraped corpus from a JSON file. The file may be
// a bare array of documents, or an object wrapping the array under
// "documents", "data", or "pages". Documents without an ID get a generated
// UUID; documents without a page type default to "general". Entries with
// neither title nor content are skipped.
func LoadDocumentsFile(path string) ([]*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	docs, err := decodeDocuments(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse corpus file %s: %w", path, err)
	}

	out := make([]*models.Document, 0, len(docs))
	for _, doc := range docs {
		if doc == nil || (doc.Title == "" && doc.Content == "") {
			continue
		}
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.PageType == "" {
			doc.PageType = models.PageTypeGeneral
		}
		out = append(out, doc)
	}
	return out, nil
}

func decodeDocuments(data []byte) ([]*models.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []*models.Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var wrapped struct {
		Documents []*models.Document `json:"documents"`
		Data      []*models.Document `json:"data"`
		Pages     []*models.Document `json:"pages"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Documents != nil:
		return wrapped.Documents, nil
	case wrapped.Data != nil:
		return wrapped.Data, nil
	case wrapped.Pages != nil:
		return wrapped.Pages, nil
	}
	return nil, fmt.Errorf("no document array found (expected a JSON array or a documents/data/pages key)")
}
