// Package storage persists the scraped document corpus that index builds
// read from.
package storage

import (
	"context"
	"errors"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Storage defines corpus persistence. Chunks and vectors are not stored here;
// they live in the index artifact and are derived from these documents.
type Storage interface {
	// UpsertDocument inserts a document or replaces the one with the same URL.
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByURL(ctx context.Context, url string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns the whole corpus in stable insertion order, so
	// rebuilds from an unchanged corpus assign the same ordinals.
	ListDocuments(ctx context.Context) ([]*models.Document, error)

	// ReplaceAll swaps the entire corpus in one transaction.
	ReplaceAll(ctx context.Context, docs []*models.Document) error

	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}
