package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT,
		page_type TEXT NOT NULL DEFAULT 'general',
		content TEXT NOT NULL,
		product_info TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_page_type ON documents(page_type);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// UpsertDocument inserts doc, replacing any existing document with the same
// URL. A missing ID gets a generated UUID.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.PageType == "" {
		doc.PageType = models.PageTypeGeneral
	}
	infoJSON, err := encodeProductInfo(doc.ProductInfo)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, url, title, page_type, content, product_info)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   title = excluded.title,
		   page_type = excluded.page_type,
		   content = excluded.content,
		   product_info = excluded.product_info`,
		doc.ID, doc.URL, doc.Title, doc.PageType, doc.Content, infoJSON,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.getOne(ctx, `WHERE id = ?`, id)
}

// GetDocumentByURL returns a document by URL.
func (s *SQLiteStorage) GetDocumentByURL(ctx context.Context, url string) (*models.Document, error) {
	return s.getOne(ctx, `WHERE url = ?`, url)
}

func (s *SQLiteStorage) getOne(ctx context.Context, where string, arg interface{}) (*models.Document, error) {
	var doc models.Document
	var infoJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, page_type, content, product_info FROM documents `+where, arg,
	).Scan(&doc.ID, &doc.URL, &doc.Title, &doc.PageType, &doc.Content, &infoJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, arg)
	}
	if err != nil {
		return nil, err
	}
	if err := decodeProductInfo(infoJSON, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns the whole corpus ordered by insertion.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, page_type, content, product_info FROM documents ORDER BY rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var infoJSON sql.NullString
		if err := rows.Scan(&doc.ID, &doc.URL, &doc.Title, &doc.PageType, &doc.Content, &infoJSON); err != nil {
			return nil, err
		}
		if err := decodeProductInfo(infoJSON, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// ReplaceAll swaps the corpus atomically: either all docs are stored or the
// previous corpus is untouched.
func (s *SQLiteStorage) ReplaceAll(ctx context.Context, docs []*models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, url, title, page_type, content, product_info)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.PageType == "" {
			doc.PageType = models.PageTypeGeneral
		}
		infoJSON, err := encodeProductInfo(doc.ProductInfo)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.URL, doc.Title, doc.PageType, doc.Content, infoJSON); err != nil {
			return fmt.Errorf("insert %s: %w", doc.URL, err)
		}
	}
	return tx.Commit()
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func encodeProductInfo(info map[string]interface{}) (sql.NullString, error) {
	if info == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(info)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal product info: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeProductInfo(infoJSON sql.NullString, doc *models.Document) error {
	if !infoJSON.Valid || infoJSON.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(infoJSON.String), &doc.ProductInfo); err != nil {
		return fmt.Errorf("failed to unmarshal product info for %s: %w", doc.URL, err)
	}
	return nil
}
