// Package models defines core data structures for documents, chunks, queries, and search results.
package models

// Page types assigned by the document source when classifying a page.
const (
	PageTypeProduct = "product"
	PageTypeInfo    = "info"
	PageTypePolicy  = "policy"
	PageTypeGeneral = "general"
)

// Document is one ingested page (product page, article, policy page).
// Documents are supplied by an external source and immutable once ingested.
// ProductInfo is an opaque structured map carried through to search results.
type Document struct {
	ID          string                 `json:"id,omitempty"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	URL         string                 `json:"url"`
	PageType    string                 `json:"page_type"`
	ProductInfo map[string]interface{} `json:"product_info,omitempty"`
}

// Chunk is a bounded span of normalized text extracted from a document,
// the atomic indexed and retrieved unit. ChunkIndex is 0-based and
// contiguous within the source document. Chunks are never mutated.
type Chunk struct {
	Text        string                 `json:"text"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	PageType    string                 `json:"page_type"`
	ChunkIndex  int                    `json:"chunk_index"`
	ProductInfo map[string]interface{} `json:"product_info,omitempty"`
}
