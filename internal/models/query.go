package models

import "fmt"

// DefaultTopK is the number of results returned when a query does not set TopK.
const DefaultTopK = 5

// SearchQuery is a semantic search request.
type SearchQuery struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate ensures the query has text and normalizes TopK.
// Returns an error for empty query text or negative TopK; zero TopK gets the default.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK < 0 {
		return fmt.Errorf("top_k must be positive, got %d", q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	return nil
}
