package models

// SearchResult is a single ranked hit: a chunk joined back to its source
// metadata. Score is the inner product of the query and chunk embeddings,
// which equals cosine similarity for unit-norm vectors.
type SearchResult struct {
	Text        string                 `json:"text"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	PageType    string                 `json:"page_type"`
	ProductInfo map[string]interface{} `json:"product_info,omitempty"`
	Score       float64                `json:"score"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Query     string          `json:"query"`
	QueryTime int64           `json:"query_time_ms"`
}
