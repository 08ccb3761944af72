package db

import "github.com/kailas-cloud/docassist/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// Summarize asks the engine for extractive fragments of a TEXT field
// instead of its full value (FT.SEARCH SUMMARIZE).
type Summarize struct {
	Field     string
	Frags     int
	Len       int
	Separator string
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	TextField    string // defaults to "content"
	Query        string
	Filters      filter.Expression
	TopK         int
	ReturnFields []string
	Summarize    *Summarize
}

// FilterQuery lists documents matching a filter without any scoring.
// An empty filter matches every document in the index. KeyPrefix is used by
// backends that cannot run non-vector FT queries and fall back to SCAN.
type FilterQuery struct {
	IndexName    string
	KeyPrefix    string
	Filters      filter.Expression
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
