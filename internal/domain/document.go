package domain

// Document represents a single uploaded file after text extraction.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a bounded slice of a document used as the unit of retrieval.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Metadata   map[string]any
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}
