package retrieval

import "time"

// Record is one stored context snippet with its embedding.
type Record struct {
	ID        string
	Kind      string // "schema" or "pattern"
	Subject   string // table name or pattern tag
	Text      string
	Embedding []float32
	CreatedAt time.Time
}

// ScoredRecord is a Record with a cosine similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}

// VectorStore is the storage and similarity-search backend for context
// snippets. The default implementation is SQLite with brute-force cosine
// similarity over the context_vectors table.
type VectorStore interface {
	// Insert adds records to the store.
	Insert(records []Record) error

	// Search returns the top-K records most similar to the query vector.
	Search(vector []float32, topK int) ([]ScoredRecord, error)

	// Count returns the number of stored records.
	Count() (int, error)
}
