package retrieval

import (
	"context"
	"log/slog"
)

// Snippet is a retrieved context fragment handed to the SQL generator.
type Snippet struct {
	ID      string
	Kind    string
	Subject string
	Text    string
	Score   float32
}

// Retriever combines embedding and vector search to find context relevant
// to a question.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the question and returns up to topK similar snippets.
// Retrieval is best-effort context for prompt building: any failure is
// logged and an empty slice returned, never an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) []Snippet {
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		slog.Warn("retrieval: embedding question failed", "error", err)
		return nil
	}

	scored, err := r.store.Search(vec, topK)
	if err != nil {
		slog.Warn("retrieval: vector search failed", "error", err)
		return nil
	}

	snippets := make([]Snippet, len(scored))
	for i, s := range scored {
		snippets[i] = Snippet{
			ID:      s.ID,
			Kind:    s.Kind,
			Subject: s.Subject,
			Text:    s.Text,
			Score:   s.Score,
		}
	}
	return snippets
}
