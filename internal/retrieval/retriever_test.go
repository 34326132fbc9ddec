package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

type mockEmbedClient struct {
	embedFn func(ctx context.Context, model, text string) ([]float32, error)

	calls atomic.Int32
}

func (m *mockEmbedClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.embedFn != nil {
		return m.embedFn(ctx, model, text)
	}
	return []float32{1, 0, 0}, nil
}

type mockVectorStore struct {
	searchFn func(vector []float32, topK int) ([]ScoredRecord, error)
}

func (m *mockVectorStore) Insert(records []Record) error { return nil }
func (m *mockVectorStore) Count() (int, error)           { return 0, nil }
func (m *mockVectorStore) Search(vector []float32, topK int) ([]ScoredRecord, error) {
	if m.searchFn != nil {
		return m.searchFn(vector, topK)
	}
	return nil, nil
}

func TestRetrieveReturnsSnippets(t *testing.T) {
	embedder := NewEmbedder(&mockEmbedClient{}, "test-model")
	store := &mockVectorStore{
		searchFn: func(vector []float32, topK int) ([]ScoredRecord, error) {
			return []ScoredRecord{
				{Record: Record{ID: "a", Kind: "schema", Subject: "clientes", Text: "doc"}, Score: 0.9},
			}, nil
		},
	}
	r := NewRetriever(embedder, store)

	snippets := r.Retrieve(context.Background(), "who are the clients?", 3)
	if len(snippets) != 1 {
		t.Fatalf("got %d snippets, want 1", len(snippets))
	}
	s := snippets[0]
	if s.ID != "a" || s.Subject != "clientes" || s.Text != "doc" || s.Score != 0.9 {
		t.Errorf("snippet = %+v", s)
	}
}

func TestRetrieveSwallowsFailures(t *testing.T) {
	// Embedding failure.
	failing := &mockEmbedClient{
		embedFn: func(ctx context.Context, model, text string) ([]float32, error) {
			return nil, errors.New("connection refused")
		},
	}
	r := NewRetriever(NewEmbedder(failing, "m"), &mockVectorStore{})
	if got := r.Retrieve(context.Background(), "q", 3); got != nil {
		t.Errorf("Retrieve with failing embedder = %v, want nil", got)
	}

	// Search failure.
	store := &mockVectorStore{
		searchFn: func(vector []float32, topK int) ([]ScoredRecord, error) {
			return nil, errors.New("table missing")
		},
	}
	r = NewRetriever(NewEmbedder(&mockEmbedClient{}, "m"), store)
	if got := r.Retrieve(context.Background(), "q", 3); got != nil {
		t.Errorf("Retrieve with failing store = %v, want nil", got)
	}
}

func TestEmbedBatch(t *testing.T) {
	client := &mockEmbedClient{
		embedFn: func(ctx context.Context, model, text string) ([]float32, error) {
			// Distinct vector per text so ordering is observable.
			var v float32
			fmt.Sscanf(text, "text %f", &v)
			return []float32{v}, nil
		},
	}
	e := NewEmbedder(client, "test-model")

	texts := make([]string, 9)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != 1 || v[0] != float32(i) {
			t.Errorf("vectors[%d] = %v, want [%d] (order must match input)", i, v, i)
		}
	}
	if int(client.calls.Load()) != len(texts) {
		t.Errorf("client called %d times, want %d", client.calls.Load(), len(texts))
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	e := NewEmbedder(&mockEmbedClient{}, "test-model")
	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil): %v", err)
	}
	if vectors != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", vectors)
	}
}

func TestEmbedBatchPropagatesErrors(t *testing.T) {
	client := &mockEmbedClient{
		embedFn: func(ctx context.Context, model, text string) ([]float32, error) {
			if text == "text 3" {
				return nil, errors.New("boom")
			}
			return []float32{1}, nil
		},
	}
	e := NewEmbedder(client, "test-model")

	texts := []string{"text 0", "text 1", "text 2", "text 3", "text 4"}
	if _, err := e.EmbedBatch(context.Background(), texts); err == nil {
		t.Error("EmbedBatch succeeded, want propagated error")
	}
}
