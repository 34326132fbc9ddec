package retrieval

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/kalambet/askdb/internal/storage"
)

func newTestVectorStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewSQLiteStore(store.DB())
}

func TestInsertAndCount(t *testing.T) {
	s := newTestVectorStore(t)

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("initial count = %d, want 0", count)
	}

	records := []Record{
		{ID: "a", Kind: "schema", Subject: "clientes", Text: "t1", Embedding: []float32{1, 0, 0}},
		{ID: "b", Kind: "pattern", Subject: "total_spent", Text: "t2", Embedding: []float32{0, 1, 0}},
	}
	if err := s.Insert(records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	count, err = s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	s := newTestVectorStore(t)

	records := []Record{
		{ID: "x", Kind: "schema", Subject: "x", Text: "x-axis", Embedding: []float32{1, 0, 0}, CreatedAt: time.Now().UTC()},
		{ID: "y", Kind: "schema", Subject: "y", Text: "y-axis", Embedding: []float32{0, 1, 0}, CreatedAt: time.Now().UTC()},
		{ID: "xy", Kind: "schema", Subject: "xy", Text: "diagonal", Embedding: []float32{1, 1, 0}, CreatedAt: time.Now().UTC()},
	}
	if err := s.Insert(records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search([]float32{1, 0.1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "x" {
		t.Errorf("best match = %s, want x", results[0].ID)
	}
	if results[1].ID != "xy" {
		t.Errorf("second match = %s, want xy", results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %v then %v", results[0].Score, results[1].Score)
	}
	if results[0].Text != "x-axis" {
		t.Errorf("full record not hydrated: %+v", results[0].Record)
	}
}

func TestSearchTopKLargerThanStore(t *testing.T) {
	s := newTestVectorStore(t)
	if err := s.Insert([]Record{
		{ID: "a", Kind: "schema", Subject: "a", Text: "a", Embedding: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := s.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestSearchEdgeCases(t *testing.T) {
	s := newTestVectorStore(t)

	// Empty store.
	results, err := s.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search on empty store: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty store", len(results))
	}

	// Zero topK.
	if results, err = s.Search([]float32{1, 0}, 0); err != nil || len(results) != 0 {
		t.Errorf("Search topK=0 = (%v, %v), want empty", results, err)
	}

	// Zero query vector never matches anything.
	if err := s.Insert([]Record{
		{ID: "a", Kind: "schema", Subject: "a", Text: "a", Embedding: []float32{1, 0}},
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if results, err = s.Search([]float32{0, 0}, 3); err != nil || len(results) != 0 {
		t.Errorf("Search zero vector = (%v, %v), want empty", results, err)
	}
}

func TestFloat32Codec(t *testing.T) {
	vectors := [][]float32{
		nil,
		{},
		{0},
		{1.5, -2.25, 3.125},
		{float32(math.Pi), float32(math.E), -0.001},
	}
	for _, v := range vectors {
		blob := encodeFloat32s(v)
		if len(blob) != 4*len(v) {
			t.Errorf("encode length = %d, want %d", len(blob), 4*len(v))
		}
		got, err := decodeFloat32s(blob)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != len(v) {
			t.Fatalf("decode length = %d, want %d", len(got), len(v))
		}
		for i := range v {
			if got[i] != v[i] {
				t.Errorf("roundtrip[%d] = %v, want %v", i, got[i], v[i])
			}
		}
	}

	if _, err := decodeFloat32s([]byte{1, 2, 3}); err == nil {
		t.Error("decode of misaligned blob succeeded, want error")
	}
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0}
	tests := []struct {
		b    []float32
		want float32
	}{
		{[]float32{1, 0}, 1},
		{[]float32{0, 1}, 0},
		{[]float32{-1, 0}, -1},
		{[]float32{0, 0}, 0},    // zero vector
		{[]float32{1, 0, 0}, 0}, // length mismatch
	}
	for _, tt := range tests {
		got := cosine(a, tt.b, norm(a))
		if math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("cosine(%v, %v) = %v, want %v", a, tt.b, got, tt.want)
		}
	}
}

func TestSortByScore(t *testing.T) {
	results := []ScoredRecord{
		{Record: Record{ID: "low"}, Score: 0.1},
		{Record: Record{ID: "high"}, Score: 0.9},
		{Record: Record{ID: "mid"}, Score: 0.5},
	}
	sortByScore(results)
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if results[i].ID != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].ID, id)
		}
	}
}

func TestSearchScaling(t *testing.T) {
	s := newTestVectorStore(t)

	records := make([]Record, 50)
	for i := range records {
		records[i] = Record{
			ID:        fmt.Sprintf("rec-%02d", i),
			Kind:      "pattern",
			Subject:   fmt.Sprintf("s%d", i),
			Text:      fmt.Sprintf("text %d", i),
			Embedding: []float32{float32(i), 1},
		}
	}
	if err := s.Insert(records); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// The query points along (49, 1): highest-index records align best.
	results, err := s.Search([]float32{49, 1}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].ID != "rec-49" {
		t.Errorf("best match = %s, want rec-49", results[0].ID)
	}
}
