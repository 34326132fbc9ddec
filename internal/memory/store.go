// Package memory persists per-user interaction history as one JSON document
// per user on the local filesystem.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ResultsSummary is the compact record of a query execution outcome kept in
// the history document.
type ResultsSummary struct {
	Success  bool   `json:"success"`
	RowCount int    `json:"row_count"`
	Error    string `json:"error,omitempty"`
}

// Interaction is one question/answer exchange. Immutable once written.
type Interaction struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Question       string         `json:"question"`
	SQLQuery       string         `json:"sql_query"`
	ResultsSummary ResultsSummary `json:"results_summary"`
	Response       string         `json:"response"`
}

// Document is the full per-user memory document.
type Document struct {
	Conversations []Interaction     `json:"conversations"`
	Preferences   map[string]string `json:"preferences"`
	LastUpdated   time.Time         `json:"last_updated"`
}

// Store reads and writes per-user memory documents under a directory.
//
// Append uses load-merge-store semantics: the whole document is read,
// one interaction appended, and the whole document rewritten. Writers for
// the same user are serialized through a per-user mutex within this process;
// two processes sharing the directory still race with last-write-wins.
type Store struct {
	dir string

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating memory directory: %w", err)
	}
	return &Store{dir: dir, users: make(map[string]*sync.Mutex)}, nil
}

// userLock returns the mutex serializing writes for one user id.
func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.users[userID]
	if !ok {
		m = &sync.Mutex{}
		s.users[userID] = m
	}
	return m
}

// path returns the document path for a user id, transformed so arbitrary
// identifiers cannot escape the memory directory.
func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, sanitize(userID)+".json")
}

// sanitize maps a user id onto a stable filesystem-safe name.
func sanitize(userID string) string {
	if userID == "" {
		return "anonymous"
	}
	var b strings.Builder
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func emptyDocument() Document {
	return Document{
		Conversations: []Interaction{},
		Preferences:   map[string]string{},
		LastUpdated:   time.Now().UTC(),
	}
}

// Load reads a user's memory document. A missing document yields a fresh
// empty one; a corrupt document is logged and replaced by a fresh one.
// Only genuinely unexpected read failures (e.g. permissions) are returned
// as errors.
func (s *Store) Load(userID string) (Document, error) {
	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return emptyDocument(), nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("reading memory document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Error("corrupt memory document, starting fresh", "user_id", userID, "error", err)
		return emptyDocument(), nil
	}
	if doc.Conversations == nil {
		doc.Conversations = []Interaction{}
	}
	if doc.Preferences == nil {
		doc.Preferences = map[string]string{}
	}
	return doc, nil
}

// Append adds one interaction to a user's document and rewrites it.
func (s *Store) Append(userID string, in Interaction) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.Load(userID)
	if err != nil {
		return err
	}
	doc.Conversations = append(doc.Conversations, in)
	doc.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling memory document: %w", err)
	}
	if err := os.WriteFile(s.path(userID), data, 0o644); err != nil {
		return fmt.Errorf("writing memory document: %w", err)
	}
	return nil
}

// Recent returns the last limit interactions in chronological order.
func (s *Store) Recent(userID string, limit int) ([]Interaction, error) {
	doc, err := s.Load(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || len(doc.Conversations) == 0 {
		return []Interaction{}, nil
	}
	if len(doc.Conversations) > limit {
		return doc.Conversations[len(doc.Conversations)-limit:], nil
	}
	return doc.Conversations, nil
}
