// Package agent implements the question-answering pipeline: a small
// finite-state machine that loads per-user history, generates a SQL query,
// executes it through the safety gate, formats an answer, and persists the
// interaction.
package agent

import (
	"github.com/kalambet/askdb/internal/memory"
	"github.com/kalambet/askdb/internal/sqlexec"
)

// anonymousUser is the sentinel user id used when a request carries none.
const anonymousUser = "anonymous"

// StageError records one stage failure. Kind is a coarse classification
// ("general", "database_error") used by callers that want to distinguish
// failure causes without parsing messages.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Context is the unit of work threaded through the pipeline stages. It is
// created once per request, owned by exactly one stage at a time, and
// discarded after the final stage returns its snapshot.
type Context struct {
	UserID   string
	Question string

	// SQLQuery is set by the generation stage; QueryValidated only after
	// the execution stage confirms the query passed the safety gate.
	SQLQuery       string
	QueryValidated bool
	Results        sqlexec.Result

	Response string

	// History is loaded once at pipeline start and never mutated after.
	History []memory.Interaction

	// Errors is append-only; insertion order is chronological.
	Errors []StageError

	Metadata map[string]any
}

// NewContext creates a fresh Context for one request. An empty user id
// falls back to the anonymous sentinel.
func NewContext(userID, question string) *Context {
	if userID == "" {
		userID = anonymousUser
	}
	return &Context{
		UserID:   userID,
		Question: question,
		Metadata: make(map[string]any),
	}
}

// AddError appends a stage error. kind defaults to "general" when empty.
func (c *Context) AddError(stage, message, kind string) {
	if kind == "" {
		kind = "general"
	}
	c.Errors = append(c.Errors, StageError{Stage: stage, Message: message, Kind: kind})
}

// HasErrors reports whether any stage has failed so far.
func (c *Context) HasErrors() bool {
	return len(c.Errors) > 0
}

// LastError returns the most recent error, or nil when there is none.
func (c *Context) LastError() *StageError {
	if len(c.Errors) == 0 {
		return nil
	}
	return &c.Errors[len(c.Errors)-1]
}

// SetMetadata records a cross-stage annotation.
func (c *Context) SetMetadata(key string, value any) {
	c.Metadata[key] = value
}

// Outcome is the snapshot returned to the caller when the pipeline reaches
// its terminal state.
type Outcome struct {
	Question string       `json:"question"`
	SQLQuery string       `json:"sql_query"`
	Response string       `json:"response"`
	Success  bool         `json:"success"`
	Errors   []StageError `json:"errors"`
}

// snapshot converts the final context into the caller-facing Outcome.
func (c *Context) snapshot() Outcome {
	errs := c.Errors
	if errs == nil {
		errs = []StageError{}
	}
	return Outcome{
		Question: c.Question,
		SQLQuery: c.SQLQuery,
		Response: c.Response,
		Success:  !c.HasErrors(),
		Errors:   errs,
	}
}
