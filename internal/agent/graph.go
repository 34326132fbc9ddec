package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/askdb/internal/memory"
	"github.com/kalambet/askdb/internal/sqlexec"
	"github.com/kalambet/askdb/internal/translate"
)

// stage is one node of the pipeline graph.
type stage int

const (
	stageLoadContext stage = iota
	stageGenerateSQL
	stageExecuteSQL
	stageFormatResponse
	stageSaveMemory
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageLoadContext:
		return "load_context"
	case stageGenerateSQL:
		return "generate_sql"
	case stageExecuteSQL:
		return "execute_sql"
	case stageFormatResponse:
		return "format_response"
	case stageSaveMemory:
		return "save_memory"
	case stageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// HistoryStore is the per-user interaction log the pipeline reads at start
// and appends to at the end. Implemented by memory.Store.
type HistoryStore interface {
	Recent(userID string, limit int) ([]memory.Interaction, error)
	Append(userID string, in memory.Interaction) error
}

// SQLGenerator translates a question (plus rendered history) into SQL.
// Implemented by translate.Generator.
type SQLGenerator interface {
	Generate(ctx context.Context, question, historyContext string) (string, error)
}

// ResponseFormatter turns a query result into a natural-language answer.
// It must not fail; formatting falls back internally. Implemented by
// translate.Formatter.
type ResponseFormatter interface {
	Format(ctx context.Context, question, sqlQuery string, result sqlexec.Result) string
}

// QueryExecutor runs a query through the safety gate and normalizes the
// outcome. Implemented by sqlexec.Executor.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) sqlexec.Result
}

// Agent wires the pipeline stages to their collaborators.
type Agent struct {
	history      HistoryStore
	generator    SQLGenerator
	executor     QueryExecutor
	formatter    ResponseFormatter
	historyLimit int
}

// New creates an Agent. historyLimit caps how many past interactions are
// loaded into the context (default 5 if <= 0).
func New(history HistoryStore, generator SQLGenerator, executor QueryExecutor, formatter ResponseFormatter, historyLimit int) *Agent {
	if historyLimit <= 0 {
		historyLimit = 5
	}
	return &Agent{
		history:      history,
		generator:    generator,
		executor:     executor,
		formatter:    formatter,
		historyLimit: historyLimit,
	}
}

// checkForErrors is the conditional-edge predicate: it inspects only the
// context's error list and has no side effects.
func checkForErrors(c *Context) bool {
	return c.HasErrors()
}

// next is the transition function over the closed stage set. The graph is
// acyclic; every path visits format_response and save_memory exactly once.
func next(s stage, c *Context) stage {
	switch s {
	case stageLoadContext:
		// Unconditional: a history read failure never halts the pipeline.
		return stageGenerateSQL
	case stageGenerateSQL:
		if checkForErrors(c) {
			return stageFormatResponse
		}
		return stageExecuteSQL
	case stageExecuteSQL:
		// The formatter decides how to render an error; always proceed.
		return stageFormatResponse
	case stageFormatResponse:
		return stageSaveMemory
	case stageSaveMemory:
		return stageDone
	}
	return stageDone
}

// Process runs one question through the pipeline and returns the final
// snapshot. Each call owns a fresh Context; concurrent calls share nothing
// at this level.
func (a *Agent) Process(ctx context.Context, userID, question string) Outcome {
	c := NewContext(userID, question)
	slog.Info("processing question", "user_id", c.UserID, "question", question)

	for s := stageLoadContext; s != stageDone; s = next(s, c) {
		a.run(ctx, s, c)
	}

	out := c.snapshot()
	slog.Info("question processed", "user_id", c.UserID, "success", out.Success, "errors", len(out.Errors))
	return out
}

// run executes one stage. Stage failures are recorded on the context and
// never escape as errors or panics up the graph loop.
func (a *Agent) run(ctx context.Context, s stage, c *Context) {
	switch s {
	case stageLoadContext:
		a.loadContext(c)
	case stageGenerateSQL:
		a.generateSQL(ctx, c)
	case stageExecuteSQL:
		a.executeSQL(ctx, c)
	case stageFormatResponse:
		a.formatResponse(ctx, c)
	case stageSaveMemory:
		a.saveMemory(c)
	}
}

func (a *Agent) loadContext(c *Context) {
	recent, err := a.history.Recent(c.UserID, a.historyLimit)
	if err != nil {
		slog.Error("loading context failed", "user_id", c.UserID, "error", err)
		c.AddError("load_context", fmt.Sprintf("error loading context: %v", err), "")
		return
	}

	c.History = recent
	c.SetMetadata("context_loaded", true)
	c.SetMetadata("history_length", len(recent))
	slog.Debug("context loaded", "user_id", c.UserID, "history_length", len(recent))
}

func (a *Agent) generateSQL(ctx context.Context, c *Context) {
	query, err := a.generator.Generate(ctx, c.Question, renderHistory(c.History))
	if err != nil {
		slog.Error("SQL generation failed", "error", err)
		c.AddError("generate_sql", fmt.Sprintf("error generating SQL: %v", err), "")
		return
	}

	c.SQLQuery = query
	slog.Debug("SQL generated", "query", query)
}

func (a *Agent) executeSQL(ctx context.Context, c *Context) {
	result := a.executor.Execute(ctx, c.SQLQuery)

	c.Results = result
	c.QueryValidated = result.Success

	if !result.Success {
		slog.Error("query execution failed", "error", result.Error)
		c.AddError("execute_sql", fmt.Sprintf("query execution failed: %s", result.Error), "database_error")
		return
	}
	slog.Debug("query executed", "rows", result.RowCount)
}

func (a *Agent) formatResponse(ctx context.Context, c *Context) {
	if c.HasErrors() {
		last := c.LastError()
		msg := "an unknown error occurred"
		if last != nil {
			msg = last.Message
		}
		c.Response = fmt.Sprintf("I'm sorry, but I encountered an error: %s", msg)
		return
	}

	c.Response = a.formatter.Format(ctx, c.Question, c.SQLQuery, c.Results)
}

func (a *Agent) saveMemory(c *Context) {
	in := memory.Interaction{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Question:  c.Question,
		SQLQuery:  c.SQLQuery,
		ResultsSummary: memory.ResultsSummary{
			Success:  c.Results.Success,
			RowCount: c.Results.RowCount,
			Error:    c.Results.Error,
		},
		Response: c.Response,
	}

	if err := a.history.Append(c.UserID, in); err != nil {
		slog.Error("saving memory failed", "user_id", c.UserID, "error", err)
		c.AddError("save_memory", fmt.Sprintf("error saving memory: %v", err), "")
		return
	}
	slog.Debug("interaction saved", "user_id", c.UserID, "interaction_id", in.ID)
}

// renderHistory formats recent interactions for the generation prompt.
func renderHistory(history []memory.Interaction) string {
	if len(history) == 0 {
		return ""
	}
	entries := make([]translate.HistoryEntry, len(history))
	for i, h := range history {
		entries[i] = translate.HistoryEntry{Question: h.Question, Response: h.Response}
	}
	return translate.RenderHistory(entries)
}
