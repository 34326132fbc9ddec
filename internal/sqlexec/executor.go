package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Result is the normalized outcome of a query execution.
//
// Invariants: Success=false implies Data=nil, Columns=nil, RowCount=0;
// Success=true implies RowCount == len(Data). A query returning zero rows is
// a success with RowCount 0 and a non-nil empty Data slice.
type Result struct {
	Success  bool             `json:"success"`
	Data     []map[string]any `json:"data"`
	Columns  []string         `json:"columns"`
	RowCount int              `json:"row_count"`
	Error    string           `json:"error,omitempty"`
}

// Executor runs validated read-only queries against the relational store.
type Executor struct {
	db *sql.DB
}

// NewExecutor creates an Executor on top of the given connection pool.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Execute validates the query through the safety gate and, when it passes,
// runs it and normalizes the rows. Validation failures and execution errors
// are both reported through the Result, never as a returned error, so the
// pipeline always receives a structured outcome.
func (e *Executor) Execute(ctx context.Context, query string) Result {
	if err := Validate(query); err != nil {
		slog.Warn("query failed validation", "error", err)
		return failure("SQL query failed validation")
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return failure(fmt.Sprintf("database error: %v", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return failure(fmt.Sprintf("reading columns: %v", err))
	}

	data := make([]map[string]any, 0)
	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return failure(fmt.Sprintf("scanning row: %v", err))
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return failure(fmt.Sprintf("iterating rows: %v", err))
	}

	return Result{
		Success:  true,
		Data:     data,
		Columns:  columns,
		RowCount: len(data),
	}
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// normalizeValue converts driver-specific scan values into JSON-friendly
// types. SQLite returns TEXT columns as []byte through database/sql.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
