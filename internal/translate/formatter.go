package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/askdb/internal/ollama"
	"github.com/kalambet/askdb/internal/sqlexec"
)

const formatPromptTemplate = `You are an expert at interpreting SQL query results and explaining them in natural language.
Your task is to take the results of a SQL query and the original question, and provide a clear, concise answer.

Original Question: %s

SQL Query Used: %s

Query Results:
%s

Please provide a natural language response that:
1. Directly answers the original question
2. Summarizes the key information from the results
3. Is conversational and easy to understand
4. Includes specific numbers or data points from the results when relevant

If the results are empty, explain that no data was found that matches the criteria.
If there was an error, explain what might have gone wrong in simple terms.`

// formatTemperature allows some variation in phrasing; the answer content
// comes from the results, not the sampling.
const formatTemperature = 0.3

// Formatter turns a query result into a natural-language answer.
type Formatter struct {
	client Chatter
	model  string
}

// NewFormatter creates a Formatter using the given client and model.
func NewFormatter(client Chatter, model string) *Formatter {
	return &Formatter{client: client, model: model}
}

// Format renders the result-explanation prompt and calls the chat model.
// It never fails: when the model call errors, a deterministic summary of
// the result is returned instead.
func (f *Formatter) Format(ctx context.Context, question, sqlQuery string, result sqlexec.Result) string {
	prompt := fmt.Sprintf(formatPromptTemplate, question, sqlQuery, renderResult(result))

	reply, err := f.client.Chat(ctx, f.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, formatTemperature)
	if err != nil {
		slog.Warn("response formatting via model failed, using fallback", "error", err)
		return FallbackSummary(result)
	}
	return strings.TrimSpace(reply)
}

// renderResult flattens a Result into the textual form the prompt expects.
func renderResult(result sqlexec.Result) string {
	if !result.Success {
		return fmt.Sprintf("Error: %s", result.Error)
	}
	if result.RowCount == 0 {
		return "No results found."
	}
	var sb strings.Builder
	sb.WriteString("Results:\n")
	for i, row := range result.Data {
		fmt.Fprintf(&sb, "Row %d: %v\n", i+1, row)
	}
	return sb.String()
}

// FallbackSummary is the deterministic answer used when the model is
// unavailable: row count and raw rows, or the stored error string.
func FallbackSummary(result sqlexec.Result) string {
	if !result.Success {
		return fmt.Sprintf("There was an error processing your query: %s", result.Error)
	}
	if result.RowCount == 0 {
		return "No results were found that match your query."
	}
	return fmt.Sprintf("Found %d results. Here's the data: %v", result.RowCount, result.Data)
}
