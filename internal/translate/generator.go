// Package translate holds the two language-model boundary calls: natural
// language to SQL, and query results back to natural language.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/askdb/internal/ollama"
	"github.com/kalambet/askdb/internal/retrieval"
)

// Chatter is the slice of the Ollama client this package needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, temperature float64) (string, error)
}

// ContextRetriever supplies relevant snippets for the generation prompt.
type ContextRetriever interface {
	Retrieve(ctx context.Context, question string, topK int) []retrieval.Snippet
}

const sqlPromptTemplate = `You are an expert SQL query generator for a SQLite database. Your task is to convert natural language questions into correct and efficient SQL queries.

Database Schema:
- clientes (id, nome, email, saldo, data_cadastro)
- produtos (id, nome, descricao, preco, estoque)
- transacoes (id, cliente_id, produto_id, quantidade, valor_total, data_transacao)

Relationships:
- clientes.id = transacoes.cliente_id (One client can have many transactions)
- produtos.id = transacoes.produto_id (One product can be in many transactions)

%s%sQuestion: %s

Think step by step:
1. Understand what tables and fields are needed
2. Determine the necessary joins
3. Identify any filters, groupings, or aggregations
4. Construct a valid SQL query

Important guidelines:
- Use proper SQL syntax for SQLite
- Include appropriate JOINs when querying across tables
- Use aliases for readability (e.g., "c" for clientes)
- Apply proper filtering in WHERE clauses
- Use aggregation functions (SUM, COUNT, AVG) when needed
- Do not use any dangerous operations (DROP, DELETE, UPDATE, INSERT, etc.)
- Return ONLY the SQL query without any explanations or markdown formatting

SQL Query:`

// Generator turns a natural-language question into a SQL query via the
// chat model, augmented with retrieved context snippets.
type Generator struct {
	client    Chatter
	model     string
	retriever ContextRetriever
	topK      int
}

// NewGenerator creates a Generator. topK controls how many context snippets
// are retrieved per question (default 3 if <= 0).
func NewGenerator(client Chatter, model string, retriever ContextRetriever, topK int) *Generator {
	if topK <= 0 {
		topK = 3
	}
	return &Generator{client: client, model: model, retriever: retriever, topK: topK}
}

// Generate produces a SQL query for the question. historyContext, when
// non-empty, is rendered into the prompt so follow-up questions can refer
// to earlier ones. The model reply is cleaned of markdown fences.
func (g *Generator) Generate(ctx context.Context, question, historyContext string) (string, error) {
	var contextSection string
	if g.retriever != nil {
		snippets := g.retriever.Retrieve(ctx, question, g.topK)
		contextSection = renderSnippets(snippets)
		slog.Debug("retrieved context for generation", "snippets", len(snippets))
	}

	var historySection string
	if historyContext != "" {
		historySection = "Previous interactions:\n" + historyContext + "\n\n"
	}

	prompt := fmt.Sprintf(sqlPromptTemplate, contextSection, historySection, question)

	reply, err := g.client.Chat(ctx, g.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, 0)
	if err != nil {
		return "", fmt.Errorf("generating SQL: %w", err)
	}

	query := CleanSQL(reply)
	if query == "" {
		return "", fmt.Errorf("generating SQL: model returned empty query")
	}
	return query, nil
}

func renderSnippets(snippets []retrieval.Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Relevant Database Information:\n\n")
	for i, s := range snippets {
		fmt.Fprintf(&sb, "Document %d:\n%s\n\n", i+1, s.Text)
	}
	return sb.String()
}

// CleanSQL strips markdown code fences and surrounding whitespace from a
// model reply.
func CleanSQL(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```sql") {
		s = s[len("```sql"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// HistoryEntry is one past interaction rendered into the generation prompt.
type HistoryEntry struct {
	Question string
	Response string
}

// RenderHistory formats past interactions the way the generation prompt
// expects. Returns "" for empty history.
func RenderHistory(entries []HistoryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "Interaction %d:\nQuestion: %s\nResponse: %s\n", i+1, e.Question, e.Response)
	}
	return sb.String()
}
