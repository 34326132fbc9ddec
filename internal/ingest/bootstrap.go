// Package ingest seeds the retrieval corpus with schema descriptions and
// common SQL patterns for the domain tables.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/askdb/internal/retrieval"
)

type corpusDoc struct {
	kind    string
	subject string
	text    string
}

var corpus = []corpusDoc{
	{
		kind:    "schema",
		subject: "clientes",
		text: `Table: clientes
Description: Contains information about clients.
Columns:
- id (INTEGER): Primary key
- nome (TEXT): Client name
- email (TEXT): Client email (unique)
- saldo (REAL): Client balance
- data_cadastro (DATETIME): Registration date
Relationships:
- One client can have many transactions (transacoes)`,
	},
	{
		kind:    "schema",
		subject: "produtos",
		text: `Table: produtos
Description: Contains information about products.
Columns:
- id (INTEGER): Primary key
- nome (TEXT): Product name
- descricao (TEXT): Product description
- preco (REAL): Product price
- estoque (INTEGER): Product stock
Relationships:
- One product can be in many transactions (transacoes)`,
	},
	{
		kind:    "schema",
		subject: "transacoes",
		text: `Table: transacoes
Description: Contains information about transactions.
Columns:
- id (INTEGER): Primary key
- cliente_id (INTEGER): Foreign key to clientes.id
- produto_id (INTEGER): Foreign key to produtos.id
- quantidade (INTEGER): Quantity of products
- valor_total (REAL): Total value of the transaction
- data_transacao (DATETIME): Transaction date
Relationships:
- Many transactions can belong to one client (cliente)
- Many transactions can be for one product (produto)`,
	},
	{
		kind:    "schema",
		subject: "relationships",
		text: `Database Relationships:
1. clientes to transacoes: One-to-Many
   - A client can have multiple transactions
   - Each transaction belongs to exactly one client
   - Join: clientes.id = transacoes.cliente_id
2. produtos to transacoes: One-to-Many
   - A product can be in multiple transactions
   - Each transaction is for exactly one product
   - Join: produtos.id = transacoes.produto_id`,
	},
	{
		kind:    "pattern",
		subject: "clients_by_product",
		text: `Pattern: Find clients who bought a specific product
SQL Example:
SELECT DISTINCT c.id, c.nome, c.email
FROM clientes c
JOIN transacoes t ON c.id = t.cliente_id
JOIN produtos p ON t.produto_id = p.id
WHERE p.nome = 'Product Name'`,
	},
	{
		kind:    "pattern",
		subject: "total_spent",
		text: `Pattern: Calculate total spent by each client
SQL Example:
SELECT c.id, c.nome, SUM(t.valor_total) as total_gasto
FROM clientes c
LEFT JOIN transacoes t ON c.id = t.cliente_id
GROUP BY c.id, c.nome
ORDER BY total_gasto DESC`,
	},
	{
		kind:    "pattern",
		subject: "sufficient_balance",
		text: `Pattern: Find clients with sufficient balance to buy a product
SQL Example:
SELECT c.id, c.nome, c.email, c.saldo
FROM clientes c
WHERE c.saldo >= (SELECT preco FROM produtos WHERE nome = 'Product Name')`,
	},
	{
		kind:    "pattern",
		subject: "popular_products",
		text: `Pattern: Find most popular products
SQL Example:
SELECT p.id, p.nome, COUNT(t.id) as num_vendas
FROM produtos p
JOIN transacoes t ON p.id = t.produto_id
GROUP BY p.id, p.nome
ORDER BY num_vendas DESC`,
	},
}

// Bootstrap embeds the built-in corpus and inserts it into the vector store.
// Idempotent: when the store already holds records, nothing is written.
func Bootstrap(ctx context.Context, embedder *retrieval.Embedder, store retrieval.VectorStore) error {
	count, err := store.Count()
	if err != nil {
		return fmt.Errorf("probing vector store: %w", err)
	}
	if count > 0 {
		slog.Info("retrieval corpus already bootstrapped, skipping", "records", count)
		return nil
	}

	texts := make([]string, len(corpus))
	for i, d := range corpus {
		texts[i] = d.text
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding corpus: %w", err)
	}

	now := time.Now().UTC()
	records := make([]retrieval.Record, len(corpus))
	for i, d := range corpus {
		records[i] = retrieval.Record{
			ID:        uuid.New().String(),
			Kind:      d.kind,
			Subject:   d.subject,
			Text:      d.text,
			Embedding: vectors[i],
			CreatedAt: now,
		}
	}

	if err := store.Insert(records); err != nil {
		return fmt.Errorf("inserting corpus: %w", err)
	}

	slog.Info("retrieval corpus bootstrapped", "records", len(records))
	return nil
}

// Catalog exposes the schema portion of the corpus for the MCP list_schema
// tool.
type Catalog struct{}

// DescribeSchema returns the schema description documents in corpus order.
func (Catalog) DescribeSchema() []string {
	var docs []string
	for _, d := range corpus {
		if d.kind == "schema" {
			docs = append(docs, d.text)
		}
	}
	return docs
}
