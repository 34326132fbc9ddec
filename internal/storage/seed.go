package storage

import (
	"fmt"
	"log/slog"
	"time"
)

type seedCliente struct {
	nome  string
	email string
	saldo float64
}

type seedProduto struct {
	nome      string
	descricao string
	preco     float64
	estoque   int
}

type seedTransacao struct {
	clienteID  int
	produtoID  int
	quantidade int
	daysAgo    int
}

var seedClientes = []seedCliente{
	{"João Silva", "joao.silva@example.com", 5000.0},
	{"Maria Oliveira", "maria.oliveira@example.com", 3500.0},
	{"Pedro Santos", "pedro.santos@example.com", 2000.0},
	{"Ana Costa", "ana.costa@example.com", 7500.0},
	{"Carlos Ferreira", "carlos.ferreira@example.com", 1000.0},
	{"Lucia Pereira", "lucia.pereira@example.com", 4500.0},
	{"Roberto Almeida", "roberto.almeida@example.com", 6000.0},
	{"Fernanda Lima", "fernanda.lima@example.com", 3000.0},
	{"Bruno Martins", "bruno.martins@example.com", 2500.0},
	{"Juliana Rocha", "juliana.rocha@example.com", 8000.0},
}

var seedProdutos = []seedProduto{
	{"Notebook", "Notebook de alta performance", 4500.0, 10},
	{"Smartphone", "Smartphone com câmera de alta resolução", 2500.0, 20},
	{"Tablet", "Tablet com tela de 10 polegadas", 1800.0, 15},
	{"Monitor", "Monitor de 27 polegadas", 1200.0, 8},
	{"Teclado", "Teclado mecânico", 350.0, 30},
	{"Mouse", "Mouse sem fio", 120.0, 25},
	{"Headphone", "Headphone com cancelamento de ruído", 800.0, 12},
	{"Impressora", "Impressora multifuncional", 950.0, 5},
	{"Webcam", "Webcam HD", 280.0, 18},
	{"HD Externo", "HD Externo 1TB", 400.0, 22},
}

// seedTransacoes is a fixed spread of purchases across clients and products.
// The first three rows guarantee that João, Ana and Roberto bought a Notebook
// (product 1), which the example questions rely on.
var seedTransacoes = []seedTransacao{
	{1, 1, 1, 3},
	{4, 1, 1, 9},
	{7, 1, 1, 14},
	{2, 2, 1, 1},
	{3, 5, 2, 2},
	{5, 6, 1, 4},
	{6, 3, 1, 5},
	{8, 7, 1, 6},
	{9, 9, 2, 7},
	{10, 2, 1, 8},
	{2, 4, 1, 10},
	{3, 10, 1, 11},
	{6, 8, 1, 12},
	{8, 5, 3, 13},
	{10, 7, 2, 15},
	{1, 6, 1, 17},
	{4, 3, 1, 19},
	{5, 10, 2, 21},
	{7, 9, 1, 23},
	{9, 4, 1, 27},
}

// Seed populates the domain tables with fixture data. It is idempotent: when
// the clientes table already holds rows, nothing is written.
func (s *Store) Seed() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM clientes").Scan(&count); err != nil {
		return fmt.Errorf("probing clientes: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping", "clientes", count)
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	for _, c := range seedClientes {
		if _, err := tx.Exec(
			"INSERT INTO clientes (nome, email, saldo, data_cadastro) VALUES (?, ?, ?, ?)",
			c.nome, c.email, c.saldo, now.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting cliente %s: %w", c.nome, err)
		}
	}

	for _, p := range seedProdutos {
		if _, err := tx.Exec(
			"INSERT INTO produtos (nome, descricao, preco, estoque) VALUES (?, ?, ?, ?)",
			p.nome, p.descricao, p.preco, p.estoque,
		); err != nil {
			return fmt.Errorf("inserting produto %s: %w", p.nome, err)
		}
	}

	for _, t := range seedTransacoes {
		preco := seedProdutos[t.produtoID-1].preco
		when := now.AddDate(0, 0, -t.daysAgo)
		if _, err := tx.Exec(
			"INSERT INTO transacoes (cliente_id, produto_id, quantidade, valor_total, data_transacao) VALUES (?, ?, ?, ?, ?)",
			t.clienteID, t.produtoID, t.quantidade, preco*float64(t.quantidade), when.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("inserting transacao for cliente %d: %w", t.clienteID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}

	slog.Info("database seeded",
		"clientes", len(seedClientes),
		"produtos", len(seedProdutos),
		"transacoes", len(seedTransacoes),
	)
	return nil
}
