package storage

import (
	"testing"
)

func TestSeedPopulatesTables(t *testing.T) {
	s := newTestStore(t)
	if err := s.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	counts := map[string]int{
		"clientes":   len(seedClientes),
		"produtos":   len(seedProdutos),
		"transacoes": len(seedTransacoes),
	}
	for table, want := range counts {
		var got int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&got); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Seed(); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := s.Seed(); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM clientes").Scan(&count); err != nil {
		t.Fatalf("counting clientes: %v", err)
	}
	if count != len(seedClientes) {
		t.Errorf("clientes = %d after double seed, want %d", count, len(seedClientes))
	}
}

func TestSeedFixtureGuarantees(t *testing.T) {
	s := newTestStore(t)
	if err := s.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	// João Silva has balance 5000 and the Notebook costs 4500.
	var saldo float64
	if err := s.db.QueryRow("SELECT saldo FROM clientes WHERE nome = 'João Silva'").Scan(&saldo); err != nil {
		t.Fatalf("reading João Silva: %v", err)
	}
	if saldo != 5000 {
		t.Errorf("João Silva saldo = %v, want 5000", saldo)
	}

	var preco float64
	if err := s.db.QueryRow("SELECT preco FROM produtos WHERE nome = 'Notebook'").Scan(&preco); err != nil {
		t.Fatalf("reading Notebook: %v", err)
	}
	if preco != 4500 {
		t.Errorf("Notebook preco = %v, want 4500", preco)
	}

	// João, Ana and Roberto each bought a Notebook.
	rows, err := s.db.Query(`
		SELECT DISTINCT c.nome
		FROM clientes c
		JOIN transacoes t ON c.id = t.cliente_id
		JOIN produtos p ON t.produto_id = p.id
		WHERE p.nome = 'Notebook'`)
	if err != nil {
		t.Fatalf("querying notebook buyers: %v", err)
	}
	defer rows.Close()

	buyers := map[string]bool{}
	for rows.Next() {
		var nome string
		if err := rows.Scan(&nome); err != nil {
			t.Fatalf("scanning buyer: %v", err)
		}
		buyers[nome] = true
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterating buyers: %v", err)
	}
	for _, want := range []string{"João Silva", "Ana Costa", "Roberto Almeida"} {
		if !buyers[want] {
			t.Errorf("%s did not buy a Notebook, fixtures broken", want)
		}
	}

	// valor_total is always quantity times the product price.
	var mismatches int
	if err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM transacoes t
		JOIN produtos p ON t.produto_id = p.id
		WHERE t.valor_total != t.quantidade * p.preco`).Scan(&mismatches); err != nil {
		t.Fatalf("checking valor_total: %v", err)
	}
	if mismatches != 0 {
		t.Errorf("%d transacoes have inconsistent valor_total", mismatches)
	}
}
