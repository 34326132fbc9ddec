package sqlexec

import (
	"errors"
	"testing"
)

func TestValidateAcceptsSelect(t *testing.T) {
	queries := []string{
		"SELECT * FROM clientes",
		"select nome, email from clientes where saldo > 1000",
		"  SELECT COUNT(*) FROM transacoes  ",
		"SeLeCt 1",
		// Column and table names containing denylisted substrings are fine:
		// the denylist matches whole tokens only.
		"SELECT created_at FROM updates_log",
		"SELECT * FROM produtos ORDER BY preco DESC",
	}
	for _, q := range queries {
		if err := Validate(q); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", q, err)
		}
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	queries := []string{
		"",
		"   ",
		"EXPLAIN SELECT * FROM clientes",
		"WITH x AS (SELECT 1) SELECT * FROM x", // CTE prefix is not SELECT
		"PRAGMA table_info(clientes)",
	}
	for _, q := range queries {
		err := Validate(q)
		if err == nil {
			t.Errorf("Validate(%q) = nil, want rejection", q)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Validate(%q) returned %T, want *ValidationError", q, err)
			continue
		}
		if verr.Reason != ReasonNotSelect {
			t.Errorf("Validate(%q) reason = %s, want %s", q, verr.Reason, ReasonNotSelect)
		}
	}
}

func TestValidateRejectsDangerousKeywords(t *testing.T) {
	tests := []struct {
		query   string
		keyword string
	}{
		{"DROP TABLE clientes", "drop"},
		{"DELETE FROM clientes", "delete"},
		{"UPDATE clientes SET saldo = 0", "update"},
		{"INSERT INTO clientes VALUES (1)", "insert"},
		{"TRUNCATE TABLE clientes", "truncate"},
		{"ALTER TABLE clientes ADD COLUMN x", "alter"},
		{"CREATE TABLE x (id INTEGER)", "create"},
		{"GRANT ALL ON clientes TO foo", "grant"},
		{"REVOKE ALL ON clientes FROM foo", "revoke"},
		{"BEGIN TRANSACTION", "begin"},
		{"COMMIT", "commit"},
		{"ROLLBACK", "rollback"},
		{"VACUUM", "vacuum"},
		// Denylisted keywords are caught even inside a SELECT-shaped string.
		{"SELECT * FROM clientes; DROP TABLE clientes", "drop"},
		{"select 1 union select drop from x", "drop"},
	}
	for _, tt := range tests {
		err := Validate(tt.query)
		if err == nil {
			t.Errorf("Validate(%q) = nil, want rejection", tt.query)
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Validate(%q) returned %T, want *ValidationError", tt.query, err)
			continue
		}
		if verr.Reason != ReasonDangerousKeyword {
			t.Errorf("Validate(%q) reason = %s, want %s", tt.query, verr.Reason, ReasonDangerousKeyword)
		}
		if verr.Keyword != tt.keyword {
			t.Errorf("Validate(%q) keyword = %q, want %q", tt.query, verr.Keyword, tt.keyword)
		}
	}
}

func TestValidateTokenizesOnWhitespace(t *testing.T) {
	// "end" as a whole token is denylisted; "week_end" is one token and passes.
	if err := Validate("SELECT week_end FROM calendario"); err != nil {
		t.Errorf("Validate with embedded keyword substring rejected: %v", err)
	}
	if err := Validate("SELECT x FROM y end"); err == nil {
		t.Error("Validate with bare end token accepted, want rejection")
	}
}
