package sqlexec

import (
	"fmt"
	"strings"
)

// Reason identifies why a query was rejected by the safety gate.
type Reason string

const (
	// ReasonDangerousKeyword means a denylisted statement keyword appeared
	// as a whole token anywhere in the query.
	ReasonDangerousKeyword Reason = "dangerous_keyword"
	// ReasonNotSelect means the query does not start with SELECT.
	ReasonNotSelect Reason = "not_select"
)

// ValidationError reports a safety-gate rejection with its reason code.
type ValidationError struct {
	Reason  Reason
	Keyword string // set when Reason is ReasonDangerousKeyword
}

func (e *ValidationError) Error() string {
	if e.Reason == ReasonDangerousKeyword {
		return fmt.Sprintf("query rejected (%s): %q", e.Reason, e.Keyword)
	}
	return fmt.Sprintf("query rejected (%s)", e.Reason)
}

// denylist holds statement keywords that must never reach the store, even
// embedded inside a nominally SELECT-shaped string (multi-statement tricks).
var denylist = map[string]struct{}{
	"drop": {}, "delete": {}, "truncate": {}, "update": {}, "insert": {},
	"alter": {}, "create": {}, "grant": {}, "revoke": {}, "commit": {},
	"rollback": {}, "begin": {}, "end": {}, "vacuum": {},
}

// Validate checks that the query is a read-only SELECT statement. The SELECT
// prefix requirement is the primary guarantee; the denylist is defense in
// depth against keyword-based tricks within a SELECT-shaped string.
//
// Tokens are whitespace-delimited, matching the behavior this gate was
// specified against. That leaves known gaps (comments, keyword concatenation
// such as "drop;table" counting as one token); closing them needs a real SQL
// tokenizer and is a deliberate behavior change, not a drop-in fix.
func Validate(query string) error {
	lowered := strings.ToLower(query)

	for _, token := range strings.Fields(lowered) {
		if _, bad := denylist[token]; bad {
			return &ValidationError{Reason: ReasonDangerousKeyword, Keyword: token}
		}
	}

	if !strings.HasPrefix(strings.TrimSpace(lowered), "select") {
		return &ValidationError{Reason: ReasonNotSelect}
	}

	return nil
}
