package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPayeePatterns match the payee text Amazon uses on card statements.
var DefaultPayeePatterns = []string{
	`amazon`,
	`amzn`,
	`prime video`,
}

// PayeeFilter selects transactions whose payee text matches a configured
// pattern set. Patterns are case-insensitive regular expressions; plain
// substrings work as-is.
type PayeeFilter struct {
	patterns []*regexp.Regexp
}

// NewPayeeFilter compiles the given patterns. An empty slice falls back to
// DefaultPayeePatterns.
func NewPayeeFilter(patterns []string) (*PayeeFilter, error) {
	if len(patterns) == 0 {
		patterns = DefaultPayeePatterns
	}

	f := &PayeeFilter{}
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("invalid payee pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Matches reports whether the payee text matches any configured pattern.
func (f *PayeeFilter) Matches(payee string) bool {
	payee = strings.TrimSpace(payee)
	for _, re := range f.patterns {
		if re.MatchString(payee) {
			return true
		}
	}
	return false
}

// Filter returns the transactions whose payee matches, preserving order.
func (f *PayeeFilter) Filter(txns []Transaction) []Transaction {
	var out []Transaction
	for _, t := range txns {
		if f.Matches(t.Payee) {
			out = append(out, t)
		}
	}
	return out
}
