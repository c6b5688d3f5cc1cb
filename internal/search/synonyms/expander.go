// internal/search/synonyms/expander.go
package synonyms

import (
	"regexp"
	"strings"
)

// defaultTable maps a canonical token to its equivalent tokens/phrases.
// Expansion is symmetric: a query for any member matches every member.
var defaultTable = map[string][]string{
	"marble":    {"marmor", "marbre"},
	"granite":   {"granit"},
	"quartz":    {"quarz", "engineered stone"},
	"travertine": {"traverten"},
	"onyx":      {"onix"},
	"slab":      {"sheet", "panel"},
	"tile":      {"tiles"},
	"countertop": {"counter top", "worktop", "benchtop"},
	"polished":  {"gloss", "glossy"},
	"honed":     {"matte", "matt"},
}

// Expander maps query tokens to sets of equivalent tokens for matching.
type Expander struct {
	table map[string][]string
}

// NewExpander creates an expander from a static table. A nil table uses the
// built-in defaults; entries are indexed under every member so expansion is
// symmetric.
func NewExpander(table map[string][]string) *Expander {
	if table == nil {
		table = defaultTable
	}

	indexed := make(map[string][]string, len(table)*2)
	for canonical, alts := range table {
		group := append([]string{canonical}, alts...)
		for _, member := range group {
			indexed[strings.ToLower(member)] = group
		}
	}
	return &Expander{table: indexed}
}

// Expand returns the set of tokens equivalent to token, always including the
// token itself. Unknown tokens expand to the singleton set.
func (e *Expander) Expand(token string) []string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return nil
	}

	group, ok := e.table[token]
	if !ok {
		return []string{token}
	}

	out := make([]string, 0, len(group)+1)
	seen := make(map[string]bool, len(group)+1)
	for _, member := range append([]string{token}, group...) {
		member = strings.ToLower(member)
		if !seen[member] {
			seen[member] = true
			out = append(out, member)
		}
	}
	return out
}

// Pattern builds a case-insensitive alternation regex matching any expansion
// of any token in the query. Returns nil for an empty query.
func (e *Expander) Pattern(query string) *regexp.Regexp {
	var alternatives []string
	seen := make(map[string]bool)
	for _, token := range strings.Fields(query) {
		for _, alt := range e.Expand(token) {
			if !seen[alt] {
				seen[alt] = true
				alternatives = append(alternatives, regexp.QuoteMeta(alt))
			}
		}
	}
	if len(alternatives) == 0 {
		return nil
	}

	// Substring semantics, not tokenized relevance.
	re, err := regexp.Compile("(?i)(" + strings.Join(alternatives, "|") + ")")
	if err != nil {
		return nil
	}
	return re
}

// Alternations returns the flat expanded token list for a whole query,
// suitable for building a datastore-side match clause.
func (e *Expander) Alternations(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, token := range strings.Fields(query) {
		for _, alt := range e.Expand(token) {
			if !seen[alt] {
				seen[alt] = true
				out = append(out, alt)
			}
		}
	}
	return out
}
