// Package suggest completes partial query input from the field schema and
// the live index contents. It only ever proposes completions that exist
// right now: field names from the registry, field values from the
// frequency table the index maintains alongside every upsert and delete.
package suggest

import (
	"strings"

	trie "github.com/derekparker/trie/v3"

	"github.com/0xpix/hei-datahub/pkg/schema"
)

// Kind tags what a suggestion completes.
type Kind int

const (
	Field Kind = iota
	Value
)

// Suggestion is a single confident completion for the final token of the
// partial query. Text is the full replacement for that token.
type Suggestion struct {
	Kind  Kind
	Field string // canonical field name
	Text  string // e.g. "format:" or "format:netcdf"
}

// ValueSource reports the most frequent distinct value currently indexed
// for a field. The index store implements it over its frequency table.
type ValueSource interface {
	TopValue(field string) (string, bool, error)
}

// Suggester proposes completions for partial queries.
type Suggester struct {
	reg    *schema.Registry
	values ValueSource
	names  *trie.Trie[string] // identifier -> canonical field name
}

// New builds a suggester over the registry's identifiers (canonical names
// and aliases alike) and the given value source.
func New(reg *schema.Registry, values ValueSource) *Suggester {
	names := trie.New[string]()
	for _, ident := range reg.Identifiers() {
		if f, ok := reg.Lookup(ident); ok {
			names.Add(ident, f.Name)
		}
	}
	return &Suggester{reg: reg, values: values, names: names}
}

// Suggest returns at most one completion for the partial query, or nil when
// no single confident completion exists. Ambiguous prefixes are never
// completed.
func (s *Suggester) Suggest(partial string) (*Suggestion, error) {
	token := lastToken(partial)
	if token == "" {
		return nil, nil
	}

	// "field:" — complete with that field's most frequent indexed value.
	if strings.HasSuffix(token, ":") && strings.Count(token, ":") == 1 {
		f, ok := s.reg.Lookup(strings.TrimSuffix(token, ":"))
		if !ok || !f.Suggest {
			return nil, nil
		}
		v, ok, err := s.values.TopValue(f.Name)
		if err != nil || !ok {
			return nil, err
		}
		return &Suggestion{Kind: Value, Field: f.Name, Text: token + v}, nil
	}

	// Mid-identifier — complete the field name itself.
	if strings.ContainsAny(token, `:<>="`) {
		return nil, nil
	}
	matches := s.names.PrefixSearch(strings.ToLower(token))
	if len(matches) == 0 {
		return nil, nil
	}

	// Aliases of one field (tag/tags) are not ambiguity; distinct fields
	// (date_created/description for "d") are.
	canonical := ""
	longest := ""
	for _, m := range matches {
		node, ok := s.names.Find(m)
		if !ok {
			continue
		}
		name := node.Val()
		if canonical == "" {
			canonical = name
		} else if canonical != name {
			return nil, nil
		}
		if len(m) > len(longest) {
			longest = m
		}
	}
	if canonical == "" {
		return nil, nil
	}
	return &Suggestion{Kind: Field, Field: canonical, Text: longest + ":"}, nil
}

// lastToken isolates the token being typed: everything after the final
// whitespace. A trailing space means no token is in progress.
func lastToken(partial string) string {
	if i := strings.LastIndexAny(partial, " \t"); i >= 0 {
		return partial[i+1:]
	}
	return partial
}
