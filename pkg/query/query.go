// Package query turns free-form search input into a structured predicate.
// Parsing is total: input that cannot be read as a phrase or a typed field
// filter becomes free text, so a typo never silently empties the result set.
package query

import (
	"strings"
	"unicode"

	"github.com/0xpix/hei-datahub/pkg/schema"
)

// Comparator is the relation a field filter applies.
type Comparator int

const (
	// Contains is the ":" operator. Text fields read it as case-insensitive
	// substring match, numeric fields as equality, date fields as "within
	// the named period".
	Contains Comparator = iota
	GreaterThan
	LessThan
	AtLeast
	AtMost
)

// String returns the operator's query-syntax spelling.
func (c Comparator) String() string {
	switch c {
	case Contains:
		return ":"
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case AtLeast:
		return ">="
	case AtMost:
		return "<="
	}
	return "?"
}

// TermKind tags the variant of a Term.
type TermKind int

const (
	FieldFilter TermKind = iota
	Phrase
	FreeText
)

// Term is one parsed unit of a query.
//
// FieldFilter terms carry Field, Op and the typed value (Value for text,
// Bytes for numeric, Dates for date fields). Phrase and FreeText terms carry
// only Text.
type Term struct {
	Kind TermKind

	Field schema.Field
	Op    Comparator
	Value string
	Bytes int64
	Dates DateRange

	Text string
}

// ParsedQuery is the ordered term list produced by Parse. Order is the
// insertion order of the original text; it matters only for display, never
// for ranking.
type ParsedQuery struct {
	Raw   string
	Terms []Term
}

// IsEmpty reports whether the query carries no terms at all.
func (q ParsedQuery) IsEmpty() bool { return len(q.Terms) == 0 }

// Words splits free text into lexical words, dropping punctuation. A fallback
// token like "banana:split" yields ["banana", "split"].
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Parser turns raw query text into a ParsedQuery against a field registry.
type Parser struct {
	reg *schema.Registry
}

// NewParser creates a parser over the given field registry.
func NewParser(reg *schema.Registry) *Parser {
	return &Parser{reg: reg}
}

// Parse is total: it never fails, for any input.
func (p *Parser) Parse(raw string) ParsedQuery {
	q := ParsedQuery{Raw: raw}

	i := 0
	for i < len(raw) {
		r := raw[i]
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			i++
			continue
		}

		if r == '"' {
			// Quoted phrase. An unterminated quote swallows the rest of the
			// input; still a valid phrase.
			end := strings.IndexByte(raw[i+1:], '"')
			var text string
			if end < 0 {
				text = raw[i+1:]
				i = len(raw)
			} else {
				text = raw[i+1 : i+1+end]
				i += end + 2
			}
			if strings.TrimSpace(text) != "" {
				q.Terms = append(q.Terms, Term{Kind: Phrase, Text: text})
			}
			continue
		}

		end := i
		for end < len(raw) && !isSpace(raw[end]) {
			end++
		}
		token := raw[i:end]
		i = end

		q.Terms = append(q.Terms, p.parseToken(token))
	}

	return q
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// parseToken tries identifier+operator+value; anything else is free text.
func (p *Parser) parseToken(token string) Term {
	sep := strings.IndexAny(token, ":<>")
	if sep <= 0 {
		return Term{Kind: FreeText, Text: token}
	}

	ident := token[:sep]
	op, opLen := readOperator(token[sep:])
	value := token[sep+opLen:]

	// "size:>5" spells the comparator after the colon; fold it in.
	if op == Contains {
		if op2, l := readOperator(value); op2 != Contains {
			op = op2
			value = value[l:]
		}
	}

	field, ok := p.reg.Lookup(ident)
	if !ok || value == "" {
		// Unknown field name, or a dangling operator. Deliberate fallback:
		// the whole token ranks as free text instead of matching nothing.
		return Term{Kind: FreeText, Text: token}
	}

	t := Term{Kind: FieldFilter, Field: field, Op: op, Value: value}
	switch field.Type {
	case schema.Text:
		// Text fields only support ":". A comparator like name:>5 degrades
		// to free text, same policy as an unrecognized field.
		if op != Contains {
			return Term{Kind: FreeText, Text: token}
		}
	case schema.Numeric:
		n, err := ParseSize(value)
		if err != nil {
			return Term{Kind: FreeText, Text: token}
		}
		t.Bytes = n
	case schema.Date:
		dr, err := ParseDate(value)
		if err != nil {
			return Term{Kind: FreeText, Text: token}
		}
		t.Dates = dr
	}
	return t
}

// readOperator reads the longest comparator at the start of s.
func readOperator(s string) (Comparator, int) {
	switch {
	case strings.HasPrefix(s, ">="):
		return AtLeast, 2
	case strings.HasPrefix(s, "<="):
		return AtMost, 2
	case strings.HasPrefix(s, ">"):
		return GreaterThan, 1
	case strings.HasPrefix(s, "<"):
		return LessThan, 1
	}
	return Contains, 1
}
