// Package highlight locates query-term occurrences in result text so the
// terminal layer can render badges and snippets. A single Aho-Corasick
// automaton matches every scoring term in one pass over the text.
package highlight

import (
	"strings"
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/0xpix/hei-datahub/pkg/query"
)

// Span is a byte range of matched text.
type Span struct {
	Start int
	End   int
}

// Highlighter finds scoring-term occurrences in arbitrary text.
type Highlighter struct {
	ac       ahocorasick.AhoCorasick
	patterns []string
}

// New builds a highlighter for the given patterns. Empty patterns are
// dropped; with no patterns left the highlighter matches nothing.
func New(patterns []string) *Highlighter {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	h := &Highlighter{patterns: kept}
	if len(kept) == 0 {
		return h
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	h.ac = builder.Build(kept)
	return h
}

// FromQuery builds a highlighter over a query's scoring terms: phrases and
// the words of free-text terms. Field filters are boolean predicates and are
// not highlighted.
func FromQuery(q query.ParsedQuery) *Highlighter {
	var patterns []string
	for _, term := range q.Terms {
		switch term.Kind {
		case query.Phrase:
			patterns = append(patterns, term.Text)
		case query.FreeText:
			patterns = append(patterns, query.Words(term.Text)...)
		}
	}
	return New(patterns)
}

// Spans returns the matched byte ranges in text, in order of appearance.
func (h *Highlighter) Spans(text string) []Span {
	if len(h.patterns) == 0 || text == "" {
		return nil
	}

	matches := h.ac.FindAll(text)
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, Span{Start: m.Start(), End: m.End()})
	}
	return spans
}

// Snippet extracts a context window of roughly radius bytes around the first
// match, trimmed to rune boundaries via the surrounding words. With no match
// it returns the head of the text.
func (h *Highlighter) Snippet(text string, radius int) string {
	if radius <= 0 || len(text) <= radius*2 {
		return text
	}

	spans := h.Spans(text)
	if len(spans) == 0 {
		return strings.TrimRight(text[:snapRuneStart(text, radius*2)], " ") + "..."
	}

	start := spans[0].Start - radius
	if start < 0 {
		start = 0
	}
	end := spans[0].End + radius
	if end > len(text) {
		end = len(text)
	}

	// Snap to whitespace so we never cut a word in half. When the window
	// holds no space, fall back to the nearest rune boundary.
	if start > 0 {
		if i := strings.IndexByte(text[start:spans[0].Start], ' '); i >= 0 {
			start += i + 1
		} else {
			start = snapRuneStart(text, start)
		}
	}
	if end < len(text) {
		if i := strings.LastIndexByte(text[spans[0].End:end], ' '); i >= 0 {
			end = spans[0].End + i
		} else {
			end = snapRuneStart(text, end)
		}
	}

	out := text[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// snapRuneStart moves i left to the nearest UTF-8 rune boundary, so slicing
// text at i never splits a multi-byte rune.
func snapRuneStart(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
