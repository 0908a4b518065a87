package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xpix/hei-datahub/pkg/schema"
)

func newParser() *Parser {
	return NewParser(schema.Default())
}

func TestParseFreeTextAndPhrase(t *testing.T) {
	p := newParser()

	q := p.Parse(`climate "sea surface temperature" grid`)
	require.Len(t, q.Terms, 3)

	assert.Equal(t, FreeText, q.Terms[0].Kind)
	assert.Equal(t, "climate", q.Terms[0].Text)

	assert.Equal(t, Phrase, q.Terms[1].Kind)
	assert.Equal(t, "sea surface temperature", q.Terms[1].Text)

	assert.Equal(t, FreeText, q.Terms[2].Kind)
	assert.Equal(t, "grid", q.Terms[2].Text)
}

func TestParseFieldFilters(t *testing.T) {
	p := newParser()

	q := p.Parse("format:netcdf size:>1000000 created:2025-03")
	require.Len(t, q.Terms, 3)

	f := q.Terms[0]
	assert.Equal(t, FieldFilter, f.Kind)
	assert.Equal(t, "format", f.Field.Name)
	assert.Equal(t, Contains, f.Op)
	assert.Equal(t, "netcdf", f.Value)

	s := q.Terms[1]
	assert.Equal(t, FieldFilter, s.Kind)
	assert.Equal(t, "size", s.Field.Name)
	assert.Equal(t, GreaterThan, s.Op)
	assert.Equal(t, int64(1000000), s.Bytes)

	d := q.Terms[2]
	assert.Equal(t, FieldFilter, d.Kind)
	assert.Equal(t, "date_created", d.Field.Name)
	assert.Equal(t, Contains, d.Op)
	assert.Equal(t, "2025-03-01", d.Dates.Start)
	assert.Equal(t, "2025-03-31", d.Dates.End)
}

func TestParseBareComparators(t *testing.T) {
	p := newParser()

	q := p.Parse("size>=500KB modified<2024")
	require.Len(t, q.Terms, 2)

	assert.Equal(t, AtLeast, q.Terms[0].Op)
	assert.Equal(t, int64(500_000), q.Terms[0].Bytes)

	assert.Equal(t, LessThan, q.Terms[1].Op)
	assert.Equal(t, "2024-01-01", q.Terms[1].Dates.Start)
	assert.Equal(t, "2024-12-31", q.Terms[1].Dates.End)
}

func TestParseUnknownFieldFallsBack(t *testing.T) {
	p := newParser()

	q := p.Parse("banana:split")
	require.Len(t, q.Terms, 1)
	assert.Equal(t, FreeText, q.Terms[0].Kind)
	assert.Equal(t, "banana:split", q.Terms[0].Text)

	assert.Equal(t, []string{"banana", "split"}, Words(q.Terms[0].Text))
}

func TestParseTotality(t *testing.T) {
	p := newParser()

	// None of these may panic or produce a non-FreeText surprise.
	inputs := []string{
		"",
		"    ",
		`"`,
		`""`,
		"size:>>5",
		"size:",
		":orphan",
		"name:>5",
		"created:notadate",
		"size:12parsecs",
		"<>",
	}
	for _, in := range inputs {
		q := p.Parse(in)
		for _, term := range q.Terms {
			if term.Kind == FieldFilter {
				t.Errorf("Parse(%q) produced a field filter, want degradation to free text", in)
			}
		}
	}

	if got := p.Parse("size:>>5"); assert.Len(t, got.Terms, 1) {
		assert.Equal(t, "size:>>5", got.Terms[0].Text)
	}
}

func TestParseUnterminatedQuote(t *testing.T) {
	p := newParser()

	q := p.Parse(`"half open phrase`)
	require.Len(t, q.Terms, 1)
	assert.Equal(t, Phrase, q.Terms[0].Kind)
	assert.Equal(t, "half open phrase", q.Terms[0].Text)
}

func TestParseOrderPreserved(t *testing.T) {
	p := newParser()

	q := p.Parse(`alpha tag:ocean "beta gamma" delta`)
	require.Len(t, q.Terms, 4)
	assert.Equal(t, FreeText, q.Terms[0].Kind)
	assert.Equal(t, FieldFilter, q.Terms[1].Kind)
	assert.Equal(t, Phrase, q.Terms[2].Kind)
	assert.Equal(t, FreeText, q.Terms[3].Kind)
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"0":      0,
		"123":    123,
		"500KB":  500_000,
		"500kb":  500_000,
		"2MB":    2_000_000,
		"3g":     3_000_000_000,
		"1024b":  1024,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "KB", ">5", "1.5GB", "12parsecs"} {
		if _, err := ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q) succeeded, want error", bad)
		}
	}
}

func TestParseDate(t *testing.T) {
	dr, err := ParseDate("2025-03-15")
	require.NoError(t, err)
	assert.Equal(t, DateRange{Start: "2025-03-15", End: "2025-03-15"}, dr)

	dr, err = ParseDate("2024-02")
	require.NoError(t, err)
	assert.Equal(t, DateRange{Start: "2024-02-01", End: "2024-02-29"}, dr)

	dr, err = ParseDate("2023")
	require.NoError(t, err)
	assert.Equal(t, DateRange{Start: "2023-01-01", End: "2023-12-31"}, dr)

	for _, bad := range []string{"", "03-2025", "2025-13", "2025-03-99", "soon"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) succeeded, want error", bad)
		}
	}
}
