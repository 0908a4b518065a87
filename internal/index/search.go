package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/0xpix/hei-datahub/internal/catalog"
	"github.com/0xpix/hei-datahub/pkg/query"
	"github.com/0xpix/hei-datahub/pkg/schema"
)

// DefaultLimit bounds a search when the caller passes no limit.
const DefaultLimit = 50

// RankedResult is one search hit, best first.
type RankedResult struct {
	ID     string
	Score  float64
	Record catalog.Record
}

// bm25Weights are per-column relevance weights in FTS5 column order:
// id (unindexed), name, description, tags, projects, source, format, type,
// storage. Names and tags carry more weight than prose.
const bm25Weights = "0.0, 4.0, 1.0, 3.0, 2.0, 2.0, 2.0, 2.0, 2.0"

// Search compiles a parsed query into one SQL statement and executes it.
//
// Filter terms (field filters) become boolean WHERE predicates; scoring
// terms (free text with prefix expansion, quoted phrases) become an FTS5
// MATCH expression ranked by BM25. With no scoring terms every survivor
// gets the same baseline score and results come back in identifier order,
// so the empty query doubles as the stable browse listing.
func (s *Store) Search(ctx context.Context, q query.ParsedQuery, limit int) ([]RankedResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var match []string
	var conds []string
	var condArgs []any

	for _, term := range q.Terms {
		switch term.Kind {
		case query.Phrase:
			// Quoting disables prefix expansion: the phrase matches as an
			// exact token sequence only.
			match = append(match, `"`+escapeFTS(term.Text)+`"`)
		case query.FreeText:
			for _, w := range query.Words(term.Text) {
				match = append(match, `"`+escapeFTS(w)+`"*`)
			}
		case query.FieldFilter:
			cond, args := filterSQL(term)
			conds = append(conds, cond)
			condArgs = append(condArgs, args...)
		}
	}

	const selectCols = `r.id, r.name, r.description, r.source, r.format, r.type, r.storage,
		r.tags, r.projects, r.size, r.date_created, r.date_modified, r.created_at, r.updated_at`

	var sb strings.Builder
	var args []any

	if len(match) > 0 {
		fmt.Fprintf(&sb, `SELECT %s, -bm25(record_fts, %s) AS score
			FROM record_fts f JOIN records r ON r.id = f.id
			WHERE record_fts MATCH ?`, selectCols, bm25Weights)
		args = append(args, strings.Join(match, " "))
		for _, cond := range conds {
			sb.WriteString(" AND ")
			sb.WriteString(cond)
		}
		args = append(args, condArgs...)
		sb.WriteString(` ORDER BY score DESC, r.id ASC LIMIT ?`)
	} else {
		fmt.Fprintf(&sb, `SELECT %s, 0.0 AS score
			FROM records r JOIN record_fts f ON f.id = r.id`, selectCols)
		if len(conds) > 0 {
			sb.WriteString(" WHERE ")
			sb.WriteString(strings.Join(conds, " AND "))
		}
		args = append(args, condArgs...)
		sb.WriteString(` ORDER BY r.id ASC LIMIT ?`)
	}
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer rows.Close()

	var results []RankedResult
	for rows.Next() {
		var rec catalog.Record
		var tagsJSON, projectsJSON string
		var score float64
		if err := rows.Scan(
			&rec.ID, &rec.Name, &rec.Description, &rec.Source, &rec.Format, &rec.Type, &rec.Storage,
			&tagsJSON, &projectsJSON, &rec.SizeBytes,
			&rec.DateCreated, &rec.DateModified, &rec.CreatedAt, &rec.UpdatedAt,
			&score,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		decodeList(tagsJSON, &rec.Tags)
		decodeList(projectsJSON, &rec.Projects)
		results = append(results, RankedResult{ID: rec.ID, Score: score, Record: rec})
	}
	return results, rows.Err()
}

// escapeFTS doubles interior quotes so user tokens are inert inside an FTS5
// string literal.
func escapeFTS(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

// filterSQL translates one field filter into a SQL predicate. Text filters
// evaluate against the flattened index-entry columns (f.*); numeric and date
// filters against the typed canonical columns (r.*). The field's declared
// type was resolved at parse time, so the switch here is exhaustive.
func filterSQL(t query.Term) (string, []any) {
	switch t.Field.Type {
	case schema.Text:
		return fmt.Sprintf(`instr(lower(f.%s), ?) > 0`, t.Field.Column),
			[]any{strings.ToLower(t.Value)}

	case schema.Numeric:
		return fmt.Sprintf(`r.%s %s ?`, t.Field.Column, numericOp(t.Op)), []any{t.Bytes}

	case schema.Date:
		col := "r." + t.Field.Column
		switch t.Op {
		case query.GreaterThan:
			return fmt.Sprintf(`(%s <> '' AND %s > ?)`, col, col), []any{t.Dates.End}
		case query.AtLeast:
			return fmt.Sprintf(`(%s <> '' AND %s >= ?)`, col, col), []any{t.Dates.Start}
		case query.LessThan:
			return fmt.Sprintf(`(%s <> '' AND %s < ?)`, col, col), []any{t.Dates.Start}
		case query.AtMost:
			return fmt.Sprintf(`(%s <> '' AND %s <= ?)`, col, col), []any{t.Dates.End}
		default:
			// ":" means within the named period.
			return fmt.Sprintf(`(%s <> '' AND %s >= ? AND %s <= ?)`, col, col, col),
				[]any{t.Dates.Start, t.Dates.End}
		}
	}
	// Unreachable with a well-formed registry; match nothing rather than
	// everything if a field type is ever added without a case above.
	return `0 = 1`, nil
}

func numericOp(op query.Comparator) string {
	switch op {
	case query.GreaterThan:
		return ">"
	case query.LessThan:
		return "<"
	case query.AtLeast:
		return ">="
	case query.AtMost:
		return "<="
	default:
		return "="
	}
}

func decodeList(jsonText string, dst *[]string) {
	if jsonText == "" || jsonText == "[]" || jsonText == "null" {
		*dst = nil
		return
	}
	var out []string
	if err := json.Unmarshal([]byte(jsonText), &out); err == nil {
		*dst = out
	}
}
