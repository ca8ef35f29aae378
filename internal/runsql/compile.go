// Package runsql compiles run-history filters to parameterized SQLite.
//
// runsql is the only code that knows how runquery terms spell as SQL.
// Two rules hold for every compiled fragment:
//
//   - Values are never interpolated, only bound through ? placeholders.
//   - Listings order by OrderRecentFirst so paging and goldens stay
//     deterministic across SQLite versions.
package runsql

import (
	"fmt"
	"strings"
	"time"

	"github.com/tapemachine/bfc/internal/runquery"
)

// OrderRecentFirst is the mandatory ordering clause for run listings:
// newest first, with the run ID's raw bytes breaking timestamp ties.
// Ordering goes through julianday() for the same reason the time terms
// do; see cutoffFormat.
const OrderRecentFirst = "julianday(created_at) DESC, id COLLATE BINARY DESC"

// cutoffFormat matches the store's created_at encoding. Comparisons pass
// through julianday() on both sides because RFC 3339 with fractional
// seconds does not sort byte-wise across precision changes ("...00.5Z"
// orders before "...00Z" as text).
const cutoffFormat = time.RFC3339Nano

// Where compiles a filter to a WHERE-clause body and its parameters.
// An empty conjunction compiles to a tautology, so callers can always
// splice the result after "WHERE".
func Where(f runquery.Filter) (string, []any, error) {
	if f == nil {
		return "", nil, fmt.Errorf("cannot compile nil filter")
	}

	switch term := f.(type) {
	case runquery.ProgramIs:
		return "program_hash = ?", []any{term.Hash}, nil
	case *runquery.ProgramIs:
		return Where(*term)
	case runquery.SourceIs:
		return "source_path = ?", []any{term.Path}, nil
	case *runquery.SourceIs:
		return Where(*term)
	case runquery.Since:
		return "julianday(created_at) >= julianday(?)", []any{cutoffParam(term.Cutoff)}, nil
	case *runquery.Since:
		return Where(*term)
	case runquery.Until:
		return "julianday(created_at) <= julianday(?)", []any{cutoffParam(term.Cutoff)}, nil
	case *runquery.Until:
		return Where(*term)
	case runquery.MinSteps:
		return "steps >= ?", []any{int64(term.Steps)}, nil
	case *runquery.MinSteps:
		return Where(*term)
	case runquery.All:
		return compileAll(term)
	case *runquery.All:
		return Where(*term)
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

// compileAll joins sub-terms with AND. Empty means "always true"
// (vacuous truth), spelled as a constant comparison.
func compileAll(all runquery.All) (string, []any, error) {
	if len(all.Filters) == 0 {
		return "1 = 1", nil, nil
	}

	var fragments []string
	var params []any
	for _, sub := range all.Filters {
		sql, subParams, err := Where(sub)
		if err != nil {
			return "", nil, err
		}
		fragments = append(fragments, sql)
		params = append(params, subParams...)
	}

	return strings.Join(fragments, " AND "), params, nil
}

// cutoffParam encodes a time bound the way created_at is stored.
func cutoffParam(cutoff time.Time) string {
	return cutoff.UTC().Format(cutoffFormat)
}
