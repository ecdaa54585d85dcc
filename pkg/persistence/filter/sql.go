package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Dialect selects the SQL flavour a filter is rendered for.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

var safeAttr = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// SQL renders f as a WHERE clause fragment over a JSON document column named
// doc. The clause is a pre-filter: it selects a superset of the matching rows
// and callers must re-check each row with Matches. argStart is the index of
// the first placeholder for Postgres ($n); SQLite uses "?".
func SQL(f Filter, d Dialect, argStart int) (string, []any) {
	if f == nil {
		return "1=1", nil
	}
	b := &sqlBuilder{dialect: d, next: argStart}
	clause := b.render(f)
	return clause, b.args
}

type sqlBuilder struct {
	dialect Dialect
	next    int
	args    []any
}

func (b *sqlBuilder) placeholder(v any) string {
	b.args = append(b.args, v)
	if b.dialect == SQLite {
		return "?"
	}
	p := fmt.Sprintf("$%d", b.next)
	b.next++
	return p
}

func (b *sqlBuilder) extract(attr string) string {
	if b.dialect == SQLite {
		return fmt.Sprintf("json_extract(doc, '$.%s')", attr)
	}
	return fmt.Sprintf("doc->>'%s'", attr)
}

func (b *sqlBuilder) like(attr, pattern string) string {
	// LIKE and ILIKE only fold ASCII reliably, Matches folds Unicode.
	if !safeAttr.MatchString(attr) || !isASCII(pattern) {
		return "1=1"
	}
	if b.dialect == SQLite {
		return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, b.extract(attr), b.placeholder(pattern))
	}
	return fmt.Sprintf(`%s ILIKE %s`, b.extract(attr), b.placeholder(pattern))
}

func (b *sqlBuilder) render(f Filter) string {
	switch v := f.(type) {
	case *substringFilter:
		parts := []string{v.initial}
		parts = append(parts, v.any...)
		parts = append(parts, v.final)
		var p strings.Builder
		p.WriteString("%")
		for _, part := range parts {
			if part == "" {
				continue
			}
			p.WriteString(escapeLike(part))
			p.WriteString("%")
		}
		return b.like(v.attr, p.String())
	case *equalityFilter:
		// Multi-valued attributes are stored as JSON arrays, so equality is
		// pre-filtered as containment.
		return b.like(v.attr, "%"+escapeLike(v.value)+"%")
	case *presenceFilter:
		if !safeAttr.MatchString(v.attr) {
			return "1=1"
		}
		if b.dialect == SQLite {
			return fmt.Sprintf("json_type(doc, '$.%s') IS NOT NULL", v.attr)
		}
		return fmt.Sprintf("doc ? '%s'", v.attr)
	case *orFilter:
		if len(v.filters) == 0 {
			return "1=0"
		}
		return b.combine(" OR ", v.filters)
	case *andFilter:
		if len(v.filters) == 0 {
			return "1=1"
		}
		return b.combine(" AND ", v.filters)
	default:
		return "1=1"
	}
}

func (b *sqlBuilder) combine(op string, filters []Filter) string {
	clauses := make([]string, 0, len(filters))
	for _, child := range filters {
		clauses = append(clauses, b.render(child))
	}
	return "(" + strings.Join(clauses, op) + ")"
}

func isASCII(v string) bool {
	for _, r := range v {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}
