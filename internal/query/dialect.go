package query

import (
	"strconv"
	"strings"
)

// Dialect selects placeholder style and text matching operators.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Rebind rewrites ? placeholders into $1..$n for Postgres. Question marks
// inside single-quoted literals are left alone.
func (d Dialect) Rebind(q string) string {
	if d != Postgres || !strings.Contains(q, "?") {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// floatCast wraps an aggregate so both drivers scan it as a float64.
func (d Dialect) floatCast(expr string) string {
	if d == Postgres {
		return "CAST(" + expr + " AS DOUBLE PRECISION)"
	}
	return "CAST(" + expr + " AS REAL)"
}

// same renders a NULL-safe equality test.
func (d Dialect) same(a, b string) string {
	if d == Postgres {
		return a + " IS NOT DISTINCT FROM " + b
	}
	return a + " IS " + b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var globEscaper = strings.NewReplacer(`*`, `[*]`, `?`, `[?]`, `[`, `[[]`)

// match renders a case-sensitive pattern match. openStart/openEnd mark whether the
// pattern is open on that side: contains opens both, startsWith only the end.
func (d Dialect) match(col, value string, openStart, openEnd bool) (string, any) {
	if d == SQLite {
		p := globEscaper.Replace(value)
		if openStart {
			p = "*" + p
		}
		if openEnd {
			p += "*"
		}
		return col + " GLOB ?", p
	}
	return col + ` LIKE ? ESCAPE '\'`, likePattern(value, openStart, openEnd)
}

// matchFold renders a case-insensitive pattern match.
func (d Dialect) matchFold(col, value string, openStart, openEnd bool) (string, any) {
	p := likePattern(strings.ToLower(value), openStart, openEnd)
	if d == Postgres {
		return col + ` ILIKE ? ESCAPE '\'`, p
	}
	return "LOWER(" + col + `) LIKE ? ESCAPE '\'`, p
}

func likePattern(value string, openStart, openEnd bool) string {
	p := likeEscaper.Replace(value)
	if openStart {
		p = "%" + p
	}
	if openEnd {
		p += "%"
	}
	return p
}
