package query

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Table describes how an entity maps onto SQL. Field names exposed to
// clients are translated through Sortable and Numeric, so no identifier in
// generated SQL is taken from input.
type Table struct {
	Name         string
	PK           string
	IntPK        bool
	Columns      string
	Sortable     map[string]string
	Numeric      map[string]string
	DefaultOrder Order
}

// Select builds the list query for where/ob/p. It fetches one row more
// than p.Take so NewResult can tell whether another page exists.
func (t Table) Select(d Dialect, where any, ob OrderBy, p Page) (string, []any, error) {
	p, err := p.Normalize()
	if err != nil {
		return "", nil, err
	}
	terms, err := t.resolve(ob)
	if err != nil {
		return "", nil, err
	}
	w, err := Compile(d, t.Name, where)
	if err != nil {
		return "", nil, err
	}

	var c conj
	c.add(w.SQL, w.Args...)
	if p.Cursor != "" {
		cur, err := t.cursorArg(p.Cursor)
		if err != nil {
			return "", nil, err
		}
		ks, ksArgs := t.keyset(d, terms, cur)
		c.add(ks, ksArgs...)
	}

	var b strings.Builder
	b.WriteString("SELECT " + t.Columns + " FROM " + t.Name)
	if s := c.sql(); s != "" {
		b.WriteString(" WHERE " + s)
	}
	b.WriteString(orderClause(t.Name, terms))
	b.WriteString(" LIMIT ? OFFSET ?")
	args := append(c.args, int64(p.Take+1), int64(p.Skip))
	return b.String(), args, nil
}

// CountSQL builds a COUNT(*) query for where.
func (t Table) CountSQL(d Dialect, where any) (string, []any, error) {
	w, err := Compile(d, t.Name, where)
	if err != nil {
		return "", nil, err
	}
	q := "SELECT COUNT(*) FROM " + t.Name
	if w.SQL != "" {
		q += " WHERE " + w.SQL
	}
	return q, w.Args, nil
}

// Fields names aggregated columns. It decodes from ["price"] or
// {"price": true}.
type Fields []string

func (f *Fields) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var m map[string]bool
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		out := make([]string, 0, len(m))
		for k, on := range m {
			if on {
				out = append(out, k)
			}
		}
		*f = out
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

// AggregateSpec selects the aggregates to compute. The row count is always
// returned.
type AggregateSpec struct {
	Count bool   `json:"_count,omitempty"`
	Sum   Fields `json:"_sum,omitempty"`
	Avg   Fields `json:"_avg,omitempty"`
	Min   Fields `json:"_min,omitempty"`
	Max   Fields `json:"_max,omitempty"`
}

type AggregateArgs[W any] struct {
	Where *W `json:"where,omitempty"`
	AggregateSpec
}

type AggregateResult struct {
	Count int64               `json:"_count"`
	Sum   map[string]*float64 `json:"_sum,omitempty"`
	Avg   map[string]*float64 `json:"_avg,omitempty"`
	Min   map[string]*float64 `json:"_min,omitempty"`
	Max   map[string]*float64 `json:"_max,omitempty"`
}

// RowQuerier is satisfied by *sql.DB and *sql.Tx.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Aggregate runs count/sum/avg/min/max over the rows matching where.
// Aggregates over an empty set are null.
func (t Table) Aggregate(ctx context.Context, db RowQuerier, d Dialect, where any, spec AggregateSpec) (*AggregateResult, error) {
	w, err := Compile(d, t.Name, where)
	if err != nil {
		return nil, err
	}

	type target struct {
		dest  map[string]*float64
		field string
		val   sql.NullFloat64
	}
	res := &AggregateResult{}
	exprs := []string{"COUNT(*)"}
	var targets []*target

	groups := []struct {
		fn     string
		fields Fields
		dest   *map[string]*float64
	}{
		{"SUM", spec.Sum, &res.Sum},
		{"AVG", spec.Avg, &res.Avg},
		{"MIN", spec.Min, &res.Min},
		{"MAX", spec.Max, &res.Max},
	}
	for _, g := range groups {
		if len(g.fields) == 0 {
			continue
		}
		*g.dest = make(map[string]*float64, len(g.fields))
		for _, f := range g.fields {
			col, ok := t.Numeric[f]
			if !ok {
				return nil, fmt.Errorf("%s(%q): %w", strings.ToLower(g.fn), f, ErrUnknownField)
			}
			exprs = append(exprs, d.floatCast(g.fn+"("+t.Name+"."+col+")"))
			targets = append(targets, &target{dest: *g.dest, field: f})
		}
	}

	q := "SELECT " + strings.Join(exprs, ", ") + " FROM " + t.Name
	if w.SQL != "" {
		q += " WHERE " + w.SQL
	}

	dest := make([]any, 0, len(targets)+1)
	dest = append(dest, &res.Count)
	for _, tg := range targets {
		dest = append(dest, &tg.val)
	}
	if err := db.QueryRowContext(ctx, d.Rebind(q), w.Args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", t.Name, err)
	}
	for _, tg := range targets {
		if tg.val.Valid {
			v := tg.val.Float64
			tg.dest[tg.field] = &v
		} else {
			tg.dest[tg.field] = nil
		}
	}
	return res, nil
}

// Insert renders an INSERT for cols, optionally returning a column.
func Insert(table string, cols []string, returning string) string {
	q := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
	if returning != "" {
		q += " RETURNING " + returning
	}
	return q
}

type assigner interface {
	assignment() (any, bool)
}

// Values collects the column names and arguments of every db-tagged field
// of v that carries a value. Nil pointers and unset Optionals are skipped.
// A ",json" tag option stores the value as JSON text.
func Values(v any) ([]string, []any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("values: %s is not a struct", rv.Type())
	}

	var cols []string
	var args []any
	rt := rv.Type()
	for i := range rt.NumField() {
		sf := rt.Field(i)
		tag := sf.Tag.Get("db")
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}
		col, opt, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		var val any
		switch {
		case fv.Type().Implements(reflect.TypeOf((*assigner)(nil)).Elem()):
			a, ok := fv.Interface().(assigner).assignment()
			if !ok {
				continue
			}
			val = a
		case fv.Kind() == reflect.Pointer:
			if fv.IsNil() {
				continue
			}
			val = fv.Elem().Interface()
		default:
			val = fv.Interface()
		}

		if opt == "json" && val != nil {
			b, err := json.Marshal(val)
			if err != nil {
				return nil, nil, fmt.Errorf("marshal %s: %w", col, err)
			}
			val = string(b)
		}
		cols = append(cols, col)
		args = append(args, NormalizeArg(val))
	}
	return cols, args, nil
}

// Assignments is Values rendered as "col = ?" pairs for an UPDATE.
func Assignments(v any) ([]string, []any, error) {
	cols, args, err := Values(v)
	if err != nil {
		return nil, nil, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	return sets, args, nil
}
