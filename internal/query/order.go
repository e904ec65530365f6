package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// sql renders the direction with an explicit NULL placement. NULL sorts
// as the smallest value on both dialects, which keyset relies on.
func (d Direction) sql() string {
	if d == Desc {
		return "DESC NULLS LAST"
	}
	return "ASC NULLS FIRST"
}

// Order sorts by a single field. It decodes from either
// {"field": "createdAt", "direction": "desc"} or {"createdAt": "desc"}.
type Order struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if _, ok := m["field"]; ok {
		var out struct {
			Field     string    `json:"field"`
			Direction Direction `json:"direction"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
		*o = Order{Field: out.Field, Direction: out.Direction}
		return o.check()
	}
	if len(m) != 1 {
		return fmt.Errorf("order must name exactly one field, got %d", len(m))
	}
	for k, raw := range m {
		var dir Direction
		if err := json.Unmarshal(raw, &dir); err != nil {
			return fmt.Errorf("order %s: %w", k, err)
		}
		*o = Order{Field: k, Direction: dir}
	}
	return o.check()
}

func (o *Order) check() error {
	o.Direction = Direction(strings.ToLower(string(o.Direction)))
	switch o.Direction {
	case "":
		o.Direction = Asc
	case Asc, Desc:
	default:
		return fmt.Errorf("invalid sort direction %q", o.Direction)
	}
	return nil
}

// OrderBy is a list of orders applied left to right. A single JSON object is
// accepted in place of a list.
type OrderBy []Order

func (ob *OrderBy) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var o Order
		if err := json.Unmarshal(data, &o); err != nil {
			return err
		}
		*ob = OrderBy{o}
		return nil
	}
	var list []Order
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*ob = list
	return nil
}

// ParseOrderBy parses the query-string form "createdAt:desc,name".
func ParseOrderBy(s string) (OrderBy, error) {
	if s == "" {
		return nil, nil
	}
	var ob OrderBy
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, _ := strings.Cut(part, ":")
		o := Order{Field: strings.TrimSpace(field), Direction: Direction(strings.TrimSpace(dir))}
		if err := o.check(); err != nil {
			return nil, err
		}
		ob = append(ob, o)
	}
	return ob, nil
}

type orderTerm struct {
	col string
	dir Direction
}

// resolve maps requested fields onto whitelisted columns and appends the
// primary key as a tie breaker.
func (t Table) resolve(ob OrderBy) ([]orderTerm, error) {
	terms := make([]orderTerm, 0, len(ob)+1)
	hasPK := false
	for _, o := range ob {
		col, ok := t.Sortable[o.Field]
		if !ok {
			return nil, fmt.Errorf("order by %q: %w", o.Field, ErrUnknownField)
		}
		dir := o.Direction
		if dir == "" {
			dir = Asc
		}
		terms = append(terms, orderTerm{col: col, dir: dir})
		if col == t.PK {
			hasPK = true
			break
		}
	}
	if len(terms) == 0 && t.DefaultOrder.Field != "" {
		return t.resolve(OrderBy{t.DefaultOrder})
	}
	if !hasPK {
		dir := Asc
		if len(terms) > 0 {
			dir = terms[len(terms)-1].dir
		}
		terms = append(terms, orderTerm{col: t.PK, dir: dir})
	}
	return terms, nil
}

func orderClause(table string, terms []orderTerm) string {
	parts := make([]string, len(terms))
	for i, term := range terms {
		parts[i] = table + "." + term.col + " " + term.dir.sql()
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
