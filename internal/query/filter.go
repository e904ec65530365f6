package query

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Mode controls case sensitivity of string filters.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeInsensitive Mode = "insensitive"
)

// Condition is implemented by column filters. An empty SQL string means the
// filter places no constraint on the column.
type Condition interface {
	condition(d Dialect, col string) (string, []any)
}

// Filter constrains a numeric, time, boolean or enum column.
//
// A bare JSON value is shorthand for equals: {"status": "ACTIVE"}.
type Filter[T any] struct {
	Equals *T         `json:"equals,omitempty"`
	In     []T        `json:"in,omitempty"`
	NotIn  []T        `json:"notIn,omitempty"`
	Lt     *T         `json:"lt,omitempty"`
	Lte    *T         `json:"lte,omitempty"`
	Gt     *T         `json:"gt,omitempty"`
	Gte    *T         `json:"gte,omitempty"`
	Not    *Filter[T] `json:"not,omitempty"`
	IsNull *bool      `json:"isNull,omitempty"`
}

type filterJSON[T any] struct {
	Equals *T         `json:"equals"`
	In     []T        `json:"in"`
	NotIn  []T        `json:"notIn"`
	Lt     *T         `json:"lt"`
	Lte    *T         `json:"lte"`
	Gt     *T         `json:"gt"`
	Gte    *T         `json:"gte"`
	Not    *Filter[T] `json:"not"`
	IsNull *bool      `json:"isNull"`
}

func (f *Filter[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = Filter[T]{Equals: &v}
		return nil
	}

	var fj filterJSON[T]
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fj); err != nil {
		return err
	}
	*f = Filter[T](fj)
	return nil
}

// Eq is a convenience constructor for an equality filter.
func Eq[T any](v T) *Filter[T] {
	return &Filter[T]{Equals: &v}
}

func (f Filter[T]) condition(d Dialect, col string) (string, []any) {
	var c conj
	if f.Equals != nil {
		c.add(col+" = ?", *f.Equals)
	}
	if f.In != nil {
		c.in(col, false, toAny(f.In))
	}
	if f.NotIn != nil {
		c.in(col, true, toAny(f.NotIn))
	}
	if f.Lt != nil {
		c.add(col+" < ?", *f.Lt)
	}
	if f.Lte != nil {
		c.add(col+" <= ?", *f.Lte)
	}
	if f.Gt != nil {
		c.add(col+" > ?", *f.Gt)
	}
	if f.Gte != nil {
		c.add(col+" >= ?", *f.Gte)
	}
	if f.Not != nil {
		c.not(f.Not.condition(d, col))
	}
	if f.IsNull != nil {
		c.null(col, *f.IsNull)
	}
	return c.sql(), c.args
}

// StringFilter constrains a text column.
//
// A bare JSON string is shorthand for equals: {"name": "mouse"}.
type StringFilter struct {
	Equals     *string       `json:"equals,omitempty"`
	In         []string      `json:"in,omitempty"`
	NotIn      []string      `json:"notIn,omitempty"`
	Lt         *string       `json:"lt,omitempty"`
	Lte        *string       `json:"lte,omitempty"`
	Gt         *string       `json:"gt,omitempty"`
	Gte        *string       `json:"gte,omitempty"`
	Contains   *string       `json:"contains,omitempty"`
	StartsWith *string       `json:"startsWith,omitempty"`
	EndsWith   *string       `json:"endsWith,omitempty"`
	Mode       Mode          `json:"mode,omitempty"`
	Not        *StringFilter `json:"not,omitempty"`
	IsNull     *bool         `json:"isNull,omitempty"`
}

type stringFilterJSON struct {
	Equals     *string       `json:"equals"`
	In         []string      `json:"in"`
	NotIn      []string      `json:"notIn"`
	Lt         *string       `json:"lt"`
	Lte        *string       `json:"lte"`
	Gt         *string       `json:"gt"`
	Gte        *string       `json:"gte"`
	Contains   *string       `json:"contains"`
	StartsWith *string       `json:"startsWith"`
	EndsWith   *string       `json:"endsWith"`
	Mode       Mode          `json:"mode"`
	Not        *StringFilter `json:"not"`
	IsNull     *bool         `json:"isNull"`
}

func (f *StringFilter) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = StringFilter{Equals: &v}
		return nil
	}

	var fj stringFilterJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fj); err != nil {
		return err
	}
	*f = StringFilter(fj)
	return nil
}

// Contains is a convenience constructor for a substring filter.
func Contains(s string, mode Mode) *StringFilter {
	return &StringFilter{Contains: &s, Mode: mode}
}

func (f StringFilter) condition(d Dialect, col string) (string, []any) {
	fold := f.Mode == ModeInsensitive
	lhs := col
	val := func(s string) string { return s }
	if fold {
		lhs = "LOWER(" + col + ")"
		val = strings.ToLower
	}

	var c conj
	if f.Equals != nil {
		c.add(lhs+" = ?", val(*f.Equals))
	}
	if f.In != nil {
		c.in(lhs, false, mapStrings(f.In, val))
	}
	if f.NotIn != nil {
		c.in(lhs, true, mapStrings(f.NotIn, val))
	}
	if f.Lt != nil {
		c.add(lhs+" < ?", val(*f.Lt))
	}
	if f.Lte != nil {
		c.add(lhs+" <= ?", val(*f.Lte))
	}
	if f.Gt != nil {
		c.add(lhs+" > ?", val(*f.Gt))
	}
	if f.Gte != nil {
		c.add(lhs+" >= ?", val(*f.Gte))
	}

	pattern := func(s string, openStart, openEnd bool) {
		if fold {
			c.add(d.matchFold(col, s, openStart, openEnd))
			return
		}
		c.add(d.match(col, s, openStart, openEnd))
	}
	if f.Contains != nil {
		pattern(*f.Contains, true, true)
	}
	if f.StartsWith != nil {
		pattern(*f.StartsWith, false, true)
	}
	if f.EndsWith != nil {
		pattern(*f.EndsWith, true, false)
	}

	if f.Not != nil {
		inner := *f.Not
		if inner.Mode == "" {
			inner.Mode = f.Mode
		}
		c.not(inner.condition(d, col))
	}
	if f.IsNull != nil {
		c.null(col, *f.IsNull)
	}
	return c.sql(), c.args
}

// Relation filters parent rows by the existence of matching child rows.
type Relation[W any] struct {
	Some  *W `json:"some,omitempty"`
	None  *W `json:"none,omitempty"`
	Every *W `json:"every,omitempty"`
}

type relationCondition interface {
	relation(d Dialect, parentCol, child, fk string) (string, []any, error)
}

func (r Relation[W]) relation(d Dialect, parentCol, child, fk string) (string, []any, error) {
	var c conj
	link := child + "." + fk + " = " + parentCol

	exists := func(w *W, negateInner bool) (string, []any, error) {
		inner, err := Compile(d, child, w)
		if err != nil {
			return "", nil, err
		}
		q := "SELECT 1 FROM " + child + " WHERE " + link
		if inner.SQL != "" {
			if negateInner {
				q += " AND NOT (" + inner.SQL + ")"
			} else {
				q += " AND (" + inner.SQL + ")"
			}
		} else if negateInner {
			// every row trivially matches an empty filter
			return "", nil, nil
		}
		return q, inner.Args, nil
	}

	if r.Some != nil {
		q, args, err := exists(r.Some, false)
		if err != nil {
			return "", nil, err
		}
		c.add("EXISTS ("+q+")", args...)
	}
	if r.None != nil {
		q, args, err := exists(r.None, false)
		if err != nil {
			return "", nil, err
		}
		c.add("NOT EXISTS ("+q+")", args...)
	}
	if r.Every != nil {
		q, args, err := exists(r.Every, true)
		if err != nil {
			return "", nil, err
		}
		if q != "" {
			c.add("NOT EXISTS ("+q+")", args...)
		}
	}
	return c.sql(), c.args, nil
}

// Optional is an update field that distinguishes "absent" from "set to null".
type Optional[T any] struct {
	Set   bool
	Value *T
}

// SetTo returns an Optional assigning v.
func SetTo[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// SetNull returns an Optional clearing the column.
func SetNull[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Get returns the assigned value, or nil when the field is absent or null.
func (o Optional[T]) Get() any {
	if o.Value == nil {
		return nil
	}
	return *o.Value
}

func (o Optional[T]) assignment() (any, bool) {
	if !o.Set {
		return nil, false
	}
	if o.Value == nil {
		return nil, true
	}
	return *o.Value, true
}

// conj accumulates conditions joined with AND.
type conj struct {
	parts []string
	args  []any
}

func (c *conj) add(sql string, args ...any) {
	if sql == "" {
		return
	}
	c.parts = append(c.parts, sql)
	for _, a := range args {
		c.args = append(c.args, NormalizeArg(a))
	}
}

func (c *conj) in(col string, negate bool, values []any) {
	if len(values) == 0 {
		if !negate {
			c.add("1 = 0")
		}
		return
	}
	op := " IN ("
	if negate {
		op = " NOT IN ("
	}
	c.add(col+op+placeholders(len(values))+")", values...)
}

func (c *conj) not(sql string, args []any) {
	if sql == "" {
		return
	}
	c.add("NOT ("+sql+")", args...)
}

func (c *conj) null(col string, isNull bool) {
	if isNull {
		c.add(col + " IS NULL")
		return
	}
	c.add(col + " IS NOT NULL")
}

func (c *conj) sql() string {
	switch len(c.parts) {
	case 0:
		return ""
	case 1:
		return c.parts[0]
	}
	return "(" + strings.Join(c.parts, ") AND (") + ")"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func toAny[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func mapStrings(vs []string, fn func(string) string) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = fn(v)
	}
	return out
}

// NormalizeArg converts named scalar types to their base kind and times to
// UTC so both database drivers bind them identically.
func NormalizeArg(v any) any {
	switch x := v.(type) {
	case nil, string, int64, float64, bool, []byte:
		return v
	case time.Time:
		return x.UTC()
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return NormalizeArg(rv.Elem().Interface())
	}
	return v
}
