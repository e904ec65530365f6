package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrUnknownField is returned when input names a field that is not
// filterable or sortable on the target table.
var ErrUnknownField = errors.New("unknown field")

// Expr is a compiled SQL fragment with its positional arguments.
type Expr struct {
	SQL  string
	Args []any
}

// Compile renders a where shape into a boolean SQL expression over table.
//
// where must be a struct or a pointer to one (nil means no constraint). Fields
// are recognised by their tags:
//
//	db:"col"                   column filter (*StringFilter, *Filter[T])
//	db:"id" rel:"child.fk"     Relation[W] over a child table
//	logic:"and|or|not"         []W nested shapes
func Compile(d Dialect, table string, where any) (Expr, error) {
	v := reflect.ValueOf(where)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return Expr{}, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return Expr{}, nil
	}
	if v.Kind() != reflect.Struct {
		return Expr{}, fmt.Errorf("compile where: %s is not a struct", v.Type())
	}

	var c conj
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		fv := v.Field(i)
		if !sf.IsExported() {
			continue
		}

		if logic := sf.Tag.Get("logic"); logic != "" {
			sql, args, err := compileLogic(d, table, logic, fv)
			if err != nil {
				return Expr{}, fmt.Errorf("%s: %w", sf.Name, err)
			}
			c.add(sql, args...)
			continue
		}

		col := sf.Tag.Get("db")
		if col == "" || col == "-" {
			continue
		}
		if fv.Kind() == reflect.Pointer && fv.IsNil() {
			continue
		}
		qualified := table + "." + col

		if rel := sf.Tag.Get("rel"); rel != "" {
			child, fk, ok := strings.Cut(rel, ".")
			if !ok {
				return Expr{}, fmt.Errorf("compile where: bad rel tag %q on %s", rel, sf.Name)
			}
			rc, ok := fv.Interface().(relationCondition)
			if !ok {
				return Expr{}, fmt.Errorf("compile where: %s is not a relation filter", sf.Name)
			}
			sql, args, err := rc.relation(d, qualified, child, fk)
			if err != nil {
				return Expr{}, fmt.Errorf("%s: %w", sf.Name, err)
			}
			c.add(sql, args...)
			continue
		}

		cond, ok := fv.Interface().(Condition)
		if !ok {
			return Expr{}, fmt.Errorf("compile where: %s has unsupported type %s", sf.Name, fv.Type())
		}
		sql, args := cond.condition(d, qualified)
		c.add(sql, args...)
	}
	return Expr{SQL: c.sql(), Args: c.args}, nil
}

func compileLogic(d Dialect, table, logic string, fv reflect.Value) (string, []any, error) {
	if fv.Kind() != reflect.Slice {
		return "", nil, fmt.Errorf("logic field must be a slice, got %s", fv.Type())
	}
	if fv.IsNil() {
		return "", nil, nil
	}

	items := make([]Expr, 0, fv.Len())
	for i := range fv.Len() {
		e, err := Compile(d, table, fv.Index(i).Interface())
		if err != nil {
			return "", nil, err
		}
		items = append(items, e)
	}

	var c conj
	switch logic {
	case "and":
		for _, e := range items {
			c.add(e.SQL, e.Args...)
		}
		return c.sql(), c.args, nil

	case "or":
		if len(items) == 0 {
			return "1 = 0", nil, nil
		}
		parts := make([]string, 0, len(items))
		var args []any
		for _, e := range items {
			if e.SQL == "" {
				// an unconstrained branch makes the whole disjunction true
				return "", nil, nil
			}
			parts = append(parts, e.SQL)
			args = append(args, e.Args...)
		}
		if len(parts) == 1 {
			return parts[0], args, nil
		}
		return "(" + strings.Join(parts, ") OR (") + ")", args, nil

	case "not":
		for _, e := range items {
			if e.SQL == "" {
				c.add("1 = 0")
				continue
			}
			c.add("NOT ("+e.SQL+")", e.Args...)
		}
		return c.sql(), c.args, nil
	}
	return "", nil, fmt.Errorf("unknown logic tag %q", logic)
}
