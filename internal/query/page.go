package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultTake = 20
	MaxTake     = 100
)

// ErrInvalidPage is returned for out-of-range take/skip values or a
// malformed cursor.
var ErrInvalidPage = errors.New("invalid page")

// Cursor is the primary key of the last row already seen. It decodes from a
// JSON string, a number, or a single-key object such as {"id": 42}.
type Cursor string

func (c *Cursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cursor(s)
		return nil
	case data[0] == '{':
		var m map[string]Cursor
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if len(m) != 1 {
			return fmt.Errorf("cursor must name exactly one field: %w", ErrInvalidPage)
		}
		for _, v := range m {
			*c = v
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Cursor(n.String())
	return nil
}

// Page selects a window of rows. Take defaults to DefaultTake.
type Page struct {
	Take   int    `json:"take,omitempty"`
	Skip   int    `json:"skip,omitempty"`
	Cursor Cursor `json:"cursor,omitempty"`
}

// Normalize applies the default take and rejects out-of-range values.
func (p Page) Normalize() (Page, error) {
	if p.Take == 0 {
		p.Take = DefaultTake
	}
	if p.Take < 1 || p.Take > MaxTake {
		return p, fmt.Errorf("take must be between 1 and %d: %w", MaxTake, ErrInvalidPage)
	}
	if p.Skip < 0 {
		return p, fmt.Errorf("skip must not be negative: %w", ErrInvalidPage)
	}
	return p, nil
}

// ParsePage reads take, skip and cursor from query-string values.
func ParsePage(take, skip, cursor string) (Page, error) {
	var p Page
	if take != "" {
		n, err := strconv.Atoi(take)
		if err != nil {
			return p, fmt.Errorf("take conversion: %w", ErrInvalidPage)
		}
		p.Take = n
	}
	if skip != "" {
		n, err := strconv.Atoi(skip)
		if err != nil {
			return p, fmt.Errorf("skip conversion: %w", ErrInvalidPage)
		}
		p.Skip = n
	}
	p.Cursor = Cursor(cursor)
	return p.Normalize()
}

// FindArgs is the body of a list query.
type FindArgs[W any] struct {
	Where   *W      `json:"where,omitempty"`
	OrderBy OrderBy `json:"orderBy,omitempty"`
	Page
}

// Result is one page of rows. HasMore reports whether another page exists,
// in which case NextCursor continues after the last item.
type Result[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// NewResult trims the extra row fetched by Select and fills in the cursor.
func NewResult[T any](items []T, take int, key func(T) string) *Result[T] {
	r := &Result[T]{Items: items}
	if r.Items == nil {
		r.Items = []T{}
	}
	if len(r.Items) > take {
		r.Items = r.Items[:take]
		r.HasMore = true
	}
	if r.HasMore && len(r.Items) > 0 {
		r.NextCursor = key(r.Items[len(r.Items)-1])
	}
	return r
}

func (t Table) cursorArg(c Cursor) (any, error) {
	if !t.IntPK {
		return string(c), nil
	}
	n, err := strconv.ParseInt(string(c), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cursor %q: %w", string(c), ErrInvalidPage)
	}
	return n, nil
}

// keyset renders "row comes after the cursor row" for the given ordering.
// Each term compares against the cursor row's value via a subquery, so the
// cursor only needs to carry the primary key. NULL sorts first ascending and
// last descending, matching Direction.sql. A cursor naming a deleted row
// matches nothing.
func (t Table) keyset(d Dialect, terms []orderTerm, cursor any) (string, []any) {
	sub := func(col string) string {
		return "(SELECT k." + col + " FROM " + t.Name + " k WHERE k." + t.PK + " = ?)"
	}

	branches := make([]string, 0, len(terms))
	var args []any
	for i, term := range terms {
		var parts []string
		for _, prev := range terms[:i] {
			parts = append(parts, d.same(t.Name+"."+prev.col, sub(prev.col)))
			args = append(args, cursor)
		}
		col := t.Name + "." + term.col
		var after string
		if term.dir == Desc {
			after = "(" + col + " < " + sub(term.col) + " OR (" + col + " IS NULL AND " + sub(term.col) + " IS NOT NULL))"
		} else {
			after = "(" + col + " > " + sub(term.col) + " OR (" + col + " IS NOT NULL AND " + sub(term.col) + " IS NULL))"
		}
		parts = append(parts, after)
		args = append(args, cursor, cursor)
		branches = append(branches, strings.Join(parts, " AND "))
	}
	exists := "EXISTS (SELECT 1 FROM " + t.Name + " k WHERE k." + t.PK + " = ?)"
	args = append([]any{cursor}, args...)
	return exists + " AND ((" + strings.Join(branches, ") OR (") + "))", args
}
