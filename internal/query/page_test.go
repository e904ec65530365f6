package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

var itemTable = Table{
	Name:    "items",
	PK:      "id",
	IntPK:   true,
	Columns: "id, name, price",
	Sortable: map[string]string{
		"id":    "id",
		"name":  "name",
		"price": "price",
	},
	Numeric: map[string]string{
		"price": "price",
	},
	DefaultOrder: Order{Field: "id", Direction: Asc},
}

type item struct {
	ID    int64
	Name  string
	Price float64
}

func setupItems(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, price REAL NOT NULL)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY, item_id INTEGER NOT NULL REFERENCES items(id), label TEXT NOT NULL)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	// prices repeat so the primary key tie break is exercised
	prices := []float64{30, 10, 20, 10, 30, 20, 10}
	for i, p := range prices {
		if _, err := db.Exec(`INSERT INTO items (id, name, price) VALUES (?, ?, ?)`, i+1, fmt.Sprintf("Item %d", i+1), p); err != nil {
			t.Fatalf("insert item: %v", err)
		}
	}
	for _, tag := range []struct {
		item  int
		label string
	}{{1, "red"}, {2, "blue"}, {2, "red"}, {5, "green"}} {
		if _, err := db.Exec(`INSERT INTO tags (item_id, label) VALUES (?, ?)`, tag.item, tag.label); err != nil {
			t.Fatalf("insert tag: %v", err)
		}
	}
	return db
}

func findItems(t *testing.T, db *sql.DB, where *itemWhere, ob OrderBy, p Page) *Result[item] {
	t.Helper()
	q, args, err := itemTable.Select(SQLite, where, ob, p)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		t.Fatalf("query %s: %v", q, err)
	}
	defer rows.Close()

	var items []item
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.ID, &it.Name, &it.Price); err != nil {
			t.Fatalf("scan: %v", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	np, _ := p.Normalize()
	return NewResult(items, np.Take, func(it item) string { return strconv.FormatInt(it.ID, 10) })
}

func TestKeysetPaginationVisitsEveryRowOnce(t *testing.T) {
	db := setupItems(t)
	ob := OrderBy{{Field: "price", Direction: Desc}}

	var got []int64
	page := Page{Take: 2}
	for i := 0; i < 10; i++ {
		res := findItems(t, db, nil, ob, page)
		for _, it := range res.Items {
			got = append(got, it.ID)
		}
		if !res.HasMore {
			break
		}
		page.Cursor = Cursor(res.NextCursor)
	}

	want := []int64{5, 1, 6, 3, 7, 4, 2}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("visited %v, want %v", got, want)
	}
}

func TestKeysetPaginationWithNullSortValues(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, price REAL)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	prices := []sql.NullFloat64{{}, {Float64: 10, Valid: true}, {}, {Float64: 5, Valid: true}, {}}
	for i, p := range prices {
		if _, err := db.Exec(`INSERT INTO items (id, name, price) VALUES (?, ?, ?)`, i+1, fmt.Sprintf("Item %d", i+1), p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	walk := func(ob OrderBy) []int64 {
		var got []int64
		page := Page{Take: 1}
		for i := 0; i < 10; i++ {
			q, args, err := itemTable.Select(SQLite, nil, ob, page)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			rows, err := db.Query(q, args...)
			if err != nil {
				t.Fatalf("query %s: %v", q, err)
			}
			var ids []int64
			for rows.Next() {
				var (
					id    int64
					name  string
					price sql.NullFloat64
				)
				if err := rows.Scan(&id, &name, &price); err != nil {
					t.Fatalf("scan: %v", err)
				}
				ids = append(ids, id)
			}
			rows.Close()
			res := NewResult(ids, 1, func(id int64) string { return strconv.FormatInt(id, 10) })
			got = append(got, res.Items...)
			if !res.HasMore {
				break
			}
			page.Cursor = Cursor(res.NextCursor)
		}
		return got
	}

	tests := []struct {
		dir  Direction
		want []int64
	}{
		{Asc, []int64{1, 3, 5, 4, 2}},
		{Desc, []int64{2, 4, 5, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			got := walk(OrderBy{{Field: "price", Direction: tt.dir}})
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("visited %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeysetCursorOnDeletedRow(t *testing.T) {
	db := setupItems(t)
	if _, err := db.Exec(`DELETE FROM items WHERE id = 3`); err != nil {
		t.Fatalf("delete: %v", err)
	}
	res := findItems(t, db, nil, OrderBy{{Field: "price", Direction: Asc}}, Page{Take: 5, Cursor: "3"})
	if len(res.Items) != 0 || res.HasMore {
		t.Errorf("stale cursor returned %+v", res)
	}
}

func TestKeysetSQLPerDialect(t *testing.T) {
	ob := OrderBy{{Field: "price", Direction: Asc}}
	sqliteQ, _, err := itemTable.Select(SQLite, nil, ob, Page{Take: 5, Cursor: "3"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	pgQ, _, err := itemTable.Select(Postgres, nil, ob, Page{Take: 5, Cursor: "3"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.Contains(sqliteQ, "items.price IS (SELECT") {
		t.Errorf("sqlite equality is not NULL safe: %s", sqliteQ)
	}
	if !strings.Contains(pgQ, "items.price IS NOT DISTINCT FROM (SELECT") {
		t.Errorf("postgres equality is not NULL safe: %s", pgQ)
	}
	for _, q := range []string{sqliteQ, pgQ} {
		if !strings.Contains(q, "ORDER BY items.price ASC NULLS FIRST, items.id ASC NULLS FIRST") {
			t.Errorf("order clause: %s", q)
		}
	}
}

func TestSelectWithFilterAndSkip(t *testing.T) {
	db := setupItems(t)
	where := &itemWhere{Price: &Filter[float64]{Lte: ptr(20.0)}}

	res := findItems(t, db, where, OrderBy{{Field: "id"}}, Page{Take: 2, Skip: 1})
	if len(res.Items) != 2 || res.Items[0].ID != 3 || res.Items[1].ID != 4 {
		t.Errorf("items = %+v, want ids 3,4", res.Items)
	}
	if !res.HasMore || res.NextCursor != "4" {
		t.Errorf("hasMore = %v cursor = %q, want true 4", res.HasMore, res.NextCursor)
	}
}

func TestSelectRelationFilter(t *testing.T) {
	db := setupItems(t)

	some := findItems(t, db, &itemWhere{Tags: &Relation[tagWhere]{Some: &tagWhere{Label: &StringFilter{Equals: ptr("red")}}}}, nil, Page{})
	if len(some.Items) != 2 {
		t.Errorf("some red = %+v, want 2 items", some.Items)
	}

	none := findItems(t, db, &itemWhere{Tags: &Relation[tagWhere]{None: &tagWhere{}}}, nil, Page{})
	if len(none.Items) != 4 {
		t.Errorf("untagged = %+v, want 4 items", none.Items)
	}
}

func TestSelectCaseInsensitiveContains(t *testing.T) {
	db := setupItems(t)

	sensitive := findItems(t, db, &itemWhere{Name: Contains("item 1", ModeDefault)}, nil, Page{})
	if len(sensitive.Items) != 0 {
		t.Errorf("case-sensitive match = %+v, want none", sensitive.Items)
	}
	insensitive := findItems(t, db, &itemWhere{Name: Contains("item 1", ModeInsensitive)}, nil, Page{})
	if len(insensitive.Items) != 1 || insensitive.Items[0].ID != 1 {
		t.Errorf("case-insensitive match = %+v, want item 1", insensitive.Items)
	}
}

func TestSelectRejectsUnknownOrderField(t *testing.T) {
	_, _, err := itemTable.Select(SQLite, nil, OrderBy{{Field: "password"}}, Page{})
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestSelectRejectsBadCursor(t *testing.T) {
	_, _, err := itemTable.Select(SQLite, nil, nil, Page{Cursor: "abc"})
	if !errors.Is(err, ErrInvalidPage) {
		t.Errorf("err = %v, want ErrInvalidPage", err)
	}
}

func TestAggregate(t *testing.T) {
	db := setupItems(t)
	ctx := context.Background()

	res, err := itemTable.Aggregate(ctx, db, SQLite, &itemWhere{Price: &Filter[float64]{Gte: ptr(20.0)}}, AggregateSpec{
		Sum: Fields{"price"},
		Avg: Fields{"price"},
		Max: Fields{"price"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if res.Count != 4 {
		t.Errorf("count = %d, want 4", res.Count)
	}
	if v := res.Sum["price"]; v == nil || *v != 100 {
		t.Errorf("sum = %v, want 100", v)
	}
	if v := res.Avg["price"]; v == nil || *v != 25 {
		t.Errorf("avg = %v, want 25", v)
	}
	if v := res.Max["price"]; v == nil || *v != 30 {
		t.Errorf("max = %v, want 30", v)
	}

	empty, err := itemTable.Aggregate(ctx, db, SQLite, &itemWhere{Price: &Filter[float64]{Gt: ptr(1000.0)}}, AggregateSpec{Sum: Fields{"price"}})
	if err != nil {
		t.Fatalf("aggregate empty: %v", err)
	}
	if empty.Count != 0 || empty.Sum["price"] != nil {
		t.Errorf("empty aggregate = %+v, want count 0 and null sum", empty)
	}

	if _, err := itemTable.Aggregate(ctx, db, SQLite, nil, AggregateSpec{Sum: Fields{"name"}}); !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}
}

func TestPageNormalize(t *testing.T) {
	p, err := Page{}.Normalize()
	if err != nil || p.Take != DefaultTake {
		t.Errorf("default page = %+v, %v", p, err)
	}
	for _, bad := range []Page{{Take: -1}, {Take: MaxTake + 1}, {Skip: -2}} {
		if _, err := bad.Normalize(); !errors.Is(err, ErrInvalidPage) {
			t.Errorf("Normalize(%+v) err = %v, want ErrInvalidPage", bad, err)
		}
	}
	if _, err := ParsePage("abc", "", ""); err == nil {
		t.Error("expected error for non-numeric take")
	}
	p, err = ParsePage("50", "10", "7")
	if err != nil || p.Take != 50 || p.Skip != 10 || p.Cursor != "7" {
		t.Errorf("ParsePage = %+v, %v", p, err)
	}
}

func TestFindArgsUnmarshal(t *testing.T) {
	body := `{"where": {"name": {"startsWith": "Item"}}, "orderBy": {"price": "desc"}, "take": 5, "cursor": {"id": 3}}`
	var args FindArgs[itemWhere]
	if err := json.Unmarshal([]byte(body), &args); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if args.Where == nil || args.Where.Name == nil || *args.Where.Name.StartsWith != "Item" {
		t.Errorf("where = %+v", args.Where)
	}
	if len(args.OrderBy) != 1 || args.OrderBy[0] != (Order{Field: "price", Direction: Desc}) {
		t.Errorf("orderBy = %+v", args.OrderBy)
	}
	if args.Take != 5 || args.Cursor != "3" {
		t.Errorf("page = %+v", args.Page)
	}
}

func TestParseOrderBy(t *testing.T) {
	ob, err := ParseOrderBy("price:desc, name")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := OrderBy{{Field: "price", Direction: Desc}, {Field: "name", Direction: Asc}}
	if fmt.Sprint(ob) != fmt.Sprint(want) {
		t.Errorf("orderBy = %v, want %v", ob, want)
	}
	if _, err := ParseOrderBy("price:sideways"); err == nil {
		t.Error("expected error for bad direction")
	}
}

func TestValuesAndAssignments(t *testing.T) {
	type input struct {
		Name  string            `db:"name"`
		Note  *string           `db:"note"`
		Tags  []string          `db:"tags,json"`
		Price Optional[float64] `db:"price"`
		Skip  Optional[string]  `db:"skip"`
	}
	in := input{Name: "x", Tags: []string{"a"}, Price: SetNull[float64]()}

	cols, args, err := Values(in)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if fmt.Sprint(cols) != "[name tags price]" {
		t.Errorf("cols = %v", cols)
	}
	if args[1] != `["a"]` || args[2] != nil {
		t.Errorf("args = %#v", args)
	}

	sets, _, err := Assignments(&input{Name: "y", Skip: SetTo("z")})
	if err != nil {
		t.Fatalf("assignments: %v", err)
	}
	if fmt.Sprint(sets) != "[name = ? tags = ? skip = ?]" {
		t.Errorf("sets = %v", sets)
	}
	if q := Insert("items", cols, "id"); q != "INSERT INTO items (name, tags, price) VALUES (?, ?, ?) RETURNING id" {
		t.Errorf("insert = %q", q)
	}
}
