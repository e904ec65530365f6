package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/selpix/selpix/internal/query"
	"github.com/selpix/selpix/internal/schema"
	"github.com/selpix/selpix/internal/websocket"
)

// resource serves the generic list, query, read, write and aggregate
// endpoints of one entity over functions bound to its store. T is the
// entity, K its key, W its filter, C and U its create and update inputs and
// I its include flags (struct{} when it has no relations). Nil functions
// leave their route unregistered.
type resource[T, W, C, U, I any, K comparable] struct {
	entity string
	key    func(string) (K, error)
	id     func(*T) K

	get       func(context.Context, K, I) (*T, error)
	find      func(context.Context, query.FindArgs[W], I) (*query.Result[T], error)
	aggregate func(context.Context, query.AggregateArgs[W]) (*query.AggregateResult, error)
	create    func(context.Context, C) (*T, error)
	update    func(context.Context, K, U) (*T, error)
	remove    func(context.Context, K) (bool, error)

	hub    *websocket.Hub
	logger *slog.Logger
}

// findBody is the body of POST /query.
type findBody[W, I any] struct {
	query.FindArgs[W]
	Include I `json:"include"`
}

type guard func(http.Handler) http.Handler

func open(h http.Handler) http.Handler { return h }

// routes mounts the resource under prefix. read wraps the GET and query
// routes and write the mutating ones.
func (rs *resource[T, W, C, U, I, K]) routes(mux *http.ServeMux, prefix string, read, write guard) {
	mux.Handle("GET "+prefix, read(http.HandlerFunc(rs.List)))
	mux.Handle("POST "+prefix+"/query", read(http.HandlerFunc(rs.Query)))
	mux.Handle("GET "+prefix+"/{id}", read(http.HandlerFunc(rs.Get)))
	if rs.aggregate != nil {
		mux.Handle("POST "+prefix+"/aggregate", read(http.HandlerFunc(rs.Aggregate)))
	}
	if rs.create != nil {
		mux.Handle("POST "+prefix, write(http.HandlerFunc(rs.Create)))
	}
	if rs.update != nil {
		mux.Handle("PATCH "+prefix+"/{id}", write(http.HandlerFunc(rs.Update)))
	}
	if rs.remove != nil {
		mux.Handle("DELETE "+prefix+"/{id}", write(http.HandlerFunc(rs.Delete)))
	}
}

func (rs *resource[T, W, C, U, I, K]) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := query.ParsePage(q.Get("take"), q.Get("skip"), q.Get("cursor"))
	if err != nil {
		fail(w, rs.logger, "list "+rs.entity, err)
		return
	}
	order, err := query.ParseOrderBy(q.Get("orderBy"))
	if err != nil {
		fail(w, rs.logger, "list "+rs.entity, fmt.Errorf("%w: %v", errBadParam, err))
		return
	}
	inc, err := parseInclude[I](q.Get("include"))
	if err != nil {
		fail(w, rs.logger, "list "+rs.entity, err)
		return
	}

	res, err := rs.find(r.Context(), query.FindArgs[W]{OrderBy: order, Page: page}, inc)
	if err != nil {
		fail(w, rs.logger, "list "+rs.entity, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rs *resource[T, W, C, U, I, K]) Query(w http.ResponseWriter, r *http.Request) {
	var body findBody[W, I]
	if err := schema.DecodeJSON(r.Body, &body); err != nil {
		fail(w, rs.logger, "query "+rs.entity, err)
		return
	}
	page, err := body.Page.Normalize()
	if err != nil {
		fail(w, rs.logger, "query "+rs.entity, err)
		return
	}
	body.Page = page

	res, err := rs.find(r.Context(), body.FindArgs, body.Include)
	if err != nil {
		fail(w, rs.logger, "query "+rs.entity, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rs *resource[T, W, C, U, I, K]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := rs.pathKey(w, r)
	if !ok {
		return
	}
	inc, err := parseInclude[I](r.URL.Query().Get("include"))
	if err != nil {
		fail(w, rs.logger, "get "+rs.entity, err)
		return
	}

	v, err := rs.get(r.Context(), id, inc)
	if err != nil {
		fail(w, rs.logger, "get "+rs.entity, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, rs.entity+" not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (rs *resource[T, W, C, U, I, K]) Aggregate(w http.ResponseWriter, r *http.Request) {
	var args query.AggregateArgs[W]
	if err := schema.DecodeJSON(r.Body, &args); err != nil {
		fail(w, rs.logger, "aggregate "+rs.entity, err)
		return
	}
	res, err := rs.aggregate(r.Context(), args)
	if err != nil {
		fail(w, rs.logger, "aggregate "+rs.entity, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rs *resource[T, W, C, U, I, K]) Create(w http.ResponseWriter, r *http.Request) {
	var in C
	if err := schema.Decode(r.Body, &in); err != nil {
		fail(w, rs.logger, "create "+rs.entity, err)
		return
	}
	v, err := rs.create(r.Context(), in)
	if err != nil {
		fail(w, rs.logger, "create "+rs.entity, err)
		return
	}
	rs.broadcast("created", rs.id(v))
	writeJSON(w, http.StatusCreated, v)
}

func (rs *resource[T, W, C, U, I, K]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := rs.pathKey(w, r)
	if !ok {
		return
	}
	var in U
	if err := schema.Decode(r.Body, &in); err != nil {
		fail(w, rs.logger, "update "+rs.entity, err)
		return
	}

	v, err := rs.update(r.Context(), id, in)
	if err != nil {
		fail(w, rs.logger, "update "+rs.entity, err)
		return
	}
	if v == nil {
		writeError(w, http.StatusNotFound, rs.entity+" not found")
		return
	}
	rs.broadcast("updated", id)
	writeJSON(w, http.StatusOK, v)
}

func (rs *resource[T, W, C, U, I, K]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := rs.pathKey(w, r)
	if !ok {
		return
	}
	deleted, err := rs.remove(r.Context(), id)
	if err != nil {
		fail(w, rs.logger, "delete "+rs.entity, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, rs.entity+" not found")
		return
	}
	rs.broadcast("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (rs *resource[T, W, C, U, I, K]) pathKey(w http.ResponseWriter, r *http.Request) (K, bool) {
	id, err := rs.key(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+rs.entity+" id")
		return id, false
	}
	return id, true
}

func (rs *resource[T, W, C, U, I, K]) broadcast(action string, id K) {
	if rs.hub == nil {
		return
	}
	rs.hub.Broadcast(websocket.NewMessage(rs.entity, action, id, nil))
}

func intKey(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadParam
	}
	return id, nil
}

func stringKey(s string) (string, error) {
	if s == "" {
		return "", errBadParam
	}
	return s, nil
}

// parseInclude turns "items,product" into the include struct I by way of
// its JSON tags, so unknown relation names are rejected.
func parseInclude[I any](s string) (I, error) {
	var inc I
	if s == "" {
		return inc, nil
	}
	flags := make(map[string]bool)
	for name := range strings.SplitSeq(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			flags[name] = true
		}
	}
	raw, err := json.Marshal(flags)
	if err != nil {
		return inc, err
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&inc); err != nil {
		return inc, fmt.Errorf("%w: include %q", query.ErrUnknownField, s)
	}
	return inc, nil
}

// noInclude adapts a store read without relations to the resource shape.
func noInclude[K comparable, T any](fn func(context.Context, K) (*T, error)) func(context.Context, K, struct{}) (*T, error) {
	return func(ctx context.Context, id K, _ struct{}) (*T, error) { return fn(ctx, id) }
}

func noIncludeFind[W, T any](fn func(context.Context, query.FindArgs[W]) (*query.Result[T], error)) func(context.Context, query.FindArgs[W], struct{}) (*query.Result[T], error) {
	return func(ctx context.Context, args query.FindArgs[W], _ struct{}) (*query.Result[T], error) {
		return fn(ctx, args)
	}
}
