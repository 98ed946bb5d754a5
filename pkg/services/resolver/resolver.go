/*
2021 © Postgres.ai
*/

// Package resolver provides resolution and caching of query variable values.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/rs/xid"

	"gitlab.com/postgres-ai/database-lab/v2/pkg/log"

	"gitlab.com/postgres-ai/varfetch/pkg/annotated"
	"gitlab.com/postgres-ai/varfetch/pkg/flux"
	"gitlab.com/postgres-ai/varfetch/pkg/models"
	"gitlab.com/postgres-ai/varfetch/pkg/util/text"
)

const logQueryLength = 200

// Executor runs a query and returns a raw annotated CSV response.
// Cancelling ctx cancels the execution.
type Executor interface {
	Execute(ctx context.Context, orgID, query string, extern *flux.File) (string, error)
}

// ParseFunc parses a raw response into tables.
type ParseFunc func(raw string) ([]models.Table, error)

// ExternFunc builds an extern file from variable assignments.
type ExternFunc func(variables []models.VariableAssignment) (*flux.File, error)

// Options configures a Resolver.
type Options struct {
	// Cache stores resolved values. An unbounded MapCache is used if empty.
	Cache Cache
	// Parse parses raw responses. annotated.ParseResponse is used if empty.
	Parse ParseFunc
	// BuildExtern builds externs of executions. flux.BuildExtern is used if empty.
	BuildExtern ExternFunc
	// Coalesce makes concurrent requests with the same key share a single execution.
	Coalesce bool
}

// Resolver resolves variable values and caches them by execution context.
type Resolver struct {
	executor    Executor
	cache       Cache
	parse       ParseFunc
	buildExtern ExternFunc
	coalesce    bool

	mu       sync.Mutex
	inflight map[string]*call
}

// call is an execution shared by coalesced requests.
type call struct {
	done   chan struct{}
	values *models.VariableValues
	err    error
	cancel context.CancelFunc
	refs   int
}

// NewResolver creates a new Resolver.
func NewResolver(executor Executor, opts Options) *Resolver {
	if opts.Cache == nil {
		opts.Cache = NewMapCache()
	}

	if opts.Parse == nil {
		opts.Parse = annotated.ParseResponse
	}

	if opts.BuildExtern == nil {
		opts.BuildExtern = flux.BuildExtern
	}

	return &Resolver{
		executor:    executor,
		cache:       opts.Cache,
		parse:       opts.Parse,
		buildExtern: opts.BuildExtern,
		coalesce:    opts.Coalesce,
		inflight:    make(map[string]*call),
	}
}

// Resolve starts a resolution of variable values for the execution context.
// Cached values are returned immediately with the selection recomputed against them.
func (r *Resolver) Resolve(ctx context.Context, ec models.ExecutionContext, prevSelection, defaultSelection *string) *Request {
	id := xid.New().String()
	key := CacheKey(ec)

	if cached, ok := r.cache.Get(key); ok {
		log.Dbg(fmt.Sprintf("[%s] cache hit: %s", id, key))

		return resolvedRequest(id, withSelection(cached, prevSelection, defaultSelection), nil)
	}

	extern, err := r.buildExtern(ec.Variables)
	if err != nil {
		return resolvedRequest(id, nil, err)
	}

	query, _ := text.CutText(ec.Query, logQueryLength, "...")
	log.Dbg(fmt.Sprintf("[%s] cache miss: %s, org: %s, query: %s", id, key, ec.OrganizationID, query))

	if len(ec.Variables) > 0 {
		log.Dbg(fmt.Sprintf("[%s] variables:\n%s", id, flux.FormatVarsOption(ec.Variables)))
	}

	if r.coalesce {
		return r.attach(ctx, id, key, ec, extern, prevSelection, defaultSelection)
	}

	execCtx, cancel := context.WithCancel(ctx)
	req := newRequest(id, cancel)

	go func() {
		defer cancel()

		values, err := r.fetch(execCtx, id, key, ec, extern, prevSelection, defaultSelection)
		req.settle(values, err)
	}()

	return req
}

// attach joins a pending execution with the same key or starts a new one.
func (r *Resolver) attach(ctx context.Context, id, key string, ec models.ExecutionContext, extern *flux.File,
	prevSelection, defaultSelection *string) *Request {
	r.mu.Lock()

	c, ok := r.inflight[key]
	if !ok {
		execCtx, cancel := context.WithCancel(context.Background())
		c = &call{done: make(chan struct{}), cancel: cancel}
		r.inflight[key] = c

		go r.run(execCtx, id, key, c, ec, extern, prevSelection, defaultSelection)
	} else {
		log.Dbg(fmt.Sprintf("[%s] joined a pending execution: %s", id, key))
	}

	c.refs++
	r.mu.Unlock()

	reqCtx, reqCancel := context.WithCancel(ctx)
	req := newRequest(id, reqCancel)

	go func() {
		defer reqCancel()

		select {
		case <-c.done:
			if c.err != nil {
				req.settle(nil, c.err)
				return
			}

			req.settle(withSelection(c.values, prevSelection, defaultSelection), nil)

		case <-reqCtx.Done():
			r.detach(key, c)
			req.settle(nil, reqCtx.Err())
		}
	}()

	return req
}

// detach releases a reference to the call and cancels the execution when nobody waits for it.
func (r *Resolver) detach(key string, c *call) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.refs--

	if c.refs > 0 {
		return
	}

	if r.inflight[key] == c {
		delete(r.inflight, key)
	}

	c.cancel()
}

func (r *Resolver) run(ctx context.Context, id, key string, c *call, ec models.ExecutionContext, extern *flux.File,
	prevSelection, defaultSelection *string) {
	defer c.cancel()

	values, err := r.fetch(ctx, id, key, ec, extern, prevSelection, defaultSelection)

	r.mu.Lock()
	if r.inflight[key] == c {
		delete(r.inflight, key)
	}
	r.mu.Unlock()

	c.values = values
	c.err = err
	close(c.done)
}

// fetch executes the query, extracts values and stores them in the cache.
func (r *Resolver) fetch(ctx context.Context, id, key string, ec models.ExecutionContext, extern *flux.File,
	prevSelection, defaultSelection *string) (*models.VariableValues, error) {
	start := time.Now()

	raw, err := r.executor.Execute(ctx, ec.OrganizationID, ec.Query, extern)
	if err != nil {
		log.Err(fmt.Sprintf("[%s] failed to execute query: ", id), err)
		return nil, err
	}

	log.Dbg(fmt.Sprintf("[%s] query executed in %s, response size: %s", id,
		durafmt.Parse(time.Since(start)).String(), humanize.Bytes(uint64(len(raw)))))

	tables, err := r.parse(raw)
	if err != nil {
		log.Err(fmt.Sprintf("[%s] failed to parse response: ", id), err)
		return nil, err
	}

	values, err := ExtractValues(tables, prevSelection, defaultSelection)
	if err != nil {
		log.Err(fmt.Sprintf("[%s] failed to extract values: ", id), err)
		return nil, err
	}

	r.cache.Add(key, values)

	log.Dbg(fmt.Sprintf("[%s] resolved %s distinct values", id, humanize.Comma(int64(len(values.Values)))))

	return values, nil
}

// CacheLen returns the number of cached entries.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}

// Snapshot returns a copy of the cached entries.
func (r *Resolver) Snapshot() map[string]*models.VariableValues {
	entries := make(map[string]*models.VariableValues)

	for _, key := range r.cache.Keys() {
		if values, ok := r.cache.Get(key); ok {
			entries[key] = values
		}
	}

	return entries
}

// Restore fills the cache with previously saved entries.
func (r *Resolver) Restore(entries map[string]*models.VariableValues) {
	for key, values := range entries {
		if values == nil {
			continue
		}

		r.cache.Add(key, values)
	}
}

func withSelection(values *models.VariableValues, prevSelection, defaultSelection *string) *models.VariableValues {
	return &models.VariableValues{
		Values:        values.Values,
		ValueType:     values.ValueType,
		SelectedValue: SelectValue(values.Values, prevSelection, defaultSelection),
	}
}
