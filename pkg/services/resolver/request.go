/*
2021 © Postgres.ai
*/

package resolver

import (
	"context"
	"sync"

	"gitlab.com/postgres-ai/varfetch/pkg/models"
)

// Request is a pending resolution of variable values.
type Request struct {
	id     string
	done   chan struct{}
	values *models.VariableValues
	err    error

	cancel     func()
	cancelOnce sync.Once
}

func newRequest(id string, cancel func()) *Request {
	return &Request{
		id:     id,
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

func resolvedRequest(id string, values *models.VariableValues, err error) *Request {
	req := newRequest(id, func() {})
	req.settle(values, err)

	return req
}

// ID returns the request identifier used in logs.
func (r *Request) ID() string {
	return r.id
}

// Done returns a channel closed once the request is settled.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request is settled or ctx is done.
// The request keeps running when ctx is done; use Cancel to stop it.
func (r *Request) Wait(ctx context.Context) (*models.VariableValues, error) {
	select {
	case <-r.done:
		return r.values, r.err

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops the underlying query execution. It is a no-op once the request is settled.
func (r *Request) Cancel() {
	select {
	case <-r.done:
		return
	default:
	}

	r.cancelOnce.Do(r.cancel)
}

func (r *Request) settle(values *models.VariableValues, err error) {
	r.values = values
	r.err = err
	close(r.done)
}
