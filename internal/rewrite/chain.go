// Package rewrite implements the fixed, ordered request/response mutator
// chain — block, fingerprint, cookie — that every intercepted exchange runs
// through (spec §4.5). It generalizes the teacher's ad hoc Filter/FilterChain
// into the three specific rewriters the specification mandates, in the
// mandated order.
package rewrite

import (
	"net/http"
	"time"

	"github.com/mrorigo/blanktrace/internal/auditlog"
)

// Recorder is the narrow auditlog.Sink surface the chain needs. Defined
// here (rather than importing *auditlog.Sink directly) so tests can supply
// a fake without standing up SQLite.
type Recorder interface {
	Record(auditlog.Entry)
}

// Context carries everything a rewriter needs about one exchange. Host is
// already stripped of port; ClientIP is the best-effort peer address.
type Context struct {
	Host     string
	ClientIP string
	Now      time.Time
}

// Rewriter mutates a request or response in place. ApplyRequest may
// short-circuit the exchange by returning a non-nil response, in which case
// the chain stops and the origin is never contacted (spec §4.5 item 1's
// 403 short-circuit is the only rewriter that does this today, but the
// contract allows any rewriter to).
type Rewriter interface {
	ApplyRequest(ctx *Context, req *http.Request) (shortCircuit *http.Response, err error)
	ApplyResponse(ctx *Context, resp *http.Response) error
}

// Chain runs rewriters in registration order; each sees the state left by
// its predecessors (spec §4.5's contract).
type Chain struct {
	rewriters []Rewriter
}

// NewChain builds the fixed BlankTrace pipeline: block, then fingerprint,
// then cookie. Order is part of the contract — callers should use this
// constructor rather than assembling the slice themselves.
func NewChain(block, fingerprint, cookie Rewriter) Chain {
	return Chain{rewriters: []Rewriter{block, fingerprint, cookie}}
}

// ApplyRequest runs the request-side of every rewriter in order, stopping
// at the first short-circuit or error.
func (c Chain) ApplyRequest(ctx *Context, req *http.Request) (*http.Response, error) {
	for _, r := range c.rewriters {
		resp, err := r.ApplyRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}

// ApplyResponse runs the response-side of every rewriter in order.
func (c Chain) ApplyResponse(ctx *Context, resp *http.Response) error {
	for _, r := range c.rewriters {
		if err := r.ApplyResponse(ctx, resp); err != nil {
			return err
		}
	}
	return nil
}
