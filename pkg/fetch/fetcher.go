// Package fetch implements the data-fetch abstraction every screen uses to talk
// to the backend.
//
// A Fetcher owns exactly one FetchState. Each issued request is tagged with a
// generation number; a completion whose generation is no longer current is
// dropped silently, so a superseded request can never overwrite the state of
// a newer one.
package fetch

import (
	"context"
	"sync"

	slogctx "github.com/veqryn/slog-context"
)

// Status is the lifecycle position of a FetchState.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is a snapshot of a fetch lifecycle.
//
// Invariants: StatusSuccess has Data and no Err; StatusError has Err and no Data.
type State[T any] struct {
	Status Status
	Data   *T
	Err    *Error
}

// Loading reports whether a request is in flight.
func (s State[T]) Loading() bool { return s.Status == StatusPending }

// Option configures a Fetcher.
type Option func(*options)

type options struct {
	anonymous Doer
	name      string
}

// WithAnonymousDoer sets the client used for CredentialsOmit requests.
func WithAnonymousDoer(d Doer) Option {
	return func(o *options) { o.anonymous = d }
}

// WithName labels the fetcher in debug logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Fetcher keeps a State[T] in sync with the latest Request it was given.
// Instances are never shared between call sites.
//
// Listeners run on the goroutine that produced the change and must not call
// Set, Refetch or Close synchronously.
type Fetcher[T any] struct {
	doer Doer
	opts options

	mu        sync.Mutex
	gen       uint64
	hasReq    bool
	key       string
	req       Request
	cancel    context.CancelFunc
	done      chan struct{}
	state     State[T]
	listeners map[int]func(State[T])
	nextID    int
	closed    bool

	// notifyMu serialises deliveries so listeners observe states in issue order.
	notifyMu sync.Mutex
}

// New returns an idle Fetcher that issues credentialed requests through doer.
func New[T any](doer Doer, opts ...Option) *Fetcher[T] {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.anonymous == nil {
		o.anonymous = doer
	}
	return &Fetcher[T]{
		doer:      doer,
		opts:      o,
		listeners: make(map[int]func(State[T])),
	}
}

// State returns the current snapshot.
func (f *Fetcher[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers fn for every state change. The returned func removes it.
func (f *Fetcher[T]) Subscribe(fn func(State[T])) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// Set points the fetcher at req. The request is issued only when its target or
// options differ from the previous call; an in-flight request for the previous
// pair is cancelled and its result discarded.
func (f *Fetcher[T]) Set(ctx context.Context, req Request) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	key := req.key()
	if f.hasReq && key == f.key {
		f.mu.Unlock()
		return
	}
	f.hasReq = true
	f.key = key
	f.req = req
	f.issueLocked(ctx)
}

// Refetch re-issues the current request even though nothing changed.
func (f *Fetcher[T]) Refetch(ctx context.Context) {
	f.mu.Lock()
	if f.closed || !f.hasReq {
		f.mu.Unlock()
		return
	}
	f.issueLocked(ctx)
}

// issueLocked starts a new generation. It is called with f.mu held and
// releases it.
func (f *Fetcher[T]) issueLocked(ctx context.Context) {
	f.gen++
	gen := f.gen
	req := f.req

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}

	if !req.Resolvable() {
		f.done = nil
		f.state = State[T]{Status: StatusIdle}
		st := f.state
		f.mu.Unlock()
		f.publish(gen, st)
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done
	f.state = State[T]{Status: StatusPending}
	st := f.state
	doer := f.doer
	if req.Credentials == CredentialsOmit {
		doer = f.opts.anonymous
	}
	f.mu.Unlock()

	slogctx.Debug(ctx, "issuing fetch", "fetcher", f.opts.name, "method", req.method(), "url", req.URL, "generation", gen)
	f.publish(gen, st)

	go f.run(reqCtx, cancel, gen, doer, req, done)
}

func (f *Fetcher[T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, doer Doer, req Request, done chan struct{}) {
	defer close(done)
	defer cancel()

	data, err := Do[T](ctx, doer, req)

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		slogctx.Debug(ctx, "dropping superseded fetch result", "fetcher", f.opts.name, "url", req.URL, "generation", gen)
		return
	}
	if err != nil {
		f.state = State[T]{Status: StatusError, Err: asError(err)}
	} else {
		f.state = State[T]{Status: StatusSuccess, Data: data}
	}
	st := f.state
	f.mu.Unlock()

	f.publish(gen, st)
}

func (f *Fetcher[T]) publish(gen uint64, st State[T]) {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	ls := make([]func(State[T]), 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()

	for _, l := range ls {
		l(st)
	}
}

// Wait blocks until the current generation settles or ctx is done. If the
// request is superseded while waiting, Wait follows the newer one.
func (f *Fetcher[T]) Wait(ctx context.Context) (State[T], error) {
	for {
		f.mu.Lock()
		done := f.done
		f.mu.Unlock()
		if done == nil {
			return f.State(), nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return f.State(), ctx.Err()
		}

		f.mu.Lock()
		same := f.done == done
		f.mu.Unlock()
		if same {
			return f.State(), nil
		}
	}
}

// Close tears the fetcher down: the in-flight request is cancelled, any late
// completion is ignored and listeners are dropped.
func (f *Fetcher[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.done = nil
	clear(f.listeners)
}
