package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	refreshKey = "devices"

	// DefaultFetchTimeout bounds a single backend listing.
	DefaultFetchTimeout = 10 * time.Second
)

// ErrClosed is returned by refreshes issued after Close.
var ErrClosed = errors.New("device registry closed")

// Lister is the listing half of the capture backend.
type Lister interface {
	ListDevices(ctx context.Context) (inputs, outputs []Device, err error)
}

// FetchError reports a failed device listing. The registry keeps its
// previous contents when one is returned.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch devices: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = log.With().Str("component", "registry").Logger()
	}
}

// WithFetchTimeout bounds each backend listing.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Listing reports a backend listing the registry dispatched (Done false)
// or finished (Done true).
type Listing struct {
	Generation uint64
	Done       bool
	Applied    bool  // the response replaced the registry
	List       List  // registry contents after the listing
	Err        error // set when the listing failed or the registry closed
}

// Registry caches the result of the most recent successful listing.
//
// Concurrent Refresh calls share one backend request. Every request is
// tagged with a generation when dispatched, and its response is applied
// only if no newer request was dispatched since.
type Registry struct {
	lister  Lister
	log     zerolog.Logger
	timeout time.Duration
	group   singleflight.Group

	mu         sync.RWMutex
	current    List
	fetched    bool
	generation uint64
	inFlight   int
	lastErr    error // outcome of the latest settled listing
	observer   func(Listing)
	closed     bool
}

// errSuperseded marks a response dropped because a newer listing was
// dispatched. It never reaches callers.
var errSuperseded = errors.New("device listing superseded")

// NewRegistry creates an empty registry backed by lister.
func NewRegistry(lister Lister, opts ...Option) *Registry {
	r := &Registry{
		lister:  lister,
		log:     zerolog.Nop(),
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe registers fn to be told when listings start and finish. It is
// called outside the registry lock, from the goroutine running the
// listing, even when every waiter has gone away.
func (r *Registry) Observe(fn func(Listing)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Refresh lists devices from the backend, joining a listing already in
// flight if there is one. A caller whose listing is superseded gets the
// outcome of the newer one.
func (r *Registry) Refresh(ctx context.Context) (List, error) {
	for {
		ch := r.group.DoChan(refreshKey, func() (interface{}, error) {
			// The shared fetch must outlive any single waiter's context.
			fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
			defer cancel()
			return r.fetch(fetchCtx)
		})

		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return List{}, ctx.Err()
		}

		if res.Shared {
			r.log.Debug().Msg("Joined in-flight device refresh")
		}
		if errors.Is(res.Err, errSuperseded) {
			if r.InFlight() {
				continue
			}
			return r.settled()
		}
		if res.Err != nil {
			return List{}, res.Err
		}
		return res.Val.(List), nil
	}
}

// Reload issues a new listing even when one is in flight. The older
// listing's response is discarded when it arrives.
func (r *Registry) Reload(ctx context.Context) (List, error) {
	r.group.Forget(refreshKey)
	return r.Refresh(ctx)
}

// InFlight reports whether a backend listing is running.
func (r *Registry) InFlight() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inFlight > 0
}

// settled returns the outcome of the latest finished listing.
func (r *Registry) settled() (List, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastErr != nil {
		return List{}, r.lastErr
	}
	return r.current, nil
}

func (r *Registry) fetch(ctx context.Context) (List, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return List{}, ErrClosed
	}
	r.generation++
	gen := r.generation
	r.inFlight++
	observer := r.observer
	r.mu.Unlock()

	notify(observer, Listing{Generation: gen})

	r.log.Debug().Uint64("generation", gen).Msg("Listing devices")
	inputs, outputs, err := r.lister.ListDevices(ctx)

	done, result, resultErr := r.apply(gen, inputs, outputs, err)
	notify(observer, done)
	return result, resultErr
}

// apply records a finished listing and returns the event describing it
// together with the value handed to waiters.
func (r *Registry) apply(gen uint64, inputs, outputs []Device, err error) (Listing, List, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inFlight--
	done := Listing{Generation: gen, Done: true}

	switch {
	case r.closed:
		done.Err = ErrClosed
		return done, List{}, ErrClosed
	case gen != r.generation:
		r.log.Debug().
			Uint64("generation", gen).
			Uint64("latest", r.generation).
			Msg("Discarding superseded device listing")
		done.List = r.current
		return done, List{}, errSuperseded
	case err != nil:
		var fe *FetchError
		if !errors.As(err, &fe) {
			fe = &FetchError{Err: err}
		}
		r.lastErr = fe
		done.List = r.current
		done.Err = fe
		return done, List{}, fe
	}

	r.current = newList(inputs, outputs)
	r.fetched = true
	r.lastErr = nil
	r.log.Info().
		Int("inputs", len(r.current.Inputs)).
		Int("outputs", len(r.current.Outputs)).
		Msg("Device registry updated")

	done.Applied = true
	done.List = r.current
	return done, r.current, nil
}

func notify(observer func(Listing), l Listing) {
	if observer != nil {
		observer(l)
	}
}

// Snapshot returns the current device list.
func (r *Registry) Snapshot() List {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Fetched reports whether any listing has succeeded.
func (r *Registry) Fetched() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetched
}

// Contains reports whether id is a known device of the given kind.
func (r *Registry) Contains(id string, kind Kind) bool {
	return r.Snapshot().Contains(id, kind)
}

// Close discards in-flight listings and rejects later ones.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.generation++
}
