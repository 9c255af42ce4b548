package correlation

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Combine-Capital/cqlog/pkg/errors"
)

// Options configures a Store.
type Options struct {
	// MaxValueLength truncates stored values, in bytes. 0 disables truncation.
	MaxValueLength int
}

// Store associates tasks with their scopes. Scope lookup goes through the
// context handed to the task; the store keeps a registry of the scopes that
// still have a running body or continuation.
type Store struct {
	opts   Options
	active sync.Map // scope id -> *Scope
	count  atomic.Int64
}

// scopeKey is unique per store so two stores never see each other's scopes.
type scopeKey struct {
	store *Store
}

// NewStore creates a Store. It fails only on unusable options; the error is a
// PermanentError because no request can be correlated without a store.
func NewStore(opts Options) (*Store, error) {
	if opts.MaxValueLength < 0 {
		return nil, errors.NewPermanent("correlation store",
			errors.NewInvalidInput("max_value_length", "must not be negative"))
	}
	return &Store{opts: opts}, nil
}

// MustNewStore is like NewStore but panics on error.
func MustNewStore(opts Options) *Store {
	s, err := NewStore(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// RunInNewScope runs body with a context carrying a fresh, empty scope.
//
// The scope stays registered until body and every continuation started with Go
// have returned. Nested calls give the nested body its own scope; the caller's
// context is never modified, so its scope is what it sees again afterwards.
func (s *Store) RunInNewScope(ctx context.Context, body func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sc := newScope(s)
	s.acquire(sc)
	defer s.release(sc)

	return body(context.WithValue(ctx, scopeKey{s}, sc))
}

// ScopeFrom returns the scope carried by ctx.
func (s *Store) ScopeFrom(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	sc, ok := ctx.Value(scopeKey{s}).(*Scope)
	return sc, ok && sc != nil
}

// Bound reports whether ctx carries a scope of this store.
func (s *Store) Bound(ctx context.Context) bool {
	_, ok := s.ScopeFrom(ctx)
	return ok
}

// Set writes value into the scope carried by ctx. Without a scope it does nothing.
func (s *Store) Set(ctx context.Context, key Key, value string) {
	if sc, ok := s.ScopeFrom(ctx); ok {
		sc.Set(key, value)
	}
}

// Get reads key from the scope carried by ctx. It returns "" when ctx carries
// no scope or the key was never set.
func (s *Store) Get(ctx context.Context, key Key) string {
	if sc, ok := s.ScopeFrom(ctx); ok {
		return sc.Get(key)
	}
	return ""
}

// Values returns every key of the scope carried by ctx, "" for unset keys.
// The map always holds all keys, bound or not.
func (s *Store) Values(ctx context.Context) map[Key]string {
	if sc, ok := s.ScopeFrom(ctx); ok {
		return sc.Values()
	}
	out := make(map[Key]string, numKeys)
	for k := Key(0); k < numKeys; k++ {
		out[k] = ""
	}
	return out
}

// Go runs fn in a new goroutine with ctx. The scope carried by ctx stays
// registered until fn returns, even if the spawning body finished earlier.
func (s *Store) Go(ctx context.Context, fn func(ctx context.Context)) {
	sc, ok := s.ScopeFrom(ctx)
	if ok {
		s.acquire(sc)
	}
	go func() {
		if ok {
			defer s.release(sc)
		}
		fn(ctx)
	}()
}

// Inject returns dst carrying the scope of src. It is the handoff for work
// started from a context that was not derived from the request, such as a
// queue consumer picking up a job enqueued by the request.
func (s *Store) Inject(dst, src context.Context) context.Context {
	if sc, ok := s.ScopeFrom(src); ok {
		return context.WithValue(dst, scopeKey{s}, sc)
	}
	return dst
}

// Active returns the number of scopes with a running body or continuation.
func (s *Store) Active() int {
	return int(s.count.Load())
}

// Lookup returns the active scope with the given id.
func (s *Store) Lookup(id string) (*Scope, bool) {
	v, ok := s.active.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Scope), true
}

func (s *Store) acquire(sc *Scope) {
	sc.refMu.Lock()
	defer sc.refMu.Unlock()

	sc.refs++
	if sc.refs == 1 {
		s.active.Store(sc.id, sc)
		s.count.Add(1)
	}
}

func (s *Store) release(sc *Scope) {
	sc.refMu.Lock()
	defer sc.refMu.Unlock()

	sc.refs--
	if sc.refs == 0 {
		s.active.Delete(sc.id)
		s.count.Add(-1)
	}
}
