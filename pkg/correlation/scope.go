package correlation

import (
	"sync"

	"github.com/google/uuid"
)

// Scope is the key-value record of one task. It is created by RunInNewScope and
// reachable only through contexts derived from the one handed to the task body.
type Scope struct {
	id    string
	store *Store

	mu     sync.RWMutex
	values [numKeys]string

	// refMu guards refs: the body plus every continuation started with Go.
	refMu sync.Mutex
	refs  int
}

func newScope(store *Store) *Scope {
	return &Scope{
		id:    uuid.NewString(),
		store: store,
	}
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() string {
	return s.id
}

// Get returns the value stored under key, or "" if it was never set.
func (s *Scope) Get(key Key) string {
	if !key.valid() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set stores value under key with CR/LF removed and truncated to the store's
// MaxValueLength. It is otherwise stored as given.
func (s *Scope) Set(key Key, value string) {
	if !key.valid() {
		return
	}
	value = sanitize(value, s.store.opts.MaxValueLength)

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Values returns a snapshot of every key. Unset keys map to "".
func (s *Scope) Values() map[Key]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Key]string, numKeys)
	for k := Key(0); k < numKeys; k++ {
		out[k] = s.values[k]
	}
	return out
}
