package passhash

import (
	"fmt"
	"sync"
)

// Registry dispatches hash strings to scheme handlers. Identification walks
// the schemes in registration order and returns the first match, so broader
// patterns (unix_disabled matches the empty string) should be registered
// last. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string
	def      string
}

// NewRegistry returns an empty registry with no default scheme.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// NewDefaultRegistry returns a registry preloaded with every scheme in this
// package, defaulting to bcrypt for new hashes.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	bcrypt, err := NewBcrypt()
	if err != nil {
		return nil, err
	}
	bcryptSHA256, err := NewBcryptSHA256()
	if err != nil {
		return nil, err
	}
	disabled, err := NewUnixDisabled()
	if err != nil {
		return nil, err
	}
	for _, h := range []Handler{bcrypt, bcryptSHA256, disabled} {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	if err := r.SetDefault(SchemeBcrypt); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a handler under its own name. Re-registering a name replaces
// the handler but keeps its original position in identification order. The
// first handler registered becomes the default scheme.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("%w: handler has empty name", ErrNilHandler)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
	if r.def == "" {
		r.def = name
	}
	return nil
}

// SetDefault selects the scheme used by Hash.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrSchemeNotFound, name)
	}
	r.def = name
	return nil
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemeNotFound, name)
	}
	return h, nil
}

// Schemes returns the registered scheme names in registration order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Identify returns the first registered handler whose pattern matches hash.
func (r *Registry) Identify(hash string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if h := r.handlers[name]; h.Identify(hash) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: no scheme identifies hash", ErrSchemeNotFound)
}

// Hash generates a hash of secret using the default scheme.
func (r *Registry) Hash(secret string) (string, error) {
	r.mu.RLock()
	def := r.def
	r.mu.RUnlock()
	if def == "" {
		return "", fmt.Errorf("%w: registry has no default scheme", ErrSchemeNotFound)
	}
	h, err := r.Get(def)
	if err != nil {
		return "", err
	}
	return h.Hash(secret)
}

// Verify dispatches hash to the scheme that identifies it.
func (r *Registry) Verify(secret, hash string) (bool, error) {
	h, err := r.Identify(hash)
	if err != nil {
		return false, err
	}
	return h.Verify(secret, hash)
}

// NeedsUpdate reports whether hash should be regenerated: either no
// registered scheme identifies it, it belongs to a scheme other than the
// default, or its own scheme wants it upgraded.
func (r *Registry) NeedsUpdate(hash string) bool {
	h, err := r.Identify(hash)
	if err != nil {
		return true
	}
	r.mu.RLock()
	def := r.def
	r.mu.RUnlock()
	if h.Name() != def && h.Name() != SchemeUnixDisabled {
		return true
	}
	return h.NeedsUpdate(hash)
}

// VerifyAndUpdate verifies secret against hash and, on success, returns a
// replacement hash generated with the default scheme when the stored one is
// stale. The returned string is empty when no update is needed.
func (r *Registry) VerifyAndUpdate(secret, hash string) (bool, string, error) {
	ok, err := r.Verify(secret, hash)
	if err != nil || !ok {
		return ok, "", err
	}
	if !r.NeedsUpdate(hash) {
		return true, "", nil
	}
	updated, err := r.Hash(secret)
	if err != nil {
		return true, "", err
	}
	return true, updated, nil
}
