// Package auth tracks which user the client is acting as. Every backend
// call and realtime subscription is scoped to the current identity, and a
// change of identity invalidates all session state downstream.
package auth

import "sync"

// Identity binds a user id to the bearer token used on its behalf.
type Identity struct {
	UserID string
	Token  string
}

// Provider reports the current identity and notifies on changes.
type Provider interface {
	// Current returns the active identity, false when signed out.
	Current() (Identity, bool)
	// Subscribe registers a listener, invoked on every identity change.
	// The returned function removes the listener.
	Subscribe(listener func(Identity, bool)) func()
}

// StaticProvider holds an identity set at startup from configuration and
// allows it to be swapped at runtime.
type StaticProvider struct {
	mu        sync.Mutex
	identity  Identity
	active    bool
	listeners map[int]func(Identity, bool)
	nextID    int
}

// NewStaticProvider with an initial identity. An empty user id means
// signed out.
func NewStaticProvider(identity Identity) *StaticProvider {
	return &StaticProvider{
		identity:  identity,
		active:    identity.UserID != "",
		listeners: map[int]func(Identity, bool){},
	}
}

// Current identity.
func (p *StaticProvider) Current() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity, p.active
}

// Subscribe to identity changes.
func (p *StaticProvider) Subscribe(listener func(Identity, bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = listener
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// SetIdentity replaces the active identity and notifies listeners. An
// empty user id signs out.
func (p *StaticProvider) SetIdentity(identity Identity) {
	p.mu.Lock()
	p.identity = identity
	p.active = identity.UserID != ""
	listeners := make([]func(Identity, bool), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	active := p.active
	p.mu.Unlock()
	for _, l := range listeners {
		l(identity, active)
	}
}
