package auth

import (
	"sync"

	"github.com/Emanuel0428/FlowForgeAI-sub001/pkg/domain"
)

// Listener receives the current user, or nil when signed out.
type Listener func(user *domain.User)

// Subscription is a typed handle for removing a listener.
type Subscription struct {
	id  uint64
	reg *listenerRegistry
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.reg == nil {
		return
	}
	s.reg.remove(s.id)
	s.reg = nil
}

// listenerRegistry is an ordered list of auth-state callbacks.
type listenerRegistry struct {
	mu     sync.Mutex
	nextID uint64
	order  []uint64
	byID   map[uint64]Listener
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{byID: make(map[uint64]Listener)}
}

func (r *listenerRegistry) add(fn Listener) *Subscription {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.order = append(r.order, id)
	r.byID[id] = fn
	r.mu.Unlock()
	return &Subscription{id: id, reg: r}
}

func (r *listenerRegistry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// notify invokes every listener in subscription order. Listeners run outside
// the registry lock so they may subscribe or unsubscribe reentrantly.
func (r *listenerRegistry) notify(user *domain.User) {
	r.mu.Lock()
	fns := make([]Listener, 0, len(r.order))
	for _, id := range r.order {
		if fn, ok := r.byID[id]; ok {
			fns = append(fns, fn)
		}
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(user)
	}
}
