package auth

import "sync"

// StateSource reports the signed-in user. OnAuthChange calls cb once with the current user
// (nil when signed out) and again on every change until unsubscribe is called.
type StateSource interface {
	OnAuthChange(cb func(*User)) (unsubscribe func())
}

// Hub is a StateSource whose user is set explicitly.
type Hub struct {
	mu     sync.Mutex
	user   *User
	nextID int
	subs   map[int]func(*User)
}

func NewHub(initial *User) *Hub {
	return &Hub{user: initial, subs: map[int]func(*User){}}
}

func (h *Hub) OnAuthChange(cb func(*User)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = cb
	current := h.user
	h.mu.Unlock()

	cb(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// SetUser replaces the current user and notifies subscribers.
func (h *Hub) SetUser(user *User) {
	h.mu.Lock()
	h.user = user
	subs := make([]func(*User), 0, len(h.subs))
	for _, cb := range h.subs {
		subs = append(subs, cb)
	}
	h.mu.Unlock()

	for _, cb := range subs {
		cb(user)
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
