// player/registry.go
package player

import (
	"sync"
)

// Registry is the authoritative player table, keyed by connection identity.
type Registry struct {
	mu      sync.RWMutex
	players map[string]*Player
	src     Source
}

func NewRegistry(src Source) *Registry {
	if src == nil {
		src = NewRandomSource()
	}
	return &Registry{
		players: make(map[string]*Player),
		src:     src,
	}
}

// NewID allocates a fresh connection identity.
func (r *Registry) NewID() string {
	return r.src.NewID()
}

// Create allocates the player for a new connection: randomized spawn near
// origin, zero rotation, display name derived from the identity. Returns a
// copy of the stored value.
func (r *Registry) Create(id string) Player {
	x, y, z := r.src.Spawn()
	p := &Player{
		ID:   id,
		X:    x,
		Y:    y,
		Z:    z,
		Name: displayName(id),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[id] = p
	return *p
}

// Update overwrites position and rotation iff the identity exists. Updates
// for removed identities race with disconnect and are silently ignored.
func (r *Registry) Update(id string, x, y, z, rotY float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.players[id]
	if !exists {
		return false
	}
	p.X, p.Y, p.Z, p.RotY = x, y, z, rotY
	return true
}

// Remove deletes the player; removing an unknown identity is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
}

// Get returns a copy of the player, if present.
func (r *Registry) Get(id string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.players[id]
	if !exists {
		return Player{}, false
	}
	return *p, true
}

// All copies out the current player listing.
func (r *Registry) All() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	return out
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func displayName(id string) string {
	short := id
	if len(short) > 4 {
		short = short[:4]
	}
	return "Player-" + short
}
