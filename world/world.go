// world/world.go
package world

import (
	"math/rand"
	"sync"
)

// BlockType tags what occupies a voxel. The store treats it as opaque so new
// block types need no server change.
type BlockType string

const (
	Dirt  BlockType = "dirt"
	Stone BlockType = "stone"
	Wood  BlockType = "wood"
	Grass BlockType = "grass"
	Sand  BlockType = "sand"
)

// Block is one occupied voxel, as listed in snapshots and wire messages.
type Block struct {
	Key  Key       `json:"key"`
	Type BlockType `json:"type"`
}

// World is the authoritative block store. Absence of a key means empty space;
// a key holds at most one block and is never silently overwritten.
type World struct {
	mu     sync.RWMutex
	blocks map[Key]BlockType
}

func NewWorld() *World {
	return &World{
		blocks: make(map[Key]BlockType),
	}
}

// Place inserts a block iff the key is empty and reports whether the world
// changed. Placing on an occupied key is a no-op, not an error; the check and
// the insert happen under one lock so concurrent placers race for exactly one
// winner.
func (w *World) Place(key Key, t BlockType) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.blocks[key]; exists {
		return false
	}
	w.blocks[key] = t
	return true
}

// Break removes the block at key and returns its type. Breaking empty space
// returns ok=false.
func (w *World) Break(key Key) (BlockType, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, exists := w.blocks[key]
	if !exists {
		return "", false
	}
	delete(w.blocks, key)
	return t, true
}

// Get reports the block at key, if any.
func (w *World) Get(key Key) (BlockType, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t, exists := w.blocks[key]
	return t, exists
}

// Len returns the number of occupied voxels.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.blocks)
}

// Snapshot copies out the full block listing under the store lock, so the
// result is a state the world held at a single instant. Used for init
// messages to new connections; not a hot-path operation.
func (w *World) Snapshot() []Block {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Block, 0, len(w.blocks))
	for k, t := range w.blocks {
		out = append(out, Block{Key: k, Type: t})
	}
	return out
}

// Generate fills the starting terrain: a dirt slab at y in [-2,0] for every
// (x,z) column with |x|,|z| <= halfExtent, plus sparse stone at y=1 with the
// given per-column chance. Runs once at startup before any connection is
// accepted, so it writes the map directly.
func (w *World) Generate(halfExtent int, stoneChance float64, rng *rand.Rand) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for x := -halfExtent; x <= halfExtent; x++ {
		for z := -halfExtent; z <= halfExtent; z++ {
			for y := -2; y <= 0; y++ {
				w.blocks[At(x, y, z)] = Dirt
			}
			if rng.Float64() < stoneChance {
				w.blocks[At(x, 1, z)] = Stone
			}
		}
	}
}
