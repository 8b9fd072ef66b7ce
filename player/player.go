// player/player.go
package player

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Player is the server-owned state for one connected player. Clients only
// ever request changes to it; the Registry is the sole mutator.
type Player struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	RotY float64 `json:"rotY"`
	Name string  `json:"name"`
}

// Source supplies connection identities and spawn positions. Swapped for a
// fixed implementation in tests.
type Source interface {
	NewID() string
	Spawn() (x, y, z float64)
}

// RandomSource is the production Source: uuid v4 identities and an integer
// spawn offset in [-3,3] on each horizontal axis at a fixed height.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomSource() *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *RandomSource) NewID() string {
	return uuid.New().String()
}

func (s *RandomSource) Spawn() (x, y, z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.rng.Intn(7) - 3), 2, float64(s.rng.Intn(7) - 3)
}
