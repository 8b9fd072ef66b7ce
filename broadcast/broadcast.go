// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"sync"

	"github.com/wfunc/voxelworld/logger"
	"github.com/wfunc/voxelworld/network"
	"github.com/wfunc/voxelworld/session"
)

// Broadcaster fans a pre-serialized event out to the live sessions. Delivery
// is best-effort per recipient: a failing or slow client never stalls the
// others and never surfaces an error to the sender.
type Broadcaster interface {
	Broadcast(data []byte)
	BroadcastExcept(sessionID string, data []byte)
}

// Hub delivers to every session registered with the manager. A hub-wide lock
// serializes fan-outs, so each recipient's bounded queue receives events in
// broadcast call order.
type Hub struct {
	sessions *session.Manager

	// OnOverflow, if set, is told about each recipient dropped for a full
	// send queue (metrics hook).
	OnOverflow func(sessionID string)

	mutex sync.Mutex
}

func NewHub(sessions *session.Manager) *Hub {
	return &Hub{
		sessions: sessions,
	}
}

func (h *Hub) Broadcast(data []byte) {
	h.BroadcastExcept("", data)
}

// BroadcastExcept skips the named session; used for player_join, where the
// joining connection already saw itself in its init message.
func (h *Hub) BroadcastExcept(sessionID string, data []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, s := range h.sessions.All() {
		if s.ID == sessionID {
			continue
		}
		h.deliver(s, data)
	}
}

// Sync runs fn under the fan-out lock. Connection setup uses this to take
// its world snapshot and register the new session as one step, so no event
// can fall between the snapshot and the session's first queued message.
func (h *Hub) Sync(fn func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	fn()
}

func (h *Hub) deliver(s *session.Session, data []byte) {
	err := s.Send(data)
	if err == nil {
		return
	}
	if errors.Is(err, network.ErrQueueFull) {
		// A stalled client would otherwise grow an unbounded backlog and an
		// ever-staler world view. Cut it loose; its read loop runs the normal
		// disconnect path and it can reconnect for a fresh snapshot.
		logger.Log.Warnf("Session %s send queue overflow, disconnecting", s.ID)
		if h.OnOverflow != nil {
			h.OnOverflow(s.ID)
		}
		s.Close()
		return
	}
	// Already closed or mid-teardown; its own lifecycle handles cleanup.
}
