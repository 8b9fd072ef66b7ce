// protocol/messages.go
package protocol

import (
	"github.com/wfunc/voxelworld/player"
	"github.com/wfunc/voxelworld/world"
)

// InitMsg is sent once to each new connection: its identity, its own player,
// and full snapshots of the player listing and the block store.
type InitMsg struct {
	T       string          `json:"t"`
	ID      string          `json:"id"`
	Me      player.Player   `json:"me"`
	Players []player.Player `json:"players"`
	Blocks  []world.Block   `json:"blocks"`
}

// PlaceMsg doubles as the client request and the broadcast confirmation.
type PlaceMsg struct {
	T    string          `json:"t"`
	Key  world.Key       `json:"key"`
	Type world.BlockType `json:"type"`
}

// BreakMsg is the client request (Type empty) and the broadcast (Type set to
// the removed block's type, echoed as the drop).
type BreakMsg struct {
	T    string          `json:"t"`
	Key  world.Key       `json:"key"`
	Type world.BlockType `json:"type,omitempty"`
}

type PlayerJoinMsg struct {
	T      string        `json:"t"`
	Player player.Player `json:"player"`
}

type PlayerLeaveMsg struct {
	T  string `json:"t"`
	ID string `json:"id"`
}

// UpdateMsg is the inbound position report; PlayerUpdateMsg is its broadcast
// echo. They carry the same fields but are kept separate so each direction
// documents its own tag.
type UpdateMsg struct {
	T    string  `json:"t"`
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	RotY float64 `json:"rotY"`
}

type PlayerUpdateMsg struct {
	T    string  `json:"t"`
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	RotY float64 `json:"rotY"`
}

// ChatMsg is relayed verbatim; the server keeps no chat state.
type ChatMsg struct {
	T    string `json:"t"`
	ID   string `json:"id"`
	Text string `json:"text"`
	Name string `json:"name"`
}
