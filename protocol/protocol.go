// protocol/protocol.go
package protocol

import "encoding/json"

// Message type tags, carried in the "t" field of every envelope.
const (
	// Server -> client.
	TypeInit         = "init"
	TypePlace        = "place"
	TypeBreak        = "break"
	TypePlayerJoin   = "player_join"
	TypePlayerLeave  = "player_leave"
	TypePlayerUpdate = "player_update"
	TypeChat         = "chat"

	// Client -> server. place/break/chat reuse the tags above.
	TypeUpdate = "update"
)

// Base is the minimal envelope, used to route a raw message by type before
// committing to a full decode.
type Base struct {
	T string `json:"t"`
}

// DecodeType extracts the type tag from a raw message. An error or an empty
// tag both mean the message is malformed and should be dropped.
func DecodeType(b []byte) (string, error) {
	var m Base
	if err := json.Unmarshal(b, &m); err != nil {
		return "", err
	}
	return m.T, nil
}

// Encode marshals a message once for fan-out to many recipients.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
