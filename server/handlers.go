package server

import (
	"encoding/json"
	"time"

	"github.com/wfunc/voxelworld/journal"
	"github.com/wfunc/voxelworld/logger"
	"github.com/wfunc/voxelworld/protocol"
	"github.com/wfunc/voxelworld/session"
	"github.com/wfunc/voxelworld/world"
)

// handleMessage routes one inbound envelope. Anything malformed (bad JSON,
// unknown type tag, missing required fields) is dropped without a reply and
// without closing the connection.
func (s *GameServer) handleMessage(sess *session.Session, raw []byte) {
	start := time.Now()
	s.mon.IncMessagesReceived()
	defer func() {
		s.mon.ObserveMessageLatency(time.Since(start))
	}()

	t, err := protocol.DecodeType(raw)
	if err != nil {
		return
	}

	switch t {
	case protocol.TypeUpdate:
		s.handleUpdate(raw)
	case protocol.TypePlace:
		s.handlePlace(raw)
	case protocol.TypeBreak:
		s.handleBreak(raw)
	case protocol.TypeChat:
		s.handleChat(raw)
	default:
		logger.Log.Debugf("Dropping message with unknown type %q from %s", t, sess.ID)
	}
}

func (s *GameServer) handleUpdate(raw []byte) {
	var msg protocol.UpdateMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.ID == "" {
		return
	}

	// An update racing a disconnect targets an identity that is already gone;
	// that is a silent no-op, not an error, and nothing is broadcast.
	if !s.players.Update(msg.ID, msg.X, msg.Y, msg.Z, msg.RotY) {
		return
	}

	s.broadcastMsg(protocol.PlayerUpdateMsg{
		T:    protocol.TypePlayerUpdate,
		ID:   msg.ID,
		X:    msg.X,
		Y:    msg.Y,
		Z:    msg.Z,
		RotY: msg.RotY,
	})
}

func (s *GameServer) handlePlace(raw []byte) {
	var msg protocol.PlaceMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" || !world.ValidKey(msg.Key) {
		return
	}

	// First write wins: when two placers race for one key, Place reports a
	// change for exactly one of them and only that one is broadcast.
	if !s.world.Place(msg.Key, msg.Type) {
		return
	}
	s.mon.SetWorldBlocks(s.world.Len())
	s.journalEvent(journal.Event{TS: time.Now(), Kind: "place", Key: string(msg.Key), Type: string(msg.Type)})

	s.broadcastMsg(protocol.PlaceMsg{T: protocol.TypePlace, Key: msg.Key, Type: msg.Type})
}

func (s *GameServer) handleBreak(raw []byte) {
	var msg protocol.BreakMsg
	if err := json.Unmarshal(raw, &msg); err != nil || !world.ValidKey(msg.Key) {
		return
	}

	t, ok := s.world.Break(msg.Key)
	if !ok {
		return
	}
	s.mon.SetWorldBlocks(s.world.Len())
	s.journalEvent(journal.Event{TS: time.Now(), Kind: "break", Key: string(msg.Key), Type: string(t)})

	// The removed type rides along so clients can credit the drop.
	s.broadcastMsg(protocol.BreakMsg{T: protocol.TypeBreak, Key: msg.Key, Type: t})
}

func (s *GameServer) handleChat(raw []byte) {
	var msg protocol.ChatMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.ID == "" || msg.Text == "" || msg.Name == "" {
		return
	}
	s.journalEvent(journal.Event{TS: time.Now(), Kind: "chat", ID: msg.ID, Text: msg.Text})

	s.broadcastMsg(protocol.ChatMsg{T: protocol.TypeChat, ID: msg.ID, Text: msg.Text, Name: msg.Name})
}

// broadcastMsg serializes once and fans out to every live session, sender
// included.
func (s *GameServer) broadcastMsg(v any) {
	data, err := protocol.Encode(v)
	if err != nil {
		logger.Log.Errorf("Failed to encode broadcast: %v", err)
		return
	}
	s.hub.Broadcast(data)
	s.mon.IncEventsBroadcast()
}

func (s *GameServer) journalEvent(ev journal.Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Write(ev); err != nil {
		logger.Log.Warnf("Journal write failed: %v", err)
	}
}
