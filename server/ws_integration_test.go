package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/voxelworld/config"
	"github.com/wfunc/voxelworld/logger"
	"github.com/wfunc/voxelworld/monitor"
	"github.com/wfunc/voxelworld/world"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

var testCounter int64

// newTestServer wires a GameServer the way main does, minus terrain, and
// exposes its websocket handler through httptest.
func newTestServer(t *testing.T, w *world.World) (*GameServer, string) {
	t.Helper()

	n := atomic.AddInt64(&testCounter, 1)
	mon := monitor.NewMonitor(fmt.Sprintf("voxelworld_test%d", n))
	cfg := config.ServerConfig{
		RPCAddress: "127.0.0.1:0",
		SendQueue:  64,
	}
	s := NewGameServer(cfg, w, mon, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		s.Shutdown()
		ts.Close()
	})

	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

type wireMsg map[string]any

func (m wireMsg) str(key string) string {
	v, _ := m[key].(string)
	return v
}

func (m wireMsg) num(key string) float64 {
	v, _ := m[key].(float64)
	return v
}

func dial(t *testing.T, wsURL string) (*websocket.Conn, wireMsg) {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	init := readType(t, conn, "init")
	if init.str("id") == "" {
		t.Fatal("init message missing id")
	}
	return conn, init
}

// readType reads until a message with the wanted type tag arrives, skipping
// unrelated traffic (joins from parallel connections and so on).
func readType(t *testing.T, conn *websocket.Conn, want string) wireMsg {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", want, err)
		}
		var msg wireMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("bad frame %q: %v", raw, err)
		}
		if msg.str("t") == want {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestInit_ContainsWorldAndSelf(t *testing.T) {
	w := world.NewWorld()
	w.Place(world.At(0, 0, 0), world.Dirt)
	w.Place(world.At(-1, 1, 2), world.Stone)
	_, wsURL := newTestServer(t, w)

	_, init := dial(t, wsURL)

	me, ok := init["me"].(map[string]any)
	if !ok {
		t.Fatal("init me is not an object")
	}
	if me["id"] != init["id"] {
		t.Errorf("init id %v does not match me.id %v", init["id"], me["id"])
	}

	players, _ := init["players"].([]any)
	if len(players) != 1 {
		t.Errorf("expected only self in players, got %d entries", len(players))
	}

	blocks, _ := init["blocks"].([]any)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks in init, got %d", len(blocks))
	}
	got := make(map[string]string)
	for _, b := range blocks {
		entry := b.(map[string]any)
		got[entry["key"].(string)] = entry["type"].(string)
	}
	if got["0,0,0"] != "dirt" || got["-1,1,2"] != "stone" {
		t.Errorf("init blocks mismatch: %v", got)
	}
}

func TestPlaceBreak_Scenario(t *testing.T) {
	_, wsURL := newTestServer(t, world.NewWorld())

	connA, initA := dial(t, wsURL)
	connB, _ := dial(t, wsURL)

	send(t, connA, map[string]any{"t": "place", "key": "0,0,0", "type": "stone"})

	placed := readType(t, connB, "place")
	if placed.str("key") != "0,0,0" || placed.str("type") != "stone" {
		t.Fatalf("B saw wrong place event: %v", placed)
	}
	// The sender gets the echo too.
	if echo := readType(t, connA, "place"); echo.str("key") != "0,0,0" {
		t.Fatalf("A missing its own place echo: %v", echo)
	}

	send(t, connA, map[string]any{"t": "break", "key": "0,0,0"})

	broken := readType(t, connB, "break")
	if broken.str("key") != "0,0,0" || broken.str("type") != "stone" {
		t.Fatalf("break event should carry the removed type: %v", broken)
	}

	// A second break of the same key is a no-op; fence with a chat message
	// and make sure nothing arrives in between.
	send(t, connA, map[string]any{"t": "break", "key": "0,0,0"})
	send(t, connA, map[string]any{"t": "chat", "id": initA.str("id"), "text": "fence", "name": "A"})

	next := readType(t, connB, "chat")
	if next.str("text") != "fence" {
		t.Fatalf("expected the fence chat, got %v", next)
	}
}

func TestUpdate_EchoAndRegistry(t *testing.T) {
	srv, wsURL := newTestServer(t, world.NewWorld())

	connA, initA := dial(t, wsURL)
	connB, _ := dial(t, wsURL)
	id := initA.str("id")

	send(t, connA, map[string]any{"t": "update", "id": id, "x": 5, "y": 2, "z": 1, "rotY": 0.3})

	for name, conn := range map[string]*websocket.Conn{"B": connB, "A(echo)": connA} {
		upd := readType(t, conn, "player_update")
		if upd.str("id") != id || upd.num("x") != 5 || upd.num("y") != 2 || upd.num("z") != 1 || upd.num("rotY") != 0.3 {
			t.Fatalf("%s saw wrong update: %v", name, upd)
		}
	}

	// The broadcast happens after the registry write, so by now All must
	// reflect the new position.
	for _, p := range srv.players.All() {
		if p.ID == id && (p.X != 5 || p.Y != 2 || p.Z != 1 || p.RotY != 0.3) {
			t.Fatalf("registry not updated: %+v", p)
		}
	}
}

func TestJoinLeave_ExactlyOnce(t *testing.T) {
	srv, wsURL := newTestServer(t, world.NewWorld())

	connA, initA := dial(t, wsURL)
	connB, initB := dial(t, wsURL)
	idB := initB.str("id")

	join := readType(t, connA, "player_join")
	player, _ := join["player"].(map[string]any)
	if player["id"] != idB {
		t.Fatalf("A saw join for %v, expected %v", player["id"], idB)
	}

	// B's init already lists A; B must not see its own join.
	players, _ := initB["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("B's init should list both players, got %d", len(players))
	}

	connB.Close()

	leave := readType(t, connA, "player_leave")
	if leave.str("id") != idB {
		t.Fatalf("leave for wrong id: %v", leave)
	}

	// Exactly one leave: fence and verify nothing else arrives in between.
	send(t, connA, map[string]any{"t": "chat", "id": initA.str("id"), "text": "fence", "name": "A"})
	next := readType(t, connA, "chat")
	if next.str("text") != "fence" {
		t.Fatalf("expected the fence chat after one leave, got %v", next)
	}

	if _, ok := srv.players.Get(idB); ok {
		t.Error("registry still holds the disconnected player")
	}
}

func TestDoubleClose_SingleLeave(t *testing.T) {
	srv, wsURL := newTestServer(t, world.NewWorld())

	connA, initA := dial(t, wsURL)
	_, initB := dial(t, wsURL)
	idB := initB.str("id")
	readType(t, connA, "player_join")

	sess, ok := srv.sessionManager.Get(idB)
	if !ok {
		t.Fatal("session for B not registered")
	}

	// Read error and shutdown can both try to tear down the same session.
	srv.closeSession(sess)
	srv.closeSession(sess)

	leave := readType(t, connA, "player_leave")
	if leave.str("id") != idB {
		t.Fatalf("leave for wrong id: %v", leave)
	}
	send(t, connA, map[string]any{"t": "chat", "id": initA.str("id"), "text": "fence", "name": "A"})
	if next := readType(t, connA, "chat"); next.str("text") != "fence" {
		t.Fatalf("expected exactly one leave before the fence, got %v", next)
	}
}

func TestMalformedMessages_DroppedSilently(t *testing.T) {
	_, wsURL := newTestServer(t, world.NewWorld())

	connA, initA := dial(t, wsURL)
	connB, _ := dial(t, wsURL)

	// None of these may produce a broadcast or kill the connection.
	connA.WriteMessage(websocket.TextMessage, []byte(`{broken json`))
	send(t, connA, map[string]any{"t": "teleport", "x": 1})
	send(t, connA, map[string]any{"t": "place", "key": "not-a-key", "type": "stone"})
	send(t, connA, map[string]any{"t": "place", "key": "1,2,3"}) // missing type
	send(t, connA, map[string]any{"t": "update", "x": 5})        // missing id
	send(t, connA, map[string]any{"t": "chat", "id": initA.str("id"), "name": "A"}) // missing text

	send(t, connA, map[string]any{"t": "chat", "id": initA.str("id"), "text": "still here", "name": "A"})

	msg := readType(t, connB, "chat")
	if msg.str("text") != "still here" {
		t.Fatalf("expected only the valid chat to arrive, got %v", msg)
	}
}

func TestConcurrentPlace_OneBroadcastWinner(t *testing.T) {
	srv, wsURL := newTestServer(t, world.NewWorld())

	connA, _ := dial(t, wsURL)
	connB, _ := dial(t, wsURL)
	connObs, _ := dial(t, wsURL)

	stone := []byte(`{"t":"place","key":"7,7,7","type":"stone"}`)
	dirt := []byte(`{"t":"place","key":"7,7,7","type":"dirt"}`)
	go connA.WriteMessage(websocket.TextMessage, stone)
	go connB.WriteMessage(websocket.TextMessage, dirt)

	// Collect every place event for the key within the window; exactly one
	// racer may win.
	var events []wireMsg
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		connObs.SetReadDeadline(deadline)
		_, raw, err := connObs.ReadMessage()
		if err != nil {
			break
		}
		var msg wireMsg
		if json.Unmarshal(raw, &msg) == nil && msg.str("t") == "place" && msg.str("key") == "7,7,7" {
			events = append(events, msg)
		}
	}

	if len(events) != 1 {
		t.Fatalf("expected exactly one place broadcast, got %d: %v", len(events), events)
	}
	stored, ok := srv.world.Get(world.Key("7,7,7"))
	if !ok || string(stored) != events[0].str("type") {
		t.Errorf("store holds %q, broadcast said %q", stored, events[0].str("type"))
	}
}
