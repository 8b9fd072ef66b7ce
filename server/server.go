package server

import (
	"net/http"
	"net/rpc"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/voxelworld/broadcast"
	"github.com/wfunc/voxelworld/config"
	"github.com/wfunc/voxelworld/journal"
	"github.com/wfunc/voxelworld/logger"
	"github.com/wfunc/voxelworld/monitor"
	"github.com/wfunc/voxelworld/network"
	"github.com/wfunc/voxelworld/player"
	"github.com/wfunc/voxelworld/protocol"
	worldrpc "github.com/wfunc/voxelworld/rpc"
	"github.com/wfunc/voxelworld/session"
	"github.com/wfunc/voxelworld/world"
)

// GameServer owns the connection lifecycle: it accepts websocket clients,
// assigns identities, sends the initial world snapshot, routes their messages
// into the world store and player registry, and fans the resulting events out
// to everyone.
type GameServer struct {
	addr           string
	staticDir      string
	queueSize      int
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	players        *player.Registry
	world          *world.World
	hub            *broadcast.Hub
	mon            *monitor.Monitor
	rpcServer      *worldrpc.Server
	journal        *journal.Writer // nil when the event journal is disabled
	httpServer     *http.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

func NewGameServer(cfg config.ServerConfig, w *world.World, mon *monitor.Monitor, jw *journal.Writer) *GameServer {
	s := &GameServer{
		addr:           cfg.HTTPAddress,
		staticDir:      cfg.StaticDir,
		queueSize:      cfg.SendQueue,
		sessionManager: session.NewManager(),
		players:        player.NewRegistry(nil),
		world:          w,
		mon:            mon,
		journal:        jw,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the protocol carries no credentials to protect
			},
		},
	}

	s.hub = broadcast.NewHub(s.sessionManager)
	s.hub.OnOverflow = func(sessionID string) {
		mon.IncQueueOverflows()
	}

	rpcServer, err := worldrpc.NewServer(cfg.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	admin := worldrpc.NewAdmin(s.players, s.world)
	rpc.Register(admin)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	logger.Log.Infof("Game server listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the listeners and closes every live session; each one runs
// its normal disconnect path. Safe to call more than once.
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.rpcServer.Stop()
		if s.httpServer != nil {
			s.httpServer.Close()
		}
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConn(conn, s.queueSize)
	id := s.players.NewID()
	sess := session.NewSession(id, wsConn)

	logger.Log.Infof("New connection from %s, player ID: %s", wsConn.RemoteAddr(), id)

	defer s.closeSession(sess)

	me, ok := s.activate(sess)
	if !ok {
		return
	}

	joinData, err := protocol.Encode(protocol.PlayerJoinMsg{T: protocol.TypePlayerJoin, Player: me})
	if err == nil {
		s.hub.BroadcastExcept(sess.ID, joinData)
		s.mon.IncEventsBroadcast()
	}
	s.journalEvent(journal.Event{TS: time.Now(), Kind: "join", ID: id})

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			msg, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			s.handleMessage(sess, msg)
		}
	}
}

// activate runs the CONNECTING -> ACTIVE transition: create the player, take
// the snapshots, register the session and enqueue its init message. All of it
// happens under the hub's fan-out lock, so no broadcast can slip between the
// snapshot and the registration: every event either shows up in the snapshot
// or lands in the queue behind the init message.
func (s *GameServer) activate(sess *session.Session) (player.Player, bool) {
	var (
		me   player.Player
		sent bool
	)
	s.hub.Sync(func() {
		me = s.players.Create(sess.ID)
		data, err := protocol.Encode(protocol.InitMsg{
			T:       protocol.TypeInit,
			ID:      sess.ID,
			Me:      me,
			Players: s.players.All(),
			Blocks:  s.world.Snapshot(),
		})
		if err != nil {
			logger.Log.Errorf("Failed to encode init for %s: %v", sess.ID, err)
			return
		}
		if err := sess.Send(data); err != nil {
			return
		}
		s.sessionManager.Add(sess)
		sess.Activate()
		sent = true
	})
	if !sent {
		return player.Player{}, false
	}
	s.mon.IncOnlinePlayers()
	return me, true
}

// closeSession drives the ACTIVE -> CLOSED transition exactly once, however
// many times the disconnect fires (read error, peer close, shutdown).
func (s *GameServer) closeSession(sess *session.Session) {
	if !sess.CloseOnce() {
		return
	}

	logger.Log.Infof("Connection closed from %s, player ID: %s", sess.Conn.RemoteAddr(), sess.ID)

	_, registered := s.sessionManager.Get(sess.ID)
	s.sessionManager.Remove(sess.ID)
	s.players.Remove(sess.ID)
	sess.Close()

	if !registered {
		// Never went ACTIVE; nobody was told about this player.
		return
	}
	s.mon.DecOnlinePlayers()
	s.journalEvent(journal.Event{TS: time.Now(), Kind: "leave", ID: sess.ID})
	s.broadcastMsg(protocol.PlayerLeaveMsg{T: protocol.TypePlayerLeave, ID: sess.ID})
}
