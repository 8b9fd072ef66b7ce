package rpc

import (
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/voxelworld/logger"
	"github.com/wfunc/voxelworld/player"
	"github.com/wfunc/voxelworld/world"
)

// Server manages the RPC listener for the admin query surface.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// via net/rpc before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// Admin exposes read-only world and player queries over net/rpc, for
// operational tooling. It never mutates state.
type Admin struct {
	players *player.Registry
	world   *world.World
	started time.Time
}

func NewAdmin(players *player.Registry, w *world.World) *Admin {
	return &Admin{
		players: players,
		world:   w,
		started: time.Now(),
	}
}

type ListPlayersArgs struct{}

type ListPlayersReply struct {
	Players []player.Player
}

func (a *Admin) ListPlayers(args *ListPlayersArgs, reply *ListPlayersReply) error {
	reply.Players = a.players.All()
	return nil
}

type WorldStatusArgs struct{}

type WorldStatusReply struct {
	Blocks        int
	Players       int
	UptimeSeconds float64
}

func (a *Admin) WorldStatus(args *WorldStatusArgs, reply *WorldStatusReply) error {
	reply.Blocks = a.world.Len()
	reply.Players = a.players.Len()
	reply.UptimeSeconds = time.Since(a.started).Seconds()
	return nil
}
