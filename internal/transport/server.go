package transport

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mafiad/internal/config"
	"mafiad/internal/game"
	"mafiad/internal/registry"
	"mafiad/internal/role"
)

// Server wires the websocket boundary to the room registry.
type Server struct {
	cfg     config.Config
	reg     *registry.Registry
	log     zerolog.Logger
	limiter *ipLimiter

	upgrader websocket.Upgrader

	Version   string
	BuildTime string
}

func NewServer(cfg config.Config, reg *registry.Registry, log zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		reg:     reg,
		log:     log,
		limiter: newIPLimiter(cfg.MaxConnsPerIP, cfg.ConnWindow(), cfg.ConnWindowLimit),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/debug/rooms", s.handleDebugRooms).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{code}/qr", s.handleRoomQR).Methods(http.MethodGet)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if err := s.limiter.allow(ip, time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	privileged := s.cfg.AdminKey != "" && r.URL.Query().Get("adminKey") == s.cfg.AdminKey

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.limiter.release(ip)
		s.log.Debug().Err(err).Msg("upgrade failed")
		return
	}
	c := newClient(s, conn, ip, privileged, s.log.With().Str("ip", ip).Logger())
	go c.writePump()
	go s.readPump(c)
}

// readPump is the sole dispatcher for one connection. Every handler call
// into the engine is synchronous and atomic with respect to its room, so
// a client's messages are applied in the order they arrive.
func (s *Server) readPump(c *client) {
	defer c.close()
	for {
		var in inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			c.log.Debug().Err(err).Msg("connection closed")
			return
		}
		s.dispatch(c, in)
	}
}

func (s *Server) dispatch(c *client, in inbound) {
	switch in.Type {
	case msgRoomCreate:
		var req createReq
		if err := json.Unmarshal(in.Data, &req); err != nil {
			c.sendError(err)
			return
		}
		if c.roomCode != "" {
			c.Send(game.Event{Type: game.EvError, Data: map[string]any{"message": "already in a room"}})
			return
		}
		room, res, err := s.reg.CreateRoom(req.PlayerName, req.MaxPlayers, c)
		if err != nil {
			c.sendError(err)
			return
		}
		c.roomCode = room.Code
		c.playerID = res.Player.ID
		c.Send(game.Event{Type: game.EvRoomCreated, Data: map[string]any{
			"roomCode": room.Code,
			"playerId": res.Player.ID,
		}})

	case msgRoomJoin:
		var req joinReq
		if err := json.Unmarshal(in.Data, &req); err != nil {
			c.sendError(err)
			return
		}
		if c.roomCode != "" {
			c.Send(game.Event{Type: game.EvError, Data: map[string]any{"message": "already in a room"}})
			return
		}
		room, res, err := s.reg.Join(req.RoomCode, req.PlayerName, c)
		if err != nil {
			c.sendError(err)
			return
		}
		c.roomCode = room.Code
		c.playerID = res.Player.ID
		payload := map[string]any{
			"roomCode": room.Code,
			"playerId": res.Player.ID,
		}
		if res.Reconnected {
			payload["reconnectedGameState"] = res.Resume
		}
		c.Send(game.Event{Type: game.EvRoomJoined, Data: payload})

	case msgGameStart:
		room, ok := s.clientRoom(c, in.Data)
		if !ok {
			return
		}
		if err := room.Start(c.playerID, c.privileged); err != nil {
			c.sendError(err)
		}

	case msgVoteCast:
		var req voteReq
		if err := json.Unmarshal(in.Data, &req); err != nil {
			c.sendError(err)
			return
		}
		room, ok := s.boundRoom(c)
		if !ok {
			return
		}
		if err := room.CastVote(c.playerID, req.TargetPlayerID); err != nil {
			c.sendError(err)
		}

	case msgNightAction:
		var req nightReq
		if err := json.Unmarshal(in.Data, &req); err != nil {
			c.sendError(err)
			return
		}
		room, ok := s.boundRoom(c)
		if !ok {
			return
		}
		if err := room.SubmitNightAction(c.playerID, role.Action(req.ActionType), req.TargetPlayerID); err != nil {
			c.sendError(err)
		}

	case msgRoomControl:
		var req controlReq
		if err := json.Unmarshal(in.Data, &req); err != nil {
			c.sendError(err)
			return
		}
		s.control(c, req)

	default:
		c.Send(game.Event{Type: game.EvError, Data: map[string]any{"message": "unknown message type"}})
	}
}

// control routes the privileged operations through the same engines as
// normal play. Authorization is host-or-admin, enforced by the engine.
func (s *Server) control(c *client, req controlReq) {
	var room *game.Room
	if req.RoomCode != "" {
		r, ok := s.reg.Get(req.RoomCode)
		if !ok {
			c.sendError(registry.ErrRoomNotFound)
			return
		}
		room = r
	} else {
		r, ok := s.boundRoom(c)
		if !ok {
			return
		}
		room = r
	}

	var err error
	switch req.Action {
	case "start":
		err = room.Start(c.playerID, c.privileged)
	case "pause":
		err = room.Pause(c.playerID, c.privileged)
	case "resume":
		err = room.Resume(c.playerID, c.privileged)
	case "forcePhase":
		err = room.ForcePhase(c.playerID, c.privileged)
	case "endGame":
		err = room.EndGame(c.playerID, c.privileged)
	case "eliminatePlayer":
		err = room.EliminatePlayer(c.playerID, c.privileged, req.TargetPlayerID)
	case "revealRoles":
		err = room.RevealRoles(c.playerID, c.privileged)
	default:
		c.Send(game.Event{Type: game.EvError, Data: map[string]any{"message": "unknown control action"}})
		return
	}
	if err != nil {
		c.sendError(err)
	}
}

func (s *Server) boundRoom(c *client) (*game.Room, bool) {
	if c.roomCode == "" {
		c.Send(game.Event{Type: game.EvError, Data: map[string]any{"message": "join a room first"}})
		return nil, false
	}
	room, ok := s.reg.Get(c.roomCode)
	if !ok {
		c.sendError(registry.ErrRoomNotFound)
		return nil, false
	}
	return room, true
}

// clientRoom resolves the room from an explicit payload code, falling back
// to the client's bound room.
func (s *Server) clientRoom(c *client, data json.RawMessage) (*game.Room, bool) {
	var req startReq
	_ = json.Unmarshal(data, &req)
	if req.RoomCode != "" {
		room, ok := s.reg.Get(req.RoomCode)
		if !ok {
			c.sendError(registry.ErrRoomNotFound)
			return nil, false
		}
		return room, true
	}
	return s.boundRoom(c)
}
