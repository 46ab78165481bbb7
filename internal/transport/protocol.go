package transport

import "encoding/json"

// inbound is the client -> server envelope, mirrored by game.Event on the
// way back out.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound message types.
const (
	msgRoomCreate  = "room.create"
	msgRoomJoin    = "room.join"
	msgGameStart   = "game.start"
	msgVoteCast    = "vote.cast"
	msgNightAction = "night.action"
	msgRoomControl = "room.control"
)

type createReq struct {
	PlayerName string `json:"playerName"`
	MaxPlayers int    `json:"maxPlayers"`
}

type joinReq struct {
	PlayerName string `json:"playerName"`
	RoomCode   string `json:"roomCode"`
}

type startReq struct {
	RoomCode string `json:"roomCode"`
}

type voteReq struct {
	RoomCode       string `json:"roomCode"`
	TargetPlayerID string `json:"targetPlayerId"`
}

type nightReq struct {
	RoomCode       string `json:"roomCode"`
	ActionType     string `json:"actionType"`
	TargetPlayerID string `json:"targetPlayerId"`
}

// controlReq carries the privileged room-control operations. They drive
// the same engines as regular play, just with elevated authorization.
type controlReq struct {
	RoomCode       string `json:"roomCode"`
	Action         string `json:"action"` // start|pause|resume|forcePhase|endGame|eliminatePlayer|revealRoles
	TargetPlayerID string `json:"targetPlayerId,omitempty"`
}
