package game

// Event is the outbound wire envelope. Data is JSON-encoded by the
// transport layer.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Sink delivers events to one participant. Send must not block: the
// transport buffers and drops on overflow rather than stalling the engine.
type Sink interface {
	Send(ev Event)
}

// Outbound event types.
const (
	EvRoomCreated  = "room.created"
	EvRoomJoined   = "room.joined"
	EvRoster       = "roster.update"
	EvGameStarted  = "game.started"
	EvRoleAssigned = "role.assigned"
	EvPhaseNight   = "phase.night"
	EvPhaseDay     = "phase.day"
	EvPhaseVoting  = "phase.voting"
	EvActionAck    = "action.ack"
	EvNightResult  = "night.result"
	EvVoteResult   = "vote.result"
	EvPrivate      = "private.message"
	EvGameEnded    = "game.ended"
	EvRoomPaused   = "room.paused"
	EvRoomResumed  = "room.resumed"
	EvError        = "error"
)

// PlayerInfo is the roster view of one seat.
type PlayerInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsHost    bool   `json:"isHost"`
	IsAlive   bool   `json:"isAlive"`
	Connected bool   `json:"connected"`
	Role      string `json:"role,omitempty"` // only set in end-of-game payloads
}

// PhaseInfo accompanies every phase-entry broadcast.
type PhaseInfo struct {
	Phase       string       `json:"phase"`
	Day         int          `json:"day"`
	RemainingMS int64        `json:"remainingMs"`
	Message     string       `json:"message"`
	Alive       []PlayerInfo `json:"alive"`
}

// NightReport is the public outcome of one night resolution.
type NightReport struct {
	Day      int          `json:"day"`
	Deaths   []PlayerInfo `json:"deaths"`
	Messages []string     `json:"messages"`
}

// VoteReport is the public outcome of one ballot resolution.
type VoteReport struct {
	Day        int            `json:"day"`
	Tally      map[string]int `json:"tally"` // player id -> weighted votes
	Eliminated *PlayerInfo    `json:"eliminated,omitempty"`
	Cascade    []PlayerInfo   `json:"cascade,omitempty"`
	Messages   []string       `json:"messages"`
}

// EndReport closes out a game.
type EndReport struct {
	Winner  string       `json:"winner"`
	Message string       `json:"message"`
	Roster  []PlayerInfo `json:"finalRosterWithRoles"`
}
