package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mafiad/internal/role"
)

// Phase is the room's position in the game loop.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseNight   Phase = "night"
	PhaseDay     Phase = "day"
	PhaseVoting  Phase = "voting"
	PhaseEnded   Phase = "ended"
)

// Settings carries the per-room tunables, taken from server config.
type Settings struct {
	NightDuration     time.Duration
	DayDuration       time.Duration
	VoteDuration      time.Duration
	ResultDelay       time.Duration
	DetectiveAccuracy int // percent
}

// Player is one seat in a room. ID is a server-issued durable identity;
// the live connection is a separate, rebindable attachment so the seat
// survives disconnects while the game is active.
type Player struct {
	ID        string
	Name      string
	IsHost    bool
	IsAlive   bool
	Role      role.ID
	Connected bool
	JoinedAt  time.Time

	sink Sink
}

// AbilityState tracks per-player ability usage for the lifetime of a game.
// Mutated only by the resolver and the night/vote engines, always under
// the room lock.
type AbilityState struct {
	UsesLeft    int // -1 = unlimited
	CooldownAt  int // earliest day the ability may fire again
	LastUsedDay int

	BlockedTonight bool
	HealedTonight  bool
	CursedDay      int // the day this player's vote is silenced; 0 = none

	ShieldAvailable bool
	DisguiseTeam    role.Team // lazily fixed on first investigation
	Defected        bool

	DoubleVoteAvailable     bool
	PosthumousVoteAvailable bool
}

// DelayedEffect is a scheduled future event, fired exactly once when the
// room enters the matching phase and day.
type DelayedEffect struct {
	Phase   Phase
	Day     int // 0 = next matching phase regardless of day
	Source  string
	Target  string
	Message string
	Public  bool
}

// nightAction is one submitted night intent, in arrival order.
type nightAction struct {
	actor  string
	action role.Action
	target string
}

// killVote is one mafia-bloc ballot, in arrival order. Arrival order is
// the documented tie-break: first target to reach the winning tally dies.
type killVote struct {
	voter  string
	target string
}

// ballot is one day vote. Weight is 1, or 2 for a consumed double vote.
type ballot struct {
	voter  string
	target string
	weight int
}

// Room is the single authoritative state object for one game session.
// Every mutation happens under mu; the engines never release it between
// validate and commit.
type Room struct {
	mu sync.Mutex

	Code       string
	maxPlayers int
	settings   Settings
	log        zerolog.Logger
	rng        *rand.Rand

	hostID    string
	players   []*Player // seat order = insertion order
	started   bool
	paused    bool
	phase     Phase
	day       int
	winner    role.Team
	createdAt time.Time
	endedAt   time.Time

	// cycle increments on every phase entry. Timer callbacks capture the
	// cycle they were armed for and no-op if the room has moved on; the
	// resolved flag makes the all-acted/timeout race settle exactly once.
	cycle    int
	resolved bool

	phaseTimer    *time.Timer
	phaseCb       func(*Room)
	phaseDeadline time.Time

	delayTimer    *time.Timer
	delayCb       func(*Room)
	delayDeadline time.Time

	pausedRemaining time.Duration
	pausedDelay     bool // true if the pause interrupted a result-delay gap

	abilities    map[string]*AbilityState
	nightActions []nightAction
	killVotes    []killVote
	ballots      []ballot
	acted        map[string]bool
	voted        map[string]bool
	delayed      []DelayedEffect
}

// NewRoom builds an empty waiting room. The RNG is injectable so tests can
// pin shuffles and detective noise.
func NewRoom(code string, maxPlayers int, settings Settings, rng *rand.Rand, log zerolog.Logger) *Room {
	return &Room{
		Code:       code,
		maxPlayers: maxPlayers,
		settings:   settings,
		log:        log.With().Str("room", code).Logger(),
		rng:        rng,
		phase:      PhaseWaiting,
		createdAt:  time.Now(),
		abilities:  make(map[string]*AbilityState),
		acted:      make(map[string]bool),
		voted:      make(map[string]bool),
	}
}

// JoinResult reports how a join request landed.
type JoinResult struct {
	Player      *Player
	Reconnected bool
	Resume      *ResumeState
}

// ResumeState lets a reconnecting client pick up mid-game.
type ResumeState struct {
	Phase       Phase   `json:"phase"`
	Day         int     `json:"day"`
	RemainingMS int64   `json:"remainingMs"`
	Role        role.ID `json:"role,omitempty"`
	RoleInfo    string  `json:"roleInfo,omitempty"`
	IsAlive     bool    `json:"isAlive"`
}

// Join admits a new player, or rebinds a disconnected seat with the same
// name to the new connection.
func (r *Room) Join(name string, sink Sink) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.playerByName(name); existing != nil {
		if existing.Connected {
			return JoinResult{}, ErrNameTaken
		}
		// Reconnection: same seat, same role, fresh connection.
		existing.Connected = true
		existing.sink = sink
		r.log.Info().Str("player", existing.ID).Str("name", name).Msg("player reconnected")
		res := JoinResult{Player: existing, Reconnected: true, Resume: r.resumeStateLocked(existing)}
		r.broadcastRosterLocked()
		return res, nil
	}

	if r.started {
		return JoinResult{}, ErrGameInProgress
	}
	if len(r.players) >= r.maxPlayers {
		return JoinResult{}, ErrRoomFull
	}

	p := &Player{
		ID:        uuid.NewString(),
		Name:      name,
		IsHost:    len(r.players) == 0,
		IsAlive:   true,
		Connected: true,
		JoinedAt:  time.Now(),
		sink:      sink,
	}
	if p.IsHost {
		r.hostID = p.ID
	}
	r.players = append(r.players, p)
	r.log.Info().Str("player", p.ID).Str("name", name).Int("count", len(r.players)).Msg("player joined")
	r.broadcastRosterLocked()
	return JoinResult{Player: p}, nil
}

// Disconnect clears a player's connection link. Before the game starts (or
// after it ends) the seat is removed outright; mid-game the seat is kept so
// the same name can reconnect. Returns whether the room is now empty and
// unstarted, meaning the registry should delete it.
func (r *Room) Disconnect(playerID string) (roomEmpty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByID(playerID)
	if p == nil {
		return false
	}
	p.Connected = false
	p.sink = nil

	if !r.started || r.phase == PhaseEnded {
		r.removePlayerLocked(playerID)
		if len(r.players) == 0 {
			return true
		}
		r.broadcastRosterLocked()
		return false
	}

	r.log.Info().Str("player", p.ID).Str("name", p.Name).Msg("player disconnected mid-game, seat retained")
	// Do not let an absent player stall the night: submit the no-op for
	// them so the all-acted trigger can still fire.
	if r.phase == PhaseNight && p.IsAlive && !r.acted[p.ID] {
		r.acted[p.ID] = true
		r.nightActions = append(r.nightActions, nightAction{actor: p.ID, action: role.ActionSkip})
		r.maybeResolveNightLocked()
	}
	r.broadcastRosterLocked()
	return false
}

// removePlayerLocked drops the seat entirely and reassigns the host if
// needed. Only valid outside an active game.
func (r *Room) removePlayerLocked(playerID string) {
	for i, p := range r.players {
		if p.ID == playerID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	if playerID == r.hostID && len(r.players) > 0 {
		next := r.players[0]
		next.IsHost = true
		r.hostID = next.ID
		r.log.Info().Str("player", next.ID).Str("name", next.Name).Msg("host reassigned")
	}
}

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerByName(name string) *Player {
	for _, p := range r.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (r *Room) livingLocked() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.IsAlive {
			out = append(out, p)
		}
	}
	return out
}

// effectiveTeam is the side a player counts for in the win comparison.
// The turncoat sits with the citizens until its defection fires.
func (r *Room) effectiveTeam(p *Player) role.Team {
	spec := role.MustGet(p.Role)
	if spec.Defects {
		if as := r.abilities[p.ID]; as != nil && as.Defected {
			return role.TeamMafia
		}
		return role.TeamCitizen
	}
	if spec.Team == role.TeamNeutral {
		return role.TeamCitizen
	}
	return spec.Team
}

func (r *Room) resumeStateLocked(p *Player) *ResumeState {
	rs := &ResumeState{
		Phase:   r.phase,
		Day:     r.day,
		IsAlive: p.IsAlive,
	}
	if !r.phaseDeadline.IsZero() && !r.resolved {
		if rem := time.Until(r.phaseDeadline); rem > 0 {
			rs.RemainingMS = rem.Milliseconds()
		}
	}
	if p.Role != "" {
		rs.Role = p.Role
		rs.RoleInfo = role.MustGet(p.Role).Description
	}
	return rs
}

// ---- outbound helpers ----

func (r *Room) sendTo(p *Player, ev Event) {
	if p != nil && p.sink != nil {
		p.sink.Send(ev)
	}
}

func (r *Room) broadcastLocked(ev Event) {
	for _, p := range r.players {
		r.sendTo(p, ev)
	}
}

func (r *Room) broadcastRosterLocked() {
	r.broadcastLocked(Event{Type: EvRoster, Data: r.rosterLocked(false)})
}

func (r *Room) rosterLocked(withRoles bool) []PlayerInfo {
	out := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		info := PlayerInfo{
			ID:        p.ID,
			Name:      p.Name,
			IsHost:    p.IsHost,
			IsAlive:   p.IsAlive,
			Connected: p.Connected,
		}
		if withRoles {
			info.Role = string(p.Role)
		}
		out = append(out, info)
	}
	return out
}

func (r *Room) aliveInfoLocked() []PlayerInfo {
	out := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		if p.IsAlive {
			out = append(out, PlayerInfo{ID: p.ID, Name: p.Name, IsHost: p.IsHost, IsAlive: true, Connected: p.Connected})
		}
	}
	return out
}

func playerInfo(p *Player, withRole bool) PlayerInfo {
	info := PlayerInfo{ID: p.ID, Name: p.Name, IsHost: p.IsHost, IsAlive: p.IsAlive, Connected: p.Connected}
	if withRole {
		info.Role = string(p.Role)
	}
	return info
}

// ---- registry/sweeper support ----

// Empty reports whether no seats remain.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// Started reports whether the game left the waiting phase.
func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Expired reports whether an ended room has outlived its retention window.
func (r *Room) Expired(now time.Time, retention time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == PhaseEnded && !r.endedAt.IsZero() && now.Sub(r.endedAt) > retention
}

// Stuck reports whether a non-terminal phase has blown far past its
// deadline, which should be impossible unless a timer leaked.
func (r *Room) Stuck(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.phase == PhaseEnded || r.phase == PhaseWaiting || r.paused {
		return false
	}
	if r.phaseDeadline.IsZero() {
		return false
	}
	return now.Sub(r.phaseDeadline) > 3*r.longestPhaseLocked()
}

func (r *Room) longestPhaseLocked() time.Duration {
	d := r.settings.NightDuration
	if r.settings.DayDuration > d {
		d = r.settings.DayDuration
	}
	if r.settings.VoteDuration > d {
		d = r.settings.VoteDuration
	}
	return d
}

// Close cancels any pending timers. Called by the registry on teardown.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimersLocked()
}

func (r *Room) stopTimersLocked() {
	if r.phaseTimer != nil {
		r.phaseTimer.Stop()
		r.phaseTimer = nil
	}
	if r.delayTimer != nil {
		r.delayTimer.Stop()
		r.delayTimer = nil
	}
}

// Snapshot is the debug view served by /debug/rooms.
type Snapshot struct {
	Code      string       `json:"code"`
	Phase     Phase        `json:"phase"`
	Day       int          `json:"day"`
	Started   bool         `json:"started"`
	Paused    bool         `json:"paused"`
	Winner    string       `json:"winner,omitempty"`
	Players   []PlayerInfo `json:"players"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Code:      r.Code,
		Phase:     r.phase,
		Day:       r.day,
		Started:   r.started,
		Paused:    r.paused,
		Winner:    string(r.winner),
		Players:   r.rosterLocked(false),
		CreatedAt: r.createdAt,
	}
}

// validateAndRepairLocked resets malformed collections to empty defaults
// and clamps out-of-range counters. A structural problem here means a bug
// elsewhere; the room keeps running rather than taking the process down.
func (r *Room) validateAndRepairLocked() {
	repaired := false
	if r.abilities == nil {
		r.abilities = make(map[string]*AbilityState)
		repaired = true
	}
	if r.acted == nil {
		r.acted = make(map[string]bool)
		repaired = true
	}
	if r.voted == nil {
		r.voted = make(map[string]bool)
		repaired = true
	}
	if r.day < 0 {
		r.day = 0
		repaired = true
	}
	for _, p := range r.players {
		if p.Role != "" {
			if _, ok := role.Get(p.Role); !ok {
				p.Role = role.Citizen
				repaired = true
			}
		}
	}
	if repaired {
		r.log.Error().Msg("room state repaired; malformed collections reset")
	}
}
