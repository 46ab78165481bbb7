package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mafiad/internal/game"
	"mafiad/internal/role"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrBadCapacity  = errors.New("room capacity must be between 6 and 20")
)

// Registry owns the room-code -> room map. It is the only cross-room
// shared structure; mutation is limited to insert-on-create and
// delete-on-cleanup under its own lock. Per-room state is guarded by each
// room's own lock.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*game.Room

	settings  game.Settings
	retention time.Duration
	log       zerolog.Logger
}

func New(settings game.Settings, retention time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		rooms:     make(map[string]*game.Room),
		settings:  settings,
		retention: retention,
		log:       log,
	}
}

// CreateRoom allocates a collision-free code, creates the room, and seats
// the host.
func (reg *Registry) CreateRoom(hostName string, maxPlayers int, sink game.Sink) (*game.Room, game.JoinResult, error) {
	name, err := sanitizeName(hostName)
	if err != nil {
		return nil, game.JoinResult{}, err
	}
	if maxPlayers < role.MinPlayers || maxPlayers > role.MaxPlayers {
		return nil, game.JoinResult{}, ErrBadCapacity
	}

	reg.mu.Lock()
	code, err := generateCode(func(c string) bool { _, taken := reg.rooms[c]; return taken })
	if err != nil {
		reg.mu.Unlock()
		return nil, game.JoinResult{}, err
	}
	room := game.NewRoom(code, maxPlayers, reg.settings, game.NewRNG(), reg.log)
	reg.rooms[code] = room
	reg.mu.Unlock()

	res, err := room.Join(name, sink)
	if err != nil {
		// Joining an empty room we just made cannot fail; treat it as
		// fatal for this room.
		reg.deleteRoom(code)
		return nil, game.JoinResult{}, err
	}
	reg.log.Info().Str("room", code).Str("host", name).Int("capacity", maxPlayers).Msg("room created")
	return room, res, nil
}

// Join seats a player in an existing room, or rebinds a disconnected seat
// with the same name (reconnection).
func (reg *Registry) Join(code, playerName string, sink game.Sink) (*game.Room, game.JoinResult, error) {
	name, err := sanitizeName(playerName)
	if err != nil {
		return nil, game.JoinResult{}, err
	}
	room, ok := reg.Get(code)
	if !ok {
		return nil, game.JoinResult{}, ErrRoomNotFound
	}
	res, err := room.Join(name, sink)
	if err != nil {
		return nil, game.JoinResult{}, err
	}
	return room, res, nil
}

// Get looks up a room by code, case-insensitively.
func (reg *Registry) Get(code string) (*game.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[strings.ToUpper(strings.TrimSpace(code))]
	return room, ok
}

// HandleDisconnect clears the player's connection link, removing the seat
// (and possibly the room) if no game is running.
func (reg *Registry) HandleDisconnect(code, playerID string) {
	room, ok := reg.Get(code)
	if !ok {
		return
	}
	if empty := room.Disconnect(playerID); empty {
		reg.deleteRoom(room.Code)
	}
}

func (reg *Registry) deleteRoom(code string) {
	reg.mu.Lock()
	room, ok := reg.rooms[code]
	delete(reg.rooms, code)
	reg.mu.Unlock()
	if ok {
		room.Close()
		reg.log.Info().Str("room", code).Msg("room deleted")
	}
}

// Sweep removes empty and expired rooms and force-advances rooms stuck far
// past a phase deadline. Defensive: a stuck room means a timer leaked.
func (reg *Registry) Sweep(now time.Time) {
	reg.mu.Lock()
	candidates := make([]*game.Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		candidates = append(candidates, room)
	}
	reg.mu.Unlock()

	for _, room := range candidates {
		switch {
		case room.Empty():
			reg.deleteRoom(room.Code)
		case room.Expired(now, reg.retention):
			reg.deleteRoom(room.Code)
		case room.Stuck(now):
			room.ForceResolveStuck()
		}
	}
}

// StartSweeper runs Sweep on a ticker until ctx is cancelled.
func (reg *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				reg.Sweep(now)
			}
		}
	}()
}

// Snapshots returns debug views of every live room.
func (reg *Registry) Snapshots() []game.Snapshot {
	reg.mu.Lock()
	rooms := make([]*game.Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	out := make([]game.Snapshot, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Snapshot())
	}
	return out
}

// Close tears down every room. Called on shutdown.
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := reg.rooms
	reg.rooms = make(map[string]*game.Room)
	reg.mu.Unlock()
	for _, room := range rooms {
		room.Close()
	}
}
