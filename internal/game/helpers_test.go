package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mafiad/internal/role"
)

// fakeSink records every event delivered to one player.
type fakeSink struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeSink) Send(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeSink) count(evType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.Type == evType {
			n++
		}
	}
	return n
}

func (f *fakeSink) last(evType string) (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Type == evType {
			return f.events[i], true
		}
	}
	return Event{}, false
}

func (f *fakeSink) privateMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, ev := range f.events {
		if ev.Type != EvPrivate {
			continue
		}
		if m, ok := ev.Data.(map[string]any); ok {
			if s, ok := m["message"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func hasPrivate(s *fakeSink, substr string) bool {
	for _, m := range s.privateMessages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// testSettings uses hour-long phases so real timers never fire mid-test;
// tests drive resolution through the same entry points the timers use.
func testSettings() Settings {
	return Settings{
		NightDuration:     time.Hour,
		DayDuration:       time.Hour,
		VoteDuration:      time.Hour,
		ResultDelay:       time.Hour,
		DetectiveAccuracy: 80,
	}
}

// newTestRoom seats n players named p1..pn. p1 is the host.
func newTestRoom(t *testing.T, n int, settings Settings, seed int64) (*Room, map[string]*fakeSink) {
	t.Helper()
	room := NewRoom("TEST", role.MaxPlayers, settings, rand.New(rand.NewSource(seed)), zerolog.Nop())
	t.Cleanup(room.Close)
	sinks := make(map[string]*fakeSink, n)
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("p%d", i)
		sink := &fakeSink{}
		if _, err := room.Join(name, sink); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		sinks[name] = sink
	}
	return room, sinks
}

// rig overrides role assignment by player name and reseeds ability state,
// so scenarios are deterministic regardless of the shuffle. Players not
// named in the map become plain citizens.
func rig(r *Room, byName map[string]role.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		id, ok := byName[p.Name]
		if !ok {
			id = role.Citizen
		}
		p.Role = id
		r.abilities[p.ID] = newAbilityState(role.MustGet(id))
	}
}

func named(r *Room, name string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerByName(name)
}

func hostID(r *Room) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// startRigged starts the game and immediately re-deals the given roles.
func startRigged(t *testing.T, r *Room, byName map[string]role.ID) {
	t.Helper()
	if err := r.Start(hostID(r), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	rig(r, byName)
}

// advance runs the pending result-delay transition as if its timer fired.
func advance(r *Room) {
	r.mu.Lock()
	fn := r.delayCb
	r.delayCb = nil
	if r.delayTimer != nil {
		r.delayTimer.Stop()
	}
	r.mu.Unlock()
	if fn != nil {
		r.mu.Lock()
		fn(r)
		r.mu.Unlock()
	}
}

// fireTimer simulates the phase timer expiring for the current cycle.
func fireTimer(r *Room) {
	r.mu.Lock()
	cycle := r.cycle
	r.mu.Unlock()
	r.phaseTimerFired(cycle)
}

// toDay runs the pending night-to-day transition and asserts it landed.
func toDay(t *testing.T, r *Room) {
	t.Helper()
	advance(r)
	if got := r.Phase(); got != PhaseDay {
		t.Fatalf("expected day, got %s", got)
	}
}

// toNextNight closes the open day window with no further ballots and runs
// the transition into the next night.
func toNextNight(t *testing.T, r *Room) {
	t.Helper()
	if err := r.ForcePhase("", true); err != nil {
		t.Fatalf("force phase: %v", err)
	}
	advance(r)
	if got := r.Phase(); got != PhaseNight {
		t.Fatalf("expected night, got %s", got)
	}
}

// setDead flips seats to dead directly, for shaping mid-game boards.
func setDead(r *Room, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if p := r.playerByName(n); p != nil {
			p.IsAlive = false
		}
	}
}

// act submits a night action addressed by player names.
func act(t *testing.T, r *Room, actor string, action role.Action, target string) {
	t.Helper()
	if err := tryAct(r, actor, action, target); err != nil {
		t.Fatalf("%s %s %s: %v", actor, action, target, err)
	}
}

func tryAct(r *Room, actor string, action role.Action, target string) error {
	var tid string
	if target != "" {
		tid = named(r, target).ID
	}
	return r.SubmitNightAction(named(r, actor).ID, action, tid)
}

// vote casts a day ballot addressed by player names.
func vote(t *testing.T, r *Room, voter, target string) {
	t.Helper()
	if err := tryVote(r, voter, target); err != nil {
		t.Fatalf("%s votes %s: %v", voter, target, err)
	}
}

func tryVote(r *Room, voter, target string) error {
	return r.CastVote(named(r, voter).ID, named(r, target).ID)
}

// skipAll submits the no-op for every living player that has not acted.
func skipAll(t *testing.T, r *Room) {
	t.Helper()
	r.mu.Lock()
	pending := make([]string, 0)
	for _, p := range r.players {
		if p.IsAlive && !r.acted[p.ID] {
			pending = append(pending, p.ID)
		}
	}
	r.mu.Unlock()
	for _, id := range pending {
		if err := r.SubmitNightAction(id, role.ActionSkip, ""); err != nil {
			t.Fatalf("skip for %s: %v", id, err)
		}
	}
}
