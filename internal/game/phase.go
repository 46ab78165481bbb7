package game

import (
	"fmt"
	"time"

	"mafiad/internal/role"
)

// Start deals roles and enters the first night. Host-only unless the
// caller is privileged (the classroom dashboard drives the same path).
func (r *Room) Start(callerID string, privileged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !privileged && callerID != r.hostID {
		return ErrNotHost
	}
	if r.started {
		return ErrGameInProgress
	}
	n := len(r.players)
	if n < role.MinPlayers || n > role.MaxPlayers {
		return ErrPlayerCount
	}

	roles, err := role.CreateRoleArray(n, r.rng)
	if err != nil {
		return err
	}
	for i, p := range r.players {
		p.Role = roles[i]
		p.IsAlive = true
		r.abilities[p.ID] = newAbilityState(role.MustGet(p.Role))
	}
	r.started = true
	r.day = 0

	r.broadcastLocked(Event{Type: EvGameStarted, Data: map[string]any{"players": len(r.players)}})
	for _, p := range r.players {
		spec := role.MustGet(p.Role)
		r.sendTo(p, Event{Type: EvRoleAssigned, Data: map[string]any{
			"role":     string(p.Role),
			"roleInfo": spec.Description,
			"team":     string(spec.Team),
		}})
	}
	r.log.Info().Int("players", n).Msg("game started")
	r.enterNightLocked()
	return nil
}

// enterNightLocked begins a night cycle. The day counter increments here
// and only here: one night, one day number.
func (r *Room) enterNightLocked() {
	r.cycle++
	r.resolved = false
	r.phase = PhaseNight
	r.day++

	r.nightActions = nil
	r.killVotes = nil
	r.acted = make(map[string]bool)
	for _, as := range r.abilities {
		as.BlockedTonight = false
		as.HealedTonight = false
	}

	r.fireDelayedLocked(PhaseNight)
	r.armPhaseTimerLocked(r.settings.NightDuration, (*Room).resolveNightLocked)
	r.broadcastLocked(Event{Type: EvPhaseNight, Data: PhaseInfo{
		Phase:       string(PhaseNight),
		Day:         r.day,
		RemainingMS: r.settings.NightDuration.Milliseconds(),
		Message:     fmt.Sprintf("Night %d falls. Those with work to do, do it quietly.", r.day),
		Alive:       r.aliveInfoLocked(),
	}})
	r.log.Info().Int("day", r.day).Msg("night begins")
}

// enterDayLocked begins the discussion window. Ballots are accepted from
// the first second; if everyone votes early the window resolves without
// ever reaching the voting stretch.
func (r *Room) enterDayLocked() {
	r.cycle++
	r.resolved = false
	r.phase = PhaseDay
	r.ballots = nil
	r.voted = make(map[string]bool)

	r.fireDelayedLocked(PhaseDay)
	r.armPhaseTimerLocked(r.settings.DayDuration, (*Room).enterVotingLocked)
	r.broadcastLocked(Event{Type: EvPhaseDay, Data: PhaseInfo{
		Phase:       string(PhaseDay),
		Day:         r.day,
		RemainingMS: r.settings.DayDuration.Milliseconds(),
		Message:     fmt.Sprintf("Day %d. Talk it over, then vote.", r.day),
		Alive:       r.aliveInfoLocked(),
	}})
	r.log.Info().Int("day", r.day).Msg("day begins")
}

// enterVotingLocked is the final stretch of the day window.
func (r *Room) enterVotingLocked() {
	r.cycle++
	r.resolved = false
	r.phase = PhaseVoting

	r.armPhaseTimerLocked(r.settings.VoteDuration, (*Room).resolveBallotsLocked)
	r.broadcastLocked(Event{Type: EvPhaseVoting, Data: PhaseInfo{
		Phase:       string(PhaseVoting),
		Day:         r.day,
		RemainingMS: r.settings.VoteDuration.Milliseconds(),
		Message:     "Last call. Cast your votes.",
		Alive:       r.aliveInfoLocked(),
	}})
	// Everyone eligible may have voted during discussion already.
	r.maybeResolveBallotsLocked()
}

// armPhaseTimerLocked replaces the phase-end timer. At most one exists per
// room; the callback is dropped if the room has moved to a later cycle or
// the phase already resolved.
func (r *Room) armPhaseTimerLocked(d time.Duration, fn func(*Room)) {
	if r.phaseTimer != nil {
		r.phaseTimer.Stop()
	}
	cycle := r.cycle
	r.phaseCb = fn
	r.phaseDeadline = time.Now().Add(d)
	r.phaseTimer = time.AfterFunc(d, func() { r.phaseTimerFired(cycle) })
}

func (r *Room) phaseTimerFired(cycle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cycle != cycle || r.resolved || r.paused || r.phase == PhaseEnded {
		return
	}
	if fn := r.phaseCb; fn != nil {
		fn(r)
	}
}

// scheduleTransitionLocked arms the short result-display delay before the
// next phase entry.
func (r *Room) scheduleTransitionLocked(d time.Duration, fn func(*Room)) {
	if r.delayTimer != nil {
		r.delayTimer.Stop()
	}
	cycle := r.cycle
	r.delayCb = fn
	r.delayDeadline = time.Now().Add(d)
	r.delayTimer = time.AfterFunc(d, func() { r.delayTimerFired(cycle) })
}

func (r *Room) delayTimerFired(cycle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cycle != cycle || r.paused || r.phase == PhaseEnded {
		return
	}
	fn := r.delayCb
	r.delayCb = nil
	if fn != nil {
		fn(r)
	}
}

// Pause freezes the room: the current timer is cancelled and its remaining
// duration saved for Resume.
func (r *Room) Pause(callerID string, privileged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !privileged && callerID != r.hostID {
		return ErrNotHost
	}
	if !r.started || r.phase == PhaseEnded {
		return ErrNotYourPhase
	}
	if r.paused {
		return nil
	}
	r.paused = true
	now := time.Now()
	if r.delayCb != nil {
		r.pausedDelay = true
		r.pausedRemaining = maxDuration(r.delayDeadline.Sub(now), 0)
	} else {
		r.pausedDelay = false
		r.pausedRemaining = maxDuration(r.phaseDeadline.Sub(now), 0)
	}
	r.stopTimersLocked()
	r.broadcastLocked(Event{Type: EvRoomPaused, Data: map[string]any{
		"phase": string(r.phase), "day": r.day,
	}})
	r.log.Info().Msg("room paused")
	return nil
}

// Resume re-arms whichever timer the pause interrupted and broadcasts the
// current state so clients can resync their countdowns.
func (r *Room) Resume(callerID string, privileged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !privileged && callerID != r.hostID {
		return ErrNotHost
	}
	if !r.paused {
		return nil
	}
	r.paused = false
	if r.pausedDelay {
		// pausedDelay is only ever set while delayCb is armed, and nothing
		// clears the callback during a pause.
		fn := r.delayCb
		if fn == nil {
			r.log.Error().Msg("paused transition lost its callback; falling back to the next night")
			fn = (*Room).enterNightLocked
		}
		r.scheduleTransitionLocked(r.pausedRemaining, fn)
	} else if r.phaseCb != nil {
		r.armPhaseTimerLocked(r.pausedRemaining, r.phaseCb)
	}
	r.broadcastLocked(Event{Type: EvRoomResumed, Data: PhaseInfo{
		Phase:       string(r.phase),
		Day:         r.day,
		RemainingMS: r.pausedRemaining.Milliseconds(),
		Message:     "The game resumes.",
		Alive:       r.aliveInfoLocked(),
	}})
	r.log.Info().Msg("room resumed")
	return nil
}

// ForcePhase pushes the room past the current window. It runs the real
// resolution path, never a shortcut, so forced rooms stay consistent.
func (r *Room) ForcePhase(callerID string, privileged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !privileged && callerID != r.hostID {
		return ErrNotHost
	}
	if !r.started || r.phase == PhaseEnded {
		return ErrNotYourPhase
	}
	if r.paused {
		return ErrPaused
	}
	// Mid result-delay: jump straight to the pending transition.
	if r.resolved {
		if fn := r.delayCb; fn != nil {
			if r.delayTimer != nil {
				r.delayTimer.Stop()
			}
			r.delayCb = nil
			fn(r)
		}
		return nil
	}
	switch r.phase {
	case PhaseNight:
		r.resolveNightLocked()
	case PhaseDay, PhaseVoting:
		r.resolveBallotsLocked()
	}
	return nil
}

// EndGame terminates the room immediately, with no winner declared unless
// the board already decides one.
func (r *Room) EndGame(callerID string, privileged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !privileged && callerID != r.hostID {
		return ErrNotHost
	}
	if r.phase == PhaseEnded {
		return nil
	}
	winner, _ := r.winnerLocked()
	r.endGameLocked(winner, "The game was ended by the moderator.")
	return nil
}

// EliminatePlayer is the moderator's direct removal. It flows through the
// same elimination code as a vote so death-triggered abilities still fire.
func (r *Room) EliminatePlayer(callerID string, privileged bool, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !privileged && callerID != r.hostID {
		return ErrNotHost
	}
	if !r.started || r.phase == PhaseEnded {
		return ErrNotYourPhase
	}
	target := r.playerByID(targetID)
	if target == nil {
		return ErrUnknownTarget
	}
	if !target.IsAlive {
		return ErrDeadTarget
	}
	report := VoteReport{Day: r.day, Tally: map[string]int{}}
	report.Messages = append(report.Messages, fmt.Sprintf("%s was removed by the moderator.", target.Name))
	r.eliminateLocked(target, nil, &report)
	r.broadcastLocked(Event{Type: EvVoteResult, Data: report})
	if winner, over := r.winnerLocked(); over {
		r.endGameLocked(winner, "")
	}
	return nil
}

// RevealRoles broadcasts the full roster with roles. Privileged only; the
// classroom dashboard uses it for debriefs.
func (r *Room) RevealRoles(callerID string, privileged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !privileged && callerID != r.hostID {
		return ErrNotHost
	}
	r.broadcastLocked(Event{Type: EvRoster, Data: r.rosterLocked(true)})
	return nil
}

func (r *Room) endGameLocked(winner role.Team, msg string) {
	if r.phase == PhaseEnded {
		return
	}
	r.stopTimersLocked()
	r.phase = PhaseEnded
	r.winner = winner
	r.endedAt = time.Now()
	if msg == "" {
		switch winner {
		case role.TeamMafia:
			msg = "The mafia have taken the town."
		case role.TeamCitizen:
			msg = "The town is safe. Every last mafioso has been rooted out."
		default:
			msg = "The game is over."
		}
	}
	r.broadcastLocked(Event{Type: EvGameEnded, Data: EndReport{
		Winner:  string(winner),
		Message: msg,
		Roster:  r.rosterLocked(true),
	}})
	r.log.Info().Str("winner", string(winner)).Msg("game ended")
}

// ---- accessors ----

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) Day() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.day
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// ForceResolveStuck is the sweeper's defensive escape hatch for rooms
// whose phase deadline is long gone. Runs the normal resolution path.
func (r *Room) ForceResolveStuck() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Error().Str("phase", string(r.phase)).Msg("room stuck past deadline; forcing resolution")
	r.validateAndRepairLocked()
	if r.resolved {
		if fn := r.delayCb; fn != nil {
			r.delayCb = nil
			fn(r)
		}
		return
	}
	switch r.phase {
	case PhaseNight:
		r.resolveNightLocked()
	case PhaseDay, PhaseVoting:
		r.resolveBallotsLocked()
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
