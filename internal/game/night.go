package game

import (
	"fmt"

	"mafiad/internal/role"
)

// SubmitNightAction records one player's intent for the current night.
// Validation and recording happen atomically under the room lock; if this
// was the last living player to act, resolution runs immediately and the
// phase timer loses the race.
func (r *Room) SubmitNightAction(playerID string, action role.Action, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrGameNotStarted
	}
	if r.paused {
		return ErrPaused
	}
	if r.phase != PhaseNight || r.resolved {
		return ErrNotYourPhase
	}
	actor := r.playerByID(playerID)
	if actor == nil {
		return ErrUnknownPlayer
	}
	if !actor.IsAlive {
		return ErrDeadActor
	}
	if r.acted[actor.ID] {
		return ErrAlreadyActed
	}

	if action != role.ActionSkip {
		target := r.playerByID(targetID)
		if err := r.validateNightActionLocked(actor, action, target); err != nil {
			return err
		}
		spec := role.MustGet(actor.Role)
		if action == role.ActionKill && spec.Team == role.TeamMafia {
			// The mafia act as a bloc: individual ballots, one victim.
			r.killVotes = append(r.killVotes, killVote{voter: actor.ID, target: targetID})
		} else {
			r.nightActions = append(r.nightActions, nightAction{actor: actor.ID, action: action, target: targetID})
		}
	}

	r.acted[actor.ID] = true
	r.sendTo(actor, Event{Type: EvActionAck, Data: map[string]any{
		"action": string(action),
		"target": targetID,
	}})
	r.log.Debug().Str("player", actor.ID).Str("action", string(action)).Msg("night action recorded")
	r.maybeResolveNightLocked()
	return nil
}

// maybeResolveNightLocked fires resolution early once every living player
// has acted.
func (r *Room) maybeResolveNightLocked() {
	if r.phase != PhaseNight || r.resolved {
		return
	}
	for _, p := range r.livingLocked() {
		if !r.acted[p.ID] {
			return
		}
	}
	r.resolveNightLocked()
}

// resolveNightLocked computes the single authoritative night outcome. Both
// the all-acted trigger and the timer callback land here; the resolved
// flag guarantees exactly one execution per cycle.
func (r *Room) resolveNightLocked() {
	if r.resolved || r.phase != PhaseNight {
		return
	}
	r.resolved = true
	r.stopTimersLocked()

	report := NightReport{Day: r.day}
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				// Degraded path: a corrupted room yields a quiet night
				// instead of a dead process.
				r.log.Error().Any("panic", rec).Msg("night resolution failed; falling back to no-op outcome")
				r.validateAndRepairLocked()
				report = NightReport{Day: r.day, Messages: []string{"The night passes uneventfully."}}
			}
		}()
		report = r.runNightLocked()
	}()

	r.broadcastLocked(Event{Type: EvNightResult, Data: report})

	if winner, over := r.winnerLocked(); over {
		r.endGameLocked(winner, "")
		return
	}
	r.scheduleTransitionLocked(r.settings.ResultDelay, (*Room).enterDayLocked)
}

func (r *Room) runNightLocked() NightReport {
	report := NightReport{Day: r.day}

	// Pass 1: blocks land before anything else resolves. A blocker who was
	// themselves blocked by an earlier submission loses their own block.
	for _, na := range r.nightActions {
		if na.action != role.ActionBlock {
			continue
		}
		actor := r.playerByID(na.actor)
		target := r.playerByID(na.target)
		if actor == nil || !actor.IsAlive || target == nil {
			continue
		}
		as := r.abilities[actor.ID]
		if as == nil || as.BlockedTonight {
			continue
		}
		if err := r.validateNightActionLocked(actor, na.action, target); err != nil {
			continue
		}
		if tas := r.abilities[target.ID]; tas != nil {
			tas.BlockedTonight = true
		}
		r.commitUseLocked(actor)
		r.sendTo(actor, Event{Type: EvPrivate, Data: map[string]any{
			"message": fmt.Sprintf("You kept %s occupied all night.", target.Name),
		}})
	}

	// Pass 2: non-kill abilities, in submission order, reading the block
	// flags as they now stand.
	var delayed []DelayedEffect
	for _, na := range r.nightActions {
		if na.action == role.ActionBlock || na.action == role.ActionKill {
			continue
		}
		res, ok := r.executeAbilityLocked(na)
		if !ok {
			continue
		}
		if res.Private != "" {
			r.sendTo(res.Actor, Event{Type: EvPrivate, Data: map[string]any{"message": res.Private}})
		}
		if res.Delayed != nil {
			delayed = append(delayed, *res.Delayed)
		}
	}

	// Pass 3: the mafia verdict, then lone killers, through the
	// shield/heal interaction rules.
	kills := r.collectKillsLocked()
	anyDeath := false
	for _, k := range kills {
		target := r.playerByID(k.target)
		if target == nil || !target.IsAlive {
			continue
		}
		tas := r.abilities[target.ID]
		switch {
		case tas != nil && tas.ShieldAvailable:
			tas.ShieldAvailable = false
			report.Messages = append(report.Messages, fmt.Sprintf("Shots rang out, but %s walked away without a scratch.", target.Name))
		case tas != nil && tas.HealedTonight:
			report.Messages = append(report.Messages, fmt.Sprintf("%s was attacked in the night, but someone got there first with bandages.", target.Name))
		default:
			target.IsAlive = false
			anyDeath = true
			report.Deaths = append(report.Deaths, playerInfo(target, false))
			report.Messages = append(report.Messages, fmt.Sprintf("%s did not survive the night.", target.Name))
		}
	}
	if !anyDeath && len(report.Messages) == 0 {
		report.Messages = append(report.Messages, "The sun rises. Nobody died tonight.")
	}

	r.delayed = append(r.delayed, delayed...)
	r.checkDefectionLocked()

	// Clear per-night transients. Block and heal flags apply to this night
	// only.
	for _, as := range r.abilities {
		as.BlockedTonight = false
		as.HealedTonight = false
	}
	r.nightActions = nil
	r.killVotes = nil
	r.acted = make(map[string]bool)
	return report
}

// collectKillsLocked tallies the mafia bloc ballot and appends lone-killer
// actions. The mafia tie-break is first target to reach the winning tally,
// which makes the outcome a pure function of submission order.
func (r *Room) collectKillsLocked() []killVote {
	var kills []killVote

	counts := make(map[string]int)
	maxCount := 0
	winner := ""
	for _, kv := range r.killVotes {
		voter := r.playerByID(kv.voter)
		if voter == nil || !voter.IsAlive {
			continue
		}
		if as := r.abilities[kv.voter]; as != nil && as.BlockedTonight {
			r.sendTo(voter, Event{Type: EvPrivate, Data: map[string]any{
				"message": "Your ability failed tonight. Someone kept you busy.",
			}})
			continue
		}
		counts[kv.target]++
		if counts[kv.target] > maxCount {
			maxCount = counts[kv.target]
			winner = kv.target
		}
	}
	if winner != "" {
		kills = append(kills, killVote{voter: "mafia", target: winner})
	}

	for _, na := range r.nightActions {
		if na.action != role.ActionKill {
			continue
		}
		actor := r.playerByID(na.actor)
		if actor == nil || !actor.IsAlive {
			continue
		}
		as := r.abilities[na.actor]
		if as == nil || as.BlockedTonight {
			continue
		}
		if err := r.validateNightActionLocked(actor, na.action, r.playerByID(na.target)); err != nil {
			continue
		}
		r.commitUseLocked(actor)
		kills = append(kills, killVote{voter: na.actor, target: na.target})
	}
	return kills
}

// checkDefectionLocked flips the turncoat once the town is thin enough
// that their defection decides the game.
func (r *Room) checkDefectionLocked() {
	mafia, citizens := 0, 0
	var turncoats []*Player
	for _, p := range r.livingLocked() {
		spec := role.MustGet(p.Role)
		as := r.abilities[p.ID]
		if spec.Defects && (as == nil || !as.Defected) {
			turncoats = append(turncoats, p)
			continue
		}
		if r.effectiveTeam(p) == role.TeamMafia {
			mafia++
		} else {
			citizens++
		}
	}
	if len(turncoats) == 0 || mafia == 0 {
		return
	}
	if citizens <= mafia+1 {
		for _, p := range turncoats {
			if as := r.abilities[p.ID]; as != nil {
				as.Defected = true
			}
			r.sendTo(p, Event{Type: EvPrivate, Data: map[string]any{
				"message": "The town is lost. You now stand with the mafia.",
			}})
			r.log.Info().Str("player", p.ID).Msg("turncoat defected")
		}
	}
}

// fireDelayedLocked publishes every queued effect matching the phase the
// room just entered, each exactly once.
func (r *Room) fireDelayedLocked(phase Phase) {
	if len(r.delayed) == 0 {
		return
	}
	var rest []DelayedEffect
	for _, de := range r.delayed {
		if de.Phase != phase || (de.Day != 0 && de.Day != r.day) {
			rest = append(rest, de)
			continue
		}
		if de.Public {
			r.broadcastLocked(Event{Type: EvPrivate, Data: map[string]any{"message": de.Message, "public": true}})
		} else if src := r.playerByID(de.Source); src != nil {
			r.sendTo(src, Event{Type: EvPrivate, Data: map[string]any{"message": de.Message}})
		}
	}
	r.delayed = rest
}
