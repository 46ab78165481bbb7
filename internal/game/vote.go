package game

import (
	"fmt"

	"mafiad/internal/role"
)

// CastVote records one ballot for the current day window. Ballots are
// accepted for the whole discussion window and the voting window alike;
// once every eligible living player has voted, resolution fires early.
func (r *Room) CastVote(voterID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return ErrGameNotStarted
	}
	if r.paused {
		return ErrPaused
	}
	if (r.phase != PhaseDay && r.phase != PhaseVoting) || r.resolved {
		return ErrNotYourPhase
	}
	voter := r.playerByID(voterID)
	if voter == nil {
		return ErrUnknownPlayer
	}
	if r.voted[voter.ID] {
		return ErrAlreadyVoted
	}
	as := r.abilities[voter.ID]

	graveVote := false
	if !voter.IsAlive {
		// Only a ghost votes from the grave, and only once.
		if as == nil || !as.PosthumousVoteAvailable {
			return ErrDeadActor
		}
		graveVote = true
	} else if as != nil && as.CursedDay == r.day {
		r.sendTo(voter, Event{Type: EvPrivate, Data: map[string]any{
			"message": "You open your mouth to vote, but no sound comes out. The curse holds.",
		}})
		return ErrCursed
	}

	target := r.playerByID(targetID)
	if target == nil {
		return ErrUnknownTarget
	}
	if !target.IsAlive {
		return ErrDeadTarget
	}

	// Only a ballot that actually lands consumes anything.
	if graveVote {
		as.PosthumousVoteAvailable = false
	}
	weight := 1
	if voter.IsAlive && as != nil && as.DoubleVoteAvailable {
		weight = 2
		as.DoubleVoteAvailable = false
	}
	r.ballots = append(r.ballots, ballot{voter: voter.ID, target: target.ID, weight: weight})
	r.voted[voter.ID] = true
	r.sendTo(voter, Event{Type: EvActionAck, Data: map[string]any{
		"action": "vote",
		"target": target.ID,
		"weight": weight,
	}})
	r.log.Debug().Str("voter", voter.ID).Str("target", target.ID).Int("weight", weight).Msg("ballot recorded")
	r.maybeResolveBallotsLocked()
	return nil
}

// maybeResolveBallotsLocked fires early once every living, uncursed player
// has voted. Ghost ballots never hold up the day.
func (r *Room) maybeResolveBallotsLocked() {
	if (r.phase != PhaseDay && r.phase != PhaseVoting) || r.resolved {
		return
	}
	for _, p := range r.livingLocked() {
		if r.voted[p.ID] {
			continue
		}
		if as := r.abilities[p.ID]; as != nil && as.CursedDay == r.day {
			continue
		}
		return
	}
	r.resolveBallotsLocked()
}

// resolveBallotsLocked computes the single authoritative day outcome.
// Strict plurality eliminates; an exact tie eliminates nobody. This is a
// different policy from the night kill tie-break, on purpose.
func (r *Room) resolveBallotsLocked() {
	if (r.phase != PhaseDay && r.phase != PhaseVoting) || r.resolved {
		return
	}
	r.resolved = true
	r.stopTimersLocked()

	report := VoteReport{Day: r.day, Tally: make(map[string]int)}
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error().Any("panic", rec).Msg("vote resolution failed; falling back to no-op outcome")
				r.validateAndRepairLocked()
				report = VoteReport{Day: r.day, Tally: map[string]int{}, Messages: []string{"The vote dissolves into confusion. Nobody is eliminated."}}
			}
		}()
		report = r.runBallotsLocked()
	}()

	r.broadcastLocked(Event{Type: EvVoteResult, Data: report})

	if winner, over := r.winnerLocked(); over {
		r.endGameLocked(winner, "")
		return
	}
	r.scheduleTransitionLocked(r.settings.ResultDelay, (*Room).enterNightLocked)
}

func (r *Room) runBallotsLocked() VoteReport {
	report := VoteReport{Day: r.day, Tally: make(map[string]int)}

	accusers := make(map[string][]string) // target -> voter ids
	maxVotes := 0
	for _, b := range r.ballots {
		target := r.playerByID(b.target)
		if target == nil || !target.IsAlive {
			continue
		}
		report.Tally[b.target] += b.weight
		accusers[b.target] = append(accusers[b.target], b.voter)
		if report.Tally[b.target] > maxVotes {
			maxVotes = report.Tally[b.target]
		}
	}

	var leaders []string
	for id, n := range report.Tally {
		if n == maxVotes && maxVotes > 0 {
			leaders = append(leaders, id)
		}
	}

	switch {
	case maxVotes == 0:
		report.Messages = append(report.Messages, "No votes were cast. Nobody is eliminated.")
	case len(leaders) > 1:
		report.Messages = append(report.Messages, "The vote is tied. Nobody is eliminated today.")
	default:
		target := r.playerByID(leaders[0])
		r.eliminateLocked(target, accusers[target.ID], &report)
	}

	r.ballots = nil
	r.voted = make(map[string]bool)
	r.checkDefectionLocked()
	return report
}

// eliminateLocked executes the day's verdict: public role reveal, death,
// and any death-triggered ability. A revenge kill cascades into the same
// report so the caller's win check sees the full body count.
func (r *Room) eliminateLocked(target *Player, accuserIDs []string, report *VoteReport) {
	target.IsAlive = false
	info := playerInfo(target, true)
	report.Eliminated = &info
	spec := role.MustGet(target.Role)
	report.Messages = append(report.Messages,
		fmt.Sprintf("The town has spoken. %s is eliminated. They were the %s.", target.Name, spec.Name))

	if spec.RevengeOnDeath {
		var candidates []*Player
		for _, id := range accuserIDs {
			if p := r.playerByID(id); p != nil && p.IsAlive {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) > 0 {
			victim := pick(r.rng, candidates)
			victim.IsAlive = false
			report.Cascade = append(report.Cascade, playerInfo(victim, true))
			report.Messages = append(report.Messages,
				fmt.Sprintf("%s goes out with a bang, taking %s along. They were the %s.",
					target.Name, victim.Name, role.MustGet(victim.Role).Name))
		}
	}
	r.log.Info().Str("player", target.ID).Str("role", string(target.Role)).Msg("player eliminated by vote")
}
