package game

import (
	"fmt"

	"mafiad/internal/role"
)

// AbilityResult is the committed effect of one successful ability
// invocation. The night engine turns these into deaths, private messages,
// and delayed effects.
type AbilityResult struct {
	Action  role.Action
	Actor   *Player
	Target  *Player
	Team    role.Team // investigation/peek verdict
	Private string    // message delivered to the actor only
	Delayed *DelayedEffect
}

// newAbilityState seeds usage tracking for a freshly assigned role.
func newAbilityState(spec role.Role) *AbilityState {
	uses := -1
	if spec.UsesCap > 0 {
		uses = spec.UsesCap
	}
	return &AbilityState{
		UsesLeft:                uses,
		ShieldAvailable:         spec.Shield,
		DoubleVoteAvailable:     spec.DoubleVote,
		PosthumousVoteAvailable: spec.PosthumousVote,
	}
}

// validateNightActionLocked checks a submitted intent against current
// state. Nothing is committed here; blocks are re-checked at resolution
// time so a block submitted the same night still lands first.
func (r *Room) validateNightActionLocked(actor *Player, action role.Action, target *Player) error {
	spec := role.MustGet(actor.Role)
	if spec.Night != action {
		return ErrNoSuchAbility
	}
	as := r.abilities[actor.ID]
	if as == nil {
		return ErrNoSuchAbility
	}
	if as.UsesLeft == 0 {
		return ErrExhausted
	}
	if as.CooldownAt > r.day {
		return ErrOnCooldown
	}
	if target == nil {
		return ErrUnknownTarget
	}
	if target.ID == actor.ID && !spec.SelfTarget {
		return ErrSelfTarget
	}
	if spec.TargetsDead {
		if target.IsAlive {
			return ErrAliveTarget
		}
	} else if !target.IsAlive {
		return ErrDeadTarget
	}
	// The mafia do not eat their own. The vigilante carries no such
	// safety: friendly fire is the role's risk.
	if action == role.ActionKill && spec.Team == role.TeamMafia {
		if r.effectiveTeam(target) == role.TeamMafia {
			return ErrFriendlyFire
		}
	}
	return nil
}

// executeAbilityLocked runs one non-kill action during night resolution.
// The block flag is read here, with its then-current value, so blocks
// applied in the first pass suppress later abilities from the same night.
func (r *Room) executeAbilityLocked(na nightAction) (AbilityResult, bool) {
	actor := r.playerByID(na.actor)
	if actor == nil || !actor.IsAlive {
		return AbilityResult{}, false
	}
	as := r.abilities[actor.ID]
	if as == nil || as.BlockedTonight {
		if as != nil && as.BlockedTonight {
			r.sendTo(actor, Event{Type: EvPrivate, Data: map[string]any{
				"message": "Your ability failed tonight. Someone kept you busy.",
			}})
		}
		return AbilityResult{}, false
	}
	target := r.playerByID(na.target)
	if err := r.validateNightActionLocked(actor, na.action, target); err != nil {
		return AbilityResult{}, false
	}

	res := AbilityResult{Action: na.action, Actor: actor, Target: target}
	switch na.action {
	case role.ActionHeal:
		tas := r.abilities[target.ID]
		if tas != nil {
			tas.HealedTonight = true
		}
		res.Private = fmt.Sprintf("You watched over %s tonight.", target.Name)

	case role.ActionInvestigate:
		team := r.investigatedTeamLocked(target)
		spec := role.MustGet(actor.Role)
		if spec.ID == role.Detective && !percent(r.rng, r.settings.DetectiveAccuracy) {
			team = invertTeam(team)
		}
		res.Team = team
		res.Private = fmt.Sprintf("Your investigation: %s is on the %s side.", target.Name, team)

	case role.ActionCurse:
		// Night N precedes day N; the curse silences the coming morning.
		tas := r.abilities[target.ID]
		if tas != nil {
			tas.CursedDay = r.day
		}
		res.Private = fmt.Sprintf("You cursed %s. Their voice will fail them tomorrow.", target.Name)

	case role.ActionSteal:
		// Burn the thief's use before the transfer; afterwards the actor
		// carries the stolen role's counters, not the thief's.
		r.commitUseLocked(actor)
		r.transferRoleLocked(actor, target)
		res.Private = fmt.Sprintf("You stole %s's role. You are now the %s.", target.Name, role.MustGet(actor.Role).Name)
		r.sendTo(target, Event{Type: EvPrivate, Data: map[string]any{
			"message": "You woke up a plain citizen. Someone took what was yours.",
		}})
		return res, true

	case role.ActionSwap:
		r.commitUseLocked(actor)
		r.swapRolesLocked(actor, target)
		res.Private = fmt.Sprintf("You swapped fates with %s. You are now the %s.", target.Name, role.MustGet(actor.Role).Name)
		r.sendTo(target, Event{Type: EvPrivate, Data: map[string]any{
			"message": fmt.Sprintf("Something changed overnight. You are now the %s.", role.MustGet(target.Role).Name),
		}})
		return res, true

	case role.ActionPublish:
		team := r.investigatedTeamLocked(target)
		res.Team = team
		res.Private = fmt.Sprintf("Your story on %s goes to print in the morning.", target.Name)
		// The day counter does not advance between this night and the
		// following morning, so the scoop targets the current day.
		res.Delayed = &DelayedEffect{
			Phase:   PhaseDay,
			Day:     r.day,
			Source:  actor.ID,
			Target:  target.ID,
			Message: fmt.Sprintf("Morning paper: our reporter confirms %s is on the %s side.", target.Name, team),
			Public:  true,
		}

	case role.ActionPeek:
		res.Team = r.effectiveTeam(target)
		res.Private = fmt.Sprintf("The spirits whisper: %s was the %s.", target.Name, role.MustGet(target.Role).Name)

	default:
		return AbilityResult{}, false
	}

	r.commitUseLocked(actor)
	return res, true
}

// commitUseLocked burns a use and sets the cooldown. Only called after the
// ability actually took effect.
func (r *Room) commitUseLocked(actor *Player) {
	as := r.abilities[actor.ID]
	if as == nil {
		return
	}
	if as.UsesLeft > 0 {
		as.UsesLeft--
	}
	as.LastUsedDay = r.day
	if cd := role.MustGet(actor.Role).Cooldown; cd > 0 {
		as.CooldownAt = r.day + cd + 1
	}
}

// investigatedTeamLocked applies the disguise rules:
//   - appears-innocent roles always read citizen until defection;
//   - disguised roles read a random team fixed on first investigation;
//   - everyone else reads their effective team.
func (r *Room) investigatedTeamLocked(target *Player) role.Team {
	spec := role.MustGet(target.Role)
	as := r.abilities[target.ID]
	if spec.Defects && as != nil && as.Defected {
		return role.TeamMafia
	}
	if spec.AppearsInnocent {
		return role.TeamCitizen
	}
	if spec.Disguised && as != nil {
		if as.DisguiseTeam == "" {
			if percent(r.rng, 50) {
				as.DisguiseTeam = role.TeamMafia
			} else {
				as.DisguiseTeam = role.TeamCitizen
			}
		}
		return as.DisguiseTeam
	}
	return r.effectiveTeam(target)
}

func invertTeam(t role.Team) role.Team {
	if t == role.TeamMafia {
		return role.TeamCitizen
	}
	return role.TeamMafia
}

// transferRoleLocked moves target's role to the thief and demotes the
// target to citizen. Role-scoped ability counters travel with the role, so
// a spent shield stays spent.
func (r *Room) transferRoleLocked(thief, target *Player) {
	stolen := target.Role
	stolenState := r.roleScopedStateLocked(target)

	target.Role = role.Citizen
	r.applyRoleScopedLocked(target, newAbilityState(role.MustGet(role.Citizen)))

	thief.Role = stolen
	r.applyRoleScopedLocked(thief, stolenState)
}

// swapRolesLocked exchanges roles and their role-scoped counters.
func (r *Room) swapRolesLocked(a, b *Player) {
	a.Role, b.Role = b.Role, a.Role
	sa := r.roleScopedStateLocked(a) // a's old counters already under a; capture both then apply crossed
	sb := r.roleScopedStateLocked(b)
	r.applyRoleScopedLocked(a, sb)
	r.applyRoleScopedLocked(b, sa)
}

// roleScopedStateLocked copies the fields that belong to the role rather
// than the player. Curses, blocks, and defection stay with the player.
func (r *Room) roleScopedStateLocked(p *Player) *AbilityState {
	as := r.abilities[p.ID]
	if as == nil {
		return newAbilityState(role.MustGet(p.Role))
	}
	return &AbilityState{
		UsesLeft:                as.UsesLeft,
		CooldownAt:              as.CooldownAt,
		LastUsedDay:             as.LastUsedDay,
		ShieldAvailable:         as.ShieldAvailable,
		DisguiseTeam:            as.DisguiseTeam,
		DoubleVoteAvailable:     as.DoubleVoteAvailable,
		PosthumousVoteAvailable: as.PosthumousVoteAvailable,
	}
}

func (r *Room) applyRoleScopedLocked(p *Player, src *AbilityState) {
	as := r.abilities[p.ID]
	if as == nil {
		as = newAbilityState(role.MustGet(p.Role))
		r.abilities[p.ID] = as
	}
	as.UsesLeft = src.UsesLeft
	as.CooldownAt = src.CooldownAt
	as.LastUsedDay = src.LastUsedDay
	as.ShieldAvailable = src.ShieldAvailable
	as.DisguiseTeam = src.DisguiseTeam
	as.DoubleVoteAvailable = src.DoubleVoteAvailable
	as.PosthumousVoteAvailable = src.PosthumousVoteAvailable
}
