package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mafiad/internal/role"
)

func TestHealBeatsKill(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Doctor,
	})

	act(t, r, "p1", role.ActionKill, "p3")
	act(t, r, "p2", role.ActionHeal, "p3")
	skipAll(t, r)

	assert.True(t, named(r, "p3").IsAlive, "healed target must survive the kill")
	toDay(t, r)
}

func TestShieldAbsorbsExactlyOneKill(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p3": role.Soldier,
	})

	act(t, r, "p1", role.ActionKill, "p3")
	skipAll(t, r)
	require.True(t, named(r, "p3").IsAlive, "shield must absorb the first kill")

	toDay(t, r)
	toNextNight(t, r)

	act(t, r, "p1", role.ActionKill, "p3")
	skipAll(t, r)
	assert.False(t, named(r, "p3").IsAlive, "spent shield must not absorb a second kill")
}

func TestMafiaKillTieBreaksByArrival(t *testing.T) {
	r, _ := newTestRoom(t, 8, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Mafia,
	})

	act(t, r, "p1", role.ActionKill, "p4")
	act(t, r, "p2", role.ActionKill, "p5")
	skipAll(t, r)

	assert.False(t, named(r, "p4").IsAlive, "first target to reach the top tally dies")
	assert.True(t, named(r, "p5").IsAlive)
}

func TestBlockedMafiaBallotIsExcluded(t *testing.T) {
	r, _ := newTestRoom(t, 8, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Mafia,
		"p3": role.Madam,
	})

	act(t, r, "p3", role.ActionBlock, "p1")
	act(t, r, "p1", role.ActionKill, "p4")
	act(t, r, "p2", role.ActionKill, "p5")
	skipAll(t, r)

	assert.True(t, named(r, "p4").IsAlive, "blocked mafioso's ballot must not count")
	assert.False(t, named(r, "p5").IsAlive)
}

func TestBlockedBlockerLosesOwnBlock(t *testing.T) {
	r, _ := newTestRoom(t, 8, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Madam,
		"p2": role.Madam,
		"p3": role.Doctor,
		"p4": role.Mafia,
	})

	// p1 blocks p2 before p2's block on the doctor can land, so the heal
	// still protects p5.
	act(t, r, "p1", role.ActionBlock, "p2")
	act(t, r, "p2", role.ActionBlock, "p3")
	act(t, r, "p3", role.ActionHeal, "p5")
	act(t, r, "p4", role.ActionKill, "p5")
	skipAll(t, r)

	assert.True(t, named(r, "p5").IsAlive)
}

func TestBlockWastesAbility(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Madam,
		"p2": role.Mafia,
		"p3": role.Doctor,
	})

	act(t, r, "p1", role.ActionBlock, "p3")
	act(t, r, "p2", role.ActionKill, "p4")
	act(t, r, "p3", role.ActionHeal, "p4")
	skipAll(t, r)

	assert.False(t, named(r, "p4").IsAlive, "blocked heal must not protect")
	assert.True(t, hasPrivate(sinks["p3"], "Your ability failed tonight"))
}

func TestDetectiveAccuracy(t *testing.T) {
	t.Run("fully accurate", func(t *testing.T) {
		s := testSettings()
		s.DetectiveAccuracy = 100
		r, sinks := newTestRoom(t, 6, s, 1)
		startRigged(t, r, map[string]role.ID{
			"p1": role.Mafia,
			"p2": role.Detective,
		})
		act(t, r, "p2", role.ActionInvestigate, "p1")
		skipAll(t, r)
		assert.True(t, hasPrivate(sinks["p2"], "mafia side"))
	})

	t.Run("fully inverted", func(t *testing.T) {
		s := testSettings()
		s.DetectiveAccuracy = 0
		r, sinks := newTestRoom(t, 6, s, 1)
		startRigged(t, r, map[string]role.ID{
			"p1": role.Mafia,
			"p2": role.Detective,
		})
		act(t, r, "p2", role.ActionInvestigate, "p1")
		skipAll(t, r)
		assert.True(t, hasPrivate(sinks["p2"], "citizen side"))
	})
}

func TestSpyInvestigatesAsInnocent(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Spy,
		"p2": role.Police,
	})

	act(t, r, "p2", role.ActionInvestigate, "p1")
	skipAll(t, r)

	assert.True(t, hasPrivate(sinks["p2"], "citizen side"), "the spy must read innocent")
}

func TestDefectedTurncoatReadsMafia(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Police,
		"p3": role.Turncoat,
	})

	act(t, r, "p2", role.ActionInvestigate, "p3")
	skipAll(t, r)
	require.True(t, hasPrivate(sinks["p2"], "citizen side"), "loyal turncoats read innocent")

	r.mu.Lock()
	r.abilities[r.playerByName("p3").ID].Defected = true
	r.mu.Unlock()

	toDay(t, r)
	toNextNight(t, r)
	act(t, r, "p2", role.ActionInvestigate, "p3")
	skipAll(t, r)
	assert.True(t, hasPrivate(sinks["p2"], "mafia side"), "defection shows up under investigation")
}

func TestThiefDisguiseIsStable(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 7)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Police,
		"p3": role.Thief,
	})

	thiefID := named(r, "p3").ID
	act(t, r, "p2", role.ActionInvestigate, "p3")
	skipAll(t, r)

	r.mu.Lock()
	team := r.abilities[thiefID].DisguiseTeam
	r.mu.Unlock()
	require.NotEmpty(t, team, "first investigation must fix the disguise")
	require.True(t, hasPrivate(sinks["p2"], string(team)+" side"))

	toDay(t, r)
	toNextNight(t, r)

	act(t, r, "p2", role.ActionInvestigate, "p3")
	skipAll(t, r)

	r.mu.Lock()
	again := r.abilities[thiefID].DisguiseTeam
	r.mu.Unlock()
	assert.Equal(t, team, again, "repeat investigations must agree")
}

func TestInvestigationSurvivesMissingAbilityState(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p3": role.Thief,
	})

	// A repaired room can hold players with no ability entry; the verdict
	// falls back to the true team instead of panicking.
	r.mu.Lock()
	delete(r.abilities, r.playerByName("p3").ID)
	team := r.investigatedTeamLocked(r.playerByName("p3"))
	r.mu.Unlock()

	assert.Equal(t, role.TeamCitizen, team)
}

func TestReporterScoopRunsNextMorning(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Reporter,
	})

	act(t, r, "p2", role.ActionPublish, "p1")
	skipAll(t, r)

	assert.False(t, hasPrivate(sinks["p4"], "Morning paper"), "scoop must not leak before dawn")
	toDay(t, r)
	assert.True(t, hasPrivate(sinks["p4"], "Morning paper"), "everyone reads the morning paper")
	assert.True(t, hasPrivate(sinks["p4"], "mafia side"))

	toNextNight(t, r)
	assert.ErrorIs(t, tryAct(r, "p2", role.ActionPublish, "p3"), ErrExhausted)
}

func TestShamanCurseSilencesNextDay(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Shaman,
	})

	act(t, r, "p2", role.ActionCurse, "p4")
	skipAll(t, r)
	toDay(t, r)

	assert.ErrorIs(t, tryVote(r, "p4", "p1"), ErrCursed)
	assert.True(t, hasPrivate(sinks["p4"], "curse holds"))

	// The cursed seat must not hold up the day: everyone else voting still
	// resolves the window. A tied tally eliminates nobody.
	vote(t, r, "p1", "p2")
	vote(t, r, "p2", "p1")
	vote(t, r, "p3", "p2")
	vote(t, r, "p5", "p1")
	vote(t, r, "p6", "p5")
	advance(r)
	require.Equal(t, PhaseNight, r.Phase())

	// Next day the curse has lifted.
	skipAll(t, r)
	toDay(t, r)
	assert.NoError(t, tryVote(r, "p4", "p1"))
}

func TestShamanCurseCooldown(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Shaman,
	})

	act(t, r, "p2", role.ActionCurse, "p4")
	skipAll(t, r)
	toDay(t, r)
	toNextNight(t, r)

	assert.ErrorIs(t, tryAct(r, "p2", role.ActionCurse, "p5"), ErrOnCooldown)
	skipAll(t, r)
	toDay(t, r)
	toNextNight(t, r)

	assert.NoError(t, tryAct(r, "p2", role.ActionCurse, "p5"))
}

func TestMediumPeeksTheDead(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Medium,
		"p3": role.Doctor,
	})
	setDead(r, "p3")

	assert.ErrorIs(t, tryAct(r, "p2", role.ActionPeek, "p4"), ErrAliveTarget)
	act(t, r, "p2", role.ActionPeek, "p3")
	skipAll(t, r)

	assert.True(t, hasPrivate(sinks["p2"], "Doctor"))
}

func TestVigilanteHasOneBullet(t *testing.T) {
	r, _ := newTestRoom(t, 8, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Vigilante,
	})

	// Friendly fire is the vigilante's own risk: a citizen target is legal.
	act(t, r, "p2", role.ActionKill, "p3")
	skipAll(t, r)
	require.False(t, named(r, "p3").IsAlive)

	toDay(t, r)
	toNextNight(t, r)
	assert.ErrorIs(t, tryAct(r, "p2", role.ActionKill, "p4"), ErrExhausted)
}

func TestMafiaCannotTargetTheirOwn(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Spy,
	})

	assert.ErrorIs(t, tryAct(r, "p1", role.ActionKill, "p2"), ErrFriendlyFire)
}

func TestThiefCarriesSpentCounters(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Thief,
		"p3": role.Soldier,
	})

	// Pretend the soldier already burned the shield.
	r.mu.Lock()
	r.abilities[r.playerByName("p3").ID].ShieldAvailable = false
	r.mu.Unlock()

	act(t, r, "p2", role.ActionSteal, "p3")
	skipAll(t, r)

	assert.Equal(t, role.Soldier, named(r, "p2").Role)
	assert.Equal(t, role.Citizen, named(r, "p3").Role)
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.False(t, r.abilities[r.playerByName("p2").ID].ShieldAvailable,
		"a stolen spent shield stays spent")
}

func TestMagicianSwapMovesRoleState(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Magician,
		"p3": role.Politician,
	})

	act(t, r, "p2", role.ActionSwap, "p3")
	skipAll(t, r)

	assert.Equal(t, role.Politician, named(r, "p2").Role)
	assert.Equal(t, role.Magician, named(r, "p3").Role)
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.True(t, r.abilities[r.playerByName("p2").ID].DoubleVoteAvailable,
		"the politician's unspent double vote travels with the role")
	assert.Equal(t, 0, r.abilities[r.playerByName("p3").ID].UsesLeft,
		"the swap itself is the magician's one use")
}

func TestTurncoatDefectsWhenTownThins(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Turncoat,
	})
	// Board after the cull: 1 mafia, 1 turncoat, 2 citizens. Defection
	// flips the comparison and ends the game on the spot.
	setDead(r, "p5", "p6")

	skipAll(t, r)

	assert.True(t, hasPrivate(sinks["p2"], "stand with the mafia"))
	assert.Equal(t, PhaseEnded, r.Phase())
	ev, ok := sinks["p1"].last(EvGameEnded)
	require.True(t, ok)
	assert.Equal(t, string(role.TeamMafia), ev.Data.(EndReport).Winner)
}

func TestNightResolvesExactlyOnce(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{"p1": role.Mafia})

	skipAll(t, r)
	require.Equal(t, 1, sinks["p1"].count(EvNightResult))

	// A late phase-timer expiry for the same cycle must be a no-op.
	fireTimer(r)
	assert.Equal(t, 1, sinks["p1"].count(EvNightResult))
}

func TestNightResolutionDegradesToQuietNight(t *testing.T) {
	r, sinks := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{
		"p1": role.Mafia,
		"p2": role.Madam,
	})

	act(t, r, "p2", role.ActionBlock, "p3")
	act(t, r, "p1", role.ActionKill, "p4")
	// Corrupt the blocker's role after submission. Resolution trips over it
	// before any kill lands and must fall back to the no-op outcome.
	r.mu.Lock()
	r.playerByName("p2").Role = role.ID("bogus")
	r.mu.Unlock()
	skipAll(t, r)

	assert.True(t, named(r, "p4").IsAlive, "degraded resolution must kill nobody")
	ev, ok := sinks["p3"].last(EvNightResult)
	require.True(t, ok)
	assert.Contains(t, ev.Data.(NightReport).Messages, "The night passes uneventfully.")
	assert.Equal(t, role.Citizen, named(r, "p2").Role, "repair resets unknown roles")
	toDay(t, r)
}

func TestDisconnectedPlayerDoesNotStallTheNight(t *testing.T) {
	r, _ := newTestRoom(t, 6, testSettings(), 1)
	startRigged(t, r, map[string]role.ID{"p1": role.Mafia})

	for _, name := range []string{"p1", "p2", "p3", "p4", "p5"} {
		act(t, r, name, role.ActionSkip, "")
	}
	require.Equal(t, PhaseNight, r.Phase())

	// The last pending seat drops; the engine submits its no-op.
	r.Disconnect(named(r, "p6").ID)

	r.mu.Lock()
	resolved := r.resolved
	r.mu.Unlock()
	assert.True(t, resolved, "disconnect must complete the all-acted trigger")
	assert.True(t, named(r, "p6").IsAlive, "the seat survives the disconnect")
}
