package game

import "mafiad/internal/role"

// winnerLocked evaluates the win condition over the living roster. It is
// always called after death cascades have been applied, never before.
// Undefected turncoats count on the citizen side of the comparison; they
// vote with the town until they don't.
func (r *Room) winnerLocked() (role.Team, bool) {
	mafia, citizens := 0, 0
	for _, p := range r.livingLocked() {
		if r.effectiveTeam(p) == role.TeamMafia {
			mafia++
		} else {
			citizens++
		}
	}
	if mafia == 0 {
		return role.TeamCitizen, true
	}
	if mafia >= citizens {
		return role.TeamMafia, true
	}
	return "", false
}
