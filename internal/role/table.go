package role

import (
	"fmt"
	"math/rand"
)

// MinPlayers and MaxPlayers bound the supported room sizes.
const (
	MinPlayers = 6
	MaxPlayers = 20
)

// assignments maps player count to the exact multiset of roles dealt at
// game start. Every entry sums to its key; the mafia-team share stays
// between 20% and 40%.
var assignments = map[int][]ID{
	6:  {Mafia, Mafia, Doctor, Police, Citizen, Citizen},
	7:  {Mafia, Mafia, Doctor, Police, Soldier, Citizen, Citizen},
	8:  {Mafia, Mafia, Doctor, Police, Soldier, Reporter, Citizen, Citizen},
	9:  {Mafia, Mafia, Spy, Doctor, Police, Soldier, Detective, Citizen, Citizen},
	10: {Mafia, Mafia, Spy, Doctor, Police, Soldier, Detective, Politician, Citizen, Citizen},
	11: {Mafia, Mafia, Spy, Doctor, Police, Soldier, Detective, Politician, Reporter, Citizen, Citizen},
	12: {Mafia, Mafia, Mafia, Doctor, Police, Soldier, Reporter, Citizen, Citizen, Citizen, Citizen, Citizen},
	13: {Mafia, Mafia, Mafia, Madam, Doctor, Police, Soldier, Reporter, Detective, Citizen, Citizen, Citizen, Citizen},
	14: {Mafia, Mafia, Mafia, Madam, Doctor, Police, Soldier, Reporter, Detective, Shaman, Citizen, Citizen, Citizen, Citizen},
	15: {Mafia, Mafia, Mafia, Madam, Doctor, Police, Soldier, Reporter, Detective, Shaman, Terrorist, Citizen, Citizen, Citizen, Citizen},
	16: {Mafia, Mafia, Mafia, Spy, Madam, Doctor, Police, Soldier, Reporter, Detective, Shaman, Terrorist, Ghost, Citizen, Citizen, Citizen},
	17: {Mafia, Mafia, Mafia, Spy, Madam, Doctor, Police, Soldier, Reporter, Detective, Shaman, Terrorist, Ghost, Medium, Citizen, Citizen, Citizen},
	18: {Mafia, Mafia, Mafia, Spy, Madam, Doctor, Police, Soldier, Reporter, Detective, Shaman, Terrorist, Ghost, Medium, Vigilante, Citizen, Citizen, Citizen},
	19: {Mafia, Mafia, Mafia, Mafia, Spy, Madam, Doctor, Police, Soldier, Reporter, Detective, Shaman, Terrorist, Ghost, Medium, Vigilante, Thief, Citizen, Citizen},
	20: {Mafia, Mafia, Mafia, Mafia, Spy, Madam, Doctor, Police, Soldier, Reporter, Detective, Shaman, Terrorist, Ghost, Medium, Vigilante, Thief, Magician, Turncoat, Citizen},
}

// CreateRoleArray returns the role multiset for n players, shuffled with
// the supplied RNG. The caller deals index i to seat i.
func CreateRoleArray(n int, rng *rand.Rand) ([]ID, error) {
	base, ok := assignments[n]
	if !ok {
		return nil, fmt.Errorf("no role assignment for %d players (supported %d-%d)", n, MinPlayers, MaxPlayers)
	}
	out := make([]ID, len(base))
	copy(out, base)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out, nil
}
