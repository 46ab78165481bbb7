package role

// Team is the side a role fights for. The turncoat starts neutral and is
// counted with the citizens until its defection condition fires.
type Team string

const (
	TeamMafia   Team = "mafia"
	TeamCitizen Team = "citizen"
	TeamNeutral Team = "neutral"
)

// Action is the night ability a role may invoke. ActionSkip is the
// universal no-op every player may submit.
type Action string

const (
	ActionNone        Action = ""
	ActionSkip        Action = "skip"
	ActionKill        Action = "kill"
	ActionHeal        Action = "heal"
	ActionInvestigate Action = "investigate"
	ActionBlock       Action = "block"
	ActionCurse       Action = "curse"
	ActionSteal       Action = "steal"
	ActionSwap        Action = "swap"
	ActionPublish     Action = "publish"
	ActionPeek        Action = "peek"
)

// ID identifies a role in the catalog.
type ID string

const (
	Mafia      ID = "mafia"
	Spy        ID = "spy"
	Madam      ID = "madam"
	Citizen    ID = "citizen"
	Doctor     ID = "doctor"
	Police     ID = "police"
	Detective  ID = "detective"
	Soldier    ID = "soldier"
	Reporter   ID = "reporter"
	Politician ID = "politician"
	Ghost      ID = "ghost"
	Terrorist  ID = "terrorist"
	Shaman     ID = "shaman"
	Medium     ID = "medium"
	Vigilante  ID = "vigilante"
	Thief      ID = "thief"
	Magician   ID = "magician"
	Turncoat   ID = "turncoat"
)

// Role is a static catalog entry. No mutable state lives here; per-player
// usage tracking belongs to the room's ability state.
type Role struct {
	ID          ID
	Name        string
	Team        Team
	Night       Action
	Description string

	// UsesCap caps how often the night ability may fire over a game.
	// 0 means unlimited.
	UsesCap int
	// Cooldown is the number of nights that must pass between uses.
	Cooldown int

	// Passive flags.
	Shield          bool // absorbs one kill, consumed
	AppearsInnocent bool // investigations always report citizen
	Disguised       bool // investigations report a stable random team
	RevengeOnDeath  bool // execution kills a random accuser
	PosthumousVote  bool // one day ballot after death
	DoubleVote      bool // first day ballot counts twice
	Defects         bool // flips to mafia when the town thins out
	SelfTarget      bool // ability may target the actor
	TargetsDead     bool // ability targets dead players
}

var catalog = map[ID]Role{
	Mafia: {
		ID: Mafia, Name: "Mafia", Team: TeamMafia, Night: ActionKill,
		Description: "Each night the mafia agree on one victim.",
	},
	Spy: {
		ID: Spy, Name: "Spy", Team: TeamMafia, Night: ActionKill,
		AppearsInnocent: true,
		Description:     "Votes with the mafia; investigations see an innocent.",
	},
	Madam: {
		ID: Madam, Name: "Madam", Team: TeamMafia, Night: ActionBlock,
		Description: "Distracts one player, wasting their ability for the night.",
	},
	Citizen: {
		ID: Citizen, Name: "Citizen", Team: TeamCitizen,
		Description: "No special ability. Vote wisely.",
	},
	Doctor: {
		ID: Doctor, Name: "Doctor", Team: TeamCitizen, Night: ActionHeal,
		SelfTarget:  true,
		Description: "Protects one player from death each night. May self-heal.",
	},
	Police: {
		ID: Police, Name: "Police", Team: TeamCitizen, Night: ActionInvestigate,
		Description: "Learns a player's true allegiance each night.",
	},
	Detective: {
		ID: Detective, Name: "Detective", Team: TeamCitizen, Night: ActionInvestigate,
		Description: "Investigates like the police, but the trail is cold: the report is only mostly reliable.",
	},
	Soldier: {
		ID: Soldier, Name: "Soldier", Team: TeamCitizen,
		Shield:      true,
		Description: "Shrugs off the first attempt on their life.",
	},
	Reporter: {
		ID: Reporter, Name: "Reporter", Team: TeamCitizen, Night: ActionPublish,
		UsesCap:     1,
		Description: "Investigates one player at night; the scoop runs in the morning paper for everyone.",
	},
	Politician: {
		ID: Politician, Name: "Politician", Team: TeamCitizen,
		DoubleVote:  true,
		Description: "Their first ballot counts twice.",
	},
	Ghost: {
		ID: Ghost, Name: "Ghost", Team: TeamCitizen,
		PosthumousVote: true,
		Description:    "May cast one vote from beyond the grave.",
	},
	Terrorist: {
		ID: Terrorist, Name: "Terrorist", Team: TeamCitizen,
		RevengeOnDeath: true,
		Description:    "If executed, takes one of their accusers with them.",
	},
	Shaman: {
		ID: Shaman, Name: "Shaman", Team: TeamCitizen, Night: ActionCurse,
		Cooldown:    1,
		Description: "Curses a player, silencing their vote the next day. The rite needs a night to recover.",
	},
	Medium: {
		ID: Medium, Name: "Medium", Team: TeamCitizen, Night: ActionPeek,
		TargetsDead: true,
		Description: "Communes with a dead player to learn their role.",
	},
	Vigilante: {
		ID: Vigilante, Name: "Vigilante", Team: TeamCitizen, Night: ActionKill,
		UsesCap:     1,
		Description: "One bullet. One night. Choose well.",
	},
	Thief: {
		ID: Thief, Name: "Thief", Team: TeamCitizen, Night: ActionSteal,
		UsesCap:   1,
		Disguised: true,
		Description: "Steals another player's role, leaving them a plain citizen. " +
			"Hard to pin down: investigations see through a stolen disguise inconsistently.",
	},
	Magician: {
		ID: Magician, Name: "Magician", Team: TeamCitizen, Night: ActionSwap,
		UsesCap:     1,
		Description: "Swaps roles with another player. Once.",
	},
	Turncoat: {
		ID: Turncoat, Name: "Turncoat", Team: TeamNeutral,
		Defects:         true,
		AppearsInnocent: true,
		Description:     "Loyal to the town, until the town can no longer win without them.",
	},
}

// Get returns the catalog entry for id. The second return is false for
// unknown ids.
func Get(id ID) (Role, bool) {
	r, ok := catalog[id]
	return r, ok
}

// MustGet panics on unknown ids; use only with catalog-sourced ids.
func MustGet(id ID) Role {
	r, ok := catalog[id]
	if !ok {
		panic("role: unknown id " + string(id))
	}
	return r
}

// All returns every catalog entry, order unspecified.
func All() []Role {
	out := make([]Role, 0, len(catalog))
	for _, r := range catalog {
		out = append(out, r)
	}
	return out
}

// MafiaAligned reports whether the role sits on the mafia side of the win
// comparison before any mid-game defection.
func MafiaAligned(id ID) bool {
	r, ok := catalog[id]
	return ok && r.Team == TeamMafia
}
