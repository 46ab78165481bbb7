package game

import "errors"

// Semantic errors are recovered locally: the offending action is rejected
// with a user-facing message and room state is left untouched.
var (
	ErrRoomFull       = errors.New("room is full")
	ErrNameTaken      = errors.New("that name is already in use")
	ErrGameInProgress = errors.New("the game has already started")
	ErrGameNotStarted = errors.New("the game has not started")
	ErrNotHost        = errors.New("only the host can do that")
	ErrNotYourPhase   = errors.New("that action is not valid in the current phase")
	ErrPlayerCount    = errors.New("the game needs 6 to 20 players")
	ErrUnknownPlayer  = errors.New("unknown player")
	ErrUnknownTarget  = errors.New("unknown target")
	ErrDeadActor      = errors.New("the dead do not act")
	ErrDeadTarget     = errors.New("that player is already dead")
	ErrAliveTarget    = errors.New("that player is still alive")
	ErrNoSuchAbility  = errors.New("your role does not grant that action")
	ErrOnCooldown     = errors.New("your ability is still recovering")
	ErrExhausted      = errors.New("your ability has no uses left")
	ErrSelfTarget     = errors.New("you cannot target yourself")
	ErrFriendlyFire   = errors.New("you cannot target your own team")
	ErrAlreadyActed   = errors.New("you have already acted this phase")
	ErrAlreadyVoted   = errors.New("you have already voted")
	ErrCursed         = errors.New("a curse seals your lips; you cannot vote today")
	ErrPaused         = errors.New("the room is paused")
)
