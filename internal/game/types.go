// internal/game/types.go
//
// Core type definitions for the duel game engine.
// Defines:
//   - Mark: per-letter result of a guess.
//   - Attempt: one scored row of the shared grid.
//   - State: lifecycle of a room's session.
//   - Sentinel errors returned by Session operations.

package game

import "errors"

// Mark represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "correct-position": letter is in the secret at this position.
//   - "wrong-position":   letter is in the secret at another position.
//   - "not-in-word":      no unclaimed instance of the letter remains.
type Mark string

const (
	MarkCorrect Mark = "correct-position"
	MarkPresent Mark = "wrong-position"
	MarkAbsent  Mark = "not-in-word"
)

// Board dimensions and room limits.
const (
	WordLength  = 5
	StartRows   = 6
	RowGrowth   = 5
	MaxPlayers  = 2
	firstPlayer = 0
)

// Attempt is a scored guess on the shared grid.
type Attempt struct {
	Word     string `json:"word"`
	Feedback []Mark `json:"feedback"`
}

// State is the lifecycle position of a Session.
type State int

const (
	StateWaiting State = iota
	StateInProgress
	StateFinished
	StateRematchPending
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateInProgress:
		return "in_progress"
	case StateFinished:
		return "finished"
	case StateRematchPending:
		return "rematch_pending"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

var (
	ErrInvalidSession     = errors.New("game: session is not playable")
	ErrNotYourTurn        = errors.New("game: not your turn")
	ErrInvalidWordLength  = errors.New("game: invalid word length")
	ErrGameFinished       = errors.New("game: game already finished")
	ErrRoomFull           = errors.New("game: room is full")
	ErrAlreadyJoined      = errors.New("game: player already in room")
	ErrSessionClosed      = errors.New("game: session closed")
	ErrNotParticipant     = errors.New("game: player is not in this room")
	ErrRematchUnavailable = errors.New("game: rematch only after the game ends")
)
