// internal/game/session.go
//
// Session is the per-room state machine: players, secret, shared grid,
// turn pointer, row capacity and rematch votes.
//
// State transitions:
//   waiting → in_progress          (second player joins)
//   in_progress → finished         (winning guess)
//   finished → rematch_pending     (first distinct rematch vote)
//   rematch_pending → in_progress  (second distinct vote; fresh secret)
//   any → terminated               (a participant leaves)
//
// Concurrency:
//   - A Session is guarded by its own mutex. Callers hold Lock for the whole
//     command, including any fan-out of the result, so per-room ordering is
//     the order in which commands were applied.
//   - Code and Language are immutable and may be read without the lock.

package game

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/robalobadob/wordduel/internal/words"
)

// Picker supplies secret words.
type Picker interface {
	Pick(lang words.Language) (string, error)
}

// Session holds the state of one room.
type Session struct {
	mu sync.Mutex

	code     string
	language words.Language
	picker   Picker

	players []string // join order, never reordered
	secret  string
	grid    []Attempt
	maxRows int
	turn    int
	votes   map[string]struct{}
	state   State
	winner  string
	games   int
}

// GuessResult describes an accepted guess.
type GuessResult struct {
	Attempt  Attempt
	Won      bool
	NextTurn string // player to move next; empty when Won
	Grew     bool   // row capacity was extended by this guess
}

// RematchResult describes an accepted rematch vote.
type RematchResult struct {
	Votes     int
	Restarted bool
}

// NewSession creates a room session owned by creator.
// The session waits for a second player before accepting guesses.
func NewSession(code string, lang words.Language, creator string, p Picker) (*Session, error) {
	s := &Session{
		code:     code,
		language: lang,
		picker:   p,
		players:  []string{creator},
	}
	if err := s.reset(); err != nil {
		return nil, err
	}
	s.state = StateWaiting
	return s, nil
}

// Lock acquires the session mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// Code returns the room code.
func (s *Session) Code() string { return s.code }

// Language returns the language the room was created with.
func (s *Session) Language() words.Language { return s.language }

// Players returns a copy of the participants in join order.
func (s *Session) Players() []string { return append([]string(nil), s.players...) }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Grid returns a copy of the attempts made in the current game.
func (s *Session) Grid() []Attempt { return append([]Attempt(nil), s.grid...) }

// CurrentRow is the index of the next attempt; always len(Grid()).
func (s *Session) CurrentRow() int { return len(s.grid) }

// MaxRows is the current row capacity.
func (s *Session) MaxRows() int { return s.maxRows }

// Secret returns the current secret word.
func (s *Session) Secret() string { return s.secret }

// Winner returns the id of the player who won the last game, if any.
func (s *Session) Winner() string { return s.winner }

// RematchVotes returns the number of distinct rematch votes.
func (s *Session) RematchVotes() int { return len(s.votes) }

// GamesPlayed counts the games started in this room, rematches included.
func (s *Session) GamesPlayed() int { return s.games }

// CurrentTurn returns the id of the player holding the turn, or "" if the
// turn pointer is not on a seated player.
func (s *Session) CurrentTurn() string {
	if s.turn < len(s.players) {
		return s.players[s.turn]
	}
	return ""
}

// PlayerIndex returns the join position of id, or -1.
func (s *Session) PlayerIndex(id string) int {
	for i, p := range s.players {
		if p == id {
			return i
		}
	}
	return -1
}

// Opponent returns the other participant of id, if seated.
func (s *Session) Opponent(id string) (string, bool) {
	for _, p := range s.players {
		if p != id {
			return p, true
		}
	}
	return "", false
}

// Join seats a second player and starts the game.
func (s *Session) Join(id string) error {
	switch {
	case s.state == StateTerminated:
		return ErrSessionClosed
	case s.PlayerIndex(id) >= 0:
		return ErrAlreadyJoined
	case len(s.players) >= MaxPlayers:
		return ErrRoomFull
	}
	s.players = append(s.players, id)
	if len(s.players) == MaxPlayers {
		s.state = StateInProgress
		s.turn = firstPlayer
		s.games++
	}
	return nil
}

// SubmitGuess validates and scores a guess from id.
//
// Validation order: playable session, game not finished, turn ownership,
// word length. A rejected guess leaves the session untouched.
func (s *Session) SubmitGuess(id, word string) (GuessResult, error) {
	if len(s.players) < MaxPlayers || s.state == StateTerminated || s.state == StateWaiting {
		return GuessResult{}, ErrInvalidSession
	}
	if s.state == StateFinished || s.state == StateRematchPending {
		return GuessResult{}, ErrGameFinished
	}
	if id != s.players[s.turn] {
		return GuessResult{}, ErrNotYourTurn
	}
	word = strings.ToUpper(strings.TrimSpace(word))
	if utf8.RuneCountInString(word) != WordLength {
		return GuessResult{}, ErrInvalidWordLength
	}

	att := Attempt{Word: word, Feedback: Score(word, s.secret)}
	s.grid = append(s.grid, att)
	res := GuessResult{Attempt: att}

	if HasWon(att.Feedback) {
		res.Won = true
		s.winner = id
		s.state = StateFinished
		return res, nil
	}

	s.turn = (s.turn + 1) % MaxPlayers
	if len(s.grid) == s.maxRows {
		s.maxRows += RowGrowth
		res.Grew = true
	}
	res.NextTurn = s.players[s.turn]
	return res, nil
}

// RequestRematch records a vote from id. Votes are distinct per player;
// once every seated player has voted the room is reset in place with a
// fresh secret in the same language.
func (s *Session) RequestRematch(id string) (RematchResult, error) {
	if s.state == StateTerminated {
		return RematchResult{}, ErrInvalidSession
	}
	if s.PlayerIndex(id) < 0 {
		return RematchResult{}, ErrNotParticipant
	}
	if s.state != StateFinished && s.state != StateRematchPending {
		return RematchResult{}, ErrRematchUnavailable
	}

	s.votes[id] = struct{}{}
	if len(s.votes) < MaxPlayers {
		s.state = StateRematchPending
		return RematchResult{Votes: len(s.votes)}, nil
	}

	if err := s.reset(); err != nil {
		return RematchResult{}, err
	}
	s.state = StateInProgress
	s.games++
	return RematchResult{Votes: MaxPlayers, Restarted: true}, nil
}

// Leave removes id and terminates the session. It returns the players still
// seated, who must be told the game is over. Leaving twice is a no-op.
func (s *Session) Leave(id string) []string {
	i := s.PlayerIndex(id)
	if i < 0 {
		return nil
	}
	s.players = append(s.players[:i], s.players[i+1:]...)
	s.state = StateTerminated
	return append([]string(nil), s.players...)
}

// reset starts a fresh game: new secret, empty grid, first player to move.
func (s *Session) reset() error {
	secret, err := s.picker.Pick(s.language)
	if err != nil {
		return err
	}
	s.secret = strings.ToUpper(secret)
	s.grid = nil
	s.maxRows = StartRows
	s.turn = firstPlayer
	s.votes = make(map[string]struct{}, MaxPlayers)
	s.winner = ""
	return nil
}
