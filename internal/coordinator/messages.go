package coordinator

import (
	"errors"
	"fmt"

	"github.com/robalobadob/wordduel/internal/game"
	"github.com/robalobadob/wordduel/internal/store"
	"github.com/robalobadob/wordduel/internal/words"
)

// Inbound command types.
const (
	CmdCreateRoom     = "createRoom"
	CmdJoinRoom       = "joinRoom"
	CmdSubmitWord     = "submitWord"
	CmdRequestRematch = "requestRematch"
)

// Outbound message types.
const (
	MsgSession              = "session"
	MsgRoomCreated          = "roomCreated"
	MsgLobbyMessage         = "lobbyMessage"
	MsgLobbyError           = "lobbyError"
	MsgStartGame            = "startGame"
	MsgUpdateTurnStatus     = "updateTurnStatus"
	MsgUpdateGameState      = "updateGameState"
	MsgGameOver             = "gameOver"
	MsgRematchRequested     = "rematchRequested"
	MsgRematchStart         = "rematchStart"
	MsgOpponentDisconnected = "opponentDisconnected"
	MsgGameError            = "gameError"
)

// Command is one client request.
type Command struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
	Word     string `json:"word,omitempty"`
}

// Message is one server push.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type CodePayload struct {
	Code string `json:"code"`
}

type TextPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type StartGamePayload struct {
	Code    string   `json:"code"`
	Players []string `json:"players"`
}

type TurnStatusPayload struct {
	IsTurn  bool   `json:"isTurn"`
	Message string `json:"message"`
}

type GameStatePayload struct {
	Grid        []game.Attempt `json:"grid"`
	CurrentRow  int            `json:"currentRow"`
	MaxRows     int            `json:"maxRows"`
	CurrentTurn string         `json:"currentTurn"`
}

type GameOverPayload struct {
	WinnerID   string `json:"winnerId"`
	WinnerName string `json:"winnerName"`
	SecretWord string `json:"secretWord"`
}

// Error codes carried in lobbyError / gameError payloads.
const (
	errRoomNotFound       = "room_not_found"
	errRoomFull           = "room_full"
	errInvalidCode        = "invalid_code"
	errAlreadyJoined      = "already_joined"
	errAlreadyBound       = "already_in_room"
	errNoFreeCode         = "no_free_code"
	errInvalidSession     = "invalid_session"
	errNotYourTurn        = "not_your_turn"
	errInvalidWordLength  = "invalid_word_length"
	errGameFinished       = "game_finished"
	errRematchUnavailable = "rematch_unavailable"
	errUnknownCommand     = "unknown_command"
	errInternal           = "internal"
)

// texts is the user-facing copy for one language.
type texts struct {
	yourTurn         string
	opponentTurn     string
	roomCreated      string // %s = room code
	playerName       string // %d = 1-based seat
	rematchRequested string
	opponentLeft     string
	reasons          map[string]string
}

var catalogue = map[words.Language]texts{
	words.Italian: {
		yourTurn:         "Tocca a te!",
		opponentTurn:     "Tocca all'avversario.",
		roomCreated:      "Stanza creata! Codice: %s. In attesa del secondo giocatore...",
		playerName:       "Giocatore %d",
		rematchRequested: "L'avversario ha richiesto una rivincita!",
		opponentLeft:     "L'avversario si è disconnesso. La partita è terminata.",
		reasons: map[string]string{
			errRoomNotFound:       "Stanza non trovata.",
			errRoomFull:           "Stanza piena.",
			errInvalidCode:        "Codice stanza non valido.",
			errAlreadyJoined:      "Sei già in questa stanza.",
			errAlreadyBound:       "Sei già in una stanza.",
			errNoFreeCode:         "Impossibile creare la stanza, riprova.",
			errInvalidSession:     "Partita non valida.",
			errNotYourTurn:        "Non è il tuo turno!",
			errInvalidWordLength:  fmt.Sprintf("La parola deve essere di %d lettere.", game.WordLength),
			errGameFinished:       "La partita è terminata.",
			errRematchUnavailable: "La rivincita è disponibile solo a fine partita.",
			errUnknownCommand:     "Comando sconosciuto.",
			errInternal:           "Errore interno.",
		},
	},
	words.English: {
		yourTurn:         "Your turn!",
		opponentTurn:     "Opponent's turn.",
		roomCreated:      "Room created! Code: %s. Waiting for the second player...",
		playerName:       "Player %d",
		rematchRequested: "Your opponent asked for a rematch!",
		opponentLeft:     "Your opponent disconnected. The game is over.",
		reasons: map[string]string{
			errRoomNotFound:       "Room not found.",
			errRoomFull:           "Room is full.",
			errInvalidCode:        "Invalid room code.",
			errAlreadyJoined:      "You are already in this room.",
			errAlreadyBound:       "You are already in a room.",
			errNoFreeCode:         "Could not create a room, try again.",
			errInvalidSession:     "Invalid game.",
			errNotYourTurn:        "It's not your turn!",
			errInvalidWordLength:  fmt.Sprintf("The word must be %d letters long.", game.WordLength),
			errGameFinished:       "The game is over.",
			errRematchUnavailable: "A rematch is only available once the game ends.",
			errUnknownCommand:     "Unknown command.",
			errInternal:           "Internal error.",
		},
	},
}

func textsFor(lang words.Language) texts {
	if t, ok := catalogue[lang]; ok {
		return t
	}
	return catalogue[words.Italian]
}

// errorCode classifies err for the client.
func errorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrRoomNotFound), errors.Is(err, game.ErrSessionClosed):
		return errRoomNotFound
	case errors.Is(err, game.ErrRoomFull):
		return errRoomFull
	case errors.Is(err, store.ErrInvalidCode):
		return errInvalidCode
	case errors.Is(err, game.ErrAlreadyJoined):
		return errAlreadyJoined
	case errors.Is(err, store.ErrCodeSpaceExhausted):
		return errNoFreeCode
	case errors.Is(err, game.ErrInvalidSession), errors.Is(err, game.ErrNotParticipant):
		return errInvalidSession
	case errors.Is(err, game.ErrNotYourTurn):
		return errNotYourTurn
	case errors.Is(err, game.ErrInvalidWordLength):
		return errInvalidWordLength
	case errors.Is(err, game.ErrGameFinished):
		return errGameFinished
	case errors.Is(err, game.ErrRematchUnavailable):
		return errRematchUnavailable
	}
	return errInternal
}

func errorMessage(typ, code string, lang words.Language) Message {
	return Message{Type: typ, Payload: ErrorPayload{Code: code, Reason: textsFor(lang).reasons[code]}}
}

func turnMessage(isTurn bool, lang words.Language) Message {
	t := textsFor(lang)
	msg := t.opponentTurn
	if isTurn {
		msg = t.yourTurn
	}
	return Message{Type: MsgUpdateTurnStatus, Payload: TurnStatusPayload{IsTurn: isTurn, Message: msg}}
}

func gameStateMessage(s *game.Session) Message {
	grid := s.Grid()
	if grid == nil {
		grid = []game.Attempt{}
	}
	return Message{Type: MsgUpdateGameState, Payload: GameStatePayload{
		Grid:        grid,
		CurrentRow:  s.CurrentRow(),
		MaxRows:     s.MaxRows(),
		CurrentTurn: s.CurrentTurn(),
	}}
}
