// Package coordinator binds client connections to rooms.
//
// It resolves the room a command targets, authenticates the sender as a
// participant, applies the command to the room's game.Session while holding
// that session's lock, and fans the outcome out to every participant.
// Messages for a room are enqueued while its lock is held, so all players
// observe them in the order the commands were applied.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/events"
	"github.com/robalobadob/wordduel/internal/game"
	"github.com/robalobadob/wordduel/internal/history"
	"github.com/robalobadob/wordduel/internal/store"
	"github.com/robalobadob/wordduel/internal/words"
)

// ErrAlreadyConnected is returned by Connect for a player id that already
// has a live connection.
var ErrAlreadyConnected = errors.New("coordinator: player already connected")

// Conn is the transport side of one connected player.
type Conn interface {
	PlayerID() string
	// Send enqueues m for delivery. It must not block.
	Send(m Message)
}

// binding is a connection and the room it joined. The room code is set at
// most once for the lifetime of the connection.
type binding struct {
	conn Conn
	code string
	lang words.Language
}

// Coordinator routes commands to sessions.
type Coordinator struct {
	rooms   store.Registry
	events  events.Publisher
	archive history.Recorder
	lang    words.Language

	mu    sync.RWMutex        // guards conns and binding fields
	conns map[string]*binding // keyed by player id
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEvents publishes room lifecycle events to p.
func WithEvents(p events.Publisher) Option { return func(c *Coordinator) { c.events = p } }

// WithArchive records finished games in r.
func WithArchive(r history.Recorder) Option { return func(c *Coordinator) { c.archive = r } }

// New returns a Coordinator over rooms. lang is used for rooms created
// without a valid language and for errors sent before a room is joined.
func New(rooms store.Registry, lang words.Language, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:   rooms,
		events:  events.Nop{},
		archive: history.Nop{},
		lang:    lang,
		conns:   make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect registers conn.
func (c *Coordinator) Connect(conn Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conns[conn.PlayerID()]; ok {
		return ErrAlreadyConnected
	}
	c.conns[conn.PlayerID()] = &binding{conn: conn, lang: c.lang}
	return nil
}

// Connections returns the number of registered connections.
func (c *Coordinator) Connections() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

// Handle applies one command from conn.
func (c *Coordinator) Handle(ctx context.Context, conn Conn, cmd Command) {
	id := conn.PlayerID()
	code, lang, ok := c.bound(id)
	if !ok {
		log.Warn().Str("player", id).Str("cmd", cmd.Type).Msg("command from unregistered connection")
		return
	}

	switch cmd.Type {
	case CmdCreateRoom:
		if code != "" {
			conn.Send(errorMessage(MsgLobbyError, errAlreadyBound, lang))
			return
		}
		c.createRoom(ctx, conn, cmd.Language)
	case CmdJoinRoom:
		if code != "" {
			conn.Send(errorMessage(MsgLobbyError, errAlreadyBound, lang))
			return
		}
		c.joinRoom(ctx, conn, cmd.Code)
	case CmdSubmitWord:
		c.submitWord(ctx, conn, code, lang, cmd.Word)
	case CmdRequestRematch:
		c.requestRematch(ctx, conn, code, lang)
	default:
		conn.Send(errorMessage(MsgGameError, errUnknownCommand, lang))
	}
}

// Disconnect unregisters the player and tears down their room.
// With no players left the room is dropped silently; otherwise the
// remaining player is told and the room is destroyed anyway.
func (c *Coordinator) Disconnect(ctx context.Context, playerID string) {
	c.mu.Lock()
	var code string
	if b, ok := c.conns[playerID]; ok {
		code = b.code
		delete(c.conns, playerID)
	}
	c.mu.Unlock()
	if code == "" {
		return
	}

	err := c.rooms.WithRoom(code, func(s *game.Session) error {
		rest := s.Leave(playerID)
		for _, p := range rest {
			c.send(p, Message{Type: MsgOpponentDisconnected, Payload: TextPayload{Message: textsFor(s.Language()).opponentLeft}})
		}
		c.rooms.Destroy(s.Code())
		c.events.Publish(ctx, events.Event{Kind: events.RoomClosed, Room: s.Code(), Player: playerID})
		log.Info().Str("room", s.Code()).Str("player", playerID).Int("remaining", len(rest)).Msg("room closed")
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrRoomNotFound) {
		log.Warn().Err(err).Str("room", code).Msg("disconnect")
	}
}

func (c *Coordinator) createRoom(ctx context.Context, conn Conn, language string) {
	id := conn.PlayerID()
	lang, ok := words.ParseLanguage(language)
	if !ok {
		lang = c.lang
	}
	_, err := c.rooms.Create(id, lang, func(s *game.Session) {
		c.bind(id, s.Code(), lang)
		conn.Send(Message{Type: MsgRoomCreated, Payload: CodePayload{Code: s.Code()}})
		conn.Send(Message{Type: MsgLobbyMessage, Payload: TextPayload{Message: fmt.Sprintf(textsFor(lang).roomCreated, s.Code())}})
		c.events.Publish(ctx, events.Event{Kind: events.RoomCreated, Room: s.Code(), Player: id, Language: string(lang)})
		log.Info().Str("room", s.Code()).Str("player", id).Str("lang", string(lang)).Msg("room created")
		log.Debug().Str("room", s.Code()).Str("secret", s.Secret()).Msg("secret chosen")
	})
	if err != nil {
		log.Error().Err(err).Str("player", id).Msg("create room")
		conn.Send(errorMessage(MsgLobbyError, errorCode(err), lang))
	}
}

func (c *Coordinator) joinRoom(ctx context.Context, conn Conn, code string) {
	id := conn.PlayerID()
	err := c.rooms.Join(code, id, func(s *game.Session) {
		lang := s.Language()
		c.bind(id, s.Code(), lang)
		players := s.Players()
		c.broadcast(s, Message{Type: MsgStartGame, Payload: StartGamePayload{Code: s.Code(), Players: players}})
		c.sendTurns(s)
		c.events.Publish(ctx, events.Event{Kind: events.RoomJoined, Room: s.Code(), Player: id, Language: string(lang)})
		log.Info().Str("room", s.Code()).Str("player", id).Msg("room joined")
	})
	if err != nil {
		log.Debug().Err(err).Str("room", code).Str("player", id).Msg("join rejected")
		conn.Send(errorMessage(MsgLobbyError, errorCode(err), c.lang))
	}
}

func (c *Coordinator) submitWord(ctx context.Context, conn Conn, code string, lang words.Language, word string) {
	if code == "" {
		conn.Send(errorMessage(MsgGameError, errInvalidSession, lang))
		return
	}
	id := conn.PlayerID()
	err := c.rooms.WithRoom(code, func(s *game.Session) error {
		res, err := s.SubmitGuess(id, word)
		if err != nil {
			return err
		}
		c.broadcast(s, gameStateMessage(s))
		c.events.Publish(ctx, events.Event{Kind: events.GuessSubmitted, Room: s.Code(), Player: id, Word: res.Attempt.Word, Row: s.CurrentRow()})

		if !res.Won {
			c.sendTurns(s)
			return nil
		}

		seat := s.PlayerIndex(id) + 1
		c.broadcast(s, Message{Type: MsgGameOver, Payload: GameOverPayload{
			WinnerID:   id,
			WinnerName: fmt.Sprintf(textsFor(s.Language()).playerName, seat),
			SecretWord: s.Secret(),
		}})
		loser, _ := s.Opponent(id)
		c.archive.Record(history.Match{
			RoomCode:   s.Code(),
			Language:   string(s.Language()),
			Secret:     s.Secret(),
			WinnerID:   id,
			LoserID:    loser,
			Attempts:   s.CurrentRow(),
			GameNumber: s.GamesPlayed(),
			FinishedAt: time.Now().UTC(),
		})
		c.events.Publish(ctx, events.Event{Kind: events.GameWon, Room: s.Code(), Player: id, Row: s.CurrentRow(), Secret: s.Secret()})
		log.Info().Str("room", s.Code()).Str("winner", id).Int("attempts", s.CurrentRow()).Msg("game won")
		return nil
	})
	if err != nil {
		conn.Send(errorMessage(MsgGameError, gameErrorCode(err), lang))
	}
}

func (c *Coordinator) requestRematch(ctx context.Context, conn Conn, code string, lang words.Language) {
	if code == "" {
		conn.Send(errorMessage(MsgGameError, errInvalidSession, lang))
		return
	}
	id := conn.PlayerID()
	err := c.rooms.WithRoom(code, func(s *game.Session) error {
		res, err := s.RequestRematch(id)
		if err != nil {
			return err
		}
		if !res.Restarted {
			if opp, ok := s.Opponent(id); ok {
				c.send(opp, Message{Type: MsgRematchRequested, Payload: TextPayload{Message: textsFor(s.Language()).rematchRequested}})
			}
			return nil
		}
		c.broadcast(s, Message{Type: MsgRematchStart, Payload: CodePayload{Code: s.Code()}})
		c.sendTurns(s)
		c.events.Publish(ctx, events.Event{Kind: events.RematchStarted, Room: s.Code(), Player: id})
		log.Info().Str("room", s.Code()).Int("game", s.GamesPlayed()).Msg("rematch started")
		log.Debug().Str("room", s.Code()).Str("secret", s.Secret()).Msg("secret chosen")
		return nil
	})
	if err != nil {
		conn.Send(errorMessage(MsgGameError, gameErrorCode(err), lang))
	}
}

// gameErrorCode maps a vanished room to the generic session-invalid error.
func gameErrorCode(err error) string {
	if errors.Is(err, store.ErrRoomNotFound) {
		return errInvalidSession
	}
	return errorCode(err)
}

// sendTurns tells each player whether they hold the turn.
func (c *Coordinator) sendTurns(s *game.Session) {
	turn := s.CurrentTurn()
	for _, p := range s.Players() {
		c.send(p, turnMessage(p == turn, s.Language()))
	}
}

// broadcast must be called with s locked.
func (c *Coordinator) broadcast(s *game.Session, m Message) {
	for _, p := range s.Players() {
		c.send(p, m)
	}
}

func (c *Coordinator) send(playerID string, m Message) {
	c.mu.RLock()
	b, ok := c.conns[playerID]
	c.mu.RUnlock()
	if ok {
		b.conn.Send(m)
	}
}

func (c *Coordinator) bound(playerID string) (code string, lang words.Language, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.conns[playerID]
	if !ok {
		return "", "", false
	}
	return b.code, b.lang, true
}

func (c *Coordinator) bind(playerID, code string, lang words.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.conns[playerID]; ok && b.code == "" {
		b.code = code
		b.lang = lang
	}
}
