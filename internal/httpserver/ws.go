// internal/httpserver/ws.go
//
// WebSocket transport: one client per socket.
//
// Each client owns a buffered outbound queue drained by writePump, so the
// coordinator can enqueue while holding a room lock without ever waiting on
// the network. readPump decodes commands and hands them to the coordinator
// one at a time; when it exits the player is disconnected from their room.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordduel/internal/auth"
	"github.com/robalobadob/wordduel/internal/coordinator"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendQueue      = 64
)

// client is a connected player.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	done chan struct{}
	once sync.Once
}

func newClient(id string) *client {
	return &client{
		id:   id,
		send: make(chan []byte, sendQueue),
		done: make(chan struct{}),
	}
}

// PlayerID implements coordinator.Conn.
func (c *client) PlayerID() string { return c.id }

// Send implements coordinator.Conn. A client whose queue is full is too
// slow to keep up and is dropped.
func (c *client) Send(m coordinator.Message) {
	b, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("type", m.Type).Msg("encode message")
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- b:
	default:
		log.Warn().Str("player", c.id).Msg("send queue full, dropping client")
		c.close()
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) readPump(ctx context.Context, coord *coordinator.Coordinator) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("player", c.id).Msg("read")
			}
			return
		}
		var cmd coordinator.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			// reported back as an unknown command
			cmd = coordinator.Command{}
		}
		coord.Handle(ctx, c, cmd)
	}
}

// handleWS authenticates the caller, registers the client, and runs its
// pumps until the socket closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var (
		sess  auth.Session
		fresh bool
	)
	if tok := auth.TokenFromRequest(r); tok != "" {
		id, err := s.deps.Issuer.Verify(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		sess.PlayerID = id
	} else {
		var err error
		sess, err = s.deps.Issuer.NewSession()
		if err != nil {
			log.Error().Err(err).Msg("issue session")
			writeError(w, http.StatusInternalServerError, "sign_failed")
			return
		}
		fresh = true
	}

	c := newClient(sess.PlayerID)
	if err := s.deps.Coordinator.Connect(c); err != nil {
		if errors.Is(err, coordinator.ErrAlreadyConnected) {
			writeError(w, http.StatusConflict, "already_connected")
			return
		}
		writeError(w, http.StatusInternalServerError, "connect_failed")
		return
	}
	ctx := context.WithoutCancel(r.Context())
	defer s.deps.Coordinator.Disconnect(ctx, c.id)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c.conn = conn
	defer c.close()

	log.Info().Str("player", c.id).Str("remote", r.RemoteAddr).Msg("connected")
	if fresh {
		c.Send(coordinator.Message{Type: coordinator.MsgSession, Payload: sess})
	}
	go c.writePump()
	c.readPump(ctx, s.deps.Coordinator)
	log.Info().Str("player", c.id).Msg("disconnected")
}
