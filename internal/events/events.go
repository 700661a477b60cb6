// internal/events/events.go
//
// Room lifecycle event stream.
//
// Events are JSON documents keyed by room code so a consumer sees one room's
// history in order on a single partition. Publishing never blocks a room:
// the Kafka writer runs in async mode and delivery failures are logged.

package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Event kinds.
const (
	RoomCreated    = "room.created"
	RoomJoined     = "room.joined"
	GuessSubmitted = "guess.submitted"
	GameWon        = "game.won"
	RematchStarted = "rematch.started"
	RoomClosed     = "room.closed"
)

// Event is one fact about a room.
type Event struct {
	Kind     string    `json:"kind"`
	Room     string    `json:"room"`
	Player   string    `json:"player,omitempty"`
	Language string    `json:"language,omitempty"`
	Word     string    `json:"word,omitempty"`
	Row      int       `json:"row,omitempty"`
	Secret   string    `json:"secret,omitempty"` // only on game.won
	At       time.Time `json:"at"`
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }

// Kafka publishes to a single topic.
type Kafka struct {
	w *kafka.Writer
}

// New returns a Kafka publisher for brokers/topic, or Nop when no brokers
// are configured.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return &Kafka{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Warn().Err(err).Int("messages", len(msgs)).Msg("publish events")
			}
		},
	}}
}

// Publish enqueues e.
func (k *Kafka) Publish(ctx context.Context, e Event) {
	msg, err := encode(e)
	if err != nil {
		log.Warn().Err(err).Str("kind", e.Kind).Msg("encode event")
		return
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		log.Warn().Err(err).Str("kind", e.Kind).Str("room", e.Room).Msg("enqueue event")
	}
}

// Close flushes pending messages.
func (k *Kafka) Close() error { return k.w.Close() }

// encode turns e into a message keyed by room code.
func encode(e Event) (kafka.Message, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(e.Room), Value: b, Time: e.At}, nil
}
