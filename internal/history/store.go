// internal/history/store.go
//
// Archive of finished games.
//
// Rooms live in memory only; when a game is won the coordinator hands a
// Match to Record, which queues it for a background writer so no room ever
// waits on disk I/O. Recent backs the GET /matches route.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
	MaxLimit     = 100
	DefaultLimit = 20

	// fixed-width so that finished_at sorts lexically
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Match is one won game.
type Match struct {
	ID         int64     `json:"id"`
	RoomCode   string    `json:"roomCode"`
	Language   string    `json:"language"`
	Secret     string    `json:"secret"`
	WinnerID   string    `json:"winnerId"`
	LoserID    string    `json:"loserId,omitempty"`
	Attempts   int       `json:"attempts"`
	GameNumber int       `json:"gameNumber"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Recorder accepts finished games.
type Recorder interface {
	Record(m Match)
}

// Nop drops every match.
type Nop struct{}

func (Nop) Record(Match) {}

// Archive is a SQLite-backed Recorder.
type Archive struct {
	db    *sql.DB
	queue chan Match
	done  chan struct{}

	mu     sync.Mutex // guards closed
	closed bool
}

// Open opens dsn, applies migrations and starts the background writer.
func Open(dsn string) (*Archive, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	a := &Archive{
		db:    db,
		queue: make(chan Match, queueSize),
		done:  make(chan struct{}),
	}
	go a.run()
	return a, nil
}

// Record queues m without blocking. A full queue drops the match.
func (a *Archive) Record(m Match) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- m:
	default:
		log.Warn().Str("room", m.RoomCode).Msg("archive queue full, dropping match")
	}
}

func (a *Archive) run() {
	defer close(a.done)
	for m := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := a.Insert(ctx, m); err != nil {
			log.Error().Err(err).Str("room", m.RoomCode).Msg("archive match")
		}
		cancel()
	}
}

// Insert writes m synchronously.
func (a *Archive) Insert(ctx context.Context, m Match) error {
	if m.FinishedAt.IsZero() {
		m.FinishedAt = time.Now().UTC()
	}
	if m.GameNumber == 0 {
		m.GameNumber = 1
	}
	_, err := a.db.ExecContext(ctx, `
        INSERT INTO matches
            (room_code, language, secret, winner_id, loser_id, attempts, game_number, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RoomCode, m.Language, m.Secret, m.WinnerID, m.LoserID, m.Attempts, m.GameNumber,
		m.FinishedAt.UTC().Format(timeLayout),
	)
	return err
}

// Recent returns up to limit matches, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rows, err := a.db.QueryContext(ctx, `
        SELECT id, room_code, language, secret, winner_id, loser_id, attempts, game_number, finished_at
        FROM matches
        ORDER BY finished_at DESC, id DESC
        LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Match, 0, limit)
	for rows.Next() {
		var (
			m        Match
			finished string
		)
		if err := rows.Scan(&m.ID, &m.RoomCode, &m.Language, &m.Secret, &m.WinnerID, &m.LoserID,
			&m.Attempts, &m.GameNumber, &finished); err != nil {
			return nil, err
		}
		m.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close drains queued matches and closes the database.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.db.Close()
}
