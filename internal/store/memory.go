// internal/store/memory.go
//
// In-memory room registry: code → *game.Session.
//
// Characteristics:
//   - Codes are 4 uppercase alphanumerics drawn from crypto/rand; collisions
//     with active rooms are retried under the registry write lock, so two
//     concurrent creates can never produce the same code.
//   - The registry lock only guards the map. Each session carries its own
//     lock; commands for unrelated rooms never contend.
//   - Lock order is session → registry (Destroy is called while a session is
//     held). Create is the one place taking the registry lock first, and the
//     session it locks is brand new.
//   - State is lost when the process restarts.

package store

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/robalobadob/wordduel/internal/game"
	"github.com/robalobadob/wordduel/internal/words"
)

const (
	CodeLength   = 4
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeDraws = 64
)

var (
	ErrRoomNotFound       = errors.New("store: room not found")
	ErrInvalidCode        = errors.New("store: malformed room code")
	ErrCodeSpaceExhausted = errors.New("store: no free room code")
)

// Registry defines the room table operations used by the coordinator.
// Callbacks run with the room's session locked.
type Registry interface {
	// Create opens a new room for creator and returns its session.
	Create(creator string, lang words.Language, fn func(*game.Session)) (*game.Session, error)

	// Join seats joiner in the room identified by code.
	Join(code, joiner string, fn func(*game.Session)) error

	// WithRoom runs fn against a live room.
	WithRoom(code string, fn func(*game.Session) error) error

	// Destroy removes the room. Unknown codes are ignored.
	Destroy(code string)

	// Len reports the number of active rooms.
	Len() int
}

// Memory is a map-based Registry implementation.
type Memory struct {
	mu     sync.RWMutex             // guards rooms
	rooms  map[string]*game.Session // keyed by room code
	picker game.Picker
	code   func() (string, error)
}

// NewMemoryStore constructs an empty registry whose sessions draw secrets
// from picker.
func NewMemoryStore(picker game.Picker) *Memory {
	return &Memory{
		rooms:  make(map[string]*game.Session),
		picker: picker,
		code:   randomCode,
	}
}

// Create draws a fresh code, registers a session seated with creator, and
// runs fn (if non-nil) before any other command can reach the room.
func (m *Memory) Create(creator string, lang words.Language, fn func(*game.Session)) (*game.Session, error) {
	m.mu.Lock()
	code, err := m.freeCode()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	s, err := game.NewSession(code, lang, creator, m.picker)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	s.Lock()
	m.rooms[code] = s
	m.mu.Unlock()

	defer s.Unlock()
	if fn != nil {
		fn(s)
	}
	return s, nil
}

// Join looks up code and seats joiner; fn runs after a successful join with
// the session still locked.
func (m *Memory) Join(code, joiner string, fn func(*game.Session)) error {
	return m.WithRoom(code, func(s *game.Session) error {
		if err := s.Join(joiner); err != nil {
			return err
		}
		if fn != nil {
			fn(s)
		}
		return nil
	})
}

// WithRoom locks the session for code and runs fn. A room torn down while
// the caller waited for its lock is reported as not found.
func (m *Memory) WithRoom(code string, fn func(*game.Session) error) error {
	s, err := m.Get(code)
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	if s.State() == game.StateTerminated {
		return ErrRoomNotFound
	}
	return fn(s)
}

// Get returns the session for code without locking it.
func (m *Memory) Get(code string) (*game.Session, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.rooms[code]; ok {
		return s, nil
	}
	return nil, ErrRoomNotFound
}

// Destroy removes code from the table; it is idempotent.
func (m *Memory) Destroy(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
}

// Len returns the number of active rooms.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// freeCode must be called with m.mu held for writing.
func (m *Memory) freeCode() (string, error) {
	for i := 0; i < maxCodeDraws; i++ {
		code, err := m.code()
		if err != nil {
			return "", err
		}
		if _, taken := m.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// NormalizeCode trims and upper-cases a client-supplied code and checks
// its format.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return "", ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

// randomCode returns CodeLength characters from codeAlphabet.
func randomCode() (string, error) {
	b := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
