// apps/go-server/internal/store/registry.go
//
// In-memory room registry: maps short room codes to live game sessions.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (lookups shared, create/join/leave exclusive).
//   - Sessions are built by a caller-supplied factory so the registry never knows
//     about emitters, validators or clocks.
//   - A player belongs to at most one room; joining another room leaves the first.
//   - Empty rooms are closed and forgotten; state is lost when the process restarts.
//
// Lock order is registry → session. Sessions never call back into the registry.

package store

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

// ErrRoomNotFound is returned for codes without a live session.
var ErrRoomNotFound = errors.New("room not found")

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 4
)

// SessionFactory builds a fresh session for a newly allocated code.
type SessionFactory func(code string) *game.Session

// Summary describes a live room for listings.
type Summary struct {
	Code    string     `json:"code"`
	State   game.State `json:"state"`
	Round   int        `json:"round"`
	Players int        `json:"players"`
}

// Registry owns every live session.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*game.Session // keyed by room code
	byPlayer map[string]string        // player id → room code
	factory  SessionFactory
	genCode  func() string
}

// NewRegistry constructs an empty registry.
func NewRegistry(factory SessionFactory) *Registry {
	return &Registry{
		rooms:    make(map[string]*game.Session),
		byPlayer: make(map[string]string),
		factory:  factory,
		genCode:  randomCode,
	}
}

// NormalizeCode uppercases and trims a human-typed code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create allocates a new room with playerID as host.
func (r *Registry) Create(playerID, nickname string) (string, []game.Player, error) {
	return r.CreateWith(playerID, nickname, nil)
}

// CreateWith is Create with a hook that sees the allocated code before the
// host joins, so a subscriber can receive the first room_update.
func (r *Registry) CreateWith(playerID, nickname string, allocated func(code string)) (string, []game.Player, error) {
	if strings.TrimSpace(nickname) == "" {
		return "", nil, game.ErrNoNickname
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(playerID)

	code := r.genCode()
	for r.rooms[code] != nil {
		code = r.genCode()
	}
	s := r.factory(code)
	if allocated != nil {
		allocated(code)
	}
	players, err := s.Join(playerID, nickname)
	if err != nil {
		s.Close()
		return "", nil, err
	}
	r.rooms[code] = s
	r.byPlayer[playerID] = code
	return code, players, nil
}

// Join adds playerID to an existing room.
func (r *Registry) Join(code, playerID, nickname string) ([]game.Player, error) {
	code = NormalizeCode(code)
	if strings.TrimSpace(nickname) == "" {
		return nil, game.ErrNoNickname
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.byPlayer[playerID] == code {
		return nil, game.ErrDuplicatePlayer
	}
	// A rejected join must leave the player where they were.
	if err := s.CanJoin(playerID); err != nil {
		return nil, err
	}
	r.leaveLocked(playerID)
	// Leaving may have emptied and removed the target room.
	if _, ok := r.rooms[code]; !ok {
		return nil, ErrRoomNotFound
	}
	players, err := s.Join(playerID, nickname)
	if err != nil {
		return nil, err
	}
	r.byPlayer[playerID] = code
	return players, nil
}

// Get returns the session for code.
func (r *Registry) Get(code string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.rooms[NormalizeCode(code)]; ok {
		return s, nil
	}
	return nil, ErrRoomNotFound
}

// RoomOf returns the code of the room playerID is in.
func (r *Registry) RoomOf(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.byPlayer[playerID]
	return code, ok
}

// SessionOf returns the session playerID is in.
func (r *Registry) SessionOf(playerID string) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.rooms[r.byPlayer[playerID]]; ok {
		return s, nil
	}
	return nil, ErrRoomNotFound
}

// Leave removes playerID from its room and destroys the room when it empties.
// It returns the code that was left, if any.
func (r *Registry) Leave(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(playerID)
}

func (r *Registry) leaveLocked(playerID string) (string, bool) {
	code, ok := r.byPlayer[playerID]
	if !ok {
		return "", false
	}
	delete(r.byPlayer, playerID)
	if s, ok := r.rooms[code]; ok && s.Leave(playerID) {
		delete(r.rooms, code)
	}
	return code, true
}

// Rooms lists live rooms ordered by code.
func (r *Registry) Rooms() []Summary {
	r.mu.RLock()
	sessions := make([]*game.Session, 0, len(r.rooms))
	for _, s := range r.rooms {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		snap := s.Snapshot()
		out = append(out, Summary{Code: snap.Code, State: snap.State, Round: snap.Round, Players: len(snap.Players)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close stops every session and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, s := range r.rooms {
		s.Close()
		delete(r.rooms, code)
	}
	r.byPlayer = make(map[string]string)
}

// randomCode returns a 4-character code from an alphabet without 0/O/1/I.
func randomCode() string {
	var b strings.Builder
	size := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, _ := rand.Int(rand.Reader, size)
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String()
}
