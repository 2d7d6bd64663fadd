// apps/go-server/internal/game/types.go
//
// Core type definitions for the chosung relay session.
// Defines:
//   - State:  coarse lifecycle of a room's game.
//   - Player: a participant and their running score.
//   - Config: timing/scoring knobs for a session.
//   - Reason/Result: discriminated answers to player actions.
//   - Lookup/Validator: the dictionary collaborator contract.

package game

import (
	"context"
	"time"
)

// State is the lifecycle state of a session.
type State string

const (
	StateIdle          State = "idle"
	StateRoundActive   State = "round_active"
	StateRoundSettling State = "round_settling"
	StateGameOver      State = "game_over"
)

// Player is one participant of a room. Order in the session defines turn rotation.
type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	IsHost   bool   `json:"isHost"`
}

// Config holds the rules of a session.
type Config struct {
	MaxRounds   int
	BaseTime    time.Duration
	TimeStep    time.Duration
	MinTime     time.Duration
	Penalty     int
	SettleDelay time.Duration
	MaxPlayers  int
	// ResetUsedWordsEachRound clears the used-word set at every round start
	// instead of only when a new game starts.
	ResetUsedWordsEachRound bool
}

// DefaultConfig mirrors the rules the game has always shipped with.
func DefaultConfig() Config {
	return Config{
		MaxRounds:   5,
		BaseTime:    10 * time.Second,
		TimeStep:    200 * time.Millisecond,
		MinTime:     time.Second,
		Penalty:     100,
		SettleDelay: 1500 * time.Millisecond,
		MaxPlayers:  8,
	}
}

// Reason is the machine-readable outcome code sent back to clients.
type Reason string

const (
	ReasonCorrect         Reason = "correct"
	ReasonNotYourTurn     Reason = "not_your_turn"
	ReasonEmpty           Reason = "empty"
	ReasonAlreadyUsed     Reason = "already_used"
	ReasonChosungMismatch Reason = "chosung_mismatch"
	ReasonNotInDict       Reason = "not_in_dict"
	ReasonDictError       Reason = "dict_error"
	ReasonNoRound         Reason = "no_round"
	ReasonNotHost         Reason = "not_host"
	ReasonNoRoom          Reason = "no_room"
	ReasonNoNickname      Reason = "no_nickname"
	ReasonFull            Reason = "full"
)

// FailReason explains why a round ended.
type FailReason string

const (
	FailTimeout FailReason = "timeout"
	FailWrong   FailReason = "wrong"
)

// Result answers a single player action.
type Result struct {
	OK         bool   `json:"ok"`
	Reason     Reason `json:"reason,omitempty"`
	Gain       int    `json:"gain"`
	Score      int    `json:"score"`
	Definition string `json:"definition,omitempty"`
}

func reject(r Reason) Result { return Result{OK: false, Reason: r} }

// Lookup is what the dictionary knows about a word.
type Lookup struct {
	Exists     bool
	Definition string
}

// Validator checks a word against a dictionary. A non-nil error means the
// dictionary could not answer; it is never treated as acceptance.
type Validator interface {
	Lookup(ctx context.Context, word string) (Lookup, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, word string) (Lookup, error)

func (f ValidatorFunc) Lookup(ctx context.Context, word string) (Lookup, error) {
	return f(ctx, word)
}

// Snapshot is a read-only copy of a session's public state.
type Snapshot struct {
	Code            string   `json:"code"`
	State           State    `json:"state"`
	Round           int      `json:"round"`
	MaxRounds       int      `json:"maxRounds"`
	Chosung         string   `json:"chosung,omitempty"`
	HostID          string   `json:"hostId,omitempty"`
	CurrentPlayerID string   `json:"currentPlayerId,omitempty"`
	TimeLimit       float64  `json:"timeLimit,omitempty"`
	Players         []Player `json:"players"`
	UsedWords       int      `json:"usedWords"`
}
