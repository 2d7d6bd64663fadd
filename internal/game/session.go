// apps/go-server/internal/game/session.go
//
// Round/turn state machine for a single room.
// Responsibilities:
//   - Player roster, host succession and score ledger.
//   - Round generation (prompt), turn rotation and per-turn time limits.
//   - The single outstanding timer (turn timeout or round settling delay).
//   - Answer evaluation: turn ownership, used words, chosung match, dictionary.
//
// Notes:
//   - Every mutation happens under mu. Timer callbacks and dictionary results
//     carry the generation/turn token they were issued for and are dropped when
//     the session has moved on.
//   - The dictionary lookup runs without holding mu so snapshots and other
//     players' actions are never blocked on the network.

package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/chosung/apps/go-server/internal/words"
)

// Options carries a session's collaborators. Zero values fall back to
// no-op emission, the real clock and random prompts.
type Options struct {
	Emitter   Emitter
	Validator Validator
	Clock     Clock
	Prompt    func() string
}

// Session owns one room's game.
type Session struct {
	code      string
	cfg       Config
	emitter   Emitter
	validator Validator
	clock     Clock
	prompt    func() string

	mu             sync.Mutex
	state          State
	players        []*Player
	hostID         string
	round          int
	chosung        string
	current        int
	turnsThisRound int
	timeLimit      time.Duration
	turnStartedAt  time.Time
	used           map[string]struct{}
	nextStarter    int
	closed         bool

	// timer is the only scheduled callback; timerGen identifies it.
	timer    Timer
	timerGen uint64
	// turn changes whenever the eligible submitter or round changes.
	turn uint64
}

// NewSession constructs an idle session for room code.
func NewSession(code string, cfg Config, opts Options) *Session {
	s := &Session{
		code:      code,
		cfg:       cfg,
		emitter:   opts.Emitter,
		validator: opts.Validator,
		clock:     opts.Clock,
		prompt:    opts.Prompt,
		state:     StateIdle,
		used:      make(map[string]struct{}),
	}
	if s.emitter == nil {
		s.emitter = EmitterFunc(func(string, Event) {})
	}
	if s.clock == nil {
		s.clock = RealClock()
	}
	if s.prompt == nil {
		s.prompt = words.RandomPrompt
	}
	return s
}

// Code returns the room code.
func (s *Session) Code() string { return s.code }

// CanJoin reports whether Join(id, ...) would be admitted right now.
func (s *Session) CanJoin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admitLocked(id)
}

// Join appends a player. The first player becomes host.
func (s *Session) Join(id, nickname string) ([]Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, ErrNoNickname
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.admitLocked(id); err != nil {
		return nil, err
	}
	p := &Player{ID: id, Nickname: nickname}
	if len(s.players) == 0 {
		p.IsHost = true
		s.hostID = id
	}
	s.players = append(s.players, p)
	log.Info().Str("room", s.code).Str("player", id).Str("nickname", nickname).Msg("player joined")
	s.broadcastPlayersLocked()
	return s.playersLocked(), nil
}

// StartGame resets scores and used words and begins round 1. Only the host
// may start; a running game is restarted.
func (s *Session) StartGame(by string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.players) == 0 {
		return reject(ReasonNoRoom)
	}
	if by != s.hostID {
		return reject(ReasonNotHost)
	}
	s.cancelTimerLocked()
	for _, p := range s.players {
		p.Score = 0
	}
	s.used = make(map[string]struct{})
	s.round = 0
	s.current = 0
	s.turnsThisRound = 0
	s.turn++
	log.Info().Str("room", s.code).Str("by", by).Msg("game started")
	s.broadcastPlayersLocked()
	s.beginRoundLocked(s.current)
	return Result{OK: true}
}

// Submit evaluates word on behalf of player by.
func (s *Session) Submit(ctx context.Context, by, word string) Result {
	s.mu.Lock()
	if s.closed || s.state != StateRoundActive {
		s.mu.Unlock()
		return reject(ReasonNoRound)
	}
	p := s.currentLocked()
	if p == nil || p.ID != by {
		s.mu.Unlock()
		return reject(ReasonNotYourTurn)
	}
	trimmed := strings.TrimSpace(word)
	if trimmed == "" {
		s.mu.Unlock()
		return reject(ReasonEmpty)
	}
	if _, ok := s.used[trimmed]; ok {
		defer s.mu.Unlock()
		return s.softRejectLocked(p, trimmed, ReasonAlreadyUsed)
	}
	if !words.Matches(trimmed, s.chosung) {
		defer s.mu.Unlock()
		return s.softRejectLocked(p, trimmed, ReasonChosungMismatch)
	}
	turn := s.turn
	s.mu.Unlock()

	lookup, err := s.lookup(ctx, trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateRoundActive || s.turn != turn {
		log.Debug().Str("room", s.code).Str("player", by).Str("word", trimmed).Msg("discarding stale answer")
		return reject(ReasonNotYourTurn)
	}
	p = s.currentLocked()
	if p == nil || p.ID != by {
		return reject(ReasonNotYourTurn)
	}
	if err != nil {
		log.Warn().Err(err).Str("room", s.code).Str("word", trimmed).Msg("dictionary lookup failed")
		return s.softRejectLocked(p, trimmed, ReasonDictError)
	}
	if !lookup.Exists {
		return s.softRejectLocked(p, trimmed, ReasonNotInDict)
	}
	return s.acceptLocked(p, trimmed, lookup.Definition)
}

func (s *Session) lookup(ctx context.Context, word string) (Lookup, error) {
	if s.validator == nil {
		return Lookup{}, ErrNoValidator
	}
	return s.validator.Lookup(ctx, word)
}

// Leave removes a player. It reports true when the room became empty; the
// session is then closed and must be discarded.
func (s *Session) Leave(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return len(s.players) == 0
	}
	holdsTurn := s.state == StateRoundActive && idx == s.current
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	log.Info().Str("room", s.code).Str("player", id).Msg("player left")

	if len(s.players) == 0 {
		s.closeLocked()
		return true
	}
	if idx < s.current {
		s.current--
	}
	if idx < s.nextStarter {
		s.nextStarter--
	}
	s.current %= len(s.players)
	s.nextStarter %= len(s.players)

	if s.hostID == id {
		s.hostID = s.players[0].ID
		for i, p := range s.players {
			p.IsHost = i == 0
		}
		s.emitLocked(Event{Kind: EventHostChanged, Payload: HostChangedPayload{NewHostID: s.hostID}})
	}
	s.broadcastPlayersLocked()

	if holdsTurn {
		// The slot now belongs to the next player in join order.
		s.startTurnLocked()
	}
	return false
}

// Close stops the session; pending callbacks become no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Snapshot returns a copy of the public state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Code:      s.code,
		State:     s.state,
		Round:     s.round,
		MaxRounds: s.cfg.MaxRounds,
		Chosung:   s.chosung,
		HostID:    s.hostID,
		Players:   s.playersLocked(),
		UsedWords: len(s.used),
	}
	if s.state == StateRoundActive {
		if p := s.currentLocked(); p != nil {
			snap.CurrentPlayerID = p.ID
		}
		snap.TimeLimit = s.timeLimit.Seconds()
	}
	return snap
}

// Players returns a copy of the roster in join order.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playersLocked()
}

// ---------------------------- transitions ----------------------------------

func (s *Session) beginRoundLocked(startIndex int) {
	if len(s.players) == 0 {
		return
	}
	s.round++
	if s.round > s.cfg.MaxRounds {
		s.round = s.cfg.MaxRounds
		s.gameOverLocked()
		return
	}
	s.chosung = s.prompt()
	s.turnsThisRound = 0
	if s.cfg.ResetUsedWordsEachRound {
		s.used = make(map[string]struct{})
	}
	s.current = startIndex % len(s.players)
	s.state = StateRoundActive
	log.Info().Str("room", s.code).Int("round", s.round).Str("chosung", s.chosung).Msg("round started")
	s.startTurnLocked()
}

func (s *Session) startTurnLocked() {
	n := len(s.players)
	if n == 0 {
		return
	}
	s.current %= n
	limit := TimeLimit(s.cfg, s.turnsThisRound, n)
	s.timeLimit = limit
	s.turnStartedAt = s.clock.Now()
	s.turnsThisRound++
	s.turn++
	s.armLocked(limit, s.timeoutLocked)

	s.emitLocked(Event{Kind: EventRoundStarted, Payload: RoundStartedPayload{
		Round:           s.round,
		Chosung:         s.chosung,
		TimeLimit:       limit.Seconds(),
		CurrentPlayerID: s.players[s.current].ID,
	}})
}

func (s *Session) acceptLocked(p *Player, word, definition string) Result {
	s.used[word] = struct{}{}
	elapsed := s.clock.Now().Sub(s.turnStartedAt)
	gain := Gain(s.timeLimit, elapsed)
	p.Score += gain
	s.cancelTimerLocked()

	log.Info().Str("room", s.code).Str("player", p.ID).Str("word", word).Int("gain", gain).Msg("answer accepted")
	s.emitLocked(Event{Kind: EventAnswerAttempt, Payload: AnswerAttemptPayload{
		PlayerID:   p.ID,
		Nickname:   p.Nickname,
		Word:       word,
		OK:         true,
		Reason:     ReasonCorrect,
		Gain:       gain,
		Score:      p.Score,
		Definition: definition,
	}})
	s.broadcastPlayersLocked()

	s.current = (s.current + 1) % len(s.players)
	s.startTurnLocked()
	return Result{OK: true, Reason: ReasonCorrect, Gain: gain, Score: p.Score, Definition: definition}
}

func (s *Session) softRejectLocked(p *Player, word string, reason Reason) Result {
	s.emitLocked(Event{Kind: EventAnswerAttempt, Payload: AnswerAttemptPayload{
		PlayerID: p.ID,
		Nickname: p.Nickname,
		Word:     word,
		OK:       false,
		Reason:   reason,
	}})
	return reject(reason)
}

func (s *Session) timeoutLocked() {
	if s.state != StateRoundActive || len(s.players) == 0 {
		return
	}
	idx := s.current
	p := s.players[idx]
	p.Score -= s.cfg.Penalty
	if p.Score < 0 {
		p.Score = 0
	}
	log.Info().Str("room", s.code).Str("player", p.ID).Int("penalty", s.cfg.Penalty).Msg("turn timed out")
	s.broadcastPlayersLocked()
	s.endRoundLocked(idx, FailTimeout, s.cfg.Penalty)
}

func (s *Session) endRoundLocked(failed int, reason FailReason, penalty int) {
	s.cancelTimerLocked()
	s.turn++
	s.timeLimit = 0
	s.turnStartedAt = time.Time{}

	outcome := RoundOutcome{Nickname: "unknown", Penalty: penalty, Reason: reason}
	if failed >= 0 && failed < len(s.players) {
		outcome.PlayerID = s.players[failed].ID
		outcome.Nickname = s.players[failed].Nickname
	}
	s.emitLocked(Event{Kind: EventRoundResult, Payload: RoundResultPayload{
		Round:   s.round,
		Players: s.playersLocked(),
		Result:  outcome,
	}})

	if s.round >= s.cfg.MaxRounds {
		s.gameOverLocked()
		return
	}
	s.state = StateRoundSettling
	s.nextStarter = failed
	s.armLocked(s.cfg.SettleDelay, func() {
		if s.state != StateRoundSettling {
			return
		}
		s.beginRoundLocked(s.nextStarter)
	})
}

func (s *Session) gameOverLocked() {
	s.cancelTimerLocked()
	s.state = StateGameOver
	s.chosung = ""
	log.Info().Str("room", s.code).Int("round", s.round).Msg("game over")
	s.emitLocked(Event{Kind: EventGameOver, Payload: GameOverPayload{
		Rounds:  s.round,
		Players: s.playersLocked(),
	}})
}

func (s *Session) closeLocked() {
	s.cancelTimerLocked()
	s.closed = true
	s.state = StateIdle
	s.chosung = ""
	s.turn++
}

// ------------------------------- timer --------------------------------------

// armLocked replaces the outstanding timer. fn runs under mu, and only if no
// other timer was armed or cancelled in the meantime.
func (s *Session) armLocked(d time.Duration, fn func()) {
	s.cancelTimerLocked()
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.timerGen != gen {
			return
		}
		s.timer = nil
		fn()
	})
}

func (s *Session) cancelTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// ------------------------------- helpers ------------------------------------

func (s *Session) currentLocked() *Player {
	if len(s.players) == 0 {
		return nil
	}
	return s.players[s.current%len(s.players)]
}

func (s *Session) admitLocked(id string) error {
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.indexLocked(id) >= 0:
		return ErrDuplicatePlayer
	case s.cfg.MaxPlayers > 0 && len(s.players) >= s.cfg.MaxPlayers:
		return ErrRoomFull
	}
	return nil
}

func (s *Session) indexLocked(id string) int {
	for i, p := range s.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) playersLocked() []Player {
	out := make([]Player, len(s.players))
	for i, p := range s.players {
		out[i] = *p
	}
	return out
}

func (s *Session) broadcastPlayersLocked() {
	s.emitLocked(Event{Kind: EventRoomUpdate, Payload: RoomUpdatePayload{Players: s.playersLocked()}})
}

func (s *Session) emitLocked(ev Event) {
	s.emitter.Emit(s.code, ev)
}
