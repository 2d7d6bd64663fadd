package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

// Recorder persists every game_over event it sees. Writes happen off the
// emitting goroutine since sessions emit while holding their lock.
type Recorder struct {
	store   *Store
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewRecorder(st *Store) *Recorder {
	return &Recorder{store: st, timeout: 5 * time.Second, now: time.Now}
}

// Emit implements game.Emitter.
func (r *Recorder) Emit(room string, ev game.Event) {
	if ev.Kind != game.EventGameOver {
		return
	}
	p, ok := ev.Payload.(game.GameOverPayload)
	if !ok || len(p.Players) == 0 {
		return
	}

	results := make([]PlayerResult, len(p.Players))
	for i, pl := range p.Players {
		results[i] = PlayerResult{PlayerID: pl.ID, Nickname: pl.Nickname, Score: pl.Score}
	}
	rec := GameRecord{
		ID:         uuid.NewString(),
		RoomCode:   room,
		Rounds:     p.Rounds,
		FinishedAt: r.now().UTC(),
		Players:    Rank(results),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.store.RecordGame(ctx, rec); err != nil {
			log.Error().Err(err).Str("room", room).Str("gameId", rec.ID).Msg("record game")
			return
		}
		log.Info().Str("room", room).Str("gameId", rec.ID).Int("players", len(rec.Players)).Msg("game recorded")
	}()
}

// Wait blocks until pending writes finish.
func (r *Recorder) Wait() { r.wg.Wait() }
