package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrEmptyGame is returned when a game record carries no players.
var ErrEmptyGame = errors.New("history: game has no players")

// PlayerResult is one row of a finished game's scoreboard.
type PlayerResult struct {
	PlayerID  string `json:"playerId"`
	Nickname  string `json:"nickname"`
	Score     int    `json:"score"`
	Placement int    `json:"placement"`
}

// GameRecord is a finished game as persisted.
type GameRecord struct {
	ID         string         `json:"id"`
	RoomCode   string         `json:"roomCode"`
	Rounds     int            `json:"rounds"`
	FinishedAt time.Time      `json:"finishedAt"`
	Players    []PlayerResult `json:"players"`
}

// LBRow is a leaderboard entry: the best single-game score per nickname.
type LBRow struct {
	Nickname  string `json:"nickname"`
	BestScore int    `json:"bestScore"`
	Games     int    `json:"games"`
	Wins      int    `json:"wins"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Rank orders players by score descending and assigns placements.
// Equal scores share a placement.
func Rank(players []PlayerResult) []PlayerResult {
	out := append([]PlayerResult(nil), players...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Placement = out[i-1].Placement
			continue
		}
		out[i].Placement = i + 1
	}
	return out
}

// RecordGame inserts a game and its scoreboard in one transaction.
func (s *Store) RecordGame(ctx context.Context, g GameRecord) error {
	if len(g.Players) == 0 {
		return ErrEmptyGame
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games(id, room_code, rounds, finished_at) VALUES(?,?,?,?)`,
		g.ID, g.RoomCode, g.Rounds, g.FinishedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	for _, p := range g.Players {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_players(game_id, player_id, nickname, score, placement) VALUES(?,?,?,?,?)`,
			g.ID, p.PlayerID, p.Nickname, p.Score, p.Placement,
		); err != nil {
			return fmt.Errorf("insert player %s: %w", p.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LBRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT nickname, MAX(score), COUNT(1), SUM(CASE WHEN placement = 1 THEN 1 ELSE 0 END)
		 FROM game_players
		 GROUP BY nickname
		 ORDER BY MAX(score) DESC, nickname ASC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.Nickname, &r.BestScore, &r.Games, &r.Wins); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recent returns the latest finished games, newest first, with scoreboards.
func (s *Store) Recent(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_code, rounds, finished_at FROM games ORDER BY finished_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	var out []GameRecord
	for rows.Next() {
		var g GameRecord
		var finished string
		if err := rows.Scan(&g.ID, &g.RoomCode, &g.Rounds, &finished); err != nil {
			rows.Close()
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, finished)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("game %s finished_at %q: %w", g.ID, finished, err)
		}
		g.FinishedAt = at
		out = append(out, g)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		players, err := s.players(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Players = players
	}
	if out == nil {
		out = []GameRecord{}
	}
	return out, nil
}

func (s *Store) players(ctx context.Context, gameID string) ([]PlayerResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, nickname, score, placement FROM game_players
		 WHERE game_id=? ORDER BY placement ASC, nickname ASC`, gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlayerResult
	for rows.Next() {
		var p PlayerResult
		if err := rows.Scan(&p.PlayerID, &p.Nickname, &p.Score, &p.Placement); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
