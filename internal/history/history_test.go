package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/chosung/apps/go-server/assets"
	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db, assets.Migrations))
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db, assets.Migrations))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrate_BadScriptRollsBack(t *testing.T) {
	db := openTestDB(t)
	bad := fstest.MapFS{"sql/999_bad.sql": {Data: []byte("CREATE TABLE nope (")}}
	require.Error(t, Migrate(db, bad))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM _migrations WHERE name='sql/999_bad.sql'`).Scan(&n))
	assert.Zero(t, n)
}

func TestRank(t *testing.T) {
	got := Rank([]PlayerResult{
		{PlayerID: "a", Score: 50},
		{PlayerID: "b", Score: 90},
		{PlayerID: "c", Score: 50},
		{PlayerID: "d", Score: 0},
	})
	ids := []string{}
	places := []int{}
	for _, p := range got {
		ids = append(ids, p.PlayerID)
		places = append(places, p.Placement)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	assert.Equal(t, []int{1, 2, 2, 4}, places)
}

func TestStore_RecordAndQuery(t *testing.T) {
	st := NewStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, st.RecordGame(ctx, GameRecord{
		ID: "g1", RoomCode: "ABCD", Rounds: 5, FinishedAt: base,
		Players: Rank([]PlayerResult{{PlayerID: "p1", Nickname: "민수", Score: 120}, {PlayerID: "p2", Nickname: "지은", Score: 80}}),
	}))
	require.NoError(t, st.RecordGame(ctx, GameRecord{
		ID: "g2", RoomCode: "WXYZ", Rounds: 5, FinishedAt: base.Add(time.Hour),
		Players: Rank([]PlayerResult{{PlayerID: "p3", Nickname: "지은", Score: 200}, {PlayerID: "p4", Nickname: "현우", Score: 10}}),
	}))

	lb, err := st.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, lb, 3)
	assert.Equal(t, LBRow{Nickname: "지은", BestScore: 200, Games: 2, Wins: 1}, lb[0])
	assert.Equal(t, LBRow{Nickname: "민수", BestScore: 120, Games: 1, Wins: 1}, lb[1])

	lb, err = st.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lb, 1)

	recent, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "g2", recent[0].ID)
	assert.Equal(t, "WXYZ", recent[0].RoomCode)
	assert.True(t, recent[0].FinishedAt.Equal(base.Add(time.Hour)))
	require.Len(t, recent[0].Players, 2)
	assert.Equal(t, "지은", recent[0].Players[0].Nickname)
	assert.Equal(t, 1, recent[0].Players[0].Placement)
}

func TestStore_EmptyResults(t *testing.T) {
	st := NewStore(openTestDB(t))
	ctx := context.Background()

	recent, err := st.Recent(ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, recent)
	assert.Empty(t, recent)

	assert.ErrorIs(t, st.RecordGame(ctx, GameRecord{ID: "x"}), ErrEmptyGame)
}

func TestStore_DuplicateGameRollsBack(t *testing.T) {
	st := NewStore(openTestDB(t))
	ctx := context.Background()
	rec := GameRecord{ID: "g1", RoomCode: "ABCD", Rounds: 1, FinishedAt: time.Now(),
		Players: []PlayerResult{{PlayerID: "p1", Nickname: "a", Score: 1, Placement: 1}}}
	require.NoError(t, st.RecordGame(ctx, rec))

	rec.Players = []PlayerResult{{PlayerID: "p9", Nickname: "b", Score: 5, Placement: 1}}
	require.Error(t, st.RecordGame(ctx, rec))

	lb, err := st.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, lb, 1)
	assert.Equal(t, "a", lb[0].Nickname)
}

func TestRecorder_PersistsGameOverOnly(t *testing.T) {
	st := NewStore(openTestDB(t))
	rec := NewRecorder(st)

	rec.Emit("ABCD", game.Event{Kind: game.EventRoomUpdate, Payload: game.RoomUpdatePayload{}})
	rec.Emit("ABCD", game.Event{Kind: game.EventGameOver, Payload: game.GameOverPayload{}})
	rec.Emit("ABCD", game.Event{Kind: game.EventGameOver, Payload: game.GameOverPayload{
		Rounds: 5,
		Players: []game.Player{
			{ID: "p1", Nickname: "민수", Score: 40},
			{ID: "p2", Nickname: "지은", Score: 95, IsHost: true},
		},
	}})
	rec.Wait()

	recent, err := st.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	g := recent[0]
	assert.Equal(t, "ABCD", g.RoomCode)
	assert.Equal(t, 5, g.Rounds)
	assert.NotEmpty(t, g.ID)
	require.Len(t, g.Players, 2)
	assert.Equal(t, "p2", g.Players[0].PlayerID)
	assert.Equal(t, 1, g.Players[0].Placement)
	assert.Equal(t, 2, g.Players[1].Placement)
}

func TestStore_RecentRejectsCorruptTimestamp(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`INSERT INTO games(id, room_code, rounds, finished_at) VALUES('g1','ABCD',5,'yesterday')`)
	require.NoError(t, err)

	_, err = NewStore(db).Recent(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished_at")
}
