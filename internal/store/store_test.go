package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newSnapshot(t *testing.T, code string) engine.Snapshot {
	t.Helper()
	g := engine.NewGame("h1", "Hana", "g1", "Gus", engine.Options{
		Code: code,
		Seed: 7,
		Now:  func() time.Time { return testEpoch },
	})
	return g.Snapshot()
}

func TestMemoryActiveLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.LoadActive(ctx, "ABCD")
	assert.ErrorIs(t, err, ErrNotFound)

	ag := ActiveGame{MatchID: uuid.New(), Snapshot: newSnapshot(t, "ABCD"), HostElapsedMs: 1500}
	require.NoError(t, m.SaveActive(ctx, "ABCD", ag))
	require.NoError(t, m.SaveActive(ctx, "WXYZ", ActiveGame{Snapshot: newSnapshot(t, "WXYZ")}))

	got, err := m.LoadActive(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, ag.MatchID, got.MatchID)
	assert.Equal(t, int64(1500), got.HostElapsedMs)

	codes, err := m.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCD", "WXYZ"}, codes)

	require.NoError(t, m.AppendAction(ctx, "ABCD", ActionRecord{Index: 1, ActionType: "pass_move"}))
	require.NoError(t, m.AppendAction(ctx, "ABCD", ActionRecord{Index: 2, ActionType: "resign"}))
	assert.Len(t, m.Actions("ABCD"), 2)

	require.NoError(t, m.DeleteActive(ctx, "ABCD"))
	_, err = m.LoadActive(ctx, "ABCD")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.Actions("ABCD"))
}

func TestActiveGameSurvivesJSON(t *testing.T) {
	ag := ActiveGame{MatchID: uuid.New(), Snapshot: newSnapshot(t, "QRST"), GuestElapsedMs: 42, SavedAt: testEpoch}
	b, err := json.Marshal(ag)
	require.NoError(t, err)

	var back ActiveGame
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, ag.Snapshot.Host.Hand, back.Snapshot.Host.Hand)
	assert.Equal(t, ag.Snapshot.Guest.Deck, back.Snapshot.Guest.Deck)
	assert.Equal(t, ag.Snapshot.RNG, back.Snapshot.RNG)
	assert.Equal(t, engine.Host, back.Snapshot.Turn)
}

func TestNewFinishedGameAndArgs(t *testing.T) {
	g := engine.NewGame("h1", "Hana", "g1", "Gus", engine.Options{
		Code:     "MNPQ",
		Seed:     9,
		Duration: engine.OneMinute,
		Now:      func() time.Time { return testEpoch },
	})
	g.Resign(engine.Guest)
	id := uuid.New()

	fg := NewFinishedGame(id, g.Snapshot())
	assert.Equal(t, "MNPQ", fg.Code)
	assert.Equal(t, "Hana", fg.HostName)
	assert.Equal(t, engine.Host, fg.WonBy)
	assert.Equal(t, engine.ReasonResigned, fg.Reason)
	assert.Equal(t, testEpoch, fg.EndedAt)

	m := NewMemory()
	require.NoError(t, m.RecordFinished(context.Background(), fg))
	assert.Len(t, m.Finished(), 1)

	args, err := finishedArgs(fg)
	require.NoError(t, err)
	require.Len(t, args, 10)
	assert.Equal(t, id, args[0])
	assert.Equal(t, "OneMinute", args[4])
	assert.Equal(t, "host", args[5])
	assert.Equal(t, "Resigned", args[6])
	assert.JSONEq(t, "[]", string(args[7].([]byte)))
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "coc:game:ABCD", activeKey("ABCD"))
	assert.Equal(t, "coc:actions:ABCD", actionsKey("ABCD"))
}

func TestRedisRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	r, err := ConnectRedis(ctx, url)
	require.NoError(t, err)
	defer r.Close()

	code := "T" + uuid.NewString()[:3]
	defer r.DeleteActive(ctx, code)

	require.NoError(t, r.SaveActive(ctx, code, ActiveGame{Snapshot: newSnapshot(t, code)}))
	got, err := r.LoadActive(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, code, got.Snapshot.Code)

	codes, err := r.ListActive(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, code)

	require.NoError(t, r.AppendAction(ctx, code, ActionRecord{Index: 1, ActionType: "make_move"}))
	acts, err := r.Actions(ctx, code)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "make_move", acts[0].ActionType)

	require.NoError(t, r.DeleteActive(ctx, code))
	_, err = r.LoadActive(ctx, code)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRecordFinished(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx := context.Background()
	p, err := ConnectPostgres(ctx, url)
	require.NoError(t, err)
	defer p.Close()

	g := engine.NewGame("h1", "Hana", "g1", "Gus", engine.Options{Code: "PGPG", Seed: 3})
	g.Resign(engine.Host)
	require.NoError(t, p.RecordFinished(ctx, NewFinishedGame(uuid.New(), g.Snapshot())))
}
