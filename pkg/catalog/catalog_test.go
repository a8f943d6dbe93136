package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSession(id string, created time.Time) Session {
	return Session{
		ID:            id,
		Name:          "20240512_093000",
		CreatedAt:     created,
		Hostname:      "host",
		AppVersion:    "test",
		FrameRate:     10,
		State:         "completed",
		FramesWritten: 120,
	}
}

func TestStore_InsertGetSession(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	id := uuid.NewString()
	created := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

	require.NoError(t, store.InsertSession(ctx, sampleSession(id, created)))

	loaded, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "20240512_093000", loaded.Name)
	require.Equal(t, int64(120), loaded.FramesWritten)
	require.True(t, loaded.CreatedAt.Equal(created))
}

func TestStore_InsertSessionRejectsDuplicates(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	sess := sampleSession(uuid.NewString(), time.Now().UTC())

	require.NoError(t, store.InsertSession(ctx, sess))
	require.ErrorIs(t, store.InsertSession(ctx, sess), ErrDuplicateSession)
}

func TestStore_GetSessionNotFound(t *testing.T) {
	store := NewStore(newTestDB(t))

	_, err := store.GetSession(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateOutcome(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	sess := sampleSession(uuid.NewString(), time.Now().UTC())
	sess.State = "recording"
	sess.FramesWritten = 0

	require.NoError(t, store.InsertSession(ctx, sess))

	sess.State = "completed"
	sess.FramesWritten = 300
	sess.FightsMarked = 2
	sess.FightTimeSeconds = 95.5
	require.NoError(t, store.UpdateOutcome(ctx, sess))

	loaded, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", loaded.State)
	require.Equal(t, int64(300), loaded.FramesWritten)
	require.Equal(t, 2, loaded.FightsMarked)
	require.InDelta(t, 95.5, loaded.FightTimeSeconds, 1e-9)

	missing := sess
	missing.ID = "missing"
	require.ErrorIs(t, store.UpdateOutcome(ctx, missing), ErrNotFound)
}

func TestStore_ListSessionsNewestFirst(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)

	older := sampleSession(uuid.NewString(), base)
	newer := sampleSession(uuid.NewString(), base.Add(time.Hour))
	require.NoError(t, store.InsertSession(ctx, older))
	require.NoError(t, store.InsertSession(ctx, newer))

	sessions, err := store.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, newer.ID, sessions[0].ID)

	limited, err := store.ListSessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, newer.ID, limited[0].ID)
}

func TestStore_InsertFightValidation(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	sess := sampleSession(uuid.NewString(), time.Now().UTC())
	require.NoError(t, store.InsertSession(ctx, sess))

	err := store.InsertFight(ctx, Fight{SessionID: sess.ID, Boss: "grim", Outcome: "draw"})
	require.Error(t, err)

	err = store.InsertFight(ctx, Fight{
		SessionID: "unregistered",
		Boss:      "grim",
		Outcome:   OutcomeWin,
		CreatedAt: time.Now(),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_WinLossAggregatesPerBoss(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()
	sess := sampleSession(uuid.NewString(), time.Now().UTC())
	require.NoError(t, store.InsertSession(ctx, sess))

	fights := []Fight{
		{SessionID: sess.ID, Boss: "grim", Outcome: OutcomeLoss},
		{SessionID: sess.ID, Boss: "grim", Outcome: OutcomeLoss},
		{SessionID: sess.ID, Boss: "grim", Outcome: OutcomeWin},
		{SessionID: sess.ID, Boss: "ribby", Outcome: OutcomeWin},
	}
	for _, fight := range fights {
		fight.CreatedAt = time.Now()
		require.NoError(t, store.InsertFight(ctx, fight))
	}

	records, err := store.WinLoss(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, BossRecord{Boss: "grim", Wins: 1, Losses: 2}, records[0])
	require.Equal(t, BossRecord{Boss: "ribby", Wins: 1, Losses: 0}, records[1])
}
