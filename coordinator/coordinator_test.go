// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v5"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/predictroom/db"
	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/room"
	"github.com/danielhkuo/predictroom/scoring"
	"github.com/danielhkuo/predictroom/store"
	"github.com/danielhkuo/predictroom/store/redisstore"
	"github.com/danielhkuo/predictroom/store/sqlstore"
)

var testNow = time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func setupBackend(t *testing.T) store.Backend {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.CreateSchema(conn))

	return sqlstore.New(conn, db.TypeSQLite).Backend()
}

func setupCoordinator(t *testing.T, opts ...Option) (*Coordinator, store.Backend) {
	t.Helper()

	backend := setupBackend(t)
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithBackOff(noWait),
	}
	return New(backend, append(base, opts...)...), backend
}

func leaderboardByName(t *testing.T, c *Coordinator) map[string]models.LeaderboardEntry {
	t.Helper()

	entries, err := c.Leaderboard(context.Background(), MaxLeaderboardLimit)
	require.NoError(t, err)
	out := make(map[string]models.LeaderboardEntry, len(entries))
	for _, e := range entries {
		out[e.Username] = e
	}
	return out
}

func addYesNo(t *testing.T, c *Coordinator, roomID, creator string, points int64) string {
	t.Helper()

	res, err := c.AddPrediction(context.Background(), roomID, PredictionInput{
		Username:   creator,
		Question:   "Will it rain?",
		Deadline:   testNow.Add(time.Hour),
		PointValue: points,
		AnswerType: models.AnswerYesNo,
	})
	require.NoError(t, err)
	preds := res.Room.Predictions
	return preds[len(preds)-1].ID
}

// recordingSink captures deferred credits.
type recordingSink struct {
	mu      sync.Mutex
	credits []models.Credit
}

func (s *recordingSink) Defer(_ context.Context, c models.Credit, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = append(s.credits, c)
}

// failingBoard fails every credit.
type failingBoard struct{}

func (failingBoard) Credit(context.Context, models.Credit) (models.LeaderboardEntry, error) {
	return models.LeaderboardEntry{}, fmt.Errorf("%w: boom", store.ErrUnavailable)
}

func (failingBoard) Top(context.Context, int) ([]models.LeaderboardEntry, error) {
	return nil, nil
}

// flakyLedger fails the first claim of one event, then delegates.
type flakyLedger struct {
	store.Ledger
	event  string
	failed atomic.Bool
}

func (l *flakyLedger) Claim(ctx context.Context, username, roomID, event string) (bool, error) {
	if event == l.event && l.failed.CompareAndSwap(false, true) {
		return false, fmt.Errorf("%w: timeout", store.ErrUnavailable)
	}
	return l.Ledger.Claim(ctx, username, roomID, event)
}

// conflictRooms loses every swap.
type conflictRooms struct {
	store.RoomStore
	swaps atomic.Int32
}

func (r *conflictRooms) SwapRoom(context.Context, models.Room) (models.Room, error) {
	r.swaps.Add(1)
	return models.Room{}, store.ErrConflict
}

func TestCreateRoom(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "  Derby Day ", "alice", "Sports")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Room.ID)
	assert.Equal(t, "Derby Day", res.Room.Name)
	assert.Equal(t, models.CategorySports, res.Room.Category)
	assert.Equal(t, int64(1), res.Room.Version)
	require.Len(t, res.Credited, 1)
	assert.Equal(t, int64(20), res.Credited[0].Points)

	// The creator is already joined.
	joined, err := c.Join(ctx, res.Room.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, joined.Credited)

	board := leaderboardByName(t, c)
	assert.Equal(t, int64(20), board["alice"].Points)

	_, err = c.CreateRoom(ctx, "   ", "alice", "")
	assert.ErrorIs(t, err, room.ErrValidation)
}

func TestApplyMutation_NotFound(t *testing.T) {
	c, _ := setupCoordinator(t)

	_, err := c.SubmitResponse(context.Background(), "missing", "p1", "bob", "Yes")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApplyMutation_TransitionErrorIsNotRetried(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)

	calls := 0
	_, _, err = c.ApplyMutation(ctx, res.Room.ID, func(cur models.Room, now time.Time) (models.Room, []models.Credit, error) {
		calls++
		return cur, nil, room.ErrPredictionClosed
	})
	assert.ErrorIs(t, err, room.ErrPredictionClosed)
	assert.Equal(t, 1, calls)

	got, err := c.Room(ctx, res.Room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version, "failed transition must not write")
}

func TestApplyMutation_RetriesExhausted(t *testing.T) {
	backend := setupBackend(t)
	rooms := &conflictRooms{RoomStore: backend.Rooms}
	backend.Rooms = rooms
	c := New(backend, WithBackOff(noWait), WithMaxAttempts(3))
	ctx := context.Background()

	r, err := room.New("r1", "Room", "alice", "fun", time.Now())
	require.NoError(t, err)
	_, err = backend.Rooms.CreateRoom(ctx, r)
	require.NoError(t, err)

	_, err = c.AddComment(ctx, "r1", "bob", "hi")
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, int32(3), rooms.swaps.Load())
}

func TestApplyMutation_ConflictRereads(t *testing.T) {
	c, backend := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)
	id := res.Room.ID

	// The first attempt is overtaken by a concurrent writer.
	attempts := 0
	saved, _, err := c.ApplyMutation(ctx, id, func(cur models.Room, now time.Time) (models.Room, []models.Credit, error) {
		attempts++
		if attempts == 1 {
			other, err := room.AddComment(cur, "c-other", "carol", "first!", now)
			require.NoError(t, err)
			_, err = backend.Rooms.SwapRoom(ctx, other)
			require.NoError(t, err)
		}
		next, err := room.AddComment(cur, fmt.Sprintf("c-%d", attempts), "bob", "hello", now)
		return next, nil, err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(3), saved.Version)
	require.Len(t, saved.Comments, 2)
	assert.Equal(t, "carol", saved.Comments[0].Username)
	assert.Equal(t, "bob", saved.Comments[1].Username)
}

func TestConcurrentResponses_NoLostUpdates(t *testing.T) {
	c, _ := setupCoordinator(t, WithMaxAttempts(40))
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)
	id := res.Room.ID
	p1 := addYesNo(t, c, id, "alice", 50)
	p2 := addYesNo(t, c, id, "alice", 30)

	const users = 12
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := p1
			if i%2 == 1 {
				pid = p2
			}
			if _, err := c.SubmitResponse(ctx, id, pid, fmt.Sprintf("user%02d", i), "Yes"); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()
	require.Zero(t, failures.Load())

	got, err := c.Room(ctx, id)
	require.NoError(t, err)
	for _, p := range got.Predictions {
		assert.Len(t, p.Responses, users/2, "prediction %s lost a response", p.ID)
	}

	board := leaderboardByName(t, c)
	for i := 0; i < users; i++ {
		assert.Equal(t, int64(5), board[fmt.Sprintf("user%02d", i)].Points)
	}
}

func TestSubmitResponse_ReplacementIsNotCredited(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)
	pid := addYesNo(t, c, res.Room.ID, "alice", 10)

	first, err := c.SubmitResponse(ctx, res.Room.ID, pid, "bob", "Yes")
	require.NoError(t, err)
	assert.Len(t, first.Credited, 1)

	second, err := c.SubmitResponse(ctx, res.Room.ID, pid, "bob", "No")
	require.NoError(t, err)
	assert.Empty(t, second.Credited)
	require.Len(t, second.Room.Predictions[0].Responses, 1)
	assert.Equal(t, "No", second.Room.Predictions[0].Responses[0].Answer)

	assert.Equal(t, int64(5), leaderboardByName(t, c)["bob"].Points)
}

func TestConcurrentJoins_CreditOnce(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var credited atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Join(ctx, res.Room.ID, "bob")
			assert.NoError(t, err)
			credited.Add(int32(len(r.Credited)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), credited.Load())
	assert.Equal(t, int64(10), leaderboardByName(t, c)["bob"].Points)

	_, err = c.Join(ctx, "missing", "bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = c.Join(ctx, res.Room.ID, " ")
	assert.ErrorIs(t, err, room.ErrValidation)
}

func TestDerbyDay(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Derby Day", "alice", "sports")
	require.NoError(t, err)
	id := res.Room.ID

	for _, u := range []string{"bob", "carol", "dan"} {
		_, err := c.Join(ctx, id, u)
		require.NoError(t, err)
	}

	pid := addYesNo(t, c, id, "alice", 100)

	for u, a := range map[string]string{"bob": "Yes", "carol": "No", "dan": "Yes"} {
		_, err := c.SubmitResponse(ctx, id, pid, u, a)
		require.NoError(t, err)
	}

	resolved, err := c.ResolvePrediction(ctx, id, pid, "yes")
	require.NoError(t, err)
	p := resolved.Room.Predictions[0]
	assert.True(t, p.Resolved)
	assert.ElementsMatch(t, []string{"bob", "dan"}, p.Winners)
	assert.Len(t, resolved.Credited, 3)

	_, err = c.ResolvePrediction(ctx, id, pid, "No")
	assert.ErrorIs(t, err, room.ErrAlreadyResolved)

	board := leaderboardByName(t, c)
	assert.Equal(t, int64(35), board["alice"].Points)
	assert.Equal(t, int64(115), board["bob"].Points)
	assert.Equal(t, int64(15), board["carol"].Points)
	assert.Equal(t, int64(115), board["dan"].Points)
	assert.Equal(t, int64(1), board["bob"].Correct)
	assert.Equal(t, int64(1), board["carol"].Total)
	assert.Equal(t, int64(0), board["carol"].Correct)
	assert.Equal(t, 100, board["dan"].Accuracy)

	top, err := c.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].Username)
	assert.Equal(t, "dan", top[1].Username)
}

func TestAddPrediction_CreatorOnly(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)

	_, err = c.AddPrediction(ctx, res.Room.ID, PredictionInput{
		Username:   "mallory",
		Question:   "Q?",
		Deadline:   testNow.Add(time.Hour),
		PointValue: 10,
	})
	assert.ErrorIs(t, err, room.ErrNotCreator)
	assert.NotContains(t, leaderboardByName(t, c), "mallory")
}

func TestCreditsCommute(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Credit(ctx, models.CreditRequest{Username: "erin", Points: int64(i), Correct: 1, Total: 1})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	e := leaderboardByName(t, c)["erin"]
	assert.Equal(t, int64(210), e.Points)
	assert.Equal(t, int64(20), e.Correct)
	assert.Equal(t, int64(20), e.Total)
	assert.Equal(t, int64(3), e.Level)
}

func TestCredit_Validation(t *testing.T) {
	c, _ := setupCoordinator(t)

	tests := []struct {
		name string
		req  models.CreditRequest
	}{
		{"missing username", models.CreditRequest{Points: 1}},
		{"negative points", models.CreditRequest{Username: "a", Points: -1}},
		{"correct above total", models.CreditRequest{Username: "a", Correct: 2, Total: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Credit(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidCredit)
		})
	}
}

func TestFailedCreditsGoToSink(t *testing.T) {
	backend := setupBackend(t)
	backend.Leaderboard = failingBoard{}
	sink := &recordingSink{}
	c := New(backend, WithCreditSink(sink), WithBackOff(noWait))
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err, "credit failure must not fail the room write")
	assert.Empty(t, res.Credited)

	_, err = c.Room(ctx, res.Room.ID)
	require.NoError(t, err)

	require.Len(t, sink.credits, 1)
	assert.Equal(t, "alice", sink.credits[0].Username)
	assert.Equal(t, int64(20), sink.credits[0].Points)
	assert.Empty(t, sink.credits[0].Once, "claimed credit must be deferred without its ledger key")
}

func TestLeaderboardLimit(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Credit(ctx, models.CreditRequest{Username: fmt.Sprintf("u%d", i), Points: int64(i)})
		require.NoError(t, err)
	}

	all, err := c.Leaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	capped, err := c.Leaderboard(ctx, 10_000)
	require.NoError(t, err)
	assert.Len(t, capped, 3)
}

func TestListRooms(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	_, err := c.CreateRoom(ctx, "One", "alice", "fun")
	require.NoError(t, err)
	_, err = c.CreateRoom(ctx, "Two", "alice", "work")
	require.NoError(t, err)

	rooms, err := c.ListRooms(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	_, err = c.ListRooms(ctx, "")
	assert.True(t, errors.Is(err, room.ErrValidation))
}

func TestCreateRoom_CreatorJoinDeferredOnLedgerFailure(t *testing.T) {
	backend := setupBackend(t)
	backend.Ledger = &flakyLedger{Ledger: backend.Ledger, event: scoring.EventJoin}
	sink := &recordingSink{}
	c := New(backend, WithCreditSink(sink), WithClock(func() time.Time { return testNow }), WithBackOff(noWait))
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)
	require.Len(t, res.Credited, 1, "room credit is still paid")

	require.Len(t, sink.credits, 1)
	deferred := sink.credits[0]
	assert.Equal(t, "alice", deferred.Username)
	assert.Equal(t, res.Room.ID, deferred.RoomID)
	assert.Equal(t, scoring.EventJoin, deferred.Once)
	assert.Zero(t, deferred.Points)

	// The retry path records the join, so the creator's visit pays nothing.
	_, applied, err := c.ApplyCredit(ctx, deferred)
	require.NoError(t, err)
	assert.True(t, applied)

	joined, err := c.Join(ctx, res.Room.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, joined.Credited)
	assert.Equal(t, int64(20), leaderboardByName(t, c)["alice"].Points)
}

func TestAddComment(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)

	out, err := c.AddComment(ctx, res.Room.ID, "bob", "good luck")
	require.NoError(t, err)
	require.Len(t, out.Room.Comments, 1)
	assert.Empty(t, out.Credited)

	id := out.Room.Comments[0].ID
	assert.Len(t, id, 24)
	for _, ch := range id {
		assert.True(t, (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f'), "comment id %q is not hex", id)
	}

	_, err = c.AddComment(ctx, res.Room.ID, "bob", "  ")
	assert.ErrorIs(t, err, room.ErrValidation)
}

func TestConcurrentResponses_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backend := redisstore.New(client, redisstore.WithKeyPrefix("test:")).Backend()
	c := New(backend,
		WithClock(func() time.Time { return testNow }),
		WithBackOff(noWait),
		WithMaxAttempts(60),
	)
	ctx := context.Background()

	res, err := c.CreateRoom(ctx, "Room", "alice", "fun")
	require.NoError(t, err)
	id := res.Room.ID
	p1 := addYesNo(t, c, id, "alice", 50)
	p2 := addYesNo(t, c, id, "alice", 30)

	const users = 20
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pid := p1
			if i%2 == 1 {
				pid = p2
			}
			if _, err := c.SubmitResponse(ctx, id, pid, fmt.Sprintf("user%02d", i), "Yes"); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()
	require.Zero(t, failures.Load())

	got, err := c.Room(ctx, id)
	require.NoError(t, err)
	stored := 0
	for _, p := range got.Predictions {
		assert.Len(t, p.Responses, users/2, "prediction %s lost a response", p.ID)
		stored += len(p.Responses)
	}
	assert.Equal(t, users, stored)
	assert.Equal(t, int64(1+2+users), got.Version, "one version per write")

	board := leaderboardByName(t, c)
	for i := 0; i < users; i++ {
		assert.Equal(t, int64(5), board[fmt.Sprintf("user%02d", i)].Points)
	}
}
