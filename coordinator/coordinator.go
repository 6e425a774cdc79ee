// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/store"
)

var (
	// ErrRetriesExhausted wraps the last conflict after the retry budget
	// is spent. Callers should surface a generic "try again".
	ErrRetriesExhausted = errors.New("too many concurrent updates")
	ErrInvalidCredit    = errors.New("invalid credit")
)

const (
	DefaultMaxAttempts = 5
	creditConcurrency  = 8
)

// Transition derives the next room from a freshly read snapshot. It must be
// pure: on a conflict it is called again with the newer snapshot, so any
// side effects belong in the returned credits.
type Transition func(cur models.Room, now time.Time) (models.Room, []models.Credit, error)

// CreditSink receives credits that could not be applied, for retry or
// reconciliation. It never affects the room write.
type CreditSink interface {
	Defer(ctx context.Context, c models.Credit, cause error)
}

// LogSink records failed credits in the log for manual reconciliation.
type LogSink struct{}

func (LogSink) Defer(_ context.Context, c models.Credit, cause error) {
	slog.Error("leaderboard credit deferred",
		"username", c.Username,
		"room_id", c.RoomID,
		"points", c.Points,
		"correct", c.Correct,
		"total", c.Total,
		"reason", c.Reason,
		"once", c.Once,
		"error", cause,
	)
}

// Coordinator applies room transitions with compare-and-swap and fans the
// resulting credits out to the leaderboard.
type Coordinator struct {
	rooms       store.RoomStore
	board       store.LeaderboardStore
	ledger      store.Ledger
	sink        CreditSink
	now         func() time.Time
	maxAttempts uint
	newBackOff  func() backoff.BackOff
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithCreditSink(sink CreditSink) Option {
	return func(c *Coordinator) {
		if sink != nil {
			c.sink = sink
		}
	}
}

func WithMaxAttempts(n uint) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackOff replaces the retry schedule; tests use a zero backoff.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Coordinator) { c.newBackOff = newBackOff }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxInterval = 400 * time.Millisecond
	return b
}

func New(backend store.Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:       backend.Rooms,
		board:       backend.Leaderboard,
		ledger:      backend.Ledger,
		sink:        LogSink{},
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		newBackOff:  defaultBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the coordinator's clock reading.
func (c *Coordinator) Now() time.Time {
	return c.now()
}

// ApplyMutation runs fn against the current room and stores the result
// with compare-and-swap, re-reading and re-deriving on conflict. Credits
// from the winning attempt are dispatched after the write succeeds; the
// returned slice holds the ones that were applied.
func (c *Coordinator) ApplyMutation(ctx context.Context, roomID string, fn Transition) (models.Room, []models.Credit, error) {
	var pending []models.Credit
	attempts := 0

	op := func() (models.Room, error) {
		attempts++
		cur, err := c.rooms.GetRoom(ctx, roomID)
		if err != nil {
			return models.Room{}, retryable(err)
		}

		next, credits, err := fn(cur, c.now())
		if err != nil {
			return models.Room{}, backoff.Permanent(err)
		}
		next.Version = cur.Version

		saved, err := c.rooms.SwapRoom(ctx, next)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				slog.Debug("room write conflict, retrying", "room_id", roomID, "attempt", attempts)
			}
			return models.Room{}, retryable(err)
		}
		pending = credits
		return saved, nil
	}

	saved, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxAttempts),
	)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			slog.Warn("room mutation gave up", "room_id", roomID, "attempts", attempts)
			return models.Room{}, nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}
		return models.Room{}, nil, err
	}

	credited := c.dispatch(ctx, pending)
	return saved, credited, nil
}

// retryable marks everything except conflicts and store outages as final.
func retryable(err error) error {
	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrUnavailable) {
		return err
	}
	return backoff.Permanent(err)
}

// dispatch applies credits concurrently. The room write has already
// succeeded, so it runs detached from the request context and failures go
// to the sink instead of back to the caller.
func (c *Coordinator) dispatch(ctx context.Context, credits []models.Credit) []models.Credit {
	if len(credits) == 0 {
		return []models.Credit{}
	}
	ctx = context.WithoutCancel(ctx)

	var mu sync.Mutex
	applied := make([]models.Credit, 0, len(credits))

	var g errgroup.Group
	g.SetLimit(creditConcurrency)
	for _, cr := range credits {
		g.Go(func() error {
			ok, err := c.apply(ctx, cr)
			if err != nil {
				var claimed *claimedError
				if errors.As(err, &claimed) {
					cr.Once = ""
				}
				c.sink.Defer(ctx, cr, err)
				return nil
			}
			if ok {
				mu.Lock()
				applied = append(applied, cr)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return applied
}

// apply claims the credit's ledger key, if any, and then credits the
// leaderboard. ok is false when the ledger says it was already paid.
// A credit whose claim succeeded but whose increment failed comes back
// with Once cleared, so a retry does not trip over its own claim.
func (c *Coordinator) apply(ctx context.Context, cr models.Credit) (bool, error) {
	if cr.Once != "" {
		first, err := c.ledger.Claim(ctx, cr.Username, cr.RoomID, cr.Once)
		if err != nil {
			return false, err
		}
		if !first {
			return false, nil
		}
	}
	if _, err := c.board.Credit(ctx, cr); err != nil {
		return false, &claimedError{err: err}
	}
	return true, nil
}

// claimedError marks a credit whose ledger claim is already recorded.
type claimedError struct{ err error }

func (e *claimedError) Error() string { return e.err.Error() }
func (e *claimedError) Unwrap() error { return e.err }

// ApplyCredit applies one credit synchronously, honoring its ledger key.
// Used by the retry worker and by direct leaderboard credits.
func (c *Coordinator) ApplyCredit(ctx context.Context, cr models.Credit) (models.LeaderboardEntry, bool, error) {
	if err := validateCredit(cr); err != nil {
		return models.LeaderboardEntry{}, false, err
	}
	if cr.Once != "" {
		first, err := c.ledger.Claim(ctx, cr.Username, cr.RoomID, cr.Once)
		if err != nil {
			return models.LeaderboardEntry{}, false, err
		}
		if !first {
			return models.LeaderboardEntry{}, false, nil
		}
	}
	e, err := c.board.Credit(ctx, cr)
	if err != nil {
		return models.LeaderboardEntry{}, false, err
	}
	return e, true, nil
}

func validateCredit(cr models.Credit) error {
	if strings.TrimSpace(cr.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidCredit)
	}
	if cr.Points < 0 || cr.Correct < 0 || cr.Total < 0 {
		return fmt.Errorf("%w: values cannot be negative", ErrInvalidCredit)
	}
	if cr.Correct > cr.Total {
		return fmt.Errorf("%w: correct cannot exceed total", ErrInvalidCredit)
	}
	return nil
}
