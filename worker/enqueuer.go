// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package worker

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/models"
)

type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer is a coordinator.CreditSink that hands failed credits to the
// retry queue. If the queue itself is down it falls back to the log.
type Enqueuer struct {
	client   taskEnqueuer
	fallback coordinator.CreditSink
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client, fallback: coordinator.LogSink{}}
}

// Defer implements coordinator.CreditSink.
func (e *Enqueuer) Defer(ctx context.Context, c models.Credit, cause error) {
	task, err := NewCreditTask(c)
	if err != nil {
		e.fallback.Defer(ctx, c, err)
		return
	}

	info, err := e.client.Enqueue(task, asynq.Queue(QueueCredits), asynq.MaxRetry(CreditMaxRetry))
	if err != nil {
		slog.Error("failed to enqueue credit retry", "username", c.Username, "error", err)
		e.fallback.Defer(ctx, c, cause)
		return
	}

	slog.Warn("credit queued for retry",
		"task_id", info.ID,
		"username", c.Username,
		"room_id", c.RoomID,
		"cause", cause,
	)
}

var _ coordinator.CreditSink = (*Enqueuer)(nil)
