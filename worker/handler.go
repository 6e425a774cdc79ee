// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/models"
)

// CreditApplier applies one credit, claiming its ledger key first.
// *coordinator.Coordinator satisfies it.
type CreditApplier interface {
	ApplyCredit(ctx context.Context, c models.Credit) (models.LeaderboardEntry, bool, error)
}

// CreditHandler processes leaderboard:credit tasks.
type CreditHandler struct {
	credits CreditApplier
}

func NewCreditHandler(credits CreditApplier) *CreditHandler {
	return &CreditHandler{credits: credits}
}

// ProcessTask implements asynq.Handler. Bad payloads and invalid credits
// are not retried; store failures are.
func (h *CreditHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)
	retry, _ := asynq.GetRetryCount(ctx)
	log := slog.With("task_id", taskID, "task_type", t.Type(), "retry", retry)

	var payload CreditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("failed to decode credit payload", "error", err)
		return fmt.Errorf("failed to decode payload: %v: %w", err, asynq.SkipRetry)
	}

	entry, applied, err := h.credits.ApplyCredit(ctx, payload.Credit())
	if errors.Is(err, coordinator.ErrInvalidCredit) {
		log.Error("dropping invalid credit", "username", payload.Username, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to apply credit for %s: %w", payload.Username, err)
	}

	if !applied {
		log.Info("credit already applied", "username", payload.Username, "room_id", payload.RoomID, "once", payload.Once)
		return nil
	}
	log.Info("deferred credit applied", "username", payload.Username, "points", payload.Points, "total_points", entry.Points)
	return nil
}
