// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/danielhkuo/predictroom/models"
)

const (
	TypeLeaderboardCredit = "leaderboard:credit"

	QueueCredits = "credits"

	// CreditMaxRetry is how many times asynq retries a failed credit.
	CreditMaxRetry = 10
)

// CreditPayload is a deferred leaderboard credit. Once travels with it so
// the worker honors the same ledger key the request path would have.
type CreditPayload struct {
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Correct  int64  `json:"correct"`
	Total    int64  `json:"total"`
	Reason   string `json:"reason,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
	Once     string `json:"once,omitempty"`
}

func payloadFromCredit(c models.Credit) CreditPayload {
	return CreditPayload{
		Username: c.Username,
		Points:   c.Points,
		Correct:  c.Correct,
		Total:    c.Total,
		Reason:   c.Reason,
		RoomID:   c.RoomID,
		Once:     c.Once,
	}
}

func (p CreditPayload) Credit() models.Credit {
	return models.Credit{
		Username: p.Username,
		Points:   p.Points,
		Correct:  p.Correct,
		Total:    p.Total,
		Reason:   p.Reason,
		RoomID:   p.RoomID,
		Once:     p.Once,
	}
}

// NewCreditTask builds a leaderboard:credit task.
func NewCreditTask(c models.Credit) (*asynq.Task, error) {
	payload, err := json.Marshal(payloadFromCredit(c))
	if err != nil {
		return nil, fmt.Errorf("failed to encode credit payload: %w", err)
	}
	return asynq.NewTask(TypeLeaderboardCredit, payload), nil
}
