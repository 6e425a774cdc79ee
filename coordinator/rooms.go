// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/predictroom/ids"
	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/room"
	"github.com/danielhkuo/predictroom/scoring"
	"github.com/danielhkuo/predictroom/store"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200

	roomIDAttempts = 3
)

// Result is a stored room plus the credits a mutation actually applied.
type Result struct {
	Room     models.Room
	Credited []models.Credit
}

// PredictionInput is the caller-facing half of room.NewPrediction; the id
// is assigned here.
type PredictionInput struct {
	Username   string
	Question   string
	Deadline   time.Time
	PointValue int64
	AnswerType string
	Options    []string
}

// CreateRoom publishes a new room and credits its creator. The creator is
// recorded as joined, so visiting their own room pays nothing extra. If
// that ledger write fails, the zero-point join goes to the credit sink.
func (c *Coordinator) CreateRoom(ctx context.Context, name, creator, category string) (Result, error) {
	var created models.Room
	for attempt := 1; ; attempt++ {
		id, err := ids.NewRoomID()
		if err != nil {
			return Result{}, fmt.Errorf("failed to generate room id: %w", err)
		}
		r, err := room.New(id, name, creator, category, c.now())
		if err != nil {
			return Result{}, err
		}
		created, err = c.rooms.CreateRoom(ctx, r)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrConflict) || attempt >= roomIDAttempts {
			return Result{}, err
		}
		slog.Warn("room id collision, regenerating", "room_id", id)
	}

	slog.Info("room created", "room_id", created.ID, "creator", created.Creator, "category", created.Category)

	if created.Creator == "" {
		return Result{Room: created, Credited: []models.Credit{}}, nil
	}
	if _, err := c.ledger.Claim(ctx, created.Creator, created.ID, scoring.EventJoin); err != nil {
		slog.Warn("failed to mark creator joined", "room_id", created.ID, "error", err)
		c.sink.Defer(context.WithoutCancel(ctx), scoring.CreatorJoined(created.ID, created.Creator), err)
	}
	credited := c.dispatch(ctx, []models.Credit{scoring.RoomCreated(created.ID, created.Creator)})
	return Result{Room: created, Credited: credited}, nil
}

// Room returns the live room.
func (c *Coordinator) Room(ctx context.Context, id string) (models.Room, error) {
	return c.rooms.GetRoom(ctx, id)
}

// ListRooms returns a creator's live rooms, newest first.
func (c *Coordinator) ListRooms(ctx context.Context, creator string) ([]models.Room, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return nil, fmt.Errorf("%w: creator is required", room.ErrValidation)
	}
	return c.rooms.ListRoomsByCreator(ctx, creator)
}

// AddPrediction appends a prediction as the room creator and credits them.
func (c *Coordinator) AddPrediction(ctx context.Context, roomID string, in PredictionInput) (Result, error) {
	np := room.NewPrediction{
		ID:         ids.NewPredictionID(),
		Username:   strings.TrimSpace(in.Username),
		Question:   in.Question,
		Deadline:   in.Deadline,
		PointValue: in.PointValue,
		AnswerType: in.AnswerType,
		Options:    in.Options,
	}

	saved, credited, err := c.ApplyMutation(ctx, roomID, func(cur models.Room, now time.Time) (models.Room, []models.Credit, error) {
		next, err := room.AddPrediction(cur, np, now)
		if err != nil {
			return cur, nil, err
		}
		var credits []models.Credit
		if np.Username != "" {
			credits = append(credits, scoring.PredictionAdded(cur.ID, np.Username, np.ID))
		}
		return next, credits, nil
	})
	if err != nil {
		return Result{}, err
	}

	slog.Info("prediction added", "room_id", roomID, "prediction_id", np.ID)
	return Result{Room: saved, Credited: credited}, nil
}

// SubmitResponse records or replaces username's answer. Only the first
// answer to a prediction is credited.
func (c *Coordinator) SubmitResponse(ctx context.Context, roomID, predictionID, username, answer string) (Result, error) {
	saved, credited, err := c.ApplyMutation(ctx, roomID, func(cur models.Room, now time.Time) (models.Room, []models.Credit, error) {
		next, first, err := room.SubmitResponse(cur, predictionID, username, answer, now)
		if err != nil {
			return cur, nil, err
		}
		var credits []models.Credit
		if first {
			credits = append(credits, scoring.ResponseSubmitted(cur.ID, strings.TrimSpace(username), predictionID))
		}
		return next, credits, nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Room: saved, Credited: credited}, nil
}

// ResolvePrediction sets the correct answer and credits every responder.
func (c *Coordinator) ResolvePrediction(ctx context.Context, roomID, predictionID, correctAnswer string) (Result, error) {
	var resolved models.Prediction
	saved, credited, err := c.ApplyMutation(ctx, roomID, func(cur models.Room, now time.Time) (models.Room, []models.Credit, error) {
		next, p, err := room.ResolvePrediction(cur, predictionID, correctAnswer, now)
		if err != nil {
			return cur, nil, err
		}
		resolved = p
		return next, scoring.Resolution(cur.ID, p), nil
	})
	if err != nil {
		return Result{}, err
	}

	slog.Info("prediction resolved",
		"room_id", roomID,
		"prediction_id", predictionID,
		"responses", len(resolved.Responses),
		"winners", len(resolved.Winners),
	)
	return Result{Room: saved, Credited: credited}, nil
}

// AddComment appends a chat message. Comments earn nothing.
func (c *Coordinator) AddComment(ctx context.Context, roomID, username, message string) (Result, error) {
	id, err := ids.NewCommentID()
	if err != nil {
		return Result{}, err
	}
	saved, credited, err := c.ApplyMutation(ctx, roomID, func(cur models.Room, now time.Time) (models.Room, []models.Credit, error) {
		next, err := room.AddComment(cur, id, username, message, now)
		return next, nil, err
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Room: saved, Credited: credited}, nil
}

// Join credits username's first visit to a room. The room document is not
// written; the ledger alone decides whether the bonus is paid.
func (c *Coordinator) Join(ctx context.Context, roomID, username string) (Result, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Result{}, fmt.Errorf("%w: username is required", room.ErrValidation)
	}
	r, err := c.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Result{}, err
	}

	credited := c.dispatch(ctx, []models.Credit{scoring.Joined(r.ID, username)})
	if len(credited) > 0 {
		slog.Info("room joined", "room_id", r.ID, "username", username)
	}
	return Result{Room: r, Credited: credited}, nil
}

// Credit applies a direct leaderboard credit with no idempotency key.
func (c *Coordinator) Credit(ctx context.Context, req models.CreditRequest) (models.LeaderboardEntry, error) {
	e, _, err := c.ApplyCredit(ctx, models.Credit{
		Username: strings.TrimSpace(req.Username),
		Points:   req.Points,
		Correct:  req.Correct,
		Total:    req.Total,
		Reason:   "direct",
	})
	return e, err
}

// Leaderboard returns the top entries. A non-positive limit means the
// default; larger values are capped.
func (c *Coordinator) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		limit = MaxLeaderboardLimit
	}
	return c.board.Top(ctx, limit)
}
