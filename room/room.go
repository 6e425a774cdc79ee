// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package room

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/scoring"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrPredictionClosed   = errors.New("prediction closed")
	ErrInvalidAnswer      = errors.New("invalid answer")
	ErrAlreadyResolved    = errors.New("prediction already resolved")
	ErrNotCreator         = errors.New("only the room creator can do that")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NewPrediction is the input to AddPrediction.
type NewPrediction struct {
	ID         string
	Username   string
	Question   string
	Deadline   time.Time
	PointValue int64
	AnswerType string
	Options    []string
}

// New builds a fresh room. Unknown or empty categories fall back to fun.
func New(id, name, creator, category string, now time.Time) (models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Room{}, invalid("name is required")
	}
	if id == "" {
		return models.Room{}, invalid("id is required")
	}

	return models.Room{
		ID:          id,
		Name:        name,
		Creator:     strings.TrimSpace(creator),
		Category:    normalizeCategory(category),
		CreatedAt:   now,
		UpdatedAt:   now,
		Predictions: []models.Prediction{},
		Comments:    []models.Comment{},
	}, nil
}

func normalizeCategory(category string) string {
	switch c := strings.ToLower(strings.TrimSpace(category)); c {
	case models.CategorySports, models.CategoryFun, models.CategoryWork, models.CategoryEntertainment:
		return c
	default:
		return models.CategoryFun
	}
}

// AddPrediction appends an open prediction. The deadline is checked against
// now only here; it is never re-validated.
func AddPrediction(r models.Room, in NewPrediction, now time.Time) (models.Room, error) {
	if in.ID == "" {
		return r, invalid("prediction id is required")
	}
	if r.Creator != "" && in.Username != r.Creator {
		return r, ErrNotCreator
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return r, invalid("question is required")
	}
	if in.PointValue <= 0 {
		return r, invalid("point_value must be positive")
	}
	if !in.Deadline.After(now) {
		return r, invalid("deadline must be in the future")
	}
	if _, ok := find(r, in.ID); ok {
		return r, invalid("prediction %s already exists", in.ID)
	}

	answerType := in.AnswerType
	if answerType == "" {
		answerType = models.AnswerText
	}

	var options []string
	switch answerType {
	case models.AnswerText, models.AnswerYesNo:
	case models.AnswerMultiple:
		var err error
		options, err = cleanOptions(in.Options)
		if err != nil {
			return r, err
		}
	default:
		return r, invalid("answer_type must be one of: text, yesno, multiple")
	}

	next := Clone(r)
	next.Predictions = append(next.Predictions, models.Prediction{
		ID:         in.ID,
		Question:   question,
		AnswerType: answerType,
		Options:    options,
		Deadline:   in.Deadline,
		PointValue: in.PointValue,
		CreatedAt:  now,
		Responses:  []models.Response{},
	})
	next.UpdatedAt = now
	return next, nil
}

// cleanOptions trims options, drops exact duplicates and requires at least
// two distinct non-empty entries.
func cleanOptions(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	options := make([]string, 0, len(raw))
	for _, o := range raw {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, invalid("options cannot be empty")
		}
		if seen[o] {
			continue
		}
		seen[o] = true
		options = append(options, o)
	}
	if len(options) < 2 {
		return nil, invalid("multiple choice needs at least 2 distinct options")
	}
	return options, nil
}

// SubmitResponse records username's answer, replacing any earlier answer
// from the same username in place. first reports whether this is the
// user's first response to the prediction.
func SubmitResponse(r models.Room, predictionID, username, answer string, now time.Time) (next models.Room, first bool, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return r, false, invalid("username is required")
	}
	idx, ok := find(r, predictionID)
	if !ok {
		return r, false, ErrPredictionNotFound
	}
	p := r.Predictions[idx]
	if Status(p, now) != models.StatusOpen {
		return r, false, ErrPredictionClosed
	}
	if err := checkAnswer(p, answer); err != nil {
		return r, false, err
	}

	next = Clone(r)
	np := &next.Predictions[idx]
	resp := models.Response{Username: username, Answer: answer, Timestamp: now}

	first = true
	for i := range np.Responses {
		if np.Responses[i].Username == username {
			np.Responses[i] = resp
			first = false
			break
		}
	}
	if first {
		np.Responses = append(np.Responses, resp)
	}
	next.UpdatedAt = now
	return next, first, nil
}

func checkAnswer(p models.Prediction, answer string) error {
	switch p.AnswerType {
	case models.AnswerYesNo:
		if answer != "Yes" && answer != "No" {
			return fmt.Errorf("%w: answer must be Yes or No", ErrInvalidAnswer)
		}
	case models.AnswerMultiple:
		for _, o := range p.Options {
			if answer == o {
				return nil
			}
		}
		return fmt.Errorf("%w: answer must be one of the options", ErrInvalidAnswer)
	default:
		if strings.TrimSpace(answer) == "" {
			return fmt.Errorf("%w: answer is required", ErrInvalidAnswer)
		}
	}
	return nil
}

// ResolvePrediction freezes a prediction with its correct answer and
// winners. A second resolution is rejected with ErrAlreadyResolved and
// leaves the stored answer and winners untouched.
func ResolvePrediction(r models.Room, predictionID, correctAnswer string, now time.Time) (models.Room, models.Prediction, error) {
	idx, ok := find(r, predictionID)
	if !ok {
		return r, models.Prediction{}, ErrPredictionNotFound
	}
	if r.Predictions[idx].Resolved {
		return r, models.Prediction{}, ErrAlreadyResolved
	}
	correct := strings.TrimSpace(correctAnswer)
	if correct == "" {
		return r, models.Prediction{}, invalid("correct_answer is required")
	}

	next := Clone(r)
	np := &next.Predictions[idx]
	np.Resolved = true
	np.CorrectAnswer = &correct
	resolvedAt := now
	np.ResolvedAt = &resolvedAt
	np.Winners = scoring.Winners(np.Responses, correct)
	next.UpdatedAt = now
	return next, *np, nil
}

// AddComment appends to the room's chat log.
func AddComment(r models.Room, id, username, message string, now time.Time) (models.Room, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return r, invalid("username is required")
	}
	if strings.TrimSpace(message) == "" {
		return r, invalid("message is required")
	}

	next := Clone(r)
	next.Comments = append(next.Comments, models.Comment{
		ID:        id,
		Username:  username,
		Message:   message,
		Timestamp: now,
	})
	next.UpdatedAt = now
	return next, nil
}

// Status derives open, closed or resolved. A prediction is still open at
// exactly its deadline.
func Status(p models.Prediction, now time.Time) string {
	switch {
	case p.Resolved:
		return models.StatusResolved
	case now.After(p.Deadline):
		return models.StatusClosed
	default:
		return models.StatusOpen
	}
}

// FindPrediction returns the prediction with the given id.
func FindPrediction(r models.Room, predictionID string) (models.Prediction, bool) {
	idx, ok := find(r, predictionID)
	if !ok {
		return models.Prediction{}, false
	}
	return r.Predictions[idx], true
}

func find(r models.Room, predictionID string) (int, bool) {
	for i := range r.Predictions {
		if r.Predictions[i].ID == predictionID {
			return i, true
		}
	}
	return -1, false
}

// Clone deep-copies a room so transitions never alias the caller's slices.
func Clone(r models.Room) models.Room {
	out := r
	out.Predictions = make([]models.Prediction, len(r.Predictions))
	for i, p := range r.Predictions {
		np := p
		np.Options = cloneStrings(p.Options)
		np.Responses = append(make([]models.Response, 0, len(p.Responses)), p.Responses...)
		if p.Winners != nil {
			np.Winners = cloneStrings(p.Winners)
		}
		if p.CorrectAnswer != nil {
			v := *p.CorrectAnswer
			np.CorrectAnswer = &v
		}
		if p.ResolvedAt != nil {
			v := *p.ResolvedAt
			np.ResolvedAt = &v
		}
		out.Predictions[i] = np
	}
	out.Comments = append(make([]models.Comment, 0, len(r.Comments)), r.Comments...)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
