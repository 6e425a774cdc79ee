// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scoring

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/danielhkuo/predictroom/models"
)

// Point awards
const (
	CreateRoomPoints     = 20
	AddPredictionPoints  = 15
	JoinRoomPoints       = 10
	SubmitResponsePoints = 5
)

// Idempotency events claimed in the credit ledger before crediting.
const (
	EventJoin   = "join"
	EventCreate = "create"
)

// RespondEvent is the ledger event for the first response to a prediction.
func RespondEvent(predictionID string) string {
	return "respond:" + predictionID
}

// PredictionEvent is the ledger event for adding a prediction.
func PredictionEvent(predictionID string) string {
	return "predict:" + predictionID
}

// ResolveEvent is the ledger event for a user's resolution credit.
func ResolveEvent(predictionID string) string {
	return "resolve:" + predictionID
}

var folder = cases.Fold()

// Normalize folds case and trims surrounding whitespace so answers compare
// the way winners are selected.
func Normalize(answer string) string {
	return folder.String(strings.TrimSpace(answer))
}

// Winners returns the usernames, in response order, whose answer matches
// correct after normalization. Never nil.
func Winners(responses []models.Response, correct string) []string {
	want := Normalize(correct)
	winners := make([]string, 0)
	for _, r := range responses {
		if Normalize(r.Answer) == want {
			winners = append(winners, r.Username)
		}
	}
	return winners
}

func RoomCreated(roomID, creator string) models.Credit {
	return models.Credit{
		Username: creator,
		Points:   CreateRoomPoints,
		Reason:   "create_room",
		RoomID:   roomID,
		Once:     EventCreate,
	}
}

func PredictionAdded(roomID, creator, predictionID string) models.Credit {
	return models.Credit{
		Username: creator,
		Points:   AddPredictionPoints,
		Reason:   "add_prediction",
		RoomID:   roomID,
		Once:     PredictionEvent(predictionID),
	}
}

func Joined(roomID, username string) models.Credit {
	return models.Credit{
		Username: username,
		Points:   JoinRoomPoints,
		Reason:   "join_room",
		RoomID:   roomID,
		Once:     EventJoin,
	}
}

// CreatorJoined marks the creator as joined without paying anything. It is
// only sent on its own when the claim at creation time failed, so the retry
// path can record the join later.
func CreatorJoined(roomID, creator string) models.Credit {
	return models.Credit{
		Username: creator,
		Reason:   "creator_join",
		RoomID:   roomID,
		Once:     EventJoin,
	}
}

// ResponseSubmitted credits a response. Only the first response per
// prediction pays out; the ledger key enforces that across replacements.
func ResponseSubmitted(roomID, username, predictionID string) models.Credit {
	return models.Credit{
		Username: username,
		Points:   SubmitResponsePoints,
		Reason:   "submit_response",
		RoomID:   roomID,
		Once:     RespondEvent(predictionID),
	}
}

// Resolution credits every responder of a resolved prediction: one total
// each, plus the point value and one correct for winners.
func Resolution(roomID string, p models.Prediction) []models.Credit {
	if !p.Resolved {
		return nil
	}
	won := make(map[string]bool, len(p.Winners))
	for _, w := range p.Winners {
		won[w] = true
	}

	credits := make([]models.Credit, 0, len(p.Responses))
	seen := make(map[string]bool, len(p.Responses))
	for _, r := range p.Responses {
		if seen[r.Username] {
			continue
		}
		seen[r.Username] = true

		c := models.Credit{
			Username: r.Username,
			Total:    1,
			Reason:   "resolution",
			RoomID:   roomID,
			Once:     ResolveEvent(p.ID),
		}
		if won[r.Username] {
			c.Points = p.PointValue
			c.Correct = 1
			c.Reason = "correct_prediction"
		}
		credits = append(credits, c)
	}
	return credits
}
