// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

Stored data structures:

  - Room: the per-room document (predictions, comments, CAS version)
  - Prediction: one question with deadline, point value and responses
  - Response: one user's answer to a prediction
  - Comment: append-only chat entry
  - Credit: one leaderboard accumulation request
  - LeaderboardEntry: per-username running totals

# Read Models

Derived on every read, never persisted:

  - RoomView / PredictionView: add status (open, closed, resolved) and a
    display-only time_left string

# Request Types

  - CreateRoomRequest: name, creator, category
  - MutationRequest: type plus the fields that intent needs
  - CreditRequest: username, points, correct, total

# Response Types

  - CreateRoomResponse: room, share_url, credited
  - MutationResponse: room, credited
  - ListRoomsResponse: rooms
  - SuggestAnswerResponse: answer (nullable), source
  - LeaderboardResponse: leaderboard
  - ErrorResponse: error, message

# Constants

Answer types:

	AnswerText     = "text"
	AnswerYesNo    = "yesno"
	AnswerMultiple = "multiple"

Prediction status:

	StatusOpen     = "open"
	StatusClosed   = "closed"
	StatusResolved = "resolved"

Mutation intents:

	IntentAddPrediction     = "add_prediction"
	IntentSubmitResponse    = "submit_response"
	IntentResolvePrediction = "resolve_prediction"
	IntentAddComment        = "add_comment"
	IntentJoin              = "join"
*/
package models
