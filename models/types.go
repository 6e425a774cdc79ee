package models

import "time"

// Room categories. Cosmetic only.
const (
	CategorySports        = "sports"
	CategoryFun           = "fun"
	CategoryWork          = "work"
	CategoryEntertainment = "entertainment"
)

// Answer types
const (
	AnswerText     = "text"
	AnswerYesNo    = "yesno"
	AnswerMultiple = "multiple"
)

// Prediction status values (derived at read time, never stored)
const (
	StatusOpen     = "open"
	StatusClosed   = "closed"
	StatusResolved = "resolved"
)

// Mutation intent types
const (
	IntentAddPrediction     = "add_prediction"
	IntentSubmitResponse    = "submit_response"
	IntentResolvePrediction = "resolve_prediction"
	IntentAddComment        = "add_comment"
	IntentJoin              = "join"
)

// Domain types

// Room is the document stored per room id. Version is the CAS token and is
// bumped by the store on every successful write.
type Room struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Creator     string       `json:"creator"`
	Category    string       `json:"category"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Predictions []Prediction `json:"predictions"`
	Comments    []Comment    `json:"comments"`
	Version     int64        `json:"version"`
}

type Prediction struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	AnswerType    string     `json:"answer_type"`
	Options       []string   `json:"options,omitempty"`
	Deadline      time.Time  `json:"deadline"`
	PointValue    int64      `json:"point_value"`
	CreatedAt     time.Time  `json:"created_at"`
	Responses     []Response `json:"responses"`
	Resolved      bool       `json:"resolved"`
	CorrectAnswer *string    `json:"correct_answer,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	Winners       []string   `json:"winners"` // nil until resolved
}

type Response struct {
	Username  string    `json:"username"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

type Comment struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Credit is one leaderboard accumulation. Once, when set, names the
// (username, room, event) idempotency key that must be claimed first.
type Credit struct {
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Correct  int64  `json:"correct"`
	Total    int64  `json:"total"`
	Reason   string `json:"reason,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
	Once     string `json:"-"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Correct  int64  `json:"correct"`
	Total    int64  `json:"total"`
	Accuracy int    `json:"accuracy"` // rounded percentage
	Level    int64  `json:"level"`
}

// Read models

// PredictionView adds the server-computed status and countdown to a
// prediction. TimeLeft is for display only.
type PredictionView struct {
	Prediction
	Status   string `json:"status"`
	TimeLeft string `json:"time_left,omitempty"`
}

type RoomView struct {
	Room
	Predictions []PredictionView `json:"predictions"`
}

// Request types

type CreateRoomRequest struct {
	Name     string `json:"name"`
	Creator  string `json:"creator"`
	Category string `json:"category"`
}

// MutationRequest carries one intent against a room. Which fields are read
// depends on Type.
type MutationRequest struct {
	Type          string    `json:"type"`
	Username      string    `json:"username"`
	PredictionID  string    `json:"prediction_id"`
	Answer        string    `json:"answer"`
	CorrectAnswer string    `json:"correct_answer"`
	Question      string    `json:"question"`
	Deadline      time.Time `json:"deadline"`
	PointValue    int64     `json:"point_value"`
	AnswerType    string    `json:"answer_type"`
	Options       []string  `json:"options"`
	Message       string    `json:"message"`
}

type CreditRequest struct {
	Username string `json:"username"`
	Points   int64  `json:"points"`
	Correct  int64  `json:"correct"`
	Total    int64  `json:"total"`
}

// Response types

type CreateRoomResponse struct {
	Room     RoomView `json:"room"`
	ShareURL string   `json:"share_url"`
	Credited []Credit `json:"credited"`
}

type MutationResponse struct {
	Room     RoomView `json:"room"`
	Credited []Credit `json:"credited"`
}

type ListRoomsResponse struct {
	Rooms []RoomView `json:"rooms"`
}

type SuggestAnswerResponse struct {
	Answer  *string `json:"answer"`
	Source  string  `json:"source,omitempty"`
	Message string  `json:"message,omitempty"`
}

type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
