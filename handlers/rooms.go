// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/predictroom/cliparse"
	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/middleware"
	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/oracle"
	"github.com/danielhkuo/predictroom/room"
)

// AnswerOracle proposes a correct answer for a question
type AnswerOracle interface {
	ResolveAnswer(ctx context.Context, question string) (oracle.Suggestion, bool, error)
}

type RoomHandler struct {
	coord  *coordinator.Coordinator
	oracle AnswerOracle
	cfg    cliparse.Config
}

func NewRoomHandler(coord *coordinator.Coordinator, oracle AnswerOracle, cfg cliparse.Config) *RoomHandler {
	return &RoomHandler{coord: coord, oracle: oracle, cfg: cfg}
}

func (h *RoomHandler) shareURL(roomID string) string {
	return strings.TrimRight(h.cfg.PublicBaseURL, "/") + "/room/" + roomID
}

// CreateRoom handles POST /rooms
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	res, err := h.coord.CreateRoom(r.Context(), req.Name, req.Creator, req.Category)
	if err != nil {
		writeError(w, err, "create room")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateRoomResponse{
		Room:     room.View(res.Room, h.coord.Now()),
		ShareURL: h.shareURL(res.Room.ID),
		Credited: res.Credited,
	})
}

// GetRoom handles GET /rooms/{id}
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if roomID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "room id is required")
		return
	}

	rm, err := h.coord.Room(r.Context(), roomID)
	if err != nil {
		writeError(w, err, "load room")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, room.View(rm, h.coord.Now()))
}

// ListRooms handles GET /rooms?creator=
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	creator := r.URL.Query().Get("creator")
	if strings.TrimSpace(creator) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "creator query parameter is required")
		return
	}

	rooms, err := h.coord.ListRooms(r.Context(), creator)
	if err != nil {
		writeError(w, err, "list rooms")
		return
	}

	now := h.coord.Now()
	views := make([]models.RoomView, 0, len(rooms))
	for _, rm := range rooms {
		views = append(views, room.View(rm, now))
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListRoomsResponse{Rooms: views})
}

// Mutate handles POST /rooms/{id}/mutations
func (h *RoomHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if roomID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "room id is required")
		return
	}

	var req models.MutationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ctx := r.Context()
	var res coordinator.Result
	var err error

	switch req.Type {
	case models.IntentAddPrediction:
		res, err = h.coord.AddPrediction(ctx, roomID, coordinator.PredictionInput{
			Username:   req.Username,
			Question:   req.Question,
			Deadline:   req.Deadline,
			PointValue: req.PointValue,
			AnswerType: req.AnswerType,
			Options:    req.Options,
		})
	case models.IntentSubmitResponse:
		if req.PredictionID == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "prediction_id is required")
			return
		}
		res, err = h.coord.SubmitResponse(ctx, roomID, req.PredictionID, req.Username, req.Answer)
	case models.IntentResolvePrediction:
		if req.PredictionID == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "prediction_id is required")
			return
		}
		res, err = h.coord.ResolvePrediction(ctx, roomID, req.PredictionID, req.CorrectAnswer)
	case models.IntentAddComment:
		res, err = h.coord.AddComment(ctx, roomID, req.Username, req.Message)
	case models.IntentJoin:
		res, err = h.coord.Join(ctx, roomID, req.Username)
	case "":
		middleware.ErrorResponse(w, http.StatusBadRequest, "type is required")
		return
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "unknown mutation type: "+req.Type)
		return
	}

	if err != nil {
		writeError(w, err, req.Type)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MutationResponse{
		Room:     room.View(res.Room, h.coord.Now()),
		Credited: res.Credited,
	})
}

// SuggestAnswer handles POST /rooms/{id}/predictions/{pid}/suggest.
// It only proposes an answer; resolving is a separate mutation.
func (h *RoomHandler) SuggestAnswer(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	predictionID := r.PathValue("pid")

	rm, err := h.coord.Room(r.Context(), roomID)
	if err != nil {
		writeError(w, err, "load room")
		return
	}
	p, ok := room.FindPrediction(rm, predictionID)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Prediction not found")
		return
	}

	s, found, err := h.oracle.ResolveAnswer(r.Context(), p.Question)
	if err != nil {
		slog.Warn("answer oracle failed", "room_id", roomID, "prediction_id", predictionID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Failed to search for answer")
		return
	}
	if !found {
		middleware.JSONResponse(w, http.StatusOK, models.SuggestAnswerResponse{
			Message: "No definitive answer found. Please resolve manually.",
		})
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SuggestAnswerResponse{
		Answer: &s.Answer,
		Source: s.Source,
	})
}
