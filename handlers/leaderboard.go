// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/middleware"
	"github.com/danielhkuo/predictroom/models"
)

type LeaderboardHandler struct {
	coord *coordinator.Coordinator
}

func NewLeaderboardHandler(coord *coordinator.Coordinator) *LeaderboardHandler {
	return &LeaderboardHandler{coord: coord}
}

// GetLeaderboard handles GET /leaderboard?limit=
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.coord.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err, "load leaderboard")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.LeaderboardResponse{Leaderboard: entries})
}

// Credit handles POST /leaderboard/credits
func (h *LeaderboardHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var req models.CreditRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	entry, err := h.coord.Credit(r.Context(), req)
	if err != nil {
		writeError(w, err, "credit leaderboard")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, entry)
}
