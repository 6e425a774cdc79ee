// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/middleware"
	"github.com/danielhkuo/predictroom/room"
	"github.com/danielhkuo/predictroom/store"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, room.ErrPredictionNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrValidation), errors.Is(err, room.ErrInvalidAnswer),
		errors.Is(err, coordinator.ErrInvalidCredit):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrNotCreator):
		return http.StatusForbidden
	case errors.Is(err, room.ErrPredictionClosed), errors.Is(err, room.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrRetriesExhausted), errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and writes the mapped error
func writeError(w http.ResponseWriter, err error, action string) {
	status := statusFor(err)

	switch status {
	case http.StatusNotFound:
		msg := "Room not found"
		if errors.Is(err, room.ErrPredictionNotFound) {
			msg = "Prediction not found"
		}
		middleware.ErrorResponse(w, status, msg)
	case http.StatusServiceUnavailable:
		slog.Warn(action+" failed, store busy", "error", err)
		middleware.ErrorResponse(w, status, "Please try again")
	case http.StatusInternalServerError:
		slog.Error(action+" failed", "error", err)
		middleware.ErrorResponse(w, status, "Failed to "+action)
	default:
		middleware.ErrorResponse(w, status, err.Error())
	}
}
