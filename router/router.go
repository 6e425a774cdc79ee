// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/predictroom/cliparse"
	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/handlers"
	"github.com/danielhkuo/predictroom/middleware"
)

func NewRouter(coord *coordinator.Coordinator, oracle handlers.AnswerOracle, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(coord, oracle, cfg)
	leaderboardHandler := handlers.NewLeaderboardHandler(coord)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Rooms
	mux.HandleFunc("POST /rooms", middleware.WithLogging(roomHandler.CreateRoom))
	mux.HandleFunc("GET /rooms", middleware.WithLogging(roomHandler.ListRooms))
	mux.HandleFunc("GET /rooms/{id}", middleware.WithLogging(roomHandler.GetRoom))
	mux.HandleFunc("POST /rooms/{id}/mutations", middleware.WithLogging(roomHandler.Mutate))
	mux.HandleFunc("POST /rooms/{id}/predictions/{pid}/suggest", middleware.WithLogging(roomHandler.SuggestAnswer))

	// Leaderboard
	mux.HandleFunc("GET /leaderboard", middleware.WithLogging(leaderboardHandler.GetLeaderboard))
	mux.HandleFunc("POST /leaderboard/credits", middleware.WithLogging(leaderboardHandler.Credit))

	// Root endpoint; {$} keeps it from catching every other GET
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("predictroom API v1"))
	})

	return mux
}
