// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the predictroom API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(coord, oracleClient, cfg)

# Endpoints

Health:

	GET /health

Rooms (public, anyone holding the room id):

	POST /rooms                                 - Publish a room
	GET  /rooms?creator={name}                  - List a creator's live rooms
	GET  /rooms/{id}                            - Room with derived status
	POST /rooms/{id}/mutations                  - Apply one intent
	POST /rooms/{id}/predictions/{pid}/suggest  - Ask the answer oracle

Mutation intents (the "type" field):

	add_prediction      - creator only
	submit_response     - while the prediction is open
	resolve_prediction  - once per prediction
	add_comment
	join                - credits the first visit

Leaderboard:

	GET  /leaderboard?limit={n}  - Top entries, default 50, max 200
	POST /leaderboard/credits    - Direct credit

# Handler Initialization

The router creates handler instances with dependency injection:

	roomHandler := handlers.NewRoomHandler(coord, oracle, cfg)
	leaderboardHandler := handlers.NewLeaderboardHandler(coord)

Every route except health and root is wrapped in middleware.WithLogging.
*/
package router
