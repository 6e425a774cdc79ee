// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the predictroom API.

# Handler Types

Each handler is a struct holding the coordinator and whatever else it
needs:

  - RoomHandler: Room creation, reads, mutations and answer suggestions
  - LeaderboardHandler: Leaderboard reads and direct credits

Handlers are created via constructor functions:

	roomHandler := handlers.NewRoomHandler(coord, oracleClient, cfg)

# Mutations

All room changes go through one endpoint with a typed intent:

	POST /rooms/{id}/mutations {"type": "submit_response", ...}

The response carries the stored room (with derived status and time_left
per prediction) and the credits the mutation actually paid. A credit that
failed is not listed; the room write still stands.

# Error Mapping

	room or prediction not found          → 404
	validation, invalid answer            → 400
	add_prediction by someone else        → 403
	prediction closed, already resolved   → 409
	too many concurrent writes, store down → 503 "Please try again"
	anything else                         → 500

# Answer Suggestions

SuggestAnswer asks the oracle about the prediction's question and returns
the candidate with its source, or a null answer. It never resolves.
*/
package handlers
