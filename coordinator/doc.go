// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package coordinator serializes concurrent writes to a room and pays out
leaderboard credits.

# Mutation Protocol

Every room mutation is a pure transition (package room) applied with
optimistic concurrency:

 1. Read the room and its version token
 2. Run the transition against that snapshot
 3. Swap the result in only if the version is unchanged
 4. On ErrConflict, back off and go to 1

Five attempts by default, exponential backoff starting at 20ms. When they
run out the caller gets ErrRetriesExhausted and nothing was written.
Transition errors (validation, closed prediction, already resolved) and
ErrNotFound stop immediately without retrying.

# Credits

Transitions return the credits they earn. Credits are applied only after
the room write succeeded, concurrently, against the atomic leaderboard
increment, and never roll the room back. A credit that fails goes to the
CreditSink (log-only by default, or the retry queue in package worker).

One-time awards carry a ledger event and are claimed first:

	create           +20  room creator
	predict:{pid}    +15  room creator
	join             +10  first visit per username and room
	respond:{pid}     +5  first answer to a prediction
	resolve:{pid}   value  each responder, winners only get points

# Usage

	coord := coordinator.New(backend)
	res, err := coord.SubmitResponse(ctx, roomID, predictionID, "alice", "Yes")
	if errors.Is(err, coordinator.ErrRetriesExhausted) {
	    // ask the user to try again
	}
*/
package coordinator
