// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scoring holds the fixed point table and the winner-selection rule.

# Point Table

	Create room                  +20
	Add a prediction (creator)   +15
	Join a room (first visit)    +10
	Submit a response            +5
	Winner on a resolved question +pointValue

# Winner Selection

A response wins when its answer, case-folded and trimmed, equals the correct
answer case-folded and trimmed:

	winners := scoring.Winners(p.Responses, "yes") // " Yes " matches

# Credits

Every award is a models.Credit carrying a ledger event in Once. The
coordinator claims (username, room, event) in the credit ledger before
applying the credit, so each award lands at most once no matter how many
times a client repeats the action.
*/
package scoring
