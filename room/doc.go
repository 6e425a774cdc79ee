// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package room is the state machine for rooms and their predictions.

Every function is pure: it takes a room snapshot and the current time and
returns a new room (deep-copied, the input is never modified) or an error.
Nothing here touches storage, so a failed transition never leaves a partial
write behind.

# Transitions

	New               → fresh room, fails only on empty name
	AddPrediction     → creator appends an open prediction
	SubmitResponse    → upsert one answer per username while open
	ResolvePrediction → set correct answer and winners, exactly once
	AddComment        → append to the chat log

# Prediction Lifecycle

	open ──deadline passes──▶ closed
	  │                          │
	  └──────── resolve ─────────┴──▶ resolved (terminal)

Only open predictions accept responses. Both open and closed accept
resolution. Resolving twice returns ErrAlreadyResolved.

# Answer Validation

  - yesno: exactly "Yes" or "No"
  - multiple: one of the stored options, case-sensitive
  - text: any non-blank string

Winners are compared case-folded and trimmed (see package scoring).

# Errors

ErrValidation (wrapped with detail), ErrPredictionNotFound,
ErrPredictionClosed, ErrInvalidAnswer, ErrAlreadyResolved, ErrNotCreator.
*/
package room
