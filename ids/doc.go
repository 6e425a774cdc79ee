// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ids generates identifiers for rooms, predictions and comments.

# Room IDs

Room ids appear in share links, so they are short base62 strings built from
8 random bytes:

	roomID, err := ids.NewRoomID()

Collisions are detected by the store on create; callers retry with a fresh id.

# Prediction IDs

Predictions use random UUIDs:

	predictionID := ids.NewPredictionID()

# Comment IDs

Comments use 12 random bytes, hex encoded by GenerateID:

	commentID, err := ids.NewCommentID()
*/
package ids
