// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package oracle suggests a correct answer for a prediction by asking an
// instant-answer search endpoint. A suggestion is only shown to the room
// creator; resolving still goes through the normal mutation.
package oracle
