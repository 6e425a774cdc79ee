// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package worker retries leaderboard credits that failed after their room
write already succeeded.

The request path never waits on this queue. When the coordinator cannot
apply a credit it hands it to an Enqueuer, which pushes a
leaderboard:credit task onto the "credits" queue with up to 10 retries.
The Server consumes that queue and applies each credit through the same
ledger claim as the request path, so a retried one-time award still pays
at most once.

Without Redis the coordinator falls back to coordinator.LogSink and
failed credits are only logged.
*/
package worker
