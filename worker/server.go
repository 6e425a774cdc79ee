// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Server runs the credit retry worker.
type Server struct {
	server  *asynq.Server
	handler *CreditHandler
}

// ParseRedisURL turns a redis:// URL into asynq connection options.
func ParseRedisURL(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opt, nil
}

func NewServer(redisOpt asynq.RedisConnOpt, handler *CreditHandler) *Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{QueueCredits: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			taskID, _ := asynq.GetTaskID(ctx)
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			slog.Error("task failed",
				"task_id", taskID,
				"task_type", task.Type(),
				"retry", retry,
				"max_retry", maxRetry,
				"error", err,
			)
		}),
	})
	return &Server{server: srv, handler: handler}
}

// Start begins processing in background goroutines.
func (s *Server) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeLeaderboardCredit, s.handler.ProcessTask)

	slog.Info("credit worker starting", "queue", QueueCredits)
	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start credit worker: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight tasks and stops the worker.
func (s *Server) Shutdown() {
	slog.Info("credit worker shutting down")
	s.server.Shutdown()
}
