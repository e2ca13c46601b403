package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// TaskHandler couples a task type with its handler function.
type TaskHandler struct {
	Type    string
	Handler func(context.Context, *asynq.Task) error
}

// WorkerConfig groups the dependencies of the background worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
}

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewWorker constructs a Worker from the given configuration.
func NewWorker(cfg WorkerConfig) *Worker {
	server := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 4,
	})
	mux := asynq.NewServeMux()
	for _, handler := range cfg.Handlers {
		mux.HandleFunc(handler.Type, handler.Handler)
	}
	return &Worker{server: server, mux: mux, logger: cfg.Logger}
}

// Run starts the worker and blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	<-ctx.Done()
	w.logger.Info("shutting down worker")
	w.server.Shutdown()
	return ctx.Err()
}
