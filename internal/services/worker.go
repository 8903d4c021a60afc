package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethosradar/backend/internal/config"
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/hibiken/asynq"
)

// Worker consumes analyze tasks from the asynq queue
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *AnalyzeTask) error
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when redis is disabled.
func NewWorker(cfg *config.RedisConfig, concurrency int) *Worker {
	if !cfg.Enabled {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warnf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (w *Worker) SetProcessor(processor func(context.Context, *AnalyzeTask) error) {
	w.processor = processor
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeAnalyze, w.handleAnalyzeTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting async worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleAnalyzeTask(ctx context.Context, t *asynq.Task) error {
	task, err := decodeAnalyzeTask(t.Payload())
	if err != nil {
		logger.Warnf("[Worker] Failed to decode task: %v", err)
		// a malformed payload never succeeds on retry
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger.Infof("[Worker] Processing analyze task: userkey=%s, high_risk=%t", task.Userkey, task.IncludeHighRisk)

	if w.processor == nil {
		logger.Warnf("[Worker] No processor set")
		return nil
	}

	return w.processor(ctx, task)
}

func decodeAnalyzeTask(payload []byte) (*AnalyzeTask, error) {
	var task AnalyzeTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, err
	}
	if task.Userkey == "" {
		return nil, fmt.Errorf("analyze task without userkey")
	}
	return &task, nil
}
