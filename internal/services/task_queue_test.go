package services

import (
	"context"
	"sync"
	"testing"

	"github.com/ethosradar/backend/internal/config"
)

func TestTaskTypeAnalyze_Constant(t *testing.T) {
	if TaskTypeAnalyze != "r4r:analyze" {
		t.Errorf("TaskTypeAnalyze = %q, expected %q", TaskTypeAnalyze, "r4r:analyze")
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Enqueue(&AnalyzeTask{Userkey: "profileId:1"}); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
	if err := queue.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSyncQueue_RunsProcessor(t *testing.T) {
	queue := NewSyncQueue()

	var mu sync.Mutex
	var seen []string
	queue.SetProcessor(func(ctx context.Context, task *AnalyzeTask) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, task.Userkey)
		return nil
	})

	for _, key := range []string{"profileId:1", "profileId:2"} {
		if err := queue.Enqueue(&AnalyzeTask{Userkey: key}); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	// Close waits for the background goroutines
	queue.Close()

	if len(seen) != 2 {
		t.Errorf("processor ran %d times, expected 2", len(seen))
	}
}

func TestNewTaskQueue_Fallbacks(t *testing.T) {
	if q := NewTaskQueue(&config.RedisConfig{Enabled: false}); q.IsAsync() {
		t.Error("disabled redis should give a sync queue")
	}
	if q := NewTaskQueue(&config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}); q.IsAsync() {
		t.Error("unreachable redis should fall back to a sync queue")
	}
}

func TestAsyncQueue_IsAsync(t *testing.T) {
	queue := &AsyncQueue{}
	if !queue.IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}

func TestNewWorker_Disabled(t *testing.T) {
	if w := NewWorker(&config.RedisConfig{Enabled: false}, 2); w != nil {
		t.Error("NewWorker should return nil when redis is disabled")
	}
}

func TestDecodeAnalyzeTask(t *testing.T) {
	task, err := decodeAnalyzeTask([]byte(`{"userkey":"profileId:9","include_high_risk":true}`))
	if err != nil {
		t.Fatalf("decodeAnalyzeTask() error = %v", err)
	}
	if task.Userkey != "profileId:9" || !task.IncludeHighRisk {
		t.Errorf("unexpected task: %+v", task)
	}

	for _, payload := range []string{`not json`, `{"include_high_risk":true}`} {
		if _, err := decodeAnalyzeTask([]byte(payload)); err == nil {
			t.Errorf("decodeAnalyzeTask(%s) expected error", payload)
		}
	}
}
