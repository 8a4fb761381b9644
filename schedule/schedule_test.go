package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/store"
)

type fakeTaskStore struct {
	tasks   []store.Task
	marked  map[string]string // id -> status
	markErr map[string]string // id -> error message
	listErr error
	markFn  func(id, status, errMsg string) error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		marked:  map[string]string{},
		markErr: map[string]string{},
	}
}

func (s *fakeTaskStore) EnqueueTask(_ context.Context, task *store.Task) error {
	s.tasks = append(s.tasks, *task)
	return nil
}

func (s *fakeTaskStore) PendingTasks(_ context.Context, limit int) ([]store.Task, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var pending []store.Task
	for _, t := range s.tasks {
		if t.Status != store.TaskStatusPending {
			continue
		}
		if _, done := s.marked[t.ID]; done {
			continue
		}
		pending = append(pending, t)
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *fakeTaskStore) MarkTask(_ context.Context, id, status, errMsg string) error {
	if s.markFn != nil {
		return s.markFn(id, status, errMsg)
	}
	s.marked[id] = status
	s.markErr[id] = errMsg
	return nil
}

type fakeRunner struct {
	results  map[string]*loom.Result // executionID -> result
	executed []string
	lastCtx  *loom.Context
}

func (r *fakeRunner) ExecuteWithProcessStrategy(_ context.Context, pc *loom.Context, executionID string) *loom.Result {
	r.executed = append(r.executed, executionID)
	r.lastCtx = pc
	if res, ok := r.results[executionID]; ok {
		return res
	}
	return loom.Success(nil)
}

func encodeContext(t *testing.T, pc *loom.Context) []byte {
	t.Helper()
	payload, err := json.Marshal(pc)
	if err != nil {
		t.Fatalf("marshal context: %v", err)
	}
	return payload
}

func newTestDaemon(t *testing.T, runner Runner, tasks store.TaskStore) *Daemon {
	t.Helper()
	d, err := NewDaemon(Config{Runner: runner, Tasks: tasks})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	return d
}

func TestNewDaemon_Validation(t *testing.T) {
	tasks := newFakeTaskStore()
	runner := &fakeRunner{}

	if _, err := NewDaemon(Config{Tasks: tasks}); err == nil {
		t.Error("expected error for nil runner")
	}
	if _, err := NewDaemon(Config{Runner: runner}); err == nil {
		t.Error("expected error for nil task store")
	}
	if _, err := NewDaemon(Config{Runner: runner, Tasks: tasks, Cron: "not a cron"}); err == nil {
		t.Error("expected error for invalid cron expression")
	}
	if _, err := NewDaemon(Config{Runner: runner, Tasks: tasks, Cron: "*/5 * * * *"}); err != nil {
		t.Errorf("expected valid cron expression to be accepted, got %v", err)
	}
}

func TestProcessPending_CompletesSuccessfulTask(t *testing.T) {
	tasks := newFakeTaskStore()
	runner := &fakeRunner{}

	pc := loom.NewContext().WithTopic("golang").WithTarget(loom.TargetKnowledgeGraph)
	tasks.tasks = append(tasks.tasks, store.Task{
		ID:      "task-1",
		Payload: encodeContext(t, pc),
		Status:  store.TaskStatusPending,
	})

	d := newTestDaemon(t, runner, tasks)
	if err := d.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if len(runner.executed) != 1 || runner.executed[0] != "task-1" {
		t.Fatalf("expected task-1 executed once, got %v", runner.executed)
	}
	if runner.lastCtx.TopicName != "golang" {
		t.Errorf("expected decoded topic 'golang', got %q", runner.lastCtx.TopicName)
	}
	if runner.lastCtx.TargetType != loom.TargetKnowledgeGraph {
		t.Errorf("expected decoded target, got %q", runner.lastCtx.TargetType)
	}
	if got := tasks.marked["task-1"]; got != store.TaskStatusCompleted {
		t.Errorf("expected task marked completed, got %q", got)
	}
}

func TestProcessPending_MarksFailedTask(t *testing.T) {
	tasks := newFakeTaskStore()
	runner := &fakeRunner{
		results: map[string]*loom.Result{
			"task-bad": loom.Failure("blueprint generation failed"),
		},
	}

	pc := loom.NewContext().WithTopic("golang")
	tasks.tasks = append(tasks.tasks, store.Task{
		ID:      "task-bad",
		Payload: encodeContext(t, pc),
		Status:  store.TaskStatusPending,
	})

	d := newTestDaemon(t, runner, tasks)
	if err := d.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if got := tasks.marked["task-bad"]; got != store.TaskStatusFailed {
		t.Errorf("expected task marked failed, got %q", got)
	}
	if got := tasks.markErr["task-bad"]; got != "blueprint generation failed" {
		t.Errorf("expected failure message recorded, got %q", got)
	}
}

func TestProcessPending_InvalidPayloadFailsWithoutExecuting(t *testing.T) {
	tasks := newFakeTaskStore()
	runner := &fakeRunner{}

	tasks.tasks = append(tasks.tasks, store.Task{
		ID:      "task-garbage",
		Payload: []byte("{not json"),
		Status:  store.TaskStatusPending,
	})

	d := newTestDaemon(t, runner, tasks)
	if err := d.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if len(runner.executed) != 0 {
		t.Errorf("expected no executions for invalid payload, got %v", runner.executed)
	}
	if got := tasks.marked["task-garbage"]; got != store.TaskStatusFailed {
		t.Errorf("expected task marked failed, got %q", got)
	}
	if !strings.Contains(tasks.markErr["task-garbage"], "invalid task payload") {
		t.Errorf("expected payload error recorded, got %q", tasks.markErr["task-garbage"])
	}
}

func TestProcessPending_ListErrorPropagates(t *testing.T) {
	tasks := newFakeTaskStore()
	tasks.listErr = errors.New("db locked")
	runner := &fakeRunner{}

	d := newTestDaemon(t, runner, tasks)
	err := d.ProcessPending(context.Background())
	if err == nil {
		t.Fatal("expected error from failing task store")
	}
	if !strings.Contains(err.Error(), "db locked") {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestProcessPending_TaskFailureDoesNotStopPass(t *testing.T) {
	tasks := newFakeTaskStore()
	runner := &fakeRunner{
		results: map[string]*loom.Result{
			"task-1": loom.Failure("first failed"),
		},
	}

	pc := loom.NewContext().WithTopic("go")
	for _, id := range []string{"task-1", "task-2"} {
		tasks.tasks = append(tasks.tasks, store.Task{
			ID:      id,
			Payload: encodeContext(t, pc),
			Status:  store.TaskStatusPending,
		})
	}

	d := newTestDaemon(t, runner, tasks)
	if err := d.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if len(runner.executed) != 2 {
		t.Fatalf("expected both tasks executed, got %v", runner.executed)
	}
	if tasks.marked["task-1"] != store.TaskStatusFailed {
		t.Errorf("expected task-1 failed, got %q", tasks.marked["task-1"])
	}
	if tasks.marked["task-2"] != store.TaskStatusCompleted {
		t.Errorf("expected task-2 completed, got %q", tasks.marked["task-2"])
	}
}

func TestProcessPending_RespectsBatchLimit(t *testing.T) {
	tasks := newFakeTaskStore()
	runner := &fakeRunner{}

	pc := loom.NewContext().WithTopic("go")
	for _, id := range []string{"t1", "t2", "t3"} {
		tasks.tasks = append(tasks.tasks, store.Task{
			ID:      id,
			Payload: encodeContext(t, pc),
			Status:  store.TaskStatusPending,
		})
	}

	d, err := NewDaemon(Config{Runner: runner, Tasks: tasks, BatchLimit: 2})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}
	if err := d.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	if len(runner.executed) != 2 {
		t.Errorf("expected 2 tasks in one pass, got %d", len(runner.executed))
	}
}

func TestEnqueue_RoundTripsContext(t *testing.T) {
	tasks := newFakeTaskStore()

	pc := loom.NewContext().WithTopic("distributed systems").WithTarget(loom.TargetPersonalMemory)
	if err := Enqueue(context.Background(), tasks, "queued-1", pc); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if len(tasks.tasks) != 1 {
		t.Fatalf("expected 1 queued task, got %d", len(tasks.tasks))
	}
	task := tasks.tasks[0]
	if task.ID != "queued-1" {
		t.Errorf("expected task id 'queued-1', got %q", task.ID)
	}
	if task.Status != store.TaskStatusPending {
		t.Errorf("expected pending status, got %q", task.Status)
	}

	var decoded loom.Context
	if err := json.Unmarshal(task.Payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.TopicName != "distributed systems" {
		t.Errorf("expected topic preserved, got %q", decoded.TopicName)
	}
	if decoded.TargetType != loom.TargetPersonalMemory {
		t.Errorf("expected target preserved, got %q", decoded.TargetType)
	}
}

func TestDaemon_StartStop(t *testing.T) {
	tasks := newFakeTaskStore()
	runner := &fakeRunner{}

	pc := loom.NewContext().WithTopic("go")
	tasks.tasks = append(tasks.tasks, store.Task{
		ID:      "startup-task",
		Payload: encodeContext(t, pc),
		Status:  store.TaskStatusPending,
	})

	d, err := NewDaemon(Config{Runner: runner, Tasks: tasks, PollInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Starting twice is a no-op.
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	// The initial pass runs immediately; wait for it to land.
	deadline := time.After(2 * time.Second)
	for {
		if tasks.marked["startup-task"] == store.TaskStatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial drain pass did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stopping twice is a no-op.
	if err := d.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNextRunUTC(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 2, 30, 0, time.UTC)

	next, err := NextRunUTC("*/5 * * * *", now)
	if err != nil {
		t.Fatalf("NextRunUTC: %v", err)
	}
	want := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected next run %v, got %v", want, next)
	}

	if _, err := NextRunUTC("", now); err == nil {
		t.Error("expected error for empty expression")
	}
	if _, err := NextRunUTC("CRON_TZ=America/New_York */5 * * * *", now); err == nil {
		t.Error("expected error for timezone prefix")
	}
	if _, err := NextRunUTC("61 * * * *", now); err == nil {
		t.Error("expected error for out-of-range field")
	}
}
