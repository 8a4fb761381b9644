// Package schedule runs the background daemon that drains the queued
// processing requests and executes them through the orchestrator.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/store"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchLimit   = 100
)

// Runner executes a pipeline for a decoded task context. Satisfied by
// *orchestrator.Orchestrator.
type Runner interface {
	ExecuteWithProcessStrategy(ctx context.Context, pc *loom.Context, executionID string) *loom.Result
}

// Config configures the background task daemon.
type Config struct {
	Runner Runner
	Tasks  store.TaskStore

	// PollInterval is the fixed polling period. Ignored when Cron is set.
	PollInterval time.Duration

	// Cron, when non-empty, replaces fixed-interval polling with a
	// standard five-field UTC cron expression.
	Cron string

	BatchLimit int
	Now        func() time.Time
	Logger     *slog.Logger
}

// Daemon periodically drains pending tasks and runs each one through the
// orchestrator, marking the task completed or failed from the result.
type Daemon struct {
	runner       Runner
	tasks        store.TaskStore
	pollInterval time.Duration
	cronExpr     string
	batchLimit   int
	now          func() time.Time
	logger       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDaemon creates a task daemon instance.
func NewDaemon(cfg Config) (*Daemon, error) {
	if cfg.Runner == nil {
		return nil, errors.New("schedule daemon runner is nil")
	}
	if cfg.Tasks == nil {
		return nil, errors.New("schedule daemon task store is nil")
	}
	if cfg.Cron != "" {
		if _, err := parseCron(cfg.Cron); err != nil {
			return nil, err
		}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultBatchLimit
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Daemon{
		runner:       cfg.Runner,
		tasks:        cfg.Tasks,
		pollInterval: cfg.PollInterval,
		cronExpr:     cfg.Cron,
		batchLimit:   cfg.BatchLimit,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}, nil
}

// Start starts background polling. Calling Start on a running daemon is a
// no-op.
func (d *Daemon) Start(ctx context.Context) error {
	if d == nil {
		return errors.New("schedule daemon is nil")
	}

	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	go func() {
		defer close(done)
		if err := d.ProcessPending(loopCtx); err != nil {
			d.logger.Error("process pending tasks", "error", err)
		}

		for {
			wait := d.nextWait()
			timer := time.NewTimer(wait)
			select {
			case <-loopCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if err := d.ProcessPending(loopCtx); err != nil {
					d.logger.Error("process pending tasks", "error", err)
				}
			}
		}
	}()

	_ = ctx
	return nil
}

// Stop stops background polling and waits for the loop to exit.
func (d *Daemon) Stop(ctx context.Context) error {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// nextWait returns the duration until the next polling pass.
func (d *Daemon) nextWait() time.Duration {
	if d.cronExpr == "" {
		return d.pollInterval
	}
	now := d.now().UTC()
	next, err := NextRunUTC(d.cronExpr, now)
	if err != nil {
		// Expression was validated at construction; fall back anyway.
		return d.pollInterval
	}
	wait := next.Sub(now)
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}

// ProcessPending executes a single drain pass: it loads up to BatchLimit
// pending tasks and runs each one sequentially. Task-level failures are
// recorded on the task and do not stop the pass.
func (d *Daemon) ProcessPending(ctx context.Context) error {
	if d == nil || d.tasks == nil || d.runner == nil {
		return errors.New("schedule daemon is not configured")
	}

	pending, err := d.tasks.PendingTasks(ctx, d.batchLimit)
	if err != nil {
		return fmt.Errorf("schedule: list pending tasks: %w", err)
	}

	for _, task := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.processTask(ctx, task)
	}
	return nil
}

func (d *Daemon) processTask(ctx context.Context, task store.Task) {
	var pc loom.Context
	if err := json.Unmarshal(task.Payload, &pc); err != nil {
		d.markTask(ctx, task.ID, store.TaskStatusFailed, fmt.Sprintf("invalid task payload: %v", err))
		return
	}

	res := d.runner.ExecuteWithProcessStrategy(ctx, &pc, task.ID)
	if res == nil {
		d.markTask(ctx, task.ID, store.TaskStatusFailed, "pipeline returned no result")
		return
	}

	if res.Success {
		d.logger.Info("task completed",
			"task_id", task.ID,
			"duration_seconds", res.DurationSeconds)
		d.markTask(ctx, task.ID, store.TaskStatusCompleted, "")
		return
	}

	d.logger.Warn("task failed",
		"task_id", task.ID,
		"error", res.ErrorMessage)
	d.markTask(ctx, task.ID, store.TaskStatusFailed, res.ErrorMessage)
}

func (d *Daemon) markTask(ctx context.Context, id, status, errMsg string) {
	if err := d.tasks.MarkTask(ctx, id, status, errMsg); err != nil {
		d.logger.Error("mark task", "task_id", id, "status", status, "error", err)
	}
}

// Enqueue serializes the context and queues it for the daemon. The task id
// doubles as the pipeline execution id once the task runs.
func Enqueue(ctx context.Context, tasks store.TaskStore, id string, pc *loom.Context) error {
	payload, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("schedule: encode task payload: %w", err)
	}
	return tasks.EnqueueTask(ctx, &store.Task{
		ID:      id,
		Payload: payload,
		Status:  store.TaskStatusPending,
	})
}

// Daemon schedules use the standard five fields (minute hour dom month
// dow), no seconds, no descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRunUTC returns the first activation of the expression after now.
// Expressions are evaluated in UTC so a daemon's drain cadence does not
// shift with the host timezone.
func NextRunUTC(expr string, now time.Time) (time.Time, error) {
	sched, err := parseCron(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now.UTC()), nil
}

func parseCron(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("cron expression is required")
	}
	if upper := strings.ToUpper(expr); strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, errors.New("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return sched, nil
}
