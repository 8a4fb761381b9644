package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/schedule"
)

// NewDaemonCmd creates the "daemon" subcommand.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background task daemon",
		Long: "Polls the task queue and executes each queued request through the\n" +
			"matching pipeline until interrupted.",
		Args: cobra.NoArgs,
		RunE: runDaemon,
	}

	addPipelineFlags(cmd)
	cmd.Flags().Duration("poll-interval", 5*time.Second, "Queue polling period")
	cmd.Flags().String("cron", "", "Five-field UTC cron expression replacing fixed-interval polling")
	cmd.Flags().Int("batch-limit", 100, "Maximum tasks drained per pass")

	return cmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := resolvePipelineConfig(cmd)
	if err != nil {
		return err
	}

	st, err := resolveStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	logger := resolveLogger(cmd)
	orch, shutdown, err := buildOrchestrator(cmd, st, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdown(flushCtx)
	}()

	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	cronExpr, _ := cmd.Flags().GetString("cron")
	batchLimit, _ := cmd.Flags().GetInt("batch-limit")

	daemon, err := schedule.NewDaemon(schedule.Config{
		Runner:       orch,
		Tasks:        st,
		PollInterval: pollInterval,
		Cron:         cronExpr,
		BatchLimit:   batchLimit,
		Logger:       logger,
	})
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := daemon.Start(ctx); err != nil {
		return exitError(exitRuntime, "starting daemon: %v", err)
	}
	logger.Info("daemon started", "poll_interval", pollInterval, "cron", cronExpr)

	<-ctx.Done()
	logger.Info("daemon stopping")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := daemon.Stop(stopCtx); err != nil {
		return exitError(exitRuntime, "stopping daemon: %v", err)
	}
	return nil
}

// NewEnqueueCmd creates the "enqueue" subcommand.
func NewEnqueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue <request-file>",
		Short: "Queue a request for the background daemon",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnqueue,
	}

	cmd.Flags().String("store-path", "", "Path to SQLite store (default: ~/.loom/loom.db)")
	cmd.Flags().String("task-id", "", "Task id (default: generated)")

	return cmd
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	pc, err := loadRequest(args[0])
	if err != nil {
		return err
	}

	st, err := resolveStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	taskID, _ := cmd.Flags().GetString("task-id")
	if taskID == "" {
		taskID = uuid.NewString()
	}

	if err := schedule.Enqueue(cmd.Context(), st, taskID, pc); err != nil {
		return exitError(exitRuntime, "queueing task: %v", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), taskID)
	return nil
}
