// Package taskpoll drives a long-running remote job to completion:
// submit once, then poll its status at a fixed interval up to an
// attempt budget. The loop is generic over the caller-supplied submit
// and poll functions so the same control flow serves any async API.
package taskpoll

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Status is the normalized state of a remote task. Providers map their
// own vocabulary onto these four values.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Snapshot is one observation of a remote task.
type Snapshot struct {
	Status    Status
	ResultURL string // set when Status == StatusSucceeded
	Message   string // set when Status == StatusFailed
}

// Options controls the poll cadence.
type Options struct {
	Interval    time.Duration // wait between polls, default 2s
	MaxAttempts int           // poll budget, default 60
}

const (
	defaultInterval    = 2 * time.Second
	defaultMaxAttempts = 60
)

// TaskError reports a task the provider marked failed. It is terminal:
// the poller never retries a failed task.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task %s failed", e.TaskID)
	}
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}

// TimeoutError reports that the poll budget ran out before the task
// reached a terminal state. The remote task may still be running; the
// poller stops watching, it does not cancel.
type TimeoutError struct {
	TaskID   string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s still not finished after %d polls", e.TaskID, e.Attempts)
}

// SubmitFunc starts the remote job and returns its identifier.
type SubmitFunc func(ctx context.Context) (string, error)

// PollFunc reads one status snapshot for the given task.
type PollFunc func(ctx context.Context, taskID string) (Snapshot, error)

// Run submits a task and polls it until it succeeds, fails, or the
// attempt budget runs out. On success it returns the task's result URL.
// Failure modes are distinguishable: a *TaskError means the provider
// reported failure, a *TimeoutError means we gave up waiting.
func Run(ctx context.Context, submit SubmitFunc, poll PollFunc, opts Options) (string, error) {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}

	taskID, err := submit(ctx)
	if err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	slog.Debug("task submitted", "task_id", taskID)

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		snap, err := poll(ctx, taskID)
		if err != nil {
			return "", fmt.Errorf("poll task %s: %w", taskID, err)
		}

		switch snap.Status {
		case StatusSucceeded:
			slog.Debug("task succeeded", "task_id", taskID, "polls", attempt)
			return snap.ResultURL, nil
		case StatusFailed:
			return "", &TaskError{TaskID: taskID, Message: snap.Message}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		slog.Debug("task not finished", "task_id", taskID, "status", snap.Status, "poll", attempt)
		if err := sleep(ctx, opts.Interval); err != nil {
			return "", err
		}
	}

	return "", &TimeoutError{TaskID: taskID, Attempts: opts.MaxAttempts}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
