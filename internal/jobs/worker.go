package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/repos"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

const (
	maxJobAttempts    = 5
	retryDelay        = 30 * time.Second
	staleRunning      = 2 * time.Minute
	heartbeatInterval = 30 * time.Second
)

// Handler executes one job type. A returned error marks the job failed;
// TerminalError additionally exhausts its retries.
type Handler interface {
	JobType() string
	Run(ctx context.Context, job *types.ExtractionJob) error
}

// TerminalError wraps a failure that retrying cannot fix (bad document,
// unparseable output). The worker burns the job's remaining attempts.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return e.Err.Error() }
func (e *TerminalError) Unwrap() error { return e.Err }

type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: map[string]Handler{}}
	for _, h := range handlers {
		r.handlers[h.JobType()] = h
	}
	return r
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	h, ok := r.handlers[jobType]
	return h, ok
}

// Worker polls for runnable jobs and dispatches them. Claims go through
// FOR UPDATE SKIP LOCKED, so running several workers is safe.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.ExtractionJobRepo
	registry *Registry
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.ExtractionJobRepo, registry *Registry) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job, err := w.repo.ClaimNextRunnable(ctx, nil, maxJobAttempts, retryDelay, staleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "error", err.Error())
					continue
				}
				if job == nil {
					continue
				}
				w.runOne(ctx, job)
			}
		}
	}()
}

func (w *Worker) runOne(ctx context.Context, job *types.ExtractionJob) {
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		w.fail(ctx, job, fmt.Errorf("no handler registered for job_type=%s", job.JobType), true)
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(heartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				if err := w.repo.Heartbeat(hbCtx, nil, job.ID); err != nil {
					w.log.Warn("Heartbeat failed", "job_id", job.ID, "error", err.Error())
				}
			}
		}
	}()
	defer stopHeartbeat()

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		runErr = h.Run(ctx, job)
	}()

	if runErr != nil {
		var te *TerminalError
		w.fail(ctx, job, runErr, errors.As(runErr, &te))
		return
	}

	now := time.Now()
	if err := w.repo.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":       types.JobStatusSucceeded,
		"error":        "",
		"heartbeat_at": now,
	}); err != nil {
		w.log.Warn("Failed to mark job succeeded", "job_id", job.ID, "error", err.Error())
	}
}

func (w *Worker) fail(ctx context.Context, job *types.ExtractionJob, cause error, terminal bool) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        types.JobStatusFailed,
		"error":         truncate(cause.Error(), 1000),
		"last_error_at": now,
	}
	if terminal {
		updates["attempts"] = maxJobAttempts
	}
	if err := w.repo.UpdateFields(ctx, nil, job.ID, updates); err != nil {
		w.log.Warn("Failed to mark job failed", "job_id", job.ID, "error", err.Error())
	}
}

// truncate caps s at n bytes without splitting a multi-byte rune, so the
// result stays valid UTF-8 for the text column it lands in.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
