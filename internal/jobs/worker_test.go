package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

type scriptedHandler struct {
	jobType string
	err     error
	panics  bool
	runs    int
}

func (h *scriptedHandler) JobType() string { return h.jobType }

func (h *scriptedHandler) Run(ctx context.Context, job *types.ExtractionJob) error {
	h.runs++
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func queuedJob(jobType string) *types.ExtractionJob {
	return &types.ExtractionJob{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		PolicyID:    uuid.New(),
		JobType:     jobType,
		Status:      types.JobStatusRunning,
		Attempts:    1,
	}
}

func TestRunOneMarksSuccess(t *testing.T) {
	store := newFakeJobStore()
	h := &scriptedHandler{jobType: types.JobTypePolicyExtract}
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry(h))

	job := queuedJob(types.JobTypePolicyExtract)
	w.runOne(context.Background(), job)

	if h.runs != 1 {
		t.Fatalf("handler runs: want=1 got=%d", h.runs)
	}
	updates := store.updates[job.ID]
	if updates["status"] != types.JobStatusSucceeded {
		t.Fatalf("status: want=succeeded got=%v", updates["status"])
	}
	if updates["error"] != "" {
		t.Fatalf("error should be cleared, got %v", updates["error"])
	}
}

func TestRunOnePlainFailureKeepsAttempts(t *testing.T) {
	store := newFakeJobStore()
	h := &scriptedHandler{jobType: types.JobTypePolicyExtract, err: errors.New("gemini timed out")}
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry(h))

	job := queuedJob(types.JobTypePolicyExtract)
	w.runOne(context.Background(), job)

	updates := store.updates[job.ID]
	if updates["status"] != types.JobStatusFailed {
		t.Fatalf("status: want=failed got=%v", updates["status"])
	}
	if updates["error"] != "gemini timed out" {
		t.Fatalf("error text: got %v", updates["error"])
	}
	if _, ok := updates["attempts"]; ok {
		t.Fatal("a transient failure must leave attempts alone so the job retries")
	}
}

func TestRunOneTerminalFailureBurnsAttempts(t *testing.T) {
	store := newFakeJobStore()
	h := &scriptedHandler{
		jobType: types.JobTypePolicyExtract,
		err:     &TerminalError{Err: errors.New("document is a grocery list")},
	}
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry(h))

	job := queuedJob(types.JobTypePolicyExtract)
	w.runOne(context.Background(), job)

	updates := store.updates[job.ID]
	if updates["status"] != types.JobStatusFailed {
		t.Fatalf("status: want=failed got=%v", updates["status"])
	}
	if updates["attempts"] != maxJobAttempts {
		t.Fatalf("terminal failure must exhaust retries: got %v", updates["attempts"])
	}
}

func TestRunOneWrappedTerminalError(t *testing.T) {
	store := newFakeJobStore()
	// TerminalError buried under wrapping still counts.
	wrapped := fmt.Errorf("run extraction: %w", &TerminalError{Err: errors.New("bad document")})
	h := &scriptedHandler{jobType: types.JobTypePolicyExtract, err: wrapped}
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry(h))

	job := queuedJob(types.JobTypePolicyExtract)
	w.runOne(context.Background(), job)

	if store.updates[job.ID]["attempts"] != maxJobAttempts {
		t.Fatalf("wrapped terminal error: got %v", store.updates[job.ID]["attempts"])
	}
}

func TestRunOneRecoversPanic(t *testing.T) {
	store := newFakeJobStore()
	h := &scriptedHandler{jobType: types.JobTypePolicyExtract, panics: true}
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry(h))

	job := queuedJob(types.JobTypePolicyExtract)
	w.runOne(context.Background(), job)

	updates := store.updates[job.ID]
	if updates["status"] != types.JobStatusFailed {
		t.Fatalf("status after panic: want=failed got=%v", updates["status"])
	}
	errText, _ := updates["error"].(string)
	if !strings.Contains(errText, "panic") {
		t.Fatalf("error should record the panic, got %q", errText)
	}
	if _, ok := updates["attempts"]; ok {
		t.Fatal("a panic is treated as transient")
	}
}

func TestRunOneNoHandlerIsTerminal(t *testing.T) {
	store := newFakeJobStore()
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry())

	job := queuedJob("unknown_job_type")
	w.runOne(context.Background(), job)

	updates := store.updates[job.ID]
	if updates["status"] != types.JobStatusFailed {
		t.Fatalf("status: want=failed got=%v", updates["status"])
	}
	if updates["attempts"] != maxJobAttempts {
		t.Fatal("an unroutable job must not be retried forever")
	}
}

func TestFailTruncatesLongErrors(t *testing.T) {
	store := newFakeJobStore()
	h := &scriptedHandler{
		jobType: types.JobTypePolicyExtract,
		err:     errors.New(strings.Repeat("x", 5000)),
	}
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry(h))

	job := queuedJob(types.JobTypePolicyExtract)
	w.runOne(context.Background(), job)

	errText, _ := store.updates[job.ID]["error"].(string)
	if len(errText) != 1000 {
		t.Fatalf("error text should be capped at 1000 chars, got %d", len(errText))
	}
}

func TestFailTruncationKeepsValidUTF8(t *testing.T) {
	store := newFakeJobStore()
	h := &scriptedHandler{
		jobType: types.JobTypePolicyExtract,
		err:     errors.New(strings.Repeat("₹", 500)), // 3 bytes per rune
	}
	w := NewWorker(testDB(t), logger.NewNop(), store, NewRegistry(h))

	job := queuedJob(types.JobTypePolicyExtract)
	w.runOne(context.Background(), job)

	errText, _ := store.updates[job.ID]["error"].(string)
	if len(errText) > 1000 {
		t.Fatalf("cap exceeded: %d bytes", len(errText))
	}
	if !utf8.ValidString(errText) {
		t.Fatal("truncation must not split a rune")
	}
	if len(errText) != 999 {
		t.Fatalf("cut should land on the last rune boundary under the cap: got %d", len(errText))
	}
}
