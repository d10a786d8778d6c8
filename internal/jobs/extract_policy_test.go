package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nomisafe/nomisafe-backend/internal/extraction"
	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

func newExtractHandlerForTest(t *testing.T, ex *fakeExtractor) (*ExtractPolicyHandler, *fakePolicyStore, *fakeDocStore, *fakeBlobStore) {
	t.Helper()
	policyStore := newFakePolicyStore()
	docStore := newFakeDocStore()
	blobs := newFakeBlobStore()
	h := NewExtractPolicyHandler(testDB(t), logger.NewNop(), policyStore, docStore, blobs, ex)
	return h, policyStore, docStore, blobs
}

func pendingPolicy() *types.Policy {
	id := uuid.New()
	return &types.Policy{
		ID:                 id,
		UserID:             uuid.New(),
		Name:               "My Policy",
		StorageKey:         "policies/" + id.String() + "/doc.pdf",
		AIExtractionStatus: types.ExtractionPending,
	}
}

func jobFor(p *types.Policy) *types.ExtractionJob {
	return &types.ExtractionJob{
		ID:          uuid.New(),
		OwnerUserID: p.UserID,
		PolicyID:    p.ID,
		JobType:     types.JobTypePolicyExtract,
		Status:      types.JobStatusRunning,
	}
}

func TestExtractPolicyJobSuccess(t *testing.T) {
	ex := &fakeExtractor{result: &extraction.Result{
		InsuranceType: types.InsuranceLife,
		ModelName:     "fake-model",
		Data:          map[string]any{"insurance_type": "LIFE", "policy_number": "L-1"},
	}}
	h, policyStore, docStore, blobs := newExtractHandlerForTest(t, ex)

	policy := pendingPolicy()
	policyStore.add(policy)
	blobs.blobs[policy.StorageKey] = []byte("%PDF-1.4")

	if err := h.Run(context.Background(), jobFor(policy)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc := docStore.byPoly[policy.ID]
	if doc == nil {
		t.Fatal("extraction result row missing")
	}
	if doc.ModelName != "fake-model" {
		t.Fatalf("model name: got %q", doc.ModelName)
	}
	if !strings.Contains(string(doc.Raw), `"policy_number":"L-1"`) {
		t.Fatalf("raw payload: got %s", doc.Raw)
	}

	updates := policyStore.updates[policy.ID]
	if updates["ai_extraction_status"] != types.ExtractionCompleted {
		t.Fatalf("final status: want=COMPLETED got=%v", updates["ai_extraction_status"])
	}
	if updates["ai_extraction_error"] != "" {
		t.Fatalf("error should be cleared, got %v", updates["ai_extraction_error"])
	}
	if _, ok := updates["ai_extracted_at"]; !ok {
		t.Fatal("ai_extracted_at should be stamped")
	}
	if updates["rate_limited"] != false {
		t.Fatal("rate_limited should be reset on success")
	}
}

func TestExtractPolicyJobMissingPolicyIsTerminal(t *testing.T) {
	h, _, _, _ := newExtractHandlerForTest(t, &fakeExtractor{})

	err := h.Run(context.Background(), jobFor(pendingPolicy()))
	var te *TerminalError
	if !errors.As(err, &te) {
		t.Fatalf("deleted policy: want *TerminalError, got %T: %v", err, err)
	}
}

func TestExtractPolicyJobNotInsurance(t *testing.T) {
	ex := &fakeExtractor{err: &extraction.NotInsuranceError{Reason: "This is a bank statement"}}
	h, policyStore, docStore, blobs := newExtractHandlerForTest(t, ex)

	policy := pendingPolicy()
	policyStore.add(policy)
	blobs.blobs[policy.StorageKey] = []byte("%PDF-1.4")

	err := h.Run(context.Background(), jobFor(policy))
	var te *TerminalError
	if !errors.As(err, &te) {
		t.Fatalf("rejected document: want *TerminalError, got %T: %v", err, err)
	}

	updates := policyStore.updates[policy.ID]
	if updates["ai_extraction_status"] != types.ExtractionFailed {
		t.Fatalf("status: want=FAILED got=%v", updates["ai_extraction_status"])
	}
	errText, _ := updates["ai_extraction_error"].(string)
	if !strings.Contains(errText, "bank statement") {
		t.Fatalf("failure reason should surface to the user, got %q", errText)
	}
	if updates["rate_limited"] != false {
		t.Fatal("a rejected document is not a rate limit")
	}
	if docStore.byPoly[policy.ID] != nil {
		t.Fatal("no result row for a failed extraction")
	}
}

func TestExtractPolicyJobTransientFailureRetries(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("connection reset by peer")}
	h, policyStore, _, blobs := newExtractHandlerForTest(t, ex)

	policy := pendingPolicy()
	policyStore.add(policy)
	blobs.blobs[policy.StorageKey] = []byte("%PDF-1.4")

	err := h.Run(context.Background(), jobFor(policy))
	if err == nil {
		t.Fatal("expected error")
	}
	var te *TerminalError
	if errors.As(err, &te) {
		t.Fatalf("a network failure must stay retryable, got %v", err)
	}
	if policyStore.updates[policy.ID]["ai_extraction_status"] != types.ExtractionFailed {
		t.Fatal("policy should read FAILED between retries so polling is honest")
	}
}

func TestExtractPolicyJobRateLimitFlagged(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("googleapi: Error 429: quota exceeded")}
	h, policyStore, _, blobs := newExtractHandlerForTest(t, ex)

	policy := pendingPolicy()
	policyStore.add(policy)
	blobs.blobs[policy.StorageKey] = []byte("%PDF-1.4")

	if err := h.Run(context.Background(), jobFor(policy)); err == nil {
		t.Fatal("expected error")
	}
	if policyStore.updates[policy.ID]["rate_limited"] != true {
		t.Fatal("429 failures must set rate_limited")
	}
}

func TestExtractPolicyJobDownloadFailure(t *testing.T) {
	h, policyStore, _, blobs := newExtractHandlerForTest(t, &fakeExtractor{})
	blobs.downloadErr = errors.New("storage: object doesn't exist")

	policy := pendingPolicy()
	policyStore.add(policy)

	err := h.Run(context.Background(), jobFor(policy))
	if err == nil {
		t.Fatal("expected error")
	}
	errText, _ := policyStore.updates[policy.ID]["ai_extraction_error"].(string)
	if !strings.Contains(errText, "download document") {
		t.Fatalf("failure should name the download step, got %q", errText)
	}
}

func TestExtractPolicyJobMarksProcessingFirst(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("boom")}
	h, policyStore, _, blobs := newExtractHandlerForTest(t, ex)

	policy := pendingPolicy()
	policyStore.add(policy)
	blobs.blobs[policy.StorageKey] = []byte("%PDF-1.4")

	_ = h.Run(context.Background(), jobFor(policy))
	if ex.calls != 1 {
		t.Fatalf("extractor calls: want=1 got=%d", ex.calls)
	}
	want := []interface{}{types.ExtractionProcessing, types.ExtractionFailed}
	if len(policyStore.statusLog) != len(want) {
		t.Fatalf("status writes: want=%v got=%v", want, policyStore.statusLog)
	}
	for i := range want {
		if policyStore.statusLog[i] != want[i] {
			t.Fatalf("status sequence: want=%v got=%v", want, policyStore.statusLog)
		}
	}
}
