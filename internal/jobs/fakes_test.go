package jobs

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nomisafe/nomisafe-backend/internal/extraction"
	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// testDB opens a throwaway in-memory database backing the success-path
// transaction. The fakes never issue SQL through it.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

type fakeJobStore struct {
	mu      sync.Mutex
	updates map[uuid.UUID]map[string]interface{}
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{updates: map[uuid.UUID]map[string]interface{}{}}
}

func (f *fakeJobStore) Create(ctx context.Context, tx *gorm.DB, jobs []*types.ExtractionJob) ([]*types.ExtractionJob, error) {
	return jobs, nil
}

func (f *fakeJobStore) GetLatestByPolicy(ctx context.Context, tx *gorm.DB, ownerUserID, policyID uuid.UUID, jobType string) (*types.ExtractionJob, error) {
	return nil, nil
}

func (f *fakeJobStore) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.ExtractionJob, error) {
	return nil, nil
}

func (f *fakeJobStore) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates[id] == nil {
		f.updates[id] = map[string]interface{}{}
	}
	for k, v := range updates {
		f.updates[id][k] = v
	}
	return nil
}

func (f *fakeJobStore) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error { return nil }

func (f *fakeJobStore) FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error {
	return nil
}

type fakePolicyStore struct {
	mu        sync.Mutex
	policies  map[uuid.UUID]*types.Policy
	updates   map[uuid.UUID]map[string]interface{}
	statusLog []interface{}
}

func newFakePolicyStore() *fakePolicyStore {
	return &fakePolicyStore{
		policies: map[uuid.UUID]*types.Policy{},
		updates:  map[uuid.UUID]map[string]interface{}{},
	}
}

func (f *fakePolicyStore) add(p *types.Policy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[p.ID] = p
}

func (f *fakePolicyStore) Create(ctx context.Context, tx *gorm.DB, policy *types.Policy) (*types.Policy, error) {
	f.add(policy)
	return policy, nil
}

func (f *fakePolicyStore) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policies[id], nil
}

func (f *fakePolicyStore) GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.policies[id]
	if p == nil || p.UserID != userID {
		return nil, nil
	}
	return p, nil
}

func (f *fakePolicyStore) GetDetailForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error) {
	return f.GetByIDForUser(ctx, tx, userID, id)
}

func (f *fakePolicyStore) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error) {
	return nil, nil
}

func (f *fakePolicyStore) ListVerifiedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error) {
	return nil, nil
}

func (f *fakePolicyStore) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates[id] == nil {
		f.updates[id] = map[string]interface{}{}
	}
	for k, v := range updates {
		f.updates[id][k] = v
	}
	if s, ok := updates["ai_extraction_status"]; ok {
		f.statusLog = append(f.statusLog, s)
	}
	return nil
}

func (f *fakePolicyStore) FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.policies, id)
	return nil
}

type fakeDocStore struct {
	mu     sync.Mutex
	byPoly map[uuid.UUID]*types.ExtractedDocument
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{byPoly: map[uuid.UUID]*types.ExtractedDocument{}}
}

func (f *fakeDocStore) Upsert(ctx context.Context, tx *gorm.DB, doc *types.ExtractedDocument) (*types.ExtractedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPoly[doc.PolicyID] = doc
	return doc, nil
}

func (f *fakeDocStore) GetByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) (*types.ExtractedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPoly[policyID], nil
}

func (f *fakeDocStore) FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byPoly, policyID)
	return nil
}

type fakeBlobStore struct {
	mu          sync.Mutex
	blobs       map[string][]byte
	downloadErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) UploadFile(ctx context.Context, key string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = data
	return nil
}

func (f *fakeBlobStore) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blobs[key], nil
}

func (f *fakeBlobStore) DeleteFile(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	return nil
}

func (f *fakeBlobStore) GetPublicURL(key string) string { return "https://cdn.test/" + key }

type fakeExtractor struct {
	result *extraction.Result
	err    error
	calls  int
}

func (f *fakeExtractor) ExtractPolicy(ctx context.Context, displayName string, document []byte) (*extraction.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
