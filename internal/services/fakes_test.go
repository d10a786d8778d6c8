package services

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

	"github.com/nomisafe/nomisafe-backend/internal/types"
)

// testDB opens a throwaway in-memory database. Transactions need a live
// connection; the fakes below never touch it.
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

type fakePolicyRepo struct {
	mu       sync.Mutex
	policies map[uuid.UUID]*types.Policy
	updates  map[uuid.UUID]map[string]interface{}
	created  []*types.Policy
	deleted  []uuid.UUID
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{
		policies: map[uuid.UUID]*types.Policy{},
		updates:  map[uuid.UUID]map[string]interface{}{},
	}
}

func (f *fakePolicyRepo) add(p *types.Policy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[p.ID] = p
}

func (f *fakePolicyRepo) Create(ctx context.Context, tx *gorm.DB, policy *types.Policy) (*types.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[policy.ID] = policy
	f.created = append(f.created, policy)
	return policy, nil
}

func (f *fakePolicyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policies[id], nil
}

func (f *fakePolicyRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.policies[id]
	if p == nil || p.UserID != userID {
		return nil, nil
	}
	return p, nil
}

func (f *fakePolicyRepo) GetDetailForUser(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.Policy, error) {
	return f.GetByIDForUser(ctx, tx, userID, id)
}

func (f *fakePolicyRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Policy
	for _, p := range f.policies {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePolicyRepo) ListVerifiedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Policy
	for _, p := range f.policies {
		if p.UserID == userID && p.IsVerifiedByUser {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePolicyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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

func (f *fakePolicyRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.policies, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*types.User
	byPhone map[string]*types.User
	updates map[uuid.UUID]map[string]interface{}
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[uuid.UUID]*types.User{},
		byPhone: map[string]*types.User{},
		updates: map[uuid.UUID]map[string]interface{}{},
	}
}

func (f *fakeUserRepo) add(u *types.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byPhone[u.PhoneNumber] = u
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.byID[user.ID] = user
	f.byPhone[user.PhoneNumber] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *fakeUserRepo) GetByPhoneNumber(ctx context.Context, tx *gorm.DB, phoneNumber string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPhone[phoneNumber], nil
}

func (f *fakeUserRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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

type fakeUserTokenRepo struct {
	mu     sync.Mutex
	byHash map[string]*types.UserToken
}

func newFakeUserTokenRepo() *fakeUserTokenRepo {
	return &fakeUserTokenRepo{byHash: map[string]*types.UserToken{}}
}

func (f *fakeUserTokenRepo) Create(ctx context.Context, tx *gorm.DB, token *types.UserToken) (*types.UserToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	f.byHash[token.TokenHash] = token
	return token, nil
}

func (f *fakeUserTokenRepo) GetByTokenHash(ctx context.Context, tx *gorm.DB, tokenHash string) (*types.UserToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byHash[tokenHash], nil
}

func (f *fakeUserTokenRepo) RevokeByTokenHash(ctx context.Context, tx *gorm.DB, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok := f.byHash[tokenHash]; tok != nil {
		tok.Revoked = true
	}
	return nil
}

func (f *fakeUserTokenRepo) RevokeAllForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tok := range f.byHash {
		if tok.UserID == userID {
			tok.Revoked = true
		}
	}
	return nil
}

func (f *fakeUserTokenRepo) DeleteExpired(ctx context.Context, tx *gorm.DB) error { return nil }

type fakeDocRepo struct {
	mu     sync.Mutex
	byPoly map[uuid.UUID]*types.ExtractedDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{byPoly: map[uuid.UUID]*types.ExtractedDocument{}}
}

func (f *fakeDocRepo) Upsert(ctx context.Context, tx *gorm.DB, doc *types.ExtractedDocument) (*types.ExtractedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPoly[doc.PolicyID] = doc
	return doc, nil
}

func (f *fakeDocRepo) GetByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) (*types.ExtractedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPoly[policyID], nil
}

func (f *fakeDocRepo) FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byPoly, policyID)
	return nil
}

type fakeJobRepo struct {
	mu        sync.Mutex
	created   []*types.ExtractionJob
	createErr error
}

func (f *fakeJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.ExtractionJob) ([]*types.ExtractionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, jobs...)
	return jobs, nil
}

func (f *fakeJobRepo) GetLatestByPolicy(ctx context.Context, tx *gorm.DB, ownerUserID, policyID uuid.UUID, jobType string) (*types.ExtractionJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay, staleRunning time.Duration) (*types.ExtractionJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error { return nil }

func (f *fakeJobRepo) FullDeleteByPolicyID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) error {
	return nil
}

type fakeBucket struct {
	mu        sync.Mutex
	uploads   map[string][]byte
	deletes   []string
	uploadErr error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: map[string][]byte{}}
}

func (f *fakeBucket) UploadFile(ctx context.Context, key string, file io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key] = data
	return nil
}

func (f *fakeBucket) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[key], nil
}

func (f *fakeBucket) DeleteFile(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	delete(f.uploads, key)
	return nil
}

func (f *fakeBucket) GetPublicURL(key string) string { return "https://cdn.test/" + key }

type fakeChildrenRepo struct {
	mu             sync.Mutex
	coverage       *types.PolicyCoverage
	nominees       []*types.PolicyNominee
	benefits       []*types.PolicyBenefit
	exclusions     []*types.PolicyExclusion
	healthDetails  *types.HealthInsuranceDetails
	coveredMembers []*types.CoveredMember
	motorDetails   *types.MotorInsuranceDetails
	coverageErr    error
}

func (f *fakeChildrenRepo) UpsertCoverage(ctx context.Context, tx *gorm.DB, coverage *types.PolicyCoverage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coverageErr != nil {
		return f.coverageErr
	}
	f.coverage = coverage
	return nil
}

func (f *fakeChildrenRepo) ReplaceNominees(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, nominees []*types.PolicyNominee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nominees = nominees
	return nil
}

func (f *fakeChildrenRepo) ReplaceBenefits(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, benefits []*types.PolicyBenefit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.benefits = benefits
	return nil
}

func (f *fakeChildrenRepo) ReplaceExclusions(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, exclusions []*types.PolicyExclusion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exclusions = exclusions
	return nil
}

func (f *fakeChildrenRepo) UpsertHealthDetails(ctx context.Context, tx *gorm.DB, details *types.HealthInsuranceDetails) (*types.HealthInsuranceDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if details.ID == uuid.Nil {
		details.ID = uuid.New()
	}
	f.healthDetails = details
	return details, nil
}

func (f *fakeChildrenRepo) ReplaceCoveredMembers(ctx context.Context, tx *gorm.DB, healthDetailsID uuid.UUID, members []*types.CoveredMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coveredMembers = members
	return nil
}

func (f *fakeChildrenRepo) UpsertMotorDetails(ctx context.Context, tx *gorm.DB, details *types.MotorInsuranceDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.motorDetails = details
	return nil
}

type fakeOTPStore struct {
	mu        sync.Mutex
	hashes    map[string]string
	attempts  map[string]int
	attemptsE error
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{hashes: map[string]string{}, attempts: map[string]int{}}
}

func (f *fakeOTPStore) Save(ctx context.Context, phoneNumber, codeHash string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashes[phoneNumber] = codeHash
	f.attempts[phoneNumber] = 0
	return nil
}

func (f *fakeOTPStore) IncrementAttempts(ctx context.Context, phoneNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attemptsE != nil {
		return f.attemptsE
	}
	f.attempts[phoneNumber]++
	return nil
}

func (f *fakeOTPStore) GetHash(ctx context.Context, phoneNumber string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hashes[phoneNumber]
	if !ok {
		return "", ErrOTPNotFound
	}
	return h, nil
}

func (f *fakeOTPStore) Consume(ctx context.Context, phoneNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hashes, phoneNumber)
	delete(f.attempts, phoneNumber)
	return nil
}

type fakeSMS struct {
	mu    sync.Mutex
	sent  []string
	codes []string
}

func (f *fakeSMS) SendOTP(ctx context.Context, phoneNumber, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, phoneNumber)
	f.codes = append(f.codes, code)
	return nil
}
