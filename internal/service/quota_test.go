package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/translearn/translearn/internal/domain"
)

// fakeQuotaStore is an in-memory QuotaStore. It mirrors the repository's
// semantics: EnsureUsageRecord is create-if-absent, ConsumeQuota is a
// guarded increment that reports false instead of going over the limit, and
// the mutex stands in for the atomicity Postgres gives the real queries.
type fakeQuotaStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*domain.User
	records map[string]*domain.UsageRecord
}

func newFakeQuotaStore() *fakeQuotaStore {
	return &fakeQuotaStore{
		users:   make(map[uuid.UUID]*domain.User),
		records: make(map[string]*domain.UsageRecord),
	}
}

func (f *fakeQuotaStore) addUser(plan string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New()
	expires := time.Now().Add(30 * 24 * time.Hour)
	u := &domain.User{ID: id, PlanName: plan, Role: domain.RoleTeacher}
	if plan != "free" {
		u.PlanExpiresAt = &expires
	}
	f.users[id] = u
	return id
}

func (f *fakeQuotaStore) key(userID uuid.UUID, period string) string {
	return fmt.Sprintf("%s/%s", userID, period)
}

func (f *fakeQuotaStore) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("no such user")
	}
	return u, nil
}

func (f *fakeQuotaStore) EnsureUsageRecord(_ context.Context, userID uuid.UUID, period string, limitSnapshot int) (*domain.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := f.key(userID, period)
	if r, ok := f.records[key]; ok {
		return r, nil
	}
	r := &domain.UsageRecord{
		ID:            uuid.New(),
		UserID:        userID,
		Period:        period,
		LimitSnapshot: limitSnapshot,
	}
	f.records[key] = r
	return r, nil
}

func (f *fakeQuotaStore) ConsumeQuota(_ context.Context, userID uuid.UUID, period string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.records[f.key(userID, period)]
	if !ok {
		return false, fmt.Errorf("no usage record")
	}
	if r.UsedCount >= r.LimitSnapshot {
		return false, nil
	}
	r.UsedCount++
	return true, nil
}

func (f *fakeQuotaStore) ListUserIDs(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeQuotaStore) ListUsageHistory(_ context.Context, userID uuid.UUID) ([]*domain.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var records []*domain.UsageRecord
	for _, r := range f.records {
		if r.UserID == userID {
			records = append(records, r)
		}
	}
	return records, nil
}

// recordCount reports how many usage rows exist for a user across all
// periods.
func (f *fakeQuotaStore) recordCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, r := range f.records {
		if r.UserID == userID {
			count++
		}
	}
	return count
}

func testQuotaService(store QuotaStore) QuotaService {
	return NewQuotaService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// =============================================================================
// Tests
// =============================================================================

func TestQuotaService_FreePlanExhaustion(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("free")
	svc := testQuotaService(store)

	// Free plan allows 3 uploads
	for i := 0; i < 3; i++ {
		ok, err := svc.TryConsume(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok, "upload %d should be allowed", i+1)
	}

	// The 4th is denied, without error
	ok, err := svc.TryConsume(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok, "4th upload should be denied")

	decision, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	assert.False(t, decision.CanUpload)
	assert.Equal(t, 3, decision.Used)
	assert.Equal(t, 0, decision.Remaining)
}

func TestQuotaService_CheckIsReadOnly(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("free")
	svc := testQuotaService(store)

	first, err := svc.Check(ctx, userID)
	require.NoError(t, err)

	// Polling the guard never consumes anything
	for i := 0; i < 10; i++ {
		decision, err := svc.Check(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, first, decision)
	}
}

func TestQuotaService_SeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("basic")
	store.addUser("free")
	svc := testQuotaService(store)

	seeded, err := svc.SeedCurrentPeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, seeded)

	// Consume a unit, then seed again. The existing row, including its
	// consumed count, must survive.
	ok, err := svc.TryConsume(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.SeedCurrentPeriod(ctx)
	require.NoError(t, err)

	decision, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, decision.Used)
	assert.Equal(t, 15, decision.Limit)
}

func TestQuotaService_MidMonthUpgradeKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("free")
	svc := testQuotaService(store)

	// Create this month's row under the free plan
	decision, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 3, decision.Limit)

	// Upgrade mid-month. The snapshot was taken at row creation and must
	// not move until next month's row is created.
	expires := time.Now().Add(30 * 24 * time.Hour)
	store.users[userID].PlanName = "premium"
	store.users[userID].PlanExpiresAt = &expires

	decision, err = svc.Check(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, decision.Limit, "current period keeps the free-tier snapshot")
}

func TestQuotaService_ExpiredPlanFallsBackToFree(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("premium")
	expired := time.Now().Add(-24 * time.Hour)
	store.users[userID].PlanExpiresAt = &expired
	svc := testQuotaService(store)

	decision, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, decision.Limit, "lapsed plan snapshots at the free limit")
}

func TestQuotaService_UsageHistory(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("free")
	svc := testQuotaService(store)

	_, err := svc.Check(ctx, userID)
	require.NoError(t, err)

	records, err := svc.GetUsageHistory(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.CurrentPeriod(), records[0].Period)
}

func TestQuotaService_ConcurrentConsumeStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("free") // limit 3
	svc := testQuotaService(store)

	// Many uploads race for three slots; exactly three may win.
	const attempts = 20
	var granted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := svc.TryConsume(ctx, userID)
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 3, granted.Load())

	decision, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	assert.False(t, decision.CanUpload)
	assert.Equal(t, 3, decision.Used)
	assert.Equal(t, 0, decision.Remaining)
}

func TestQuotaService_ConcurrentChecksCreateOneRecord(t *testing.T) {
	ctx := context.Background()
	store := newFakeQuotaStore()
	userID := store.addUser("premium")
	svc := testQuotaService(store)

	// Simultaneous first checks all ensure the period row; only one row
	// may come into existence and none of them consumes anything.
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			decision, err := svc.Check(ctx, userID)
			assert.NoError(t, err)
			if err == nil {
				assert.True(t, decision.CanUpload)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, store.recordCount(userID))

	decision, err := svc.Check(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, decision.Used)
	assert.Equal(t, 50, decision.Limit)
}
