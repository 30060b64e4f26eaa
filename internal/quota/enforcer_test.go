package quota_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/adapter/memstore"
	"gateway/internal/quota"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

const (
	today     = "2026-03-14"
	yesterday = "2026-03-13"
)

func newEnforcer(store quota.Store) *quota.Enforcer {
	return quota.NewEnforcer(store, quota.Options{
		Now:    func() time.Time { return testNow },
		Logger: zerolog.Nop(),
	})
}

func limitsOf(t *testing.T, store *memstore.Store, userID string) quota.Limits {
	t.Helper()
	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	return rec.Limits
}

func TestCheckAndConsume_FreshUser(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed("u1", "u1@example.com", "", quota.Limits{})
	enforcer := newEnforcer(store)

	d, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, quota.PlanFree, d.Plan)
	assert.Equal(t, 5, d.Limit)
	assert.Equal(t, 1, d.Used)
	assert.Equal(t, 4, d.Remaining)
	assert.Equal(t, quota.Limits{Date: today, MailsToday: 1}, limitsOf(t, store, "u1"))
}

func TestCheckAndConsume_DenialDoesNotWrite(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	atCap := quota.Limits{Date: today, MailsToday: 5, ProfileChangesToday: 1}
	store.Seed("u1", "", "free", atCap)
	enforcer := newEnforcer(store)

	for i := 0; i < 3; i++ {
		d, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
		require.ErrorIs(t, err, quota.ErrLimitReached)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, atCap, limitsOf(t, store, "u1"))
	}
}

func TestCheckAndConsume_Rollover(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed("u1", "", "free", quota.Limits{Date: yesterday, MailsToday: 5, ProfileChangesToday: 3})
	enforcer := newEnforcer(store)

	d, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, quota.Limits{Date: today, MailsToday: 1, ProfileChangesToday: 0}, limitsOf(t, store, "u1"))
}

func TestCheckAndConsume_RolloverPersistedOnDenial(t *testing.T) {
	t.Parallel()

	policy, err := quota.ParsePolicy("free=0:3")
	require.NoError(t, err)
	store := memstore.New()
	store.Seed("u1", "", "free", quota.Limits{Date: yesterday, MailsToday: 4, ProfileChangesToday: 2})
	enforcer := quota.NewEnforcer(store, quota.Options{
		Policy: policy,
		Now:    func() time.Time { return testNow },
		Logger: zerolog.Nop(),
	})

	_, err = enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
	require.ErrorIs(t, err, quota.ErrLimitReached)
	assert.Equal(t, quota.Limits{Date: today}, limitsOf(t, store, "u1"))
}

func TestCheckAndConsume_SequentialConsumption(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed("u1", "", "standard", quota.Limits{})
	enforcer := newEnforcer(store)

	allowed := 0
	for i := 0; i < 14; i++ {
		_, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
		if err == nil {
			allowed++
			assert.Equal(t, allowed, limitsOf(t, store, "u1").MailsToday)
			continue
		}
		require.ErrorIs(t, err, quota.ErrLimitReached)
	}
	assert.Equal(t, 10, allowed)
	assert.Equal(t, 10, limitsOf(t, store, "u1").MailsToday)
}

func TestCheckAndConsume_Boundary(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed("u1", "", "premium", quota.Limits{Date: today, ProfileChangesToday: 9})
	enforcer := newEnforcer(store)

	d, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionProfileChange)
	require.NoError(t, err)
	assert.Equal(t, 10, d.Used)
	assert.Equal(t, 0, d.Remaining)

	_, err = enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionProfileChange)
	require.ErrorIs(t, err, quota.ErrLimitReached)
	assert.Equal(t, 10, limitsOf(t, store, "u1").ProfileChangesToday)
}

func TestCheckAndConsume_CrossKindIndependence(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed("u1", "", "free", quota.Limits{Date: today, MailsToday: 2, ProfileChangesToday: 1})
	enforcer := newEnforcer(store)

	_, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
	require.NoError(t, err)
	assert.Equal(t, 1, limitsOf(t, store, "u1").ProfileChangesToday)

	_, err = enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionProfileChange)
	require.NoError(t, err)
	assert.Equal(t, 3, limitsOf(t, store, "u1").MailsToday)
	assert.Equal(t, 2, limitsOf(t, store, "u1").ProfileChangesToday)
}

func TestCheckAndConsume_PlanLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	store.Seed("u1", "", "DeLuxe", quota.Limits{Date: today, MailsToday: 99})
	enforcer := newEnforcer(store)

	d, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
	require.NoError(t, err)
	assert.Equal(t, quota.PlanDeluxe, d.Plan)
	assert.Equal(t, 100, d.Used)
}

func TestCheckAndConsume_NotFound(t *testing.T) {
	t.Parallel()

	enforcer := newEnforcer(memstore.New())
	_, err := enforcer.CheckAndConsume(context.Background(), "ghost", quota.ActionMail)
	assert.ErrorIs(t, err, quota.ErrNotFound)
	assert.NotErrorIs(t, err, quota.ErrInternal)
}

func TestCheckAndConsume_UnknownActionTouchesNothing(t *testing.T) {
	t.Parallel()

	store := &spyStore{}
	enforcer := newEnforcer(store)
	_, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.Action("upload"))
	assert.ErrorIs(t, err, quota.ErrUnknownAction)
	assert.Zero(t, store.gets.Load())
	assert.Zero(t, store.consumes.Load())
}

func TestCheckAndConsume_FetchFailureIsInternal(t *testing.T) {
	t.Parallel()

	store := &spyStore{getErr: errors.New("connection reset")}
	enforcer := newEnforcer(store)
	_, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
	assert.ErrorIs(t, err, quota.ErrInternal)
	assert.NotErrorIs(t, err, quota.ErrLimitReached)
	assert.Equal(t, int32(1), store.gets.Load())
	assert.Zero(t, store.consumes.Load(), "no write after a failed read")
}

func TestCheckAndConsume_PersistFailureIsInternal(t *testing.T) {
	t.Parallel()

	store := &spyStore{consumeErr: errors.New("write timeout")}
	enforcer := newEnforcer(store)
	d, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
	assert.ErrorIs(t, err, quota.ErrInternal)
	assert.False(t, d.Allowed)
	assert.Equal(t, int32(1), store.consumes.Load(), "no retries")
}

func TestCheckAndConsume_ConcurrentCallersNeverExceedCap(t *testing.T) {
	t.Parallel()

	const callers = 40
	store := memstore.New()
	store.Seed("u1", "", "free", quota.Limits{})
	enforcer := newEnforcer(store)

	var allowed, denied atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := enforcer.CheckAndConsume(context.Background(), "u1", quota.ActionMail)
			switch {
			case err == nil:
				allowed.Add(1)
			case errors.Is(err, quota.ErrLimitReached):
				denied.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
	assert.Equal(t, int32(callers-5), denied.Load())
	assert.Equal(t, 5, limitsOf(t, store, "u1").MailsToday)
}

// naiveCheckAndConsume is the plain fetch-then-write sequence with no
// coordination between the two round trips.
func naiveCheckAndConsume(ctx context.Context, store *barrierStore, userID string, action quota.Action, day string, limit int) (bool, error) {
	rec, err := store.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	limits := rec.Limits.Rollover(day)
	if limits.Count(action) >= limit {
		return false, nil
	}
	return true, store.PutLimits(ctx, userID, limits.Increment(action))
}

// TestNaiveFetchThenWriteLosesUpdates documents the race the atomic Consume
// path exists to prevent: every caller reads before anyone writes, all of them
// pass the cap check, and the writes overwrite each other.
func TestNaiveFetchThenWriteLosesUpdates(t *testing.T) {
	t.Parallel()

	const callers = 8
	const limit = 5
	inner := memstore.New()
	inner.Seed("u1", "", "free", quota.Limits{})
	store := newBarrierStore(inner, callers)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := naiveCheckAndConsume(context.Background(), store, "u1", quota.ActionMail, today, limit)
			if err != nil {
				t.Errorf("naive consume: %v", err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(callers), allowed.Load(), "every racer passed the cap check")
	assert.Greater(t, int(allowed.Load()), limit, "cap exceeded")
	assert.Equal(t, 1, limitsOf(t, inner, "u1").MailsToday, "writes overwrote each other")
}

func TestUsage_DoesNotWrite(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	stale := quota.Limits{Date: yesterday, MailsToday: 4, ProfileChangesToday: 2}
	store.Seed("u1", "", "standard", stale)
	enforcer := newEnforcer(store)

	usage, err := enforcer.Usage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, quota.PlanStandard, usage.Plan)
	assert.Equal(t, today, usage.Date)
	assert.Equal(t, quota.PlanLimits{Mails: 10, ProfileChanges: 5}, usage.Caps)
	assert.Equal(t, quota.Limits{Date: today}, usage.Limits)
	assert.Equal(t, stale, limitsOf(t, store, "u1"))

	_, err = enforcer.Usage(context.Background(), "ghost")
	assert.ErrorIs(t, err, quota.ErrNotFound)
}

type spyStore struct {
	getErr     error
	consumeErr error
	gets       atomic.Int32
	consumes   atomic.Int32
}

func (s *spyStore) Get(_ context.Context, userID string) (quota.Record, error) {
	s.gets.Add(1)
	if s.getErr != nil {
		return quota.Record{}, s.getErr
	}
	return quota.Record{UserID: userID, Plan: "free"}, nil
}

func (s *spyStore) Consume(context.Context, string, quota.Action, string, int) (quota.Outcome, error) {
	s.consumes.Add(1)
	if s.consumeErr != nil {
		return quota.Outcome{}, s.consumeErr
	}
	return quota.Outcome{Allowed: true}, nil
}

// barrierStore holds every Get until n callers have read, forcing the
// interleaving where all reads happen before any write.
type barrierStore struct {
	*memstore.Store
	reads sync.WaitGroup
}

func newBarrierStore(inner *memstore.Store, n int) *barrierStore {
	b := &barrierStore{Store: inner}
	b.reads.Add(n)
	return b
}

func (b *barrierStore) Get(ctx context.Context, userID string) (quota.Record, error) {
	rec, err := b.Store.Get(ctx, userID)
	b.reads.Done()
	b.reads.Wait()
	return rec, err
}
