package usage

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = map[string]int{
	"rule":       0,
	"ai":         500,
	"enterprise": 5000,
}

// movableClock is a clock the test can reposition.
type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestLedger(t *testing.T, clock *movableClock) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "usage.db"), testLimits, 100_000, clock.Now)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func june() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
func july() time.Time { return time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC) }

func TestEnsureCurrentMonthCreatesRecord(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	record, err := l.EnsureCurrentMonth("user-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-06", record.Month)
	assert.Equal(t, 0, record.AICalls)
	assert.Equal(t, DefaultPlan, record.Plan)
	assert.Equal(t, june(), record.LastResetAt)
}

func TestMonthRolloverResetsCallsKeepsPlan(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	_, err := l.SetPlan("user-1", "ai")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = l.RecordSuccessfulAICall("user-1")
		require.NoError(t, err)
	}

	record, err := l.EnsureCurrentMonth("user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, record.AICalls)

	// July arrives: counter resets, plan survives.
	clock.Set(july())
	record, err = l.EnsureCurrentMonth("user-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-07", record.Month)
	assert.Equal(t, 0, record.AICalls)
	assert.Equal(t, "ai", record.Plan)
	assert.Equal(t, july(), record.LastResetAt)
}

func TestAllowRefusalAtLimitDoesNotIncrement(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	// Override limit 5; use all of it.
	for i := 0; i < 5; i++ {
		_, err := l.Allow("user-1", "ai", 5)
		require.NoError(t, err)
		_, err = l.RecordSuccessfulAICall("user-1")
		require.NoError(t, err)
	}

	record, err := l.Allow("user-1", "ai", 5)
	require.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, 5, record.AICalls)

	// Repeated refusals never move the counter.
	for i := 0; i < 3; i++ {
		record, err = l.Allow("user-1", "ai", 5)
		require.ErrorIs(t, err, ErrQuotaExhausted)
	}
	assert.Equal(t, 5, record.AICalls)
}

func TestAllowDefaultPlanHasNoAIQuota(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	// rule plan: zero AI calls allowed, even for a brand-new user.
	_, err := l.Allow("user-1", "", 0)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestAllowPlanArgumentUpdatesStoredPlan(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	record, err := l.Allow("user-1", "enterprise", 0)
	require.NoError(t, err)
	assert.Equal(t, "enterprise", record.Plan)

	// The stored plan persists for later calls with no plan argument.
	record, err = l.Allow("user-1", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "enterprise", record.Plan)
}

func TestResolveLimitOverrideCappedAtCeiling(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	assert.Equal(t, 500, l.resolveLimit("ai", 0))
	assert.Equal(t, 42, l.resolveLimit("ai", 42))
	assert.Equal(t, 100_000, l.resolveLimit("ai", 1_000_000))
	// Negative overrides are ignored, not treated as zero.
	assert.Equal(t, 500, l.resolveLimit("ai", -1))
	// Unknown plan: no quota.
	assert.Equal(t, 0, l.resolveLimit("mystery", 0))
}

func TestQuotaRemaining(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	assert.Equal(t, 500, l.QuotaRemaining("ai", 0, 0))
	assert.Equal(t, 1, l.QuotaRemaining("ai", 499, 0))
	assert.Equal(t, 0, l.QuotaRemaining("ai", 500, 0))
	// Over-consumption clamps to zero instead of going negative.
	assert.Equal(t, 0, l.QuotaRemaining("ai", 900, 0))
}

func TestRecordSuccessfulAICall(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	for i := 1; i <= 4; i++ {
		record, err := l.RecordSuccessfulAICall("user-1")
		require.NoError(t, err)
		assert.Equal(t, i, record.AICalls)
	}

	// Counters are per user.
	record, err := l.RecordSuccessfulAICall("user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, record.AICalls)
}

func TestLedgerPersistsAcrossReopen(t *testing.T) {
	clock := &movableClock{now: june()}
	path := filepath.Join(t.TempDir(), "usage.db")

	l, err := Open(path, testLimits, 100_000, clock.Now)
	require.NoError(t, err)
	_, err = l.SetPlan("user-1", "ai")
	require.NoError(t, err)
	_, err = l.RecordSuccessfulAICall("user-1")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(path, testLimits, 100_000, clock.Now)
	require.NoError(t, err)
	defer l.Close()

	record, err := l.EnsureCurrentMonth("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.AICalls)
	assert.Equal(t, "ai", record.Plan)
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	clock := &movableClock{now: june()}
	l := newTestLedger(t, clock)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordSuccessfulAICall("user-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	record, err := l.EnsureCurrentMonth("user-1")
	require.NoError(t, err)
	assert.Equal(t, workers, record.AICalls)
}
