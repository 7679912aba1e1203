// Package usage meters paid AI calls per user and calendar month.
package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	bolt "go.etcd.io/bbolt"
)

// ErrQuotaExhausted signals that a user's monthly AI-call quota is spent.
// It is an expected outcome, distinct from failures, so callers present it
// to the user instead of retrying.
var ErrQuotaExhausted = errors.New("monthly AI-call quota exhausted")

// DefaultPlan applies to users seen for the first time. The rule plan
// allows no AI calls until an explicit plan is assigned.
const DefaultPlan = "rule"

// monthLayout is the calendar-month key format (YYYY-MM).
const monthLayout = "2006-01"

var usageBucket = []byte("usage")

// Record is one user's usage for the current calendar month.
type Record struct {
	Month       string    `json:"month"`
	AICalls     int       `json:"ai_calls"`
	Plan        string    `json:"plan"`
	LastResetAt time.Time `json:"last_reset_at"`
}

// Clock abstracts time for deterministic month-rollover tests.
type Clock func() time.Time

// Ledger is a bbolt-backed monthly usage ledger. The read-modify-write
// cycle is a critical section per user; concurrent requests from the same
// user serialize on a per-user lock so increments are never lost.
type Ledger struct {
	db              *bolt.DB
	limits          map[string]int
	overrideCeiling int
	clock           Clock

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// Open opens (creating if needed) the ledger database at path. A nil
// clock uses time.Now.
func Open(path string, limits map[string]int, overrideCeiling int, clock Clock) (*Ledger, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open usage ledger: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usageBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize usage ledger: %w", err)
	}

	if clock == nil {
		clock = time.Now
	}
	if overrideCeiling <= 0 {
		overrideCeiling = 100_000
	}

	return &Ledger{
		db:              db,
		limits:          limits,
		overrideCeiling: overrideCeiling,
		clock:           clock,
		userLocks:       make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the ledger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// userLock returns the mutex guarding one user's records.
func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.userLocks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.userLocks[userID] = m
	}
	return m
}

// EnsureCurrentMonth returns the user's record for the current calendar
// month, creating or replacing a missing/stale record with zero calls.
// The previous plan survives the rollover.
func (l *Ledger) EnsureCurrentMonth(userID string) (*Record, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return l.ensureCurrentMonthLocked(userID)
}

func (l *Ledger) ensureCurrentMonthLocked(userID string) (*Record, error) {
	record, err := l.read(userID)
	if err != nil {
		return nil, err
	}

	month := l.clock().Format(monthLayout)
	if record != nil && record.Month == month {
		return record, nil
	}

	fresh := &Record{
		Month:       month,
		AICalls:     0,
		Plan:        DefaultPlan,
		LastResetAt: l.clock(),
	}
	if record != nil && record.Plan != "" {
		fresh.Plan = record.Plan
	}
	if err := l.write(userID, fresh); err != nil {
		return nil, err
	}

	log.Debug("Usage record reset for new month", "user", userID, "month", month, "plan", fresh.Plan)
	return fresh, nil
}

// SetPlan explicitly changes a user's plan, surviving future rollovers.
func (l *Ledger) SetPlan(userID, plan string) (*Record, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.ensureCurrentMonthLocked(userID)
	if err != nil {
		return nil, err
	}
	if plan == record.Plan {
		return record, nil
	}
	record.Plan = plan
	if err := l.write(userID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Allow decides, before a generation attempt, whether the user may make
// another AI call. A non-empty plan updates the stored plan first. The
// refusal condition is aiCalls >= limit; a refusal never mutates the
// counter. Returns ErrQuotaExhausted on refusal.
func (l *Ledger) Allow(userID, plan string, overrideLimit int) (*Record, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.ensureCurrentMonthLocked(userID)
	if err != nil {
		return nil, err
	}
	if plan != "" && plan != record.Plan {
		record.Plan = plan
		if err := l.write(userID, record); err != nil {
			return nil, err
		}
	}

	limit := l.resolveLimit(record.Plan, overrideLimit)
	if record.AICalls >= limit {
		return record, fmt.Errorf("%w: %d/%d calls used", ErrQuotaExhausted, record.AICalls, limit)
	}
	return record, nil
}

// RecordSuccessfulAICall increments the user's counter by exactly one.
// Invoke only after a generation call completed successfully; failed or
// refused calls must not count.
func (l *Ledger) RecordSuccessfulAICall(userID string) (*Record, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	record, err := l.ensureCurrentMonthLocked(userID)
	if err != nil {
		return nil, err
	}
	record.AICalls++
	if err := l.write(userID, record); err != nil {
		return nil, err
	}
	return record, nil
}

// QuotaRemaining reports how many calls remain for the given plan and
// counter, clamped to zero. The refusal decision itself lives in Allow.
func (l *Ledger) QuotaRemaining(plan string, aiCalls, overrideLimit int) int {
	remaining := l.resolveLimit(plan, overrideLimit) - aiCalls
	if remaining < 0 {
		return 0
	}
	return remaining
}

// resolveLimit picks the plan's default limit unless a valid positive
// override is supplied, capped at the configured ceiling.
func (l *Ledger) resolveLimit(plan string, overrideLimit int) int {
	if overrideLimit > 0 {
		if overrideLimit > l.overrideCeiling {
			return l.overrideCeiling
		}
		return overrideLimit
	}
	return l.limits[plan]
}

// read loads one user's record; nil when none exists.
func (l *Ledger) read(userID string) (*Record, error) {
	var record *Record
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(usageBucket).Get([]byte(userID))
		if data == nil {
			return nil
		}
		record = &Record{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read usage record: %w", err)
	}
	return record, nil
}

// write persists one user's record.
func (l *Ledger) write(userID string, record *Record) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return tx.Bucket(usageBucket).Put([]byte(userID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write usage record: %w", err)
	}
	return nil
}
