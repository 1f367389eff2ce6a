package infra

import (
	"sync/atomic"
	"time"
)

// DefaultSnapshotTTL is how long a stored snapshot is served before it is stale.
const DefaultSnapshotTTL = time.Hour

// Snapshot pairs a cached value with the time it was stored.
type Snapshot[T any] struct {
	Value    T
	StoredAt time.Time
}

// Age returns how old the snapshot is relative to now.
func (s *Snapshot[T]) Age(now time.Time) time.Duration {
	return now.Sub(s.StoredAt)
}

// TTLCache holds a single snapshot that stays fresh for a fixed duration.
// The value and its timestamp are swapped together in one atomic store, so a
// reader never observes a timestamp that belongs to different data.
type TTLCache[T any] struct {
	ttl     time.Duration
	now     func() time.Time
	current atomic.Pointer[Snapshot[T]]
}

// NewTTLCache creates an empty cache. A nil clock means time.Now.
func NewTTLCache[T any](ttl time.Duration, now func() time.Time) *TTLCache[T] {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache[T]{
		ttl: ttl,
		now: now,
	}
}

// Get returns the stored snapshot if one exists and is younger than the TTL.
func (c *TTLCache[T]) Get() (*Snapshot[T], bool) {
	snap := c.current.Load()
	if snap == nil {
		return nil, false
	}
	if snap.Age(c.now()) >= c.ttl {
		return snap, false
	}
	return snap, true
}

// Peek returns the stored snapshot regardless of its age.
func (c *TTLCache[T]) Peek() (*Snapshot[T], bool) {
	snap := c.current.Load()
	return snap, snap != nil
}

// Store replaces the snapshot with value, stamped with the current time.
func (c *TTLCache[T]) Store(value T) *Snapshot[T] {
	return c.StoreAt(value, c.now())
}

// StoreAt replaces the snapshot with value, stamped with the given time.
func (c *TTLCache[T]) StoreAt(value T, at time.Time) *Snapshot[T] {
	snap := &Snapshot[T]{
		Value:    value,
		StoredAt: at,
	}
	c.current.Store(snap)
	return snap
}

// TTL returns the freshness window.
func (c *TTLCache[T]) TTL() time.Duration {
	return c.ttl
}
