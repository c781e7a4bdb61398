// Package timing decomposes the wall time of a single request into database time,
// cache time and the remaining server processing time.
//
// A Tracker is bound to the request context by Begin and released by End. Code deeper
// in the call chain records elapsed durations through AddDatabase and AddCache using
// only the context, so no component needs a reference to the tracker itself.
package timing

import (
	"context"
	"sync/atomic"
	"time"
)

type contextKey struct{}

// Tracker accumulates database and cache time for one request.
// The zero value is not usable; create trackers with Begin.
type Tracker struct {
	start    time.Time
	database atomic.Int64
	cache    atomic.Int64
	ended    atomic.Bool
	final    atomic.Pointer[Breakdown]
}

// Breakdown is a point-in-time view of a tracker.
type Breakdown struct {
	Total    time.Duration
	Database time.Duration
	Cache    time.Duration
}

// Server returns the time not attributed to the database or the cache.
// The value is not clamped: a negative result points at overlapping or
// double-counted instrumentation.
func (b Breakdown) Server() time.Duration {
	return b.Total - b.Database - b.Cache
}

// Begin binds a new zeroed tracker to ctx.
func Begin(ctx context.Context) (context.Context, *Tracker) {
	t := &Tracker{start: time.Now()}
	return context.WithValue(ctx, contextKey{}, t), t
}

// FromContext returns the tracker bound to ctx, or nil.
func FromContext(ctx context.Context) *Tracker {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(contextKey{}).(*Tracker)
	return t
}

// AddDatabase records d as database time on the tracker bound to ctx.
func AddDatabase(ctx context.Context, d time.Duration) {
	FromContext(ctx).AddDatabase(d)
}

// AddCache records d as cache time on the tracker bound to ctx.
func AddCache(ctx context.Context, d time.Duration) {
	FromContext(ctx).AddCache(d)
}

// AddDatabase records d as database time. Calls after End are dropped.
func (t *Tracker) AddDatabase(d time.Duration) {
	if t == nil || t.ended.Load() {
		return
	}
	t.database.Add(int64(d))
}

// AddCache records d as cache time. Calls after End are dropped.
func (t *Tracker) AddCache(d time.Duration) {
	if t == nil || t.ended.Load() {
		return
	}
	t.cache.Add(int64(d))
}

// Database returns the accumulated database time.
func (t *Tracker) Database() time.Duration {
	if t == nil {
		return 0
	}
	return time.Duration(t.database.Load())
}

// Cache returns the accumulated cache time.
func (t *Tracker) Cache() time.Duration {
	if t == nil {
		return 0
	}
	return time.Duration(t.cache.Load())
}

// Snapshot returns the current decomposition. After End it returns the
// decomposition captured at End.
func (t *Tracker) Snapshot() Breakdown {
	if t == nil {
		return Breakdown{}
	}
	if b := t.final.Load(); b != nil {
		return *b
	}
	return Breakdown{
		Total:    time.Since(t.start),
		Database: t.Database(),
		Cache:    t.Cache(),
	}
}

// End detaches the tracker from further recording and returns the final
// decomposition. It is safe to call more than once.
func (t *Tracker) End() Breakdown {
	if t == nil {
		return Breakdown{}
	}
	if t.ended.CompareAndSwap(false, true) {
		b := Breakdown{
			Total:    time.Since(t.start),
			Database: t.Database(),
			Cache:    t.Cache(),
		}
		t.final.Store(&b)
	}
	return t.Snapshot()
}

// Ended reports whether End has been called.
func (t *Tracker) Ended() bool {
	return t != nil && t.ended.Load()
}
