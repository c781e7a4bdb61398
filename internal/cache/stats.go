package cache

import "sync/atomic"

// Statistics tracks namespace activity with atomic counters. It is always on;
// Prometheus export is layered on top when a Metrics instance is configured.
type Statistics struct {
	hits          atomic.Int64
	misses        atomic.Int64
	loads         atomic.Int64
	loadFailures  atomic.Int64
	evictions     atomic.Int64
	expirations   atomic.Int64
	invalidations atomic.Int64
	discarded     atomic.Int64
}

// StatsSnapshot is a copy of the counters at one instant.
type StatsSnapshot struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Loads         int64   `json:"loads"`
	LoadFailures  int64   `json:"loadFailures"`
	Evictions     int64   `json:"evictions"`
	Expirations   int64   `json:"expirations"`
	Invalidations int64   `json:"invalidations"`
	Discarded     int64   `json:"discarded"`
	Size          int     `json:"size"`
	HitRate       float64 `json:"hitRate"`
}

func (s *Statistics) snapshot(size int) StatsSnapshot {
	snap := StatsSnapshot{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		Loads:         s.loads.Load(),
		LoadFailures:  s.loadFailures.Load(),
		Evictions:     s.evictions.Load(),
		Expirations:   s.expirations.Load(),
		Invalidations: s.invalidations.Load(),
		Discarded:     s.discarded.Load(),
		Size:          size,
	}
	if total := snap.Hits + snap.Misses; total > 0 {
		snap.HitRate = float64(snap.Hits) / float64(total)
	}
	return snap
}
