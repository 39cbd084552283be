package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of one scope's counters (§4.6
// getStatistics). HitRate is 0 when no operations have been recorded yet.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// counters holds the live, monotonically-increasing atomic counters behind a
// Stats snapshot. clearAll resets entries but never these counters (§4.6
// "Statistics are monotonic within process lifetime").
type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func (c *counters) snapshot() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	evictions := c.evictions.Load()
	s := Stats{Hits: hits, Misses: misses, Evictions: evictions}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}
