package domain

import "time"

// CacheEntry is a persisted CommandResponse plus its validity window.
type CacheEntry struct {
	Command     string      `json:"command"`
	IsSafe      bool        `json:"is_safe"`
	SafetyLevel SafetyLevel `json:"safety_level"`
	Explanation string      `json:"explanation,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	TTLSeconds  int         `json:"ttl_seconds"`
}

// NewCacheEntry stamps resp with now and ttl.
func NewCacheEntry(resp CommandResponse, now time.Time, ttlSeconds int) CacheEntry {
	return CacheEntry{
		Command:     resp.Command,
		IsSafe:      resp.IsSafe,
		SafetyLevel: resp.SafetyLevel,
		Explanation: resp.Explanation,
		Timestamp:   now,
		TTLSeconds:  ttlSeconds,
	}
}

// IsExpired reports now - timestamp > ttl.
func (e CacheEntry) IsExpired(now time.Time) bool {
	return now.Sub(e.Timestamp) > time.Duration(e.TTLSeconds)*time.Second
}

// Response converts the entry back into a CommandResponse.
func (e CacheEntry) Response() CommandResponse {
	return CommandResponse{
		Command:     e.Command,
		IsSafe:      e.IsSafe,
		SafetyLevel: e.SafetyLevel,
		Explanation: e.Explanation,
	}
}

// CacheStats summarises cache effectiveness.
type CacheStats struct {
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
	Total   int     `json:"total"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// NewCacheStats derives Total and HitRate (a percentage, 0 when Total is 0).
func NewCacheStats(hits, misses, entries int) CacheStats {
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = 100 * float64(hits) / float64(total)
	}
	return CacheStats{Hits: hits, Misses: misses, Total: total, HitRate: rate, Entries: entries}
}
