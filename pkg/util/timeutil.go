package util

import "time"

// Clock yields the current instant. Components hold one so tests can pin time.
type Clock func() time.Time

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Expired reports whether a value stamped at fetchedAt has outlived ttl at now.
// A non-positive ttl never expires.
func Expired(fetchedAt time.Time, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || fetchedAt.IsZero() {
		return ttl > 0
	}
	return !now.Before(fetchedAt.Add(ttl))
}
