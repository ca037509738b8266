package cache

import "time"

// Entry represents a cached existence verdict
type Entry struct {
	// Exists represents whether the candidate URL resolved to an article
	Exists bool `json:"exists"`
	// ObservedAt is the timestamp for when the verdict was produced
	ObservedAt JSONTime `json:"observedAt"`
}

func (e *Entry) expired(now time.Time, ttl time.Duration) bool {
	return !now.Before(e.ObservedAt.Time().Add(ttl))
}
