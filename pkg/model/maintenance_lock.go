package model

import "time"

// MaintenanceLock is the singleton advisory lock record that keeps two sweeps
// from running at the same time. A lock whose ExpiresAt has passed is treated
// as absent.
type MaintenanceLock struct {
	ID        string    `bson:"_id" json:"id"`
	Holder    string    `bson:"holder" json:"holder"`
	StartedAt time.Time `bson:"startedAt" json:"started_at"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expires_at"`
}

// IsActive reports whether the lock is still honored at now.
func (l *MaintenanceLock) IsActive(now time.Time) bool {
	return l != nil && l.ExpiresAt.After(now)
}
