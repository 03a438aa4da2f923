package model

import "math"

const (
	SweepStatusOK      = "ok"
	SweepStatusSkipped = "skipped"
	SweepStatusError   = "error"

	SkipReasonLockActive = "lock_active"
)

type SweepStats struct {
	SpacesScanned              int64   `json:"spaces_scanned"`
	ActiveUsersDeleted         int64   `json:"active_users_deleted"`
	MessagesDeleted            int64   `json:"messages_deleted"`
	SpacesWithUserDeletions    int64   `json:"spaces_with_user_deletions"`
	SpacesWithMessageDeletions int64   `json:"spaces_with_message_deletions"`
	SpacesFailed               int64   `json:"spaces_failed"`
	DurationSeconds            float64 `json:"duration_seconds,omitempty"`
}

// SweepResult is what a trigger reports back to its caller.
type SweepResult struct {
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	Error     string     `json:"error,omitempty"`
	Stats     SweepStats `json:"stats"`
	RequestID string     `json:"request_id"`
}

func (s SweepStats) Fields() map[string]any {
	return map[string]any{
		"spaces_scanned":                s.SpacesScanned,
		"active_users_deleted":          s.ActiveUsersDeleted,
		"messages_deleted":              s.MessagesDeleted,
		"spaces_with_user_deletions":    s.SpacesWithUserDeletions,
		"spaces_with_message_deletions": s.SpacesWithMessageDeletions,
		"spaces_failed":                 s.SpacesFailed,
	}
}

// RoundSeconds rounds to two decimal places.
func RoundSeconds(seconds float64) float64 {
	return math.Round(seconds*100) / 100
}
