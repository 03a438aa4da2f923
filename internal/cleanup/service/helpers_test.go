package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sweeper/internal/cleanup/store"
	"sweeper/pkg/config"
	"sweeper/pkg/logger"
	"sweeper/pkg/model"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestConfig() *config.Config {
	return &config.Config{
		DatabaseID:            config.DefaultDatabaseID,
		ActiveUserMinutes:     config.DefaultActiveUserMinutes,
		MessageTTLHours:       config.DefaultMessageTTLHours,
		BatchSize:             config.DefaultBatchSize,
		SpaceErrorPolicy:      config.SpaceErrorPolicyAbort,
		LockTTLSeconds:        config.DefaultLockTTLSeconds,
		LockCollection:        config.DefaultLockCollection,
		LockDocID:             config.DefaultLockDocID,
		LockHolder:            config.DefaultLockHolder,
		SpacesCollection:      config.DefaultSpacesCollection,
		ActiveUsersCollection: config.DefaultActiveUsersCollection,
		MessagesCollection:    config.DefaultMessagesCollection,
		Log:                   logger.Discard(),
	}
}

func addUsers(s *store.MemoryStore, spaceID string, lastUpdates ...time.Time) {
	for i, ts := range lastUpdates {
		s.AddChild(config.DefaultActiveUsersCollection, spaceID, fmt.Sprintf("%s-user-%03d", spaceID, i), model.FieldLastUpdate, ts)
	}
}

func addMessages(s *store.MemoryStore, spaceID string, timestamps ...time.Time) {
	for i, ts := range timestamps {
		s.AddChild(config.DefaultMessagesCollection, spaceID, fmt.Sprintf("%s-msg-%03d", spaceID, i), model.FieldTimestamp, ts)
	}
}

func repeat(ts time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = ts
	}
	return out
}

// counterValue returns the value of one labelled counter, or 0 if it was never incremented.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
