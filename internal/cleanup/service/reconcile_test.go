package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cleanuperrors "sweeper/internal/cleanup/errors"
	"sweeper/internal/cleanup/store"
	"sweeper/pkg/config"
	"sweeper/pkg/logger"
	"sweeper/pkg/metrics"
	"sweeper/pkg/model"
)

func TestReconciler_Count(t *testing.T) {
	ref := model.CollectionRef{Collection: config.DefaultActiveUsersCollection, SpaceID: "s1"}

	tests := []struct {
		name          string
		failAggregate bool
		wantSource    CountSource
	}{
		{name: "aggregate", wantSource: CountSourceAggregate},
		{name: "fallback scan", failAggregate: true, wantSource: CountSourceScan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemoryStore()
			s.AddSpace("s1", 0)
			addUsers(s, "s1", repeat(testNow, 4)...)
			if tt.failAggregate {
				s.FailAggregate = func(model.CollectionRef) error { return errors.New("aggregation not supported") }
			}

			n, source, err := NewReconciler(s, config.DefaultActiveUsersCollection, logger.Discard(), nil).Count(context.Background(), ref)
			require.NoError(t, err)
			assert.Equal(t, int64(4), n)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestReconciler_ReconcileRepairsDrift(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSpace("s1", 42)
	addUsers(s, "s1", testNow, testNow.Add(-time.Minute))

	reg := prometheus.NewRegistry()
	m := metrics.NewSweepMetricsWithRegistry(reg)

	n, err := NewReconciler(s, config.DefaultActiveUsersCollection, logger.Discard(), m).Reconcile(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	space, ok := s.Space("s1")
	require.True(t, ok)
	assert.Equal(t, int64(2), space.CurrentUserCount)
	assert.Equal(t, float64(1), counterValue(t, reg, "sweeper_cleanup_reconcile_counts_total", "source", string(CountSourceAggregate)))
}

func TestReconciler_ScanFailureIsSurfaced(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSpace("s1", 3)
	s.FailAggregate = func(model.CollectionRef) error { return errors.New("aggregation not supported") }
	s.FailScan = func(model.CollectionRef) error { return store.ErrInjected }

	_, err := NewReconciler(s, config.DefaultActiveUsersCollection, logger.Discard(), nil).Reconcile(context.Background(), "s1")
	assert.ErrorIs(t, err, cleanuperrors.ErrReconcile)
	assert.ErrorIs(t, err, store.ErrInjected)

	space, _ := s.Space("s1")
	assert.Equal(t, int64(3), space.CurrentUserCount)
}

func TestReconciler_UpdateFailure(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddSpace("s1", 3)
	s.FailSetCount = func(string) error { return store.ErrInjected }

	_, err := NewReconciler(s, config.DefaultActiveUsersCollection, logger.Discard(), nil).Reconcile(context.Background(), "s1")
	assert.ErrorIs(t, err, cleanuperrors.ErrReconcile)
}
