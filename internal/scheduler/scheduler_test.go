package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweeper/pkg/logger"
	"sweeper/pkg/model"
)

type fakeSweepService struct {
	mu          sync.Mutex
	requestIDs  []string
	hadDeadline bool
	err         error
}

func (s *fakeSweepService) Run(ctx context.Context, requestID string) (*model.SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestIDs = append(s.requestIDs, requestID)
	_, s.hadDeadline = ctx.Deadline()
	if s.err != nil {
		return &model.SweepResult{Status: model.SweepStatusError, RequestID: requestID}, s.err
	}
	return &model.SweepResult{Status: model.SweepStatusOK, RequestID: requestID}, nil
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("every five minutes", &fakeSweepService{}, time.Minute, logger.Discard())
	assert.Error(t, err)
}

func TestSweepJob_Run(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "failure is logged, not panicked", err: errors.New("store down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSweepService{err: tt.err}
			s, err := New("*/5 * * * *", svc, time.Minute, logger.Discard())
			require.NoError(t, err)

			s.job.Run()

			require.Len(t, svc.requestIDs, 1)
			assert.True(t, strings.HasPrefix(svc.requestIDs[0], RequestIDPrefix))
			assert.True(t, svc.hadDeadline, "scheduled runs must be bounded")
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New("0 3 * * *", &fakeSweepService{}, time.Minute, logger.Discard())
	require.NoError(t, err)

	s.Start()
	next := s.Next()
	assert.False(t, next.IsZero())
	assert.Equal(t, 3, next.UTC().Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
