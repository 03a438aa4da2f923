package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"sweeper/pkg/logger"
	"sweeper/pkg/middleware"
	"sweeper/pkg/model"
)

// Fakes

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return p.err
}

type fakeSweepService struct {
	result    *model.SweepResult
	err       error
	requestID string
	calls     int
}

func (s *fakeSweepService) Run(ctx context.Context, requestID string) (*model.SweepResult, error) {
	s.calls++
	s.requestID = requestID
	if s.result != nil {
		s.result.RequestID = requestID
	}
	return s.result, s.err
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

// Health

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
		wantBody   string
	}{
		{name: "liveness", path: "/healthz", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "ready", path: "/readyz", wantStatus: http.StatusOK, wantBody: "ready"},
		{name: "not ready", path: "/readyz", pingErr: errors.New("no primary"), wantStatus: http.StatusServiceUnavailable, wantBody: "unavailable"},
		{name: "liveness ignores database", path: "/healthz", pingErr: errors.New("no primary"), wantStatus: http.StatusOK, wantBody: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(NewHealthHandler(&fakePinger{err: tt.pingErr}, "spaces", logger.Discard()))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decode(t, rec)
			if body["status"] != tt.wantBody {
				t.Errorf("expected status %q, got %v", tt.wantBody, body["status"])
			}
			if body["database"] != "spaces" {
				t.Errorf("expected database spaces, got %v", body["database"])
			}
		})
	}
}

// Sweep

func TestSweepHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		result     *model.SweepResult
		err        error
		wantStatus int
		wantState  string
	}{
		{
			name:   "completed via POST",
			method: http.MethodPost,
			result: &model.SweepResult{
				Status: model.SweepStatusOK,
				Stats:  model.SweepStats{SpacesScanned: 2, ActiveUsersDeleted: 1, DurationSeconds: 0.42},
			},
			wantStatus: http.StatusOK,
			wantState:  model.SweepStatusOK,
		},
		{
			name:       "skipped via GET",
			method:     http.MethodGet,
			result:     &model.SweepResult{Status: model.SweepStatusSkipped, Reason: model.SkipReasonLockActive},
			wantStatus: http.StatusOK,
			wantState:  model.SweepStatusSkipped,
		},
		{
			name:   "failed",
			method: http.MethodPost,
			result: &model.SweepResult{
				Status: model.SweepStatusError,
				Error:  "space cleanup failed",
				Stats:  model.SweepStats{SpacesScanned: 1},
			},
			err:        errors.New("space cleanup failed"),
			wantStatus: http.StatusInternalServerError,
			wantState:  model.SweepStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSweepService{result: tt.result, err: tt.err}
			router := NewRouter(NewSweepHandler(svc, logger.Discard()))

			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set(middleware.HeaderRequestID, "run-42")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if svc.calls != 1 {
				t.Fatalf("expected one sweep, got %d", svc.calls)
			}
			if svc.requestID != "run-42" {
				t.Errorf("expected request id run-42, got %q", svc.requestID)
			}

			body := decode(t, rec)
			if body["status"] != tt.wantState {
				t.Errorf("expected status %q, got %v", tt.wantState, body["status"])
			}
			if body["request_id"] != "run-42" {
				t.Errorf("expected request_id in body, got %v", body["request_id"])
			}
			if _, ok := body["stats"].(map[string]any); !ok {
				t.Errorf("expected stats object, got %v", body["stats"])
			}
		})
	}
}

func TestSweepHandler_SkippedCarriesReason(t *testing.T) {
	svc := &fakeSweepService{result: &model.SweepResult{Status: model.SweepStatusSkipped, Reason: model.SkipReasonLockActive}}
	router := NewRouter(NewSweepHandler(svc, logger.Discard()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	body := decode(t, rec)
	if body["reason"] != model.SkipReasonLockActive {
		t.Errorf("expected reason %q, got %v", model.SkipReasonLockActive, body["reason"])
	}
	stats := body["stats"].(map[string]any)
	if _, ok := stats["duration_seconds"]; ok {
		t.Error("duration_seconds must be omitted for skipped sweeps")
	}
}

func TestSweepHandler_NilResult(t *testing.T) {
	router := NewRouter(NewSweepHandler(&fakeSweepService{err: errors.New("boom")}, logger.Discard()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body := decode(t, rec); body["code"] != "SWEEP_FAILED" {
		t.Errorf("expected SWEEP_FAILED, got %v", body["code"])
	}
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	router := NewRouter(NewSweepHandler(&fakeSweepService{}, logger.Discard()))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "wrong method", method: http.MethodDelete, path: "/", wantStatus: http.StatusMethodNotAllowed, wantCode: "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := decode(t, rec); body["code"] != tt.wantCode {
				t.Errorf("expected code %s, got %v", tt.wantCode, body["code"])
			}
		})
	}
}
