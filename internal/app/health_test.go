package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(&fakeStore{}, &fakeSessions{}, &fakeResolver{}), "*")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	cases := []struct {
		name       string
		store      *fakeStore
		sessions   *fakeSessions
		wantStatus int
		wantState  string
	}{
		{
			name:       "ready",
			store:      &fakeStore{},
			sessions:   &fakeSessions{},
			wantStatus: http.StatusOK,
			wantState:  "ready",
		},
		{
			name:       "database down",
			store:      &fakeStore{pingFn: func(context.Context) error { return errors.New("connection refused") }},
			sessions:   &fakeSessions{},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not_ready",
		},
		{
			name:       "session backend down",
			store:      &fakeStore{},
			sessions:   &fakeSessions{pingFn: func(context.Context) error { return errors.New("redis timeout") }},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "not_ready",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := NewHTTPServer(newTestService(tc.store, tc.sessions, &fakeResolver{}), "*")
			rr := httptest.NewRecorder()
			server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ready", nil))

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d body=%s", tc.wantStatus, rr.Code, rr.Body.String())
			}
			var response map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if response["status"] != tc.wantState {
				t.Fatalf("expected status %q, got %v", tc.wantState, response["status"])
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("docroom_rooms_active 0\n"))
	})
	server := NewHTTPServer(newTestService(&fakeStore{}, &fakeSessions{}, &fakeResolver{}), "*", WithMetricsHandler(metricsHandler))

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "docroom_rooms_active") {
		t.Fatalf("unexpected metrics response %d: %s", rr.Code, rr.Body.String())
	}
}
