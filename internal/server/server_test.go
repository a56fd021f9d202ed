package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aceteam-ai/skillcraft/internal/usage"
)

func newTestServer(t *testing.T, records int) *Server {
	t.Helper()
	log := usage.OpenLog(filepath.Join(t.TempDir(), "cost_sheet.csv"))
	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < records; i++ {
		if err := log.Append(usage.Record{Timestamp: base.Add(time.Duration(i) * time.Minute), ResourceUnits: 0.5}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return New(Config{Version: "1.2.3", Aggregator: usage.NewAggregator(log)})
}

func TestNewDefaults(t *testing.T) {
	s := New(Config{})
	if s.Addr() != ":8000" {
		t.Errorf("Addr = %q, want :8000", s.Addr())
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, 0)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != HealthStatusOK || resp.Version != "1.2.3" {
		t.Errorf("health = %+v", resp)
	}
}

func TestUsageEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		records    int
		query      string
		wantRecent int
		wantTotal  float64
	}{
		{"empty log", 0, "", 0, 0},
		{"default limit", 30, "", DefaultRecentRows, 15},
		{"custom limit", 30, "?limit=3", 3, 15},
		{"limit larger than log", 4, "?limit=100", 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.records)

			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/usage"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("StatusCode = %d, want 200: %s", w.Code, w.Body.String())
			}
			var resp UsageResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Recent) != tt.wantRecent {
				t.Errorf("len(recent) = %d, want %d", len(resp.Recent), tt.wantRecent)
			}
			if resp.TotalRU != tt.wantTotal {
				t.Errorf("total_ru = %v, want %v", resp.TotalRU, tt.wantTotal)
			}
			if resp.Count != tt.records {
				t.Errorf("count = %d, want %d", resp.Count, tt.records)
			}
			if resp.Recent == nil {
				t.Error("recent should encode as [] not null")
			}
		})
	}
}

func TestUsageEndpointReturnsNewestRows(t *testing.T) {
	s := newTestServer(t, 10)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/usage?limit=2", nil))

	var resp UsageResponse
	json.NewDecoder(w.Body).Decode(&resp)
	want := time.Date(2025, 7, 1, 0, 9, 0, 0, time.UTC)
	if len(resp.Recent) != 2 || !resp.Recent[1].Timestamp.Equal(want) {
		t.Errorf("recent = %+v, want last row at %v", resp.Recent, want)
	}
}

func TestUsageEndpointBadLimit(t *testing.T) {
	s := newTestServer(t, 1)
	for _, q := range []string{"?limit=abc", "?limit=-1"} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/usage"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: StatusCode = %d, want 400", q, w.Code)
		}
	}
}

func TestUsageEndpointMalformedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost_sheet.csv")
	os.WriteFile(path, []byte("timestamp,ru,cuh\nnot-a-time,1,0\n"), 0644)
	s := New(Config{Aggregator: usage.NewAggregator(usage.OpenLog(path))})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/usage", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", w.Code)
	}
}

func TestReadOnlyEndpointsRejectWrites(t *testing.T) {
	s := newTestServer(t, 0)
	for _, path := range []string{"/health", "/usage"} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: StatusCode = %d, want 405", path, w.Code)
		}
	}
}

func TestSlackRouteMounted(t *testing.T) {
	called := false
	slack := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	s := New(Config{Slack: slack})

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/slack/events", nil))
	if !called {
		t.Error("slack handler not mounted at /slack/events")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := newTestServer(t, 0)
	s.addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
