package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSearch serves `pages` full pages followed by an empty one.
func fakeSearch(t *testing.T, pages int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/search/issues" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/vnd.github+json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		page := r.URL.Query().Get("page")
		var n int
		fmt.Sscanf(page, "%d", &n)

		items := []map[string]any{}
		if n <= pages {
			items = append(items, map[string]any{
				"id":         n * 10,
				"title":      "issue " + page,
				"body":       "body " + page,
				"created_at": "2025-01-01T00:00:00Z",
				"labels":     []map[string]string{{"name": "good first issue"}, {"name": "python"}},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
}

func TestScrapeStopsAtEmptyPage(t *testing.T) {
	var hits atomic.Int32
	srv := fakeSearch(t, 2, &hits)
	defer srv.Close()

	s := NewGitHubScraper(Config{BaseURL: srv.URL, MaxPages: 10, Interval: time.Millisecond})
	issues, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("len(issues) = %d, want 2", len(issues))
	}
	if hits.Load() != 3 {
		t.Errorf("requests = %d, want 3", hits.Load())
	}

	got := issues[0]
	if got.Source != "github" || got.ID != 10 || got.Title != "issue 1" || got.Created != "2025-01-01T00:00:00Z" {
		t.Errorf("issue = %+v", got)
	}
	if got.Body == nil || *got.Body != "body 1" {
		t.Errorf("body = %v, want body 1", got.Body)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "good first issue" {
		t.Errorf("labels = %v", got.Labels)
	}
}

func TestScrapeHonorsMaxPages(t *testing.T) {
	var hits atomic.Int32
	srv := fakeSearch(t, 100, &hits)
	defer srv.Close()

	s := NewGitHubScraper(Config{BaseURL: srv.URL, MaxPages: 3, Interval: time.Millisecond})
	issues, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(issues) != 3 || hits.Load() != 3 {
		t.Errorf("issues = %d, requests = %d, want 3/3", len(issues), hits.Load())
	}
}

func TestScrapeSendsQueryAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != DefaultQuery {
			t.Errorf("q = %q, want %q", got, DefaultQuery)
		}
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ghp_test" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	s := NewGitHubScraper(Config{BaseURL: srv.URL, Token: "ghp_test"})
	if _, err := s.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape: %v", err)
	}
}

func TestScrapeErrorKeepsEarlierPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "rate limited", http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"items":[{"id":1,"title":"a","labels":[]}]}`))
	}))
	defer srv.Close()

	s := NewGitHubScraper(Config{BaseURL: srv.URL, MaxPages: 5, Interval: time.Millisecond})
	issues, err := s.Scrape(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v, want 403 error", err)
	}
	if len(issues) != 1 {
		t.Errorf("len(issues) = %d, want 1", len(issues))
	}
}

func TestScrapeCanceled(t *testing.T) {
	var hits atomic.Int32
	srv := fakeSearch(t, 100, &hits)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewGitHubScraper(Config{BaseURL: srv.URL, Interval: time.Hour})
	if _, err := s.Scrape(ctx); err == nil {
		t.Error("expected error on canceled context")
	}
}

func TestNullBodyStaysNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`{"items":[]}`))
			return
		}
		w.Write([]byte(`{"items":[{"id":9,"title":"sin descripción","body":null,"labels":[]}]}`))
	}))
	defer srv.Close()

	s := NewGitHubScraper(Config{BaseURL: srv.URL, Interval: time.Millisecond})
	issues, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(issues) != 1 || issues[0].Body != nil {
		t.Fatalf("issues = %+v, want one issue with nil body", issues)
	}

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, issues); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	if !strings.Contains(buf.String(), `"body":null`) {
		t.Errorf("line = %s, want body null", buf.String())
	}
}

func TestWriteJSONL(t *testing.T) {
	issues := []Issue{
		{Source: "github", ID: 1, Title: "a", Labels: []string{"x"}},
		{Source: "github", ID: 2, Title: "b", Labels: []string{}},
	}

	var buf bytes.Buffer
	if err := WriteJSONL(&buf, issues); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var first Issue
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.ID != 1 || first.Title != "a" {
		t.Errorf("first = %+v", first)
	}
}
