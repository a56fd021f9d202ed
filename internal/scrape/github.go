// Package scrape collects public issues for the training dataset.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public GitHub API.
	DefaultBaseURL = "https://api.github.com"

	// DefaultQuery selects beginner-friendly Python issues.
	DefaultQuery = `label:"good first issue" state:open language:python`

	// DefaultOutput is where the CLI writes the dataset.
	DefaultOutput = "data/raw/github_issues.jsonl"

	DefaultPerPage  = 100
	DefaultMaxPages = 30
	DefaultInterval = time.Second
)

// Issue is one dataset row.
type Issue struct {
	Source  string   `json:"source"`
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	// Body is nil when the issue has no description; it encodes as null.
	Body    *string  `json:"body"`
	Labels  []string `json:"labels"`
	Created string   `json:"created"`
}

// Config controls a scrape run. Zero values fall back to the defaults.
type Config struct {
	BaseURL  string
	Query    string
	PerPage  int
	MaxPages int
	Interval time.Duration

	// Token is optional; unauthenticated search is heavily rate limited.
	Token string

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// GitHubScraper pages through the issue search API.
type GitHubScraper struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGitHubScraper creates a scraper.
func NewGitHubScraper(cfg Config) *GitHubScraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubScraper{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		logger:  logger,
	}
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Body      *string `json:"body"`
	CreatedAt string  `json:"created_at"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// Scrape fetches pages until one comes back empty or MaxPages is reached.
func (s *GitHubScraper) Scrape(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	for page := 1; page <= s.cfg.MaxPages; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return issues, err
		}

		items, err := s.fetchPage(ctx, page)
		if err != nil {
			return issues, fmt.Errorf("page %d: %w", page, err)
		}
		s.logger.Debug("fetched issue page", zap.Int("page", page), zap.Int("items", len(items)))
		if len(items) == 0 {
			break
		}

		for _, it := range items {
			labels := make([]string, len(it.Labels))
			for i, l := range it.Labels {
				labels[i] = l.Name
			}
			issues = append(issues, Issue{
				Source:  "github",
				ID:      it.ID,
				Title:   it.Title,
				Body:    it.Body,
				Labels:  labels,
				Created: it.CreatedAt,
			})
		}
	}
	return issues, nil
}

func (s *GitHubScraper) fetchPage(ctx context.Context, page int) ([]searchItem, error) {
	q := url.Values{}
	q.Set("q", s.cfg.Query)
	q.Set("per_page", strconv.Itoa(s.cfg.PerPage))
	q.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/search/issues?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("could not decode search response: %w", err)
	}
	return out.Items, nil
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, issues []Issue) error {
	enc := json.NewEncoder(w)
	for _, issue := range issues {
		if err := enc.Encode(issue); err != nil {
			return err
		}
	}
	return nil
}
