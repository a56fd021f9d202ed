// Package watsonx is a minimal client for IBM watsonx.ai text generation.
//
// Only the pieces the assistant needs are implemented: API-key to bearer
// token exchange against IBM Cloud IAM, and the non-streaming
// /ml/v1/text/generation endpoint with its token accounting.
package watsonx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultURL     = "https://us-south.ml.cloud.ibm.com"
	DefaultIAMURL  = "https://iam.cloud.ibm.com"
	DefaultModelID = "granite-3-8b-instruct"

	apiVersion = "2023-05-29"

	// tokenSkew is subtracted from the IAM expiry so a token is never used
	// right at the edge of its lifetime.
	tokenSkew = 60 * time.Second
)

var (
	// ErrNoResults is returned when the service answers 200 with no results.
	ErrNoResults = errors.New("watsonx returned no results")

	// ErrMissingCredentials is returned when the API key or project is unset.
	ErrMissingCredentials = errors.New("watsonx API key and project ID are required")
)

// Generation is the outcome of one successful text generation call.
type Generation struct {
	Text            string
	InputTokens     int
	GeneratedTokens int
	StopReason      string
}

// Config holds connection settings for the client.
type Config struct {
	URL        string
	IAMURL     string
	APIKey     string
	ProjectID  string
	ModelID    string
	HTTPClient *http.Client
}

// Client calls the watsonx.ai generation API.
type Client struct {
	url        string
	iamURL     string
	apiKey     string
	projectID  string
	modelID    string
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a client, filling unset fields with defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.ProjectID == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.IAMURL == "" {
		cfg.IAMURL = DefaultIAMURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		iamURL:     strings.TrimRight(cfg.IAMURL, "/"),
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		modelID:    cfg.ModelID,
		httpClient: cfg.HTTPClient,
		now:        time.Now,
	}, nil
}

// ModelID returns the model the client generates with.
func (c *Client) ModelID() string {
	return c.modelID
}

type generationRequest struct {
	ModelID    string               `json:"model_id"`
	ProjectID  string               `json:"project_id"`
	Input      string               `json:"input"`
	Parameters generationParameters `json:"parameters"`
}

type generationParameters struct {
	DecodingMethod string `json:"decoding_method"`
	MaxNewTokens   int    `json:"max_new_tokens"`
}

type generationResponse struct {
	ModelID string `json:"model_id"`
	Results []struct {
		GeneratedText       string `json:"generated_text"`
		GeneratedTokenCount int    `json:"generated_token_count"`
		InputTokenCount     int    `json:"input_token_count"`
		StopReason          string `json:"stop_reason"`
	} `json:"results"`
}

type apiErrorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	StatusCode int `json:"status_code"`
}

// Generate runs prompt through the model, producing at most maxNewTokens.
func (c *Client) Generate(ctx context.Context, prompt string, maxNewTokens int) (*Generation, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(generationRequest{
		ModelID:   c.modelID,
		ProjectID: c.projectID,
		Input:     prompt,
		Parameters: generationParameters{
			DecodingMethod: "greedy",
			MaxNewTokens:   maxNewTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/ml/v1/text/generation?version=%s", c.url, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to watsonx: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read watsonx response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("watsonx", resp.StatusCode, body)
	}

	var parsed generationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse watsonx response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, ErrNoResults
	}

	r := parsed.Results[0]
	return &Generation{
		Text:            r.GeneratedText,
		InputTokens:     r.InputTokenCount,
		GeneratedTokens: r.GeneratedTokenCount,
		StopReason:      r.StopReason,
	}, nil
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// bearerToken returns a cached IAM token or exchanges the API key for a new one.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.iamURL+"/identity/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect to IAM: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read IAM response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError("IAM token exchange", resp.StatusCode, body)
	}

	var tok iamTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse IAM response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("IAM response contained no access token")
	}

	expiry := c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.Expiration > 0 {
		expiry = time.Unix(tok.Expiration, 0)
	}
	c.token = tok.AccessToken
	c.tokenExpiry = expiry.Add(-tokenSkew)

	return c.token, nil
}

func apiError(what string, status int, body []byte) error {
	var apiErr apiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Errors) > 0 {
		return fmt.Errorf("%s returned status %d: %s", what, status, apiErr.Errors[0].Message)
	}
	return fmt.Errorf("%s returned status %d: %s", what, status, strings.TrimSpace(string(body)))
}
