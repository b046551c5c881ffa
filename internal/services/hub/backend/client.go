package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/louisbranch/fieldschool/internal/platform/errors"
	"github.com/louisbranch/fieldschool/internal/platform/timeouts"
)

const (
	restPrefix      = "/rest/v1/"
	maxErrorBodyLen = 512
)

// Config controls backend client construction.
type Config struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	// Timeout caps each request. Defaults to timeouts.BackendRequest.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues read-only requests against the backend.
type Client struct {
	baseURL     *url.URL
	apiKey      string
	accessToken string
	timeout     time.Duration
	httpClient  *http.Client
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("backend url scheme must be http or https, got %q", baseURL.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.BackendRequest
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		timeout:     cfg.Timeout,
		httpClient:  cfg.HTTPClient,
	}, nil
}

// ListLessons returns lessons for language in course order.
func (c *Client) ListLessons(ctx context.Context, language string) ([]Lesson, error) {
	var lessons []Lesson
	query := url.Values{
		"language": {"eq." + language},
		"order":    {"position.asc"},
	}
	if err := c.getJSON(ctx, "lessons", query, &lessons); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListQuests returns quests for language in display order.
func (c *Client) ListQuests(ctx context.Context, language string) ([]Quest, error) {
	var quests []Quest
	query := url.Values{
		"language": {"eq." + language},
		"order":    {"position.asc"},
	}
	if err := c.getJSON(ctx, "quests", query, &quests); err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	return quests, nil
}

// GetProfile returns the profile for userID.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var profiles []Profile
	query := url.Values{"user_id": {"eq." + userID}}
	if err := c.getJSON(ctx, "profiles", query, &profiles); err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if len(profiles) == 0 {
		return Profile{}, apperrors.WithMetadata(apperrors.CodeBackendNotFound, "profile not found", map[string]string{"user_id": userID})
	}
	return profiles[0], nil
}

// ListCompletions returns userID's completion records, newest first.
func (c *Client) ListCompletions(ctx context.Context, userID string) ([]Completion, error) {
	var completions []Completion
	query := url.Values{
		"user_id": {"eq." + userID},
		"order":   {"completed_at.desc"},
	}
	if err := c.getJSON(ctx, "lesson_completions", query, &completions); err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return completions, nil
}

func (c *Client) getJSON(ctx context.Context, table string, query url.Values, target any) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("backend client is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL.JoinPath(restPrefix + table)
	endpoint.RawQuery = query.Encode()
	metadata := map[string]string{"path": endpoint.Path}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token := c.bearerToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeBackendUnavailable, "backend request failed", metadata, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if code := apperrors.CodeForHTTPStatus(resp.StatusCode); code != "" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		metadata["status"] = resp.Status
		return apperrors.WithMetadata(code, fmt.Sprintf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(body))), metadata)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeBackendBadResponse, "decode backend response", metadata, err)
	}
	return nil
}

// bearerToken prefers the user's session token and falls back to the
// project key, as anonymous reads are authorized by the key alone.
func (c *Client) bearerToken() string {
	if c.accessToken != "" {
		return c.accessToken
	}
	return c.apiKey
}
