package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/parizob/Peardox-2.0-sub001/forms"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

// HTTPClient interface for making HTTP requests (allows mocking)
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the paper backend API. All read endpoints return the
// raw backend records; view-model shaping happens in the article
// package.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	log        *logger.Logger
}

// New creates a backend client with production HTTP settings
func New(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
		log: log,
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing)
func NewWithHTTPClient(baseURL, apiKey string, httpClient HTTPClient, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
	}
}

// GetAllPapersWithSummaries fetches every paper that has a generated
// summary at the given skill level.
func (c *Client) GetAllPapersWithSummaries(ctx context.Context, level types.SkillLevel) ([]types.Paper, error) {
	query := url.Values{}
	query.Set("skill_level", string(level))

	var papers []types.Paper
	if err := c.getJSON(ctx, "/v1/papers/summaries", query, &papers); err != nil {
		return nil, fmt.Errorf("fetching summarized papers: %w", err)
	}

	c.log.InfoWithCount("fetched summarized papers", len(papers), map[string]interface{}{
		"skill_level": string(level),
	})
	return papers, nil
}

// GetAllPapers fetches a page of papers without summary fields when
// lightweight is set.
func (c *Client) GetAllPapers(ctx context.Context, page, pageSize int, lightweight bool) ([]types.Paper, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	query.Set("lightweight", strconv.FormatBool(lightweight))

	var papers []types.Paper
	if err := c.getJSON(ctx, "/v1/papers", query, &papers); err != nil {
		return nil, fmt.Errorf("fetching papers page %d: %w", page, err)
	}
	return papers, nil
}

// GetCategories fetches the category taxonomy
func (c *Client) GetCategories(ctx context.Context) ([]types.Category, error) {
	var categories []types.Category
	if err := c.getJSON(ctx, "/v1/categories", nil, &categories); err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	return categories, nil
}

// GetLastRefreshDate fetches the timestamp of the newest backend ingest
func (c *Client) GetLastRefreshDate(ctx context.Context) (string, error) {
	var payload struct {
		LastRefresh string `json:"last_refresh"`
	}
	if err := c.getJSON(ctx, "/v1/papers/last-refresh", nil, &payload); err != nil {
		return "", fmt.Errorf("fetching last refresh date: %w", err)
	}
	return payload.LastRefresh, nil
}

// GetUserCorrectAnswers fetches the user's correct quiz answers; the
// count is the token balance.
func (c *Client) GetUserCorrectAnswers(ctx context.Context, userID string) ([]types.Answer, error) {
	query := url.Values{}
	query.Set("user_id", userID)

	var answers []types.Answer
	if err := c.getJSON(ctx, "/v1/rewards/answers", query, &answers); err != nil {
		return nil, fmt.Errorf("fetching correct answers for %s: %w", userID, err)
	}
	return answers, nil
}

// SubmitContactForm delivers a validated contact form to the backend
func (c *Client) SubmitContactForm(ctx context.Context, form forms.ContactForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	if err := c.postJSON(ctx, "/v1/contact", form); err != nil {
		return fmt.Errorf("submitting contact form: %w", err)
	}
	return nil
}

// SubmitRedemption delivers a validated redemption request. The caller
// supplies the balance it already verified against.
func (c *Client) SubmitRedemption(ctx context.Context, form forms.RedemptionForm, balance int) error {
	if err := form.Validate(balance); err != nil {
		return err
	}
	if err := c.postJSON(ctx, "/v1/rewards/redeem", form); err != nil {
		return fmt.Errorf("submitting redemption: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return logger.WrapError(err, logger.ErrorTypeData, "failed to parse backend response")
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) error {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("HTTP request failed", err, map[string]interface{}{
			"url": req.URL.String(),
		})
		return nil, logger.WrapError(err, logger.ErrorTypeAPI, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.Debug("HTTP request completed", map[string]interface{}{
		"url":                 req.URL.Path,
		"status_code":         resp.StatusCode,
		"request_duration_ms": time.Since(startTime).Milliseconds(),
		"response_size":       len(body),
	})

	if resp.StatusCode != http.StatusOK {
		return nil, &logger.AppError{
			Type:    logger.ErrorTypeAPI,
			Message: fmt.Sprintf("backend returned status %d", resp.StatusCode),
			Code:    strconv.Itoa(resp.StatusCode),
		}
	}
	return body, nil
}
