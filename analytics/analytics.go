package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parizob/Peardox-2.0-sub001/article"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

const (
	maxAttempts = 3
	retryDelay  = time.Second
)

// HTTPClient interface for making HTTP requests (allows mocking)
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper abstracts the inter-attempt delay so retry behavior is
// testable without real waits.
type Sleeper func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ViewingStats summarizes a user's reading history
type ViewingStats struct {
	TotalViews       int      `json:"total_views"`
	CategoriesViewed []string `json:"categories_viewed"`
	RecentViews      []View   `json:"recent_views"`
}

// View is one recorded article view
type View struct {
	ArxivID    string `json:"arxiv_id"`
	Title      string `json:"title"`
	SkillLevel string `json:"skill_level"`
	ViewedAt   string `json:"viewed_at"`
}

type viewPayload struct {
	UserID     string   `json:"user_id,omitempty"`
	ArxivID    string   `json:"arxiv_id"`
	Title      string   `json:"title"`
	Categories []string `json:"categories"`
	SkillLevel string   `json:"skill_level"`
}

// Recorder delivers view events to the analytics backend. Failures are
// never surfaced to callers of the async path; view recording must not
// block or break navigation.
type Recorder struct {
	baseURL    string
	httpClient HTTPClient
	log        *logger.Logger
	sleep      Sleeper
}

// NewRecorder creates a Recorder with production HTTP settings
func NewRecorder(baseURL string, log *logger.Logger) *Recorder {
	return NewRecorderWithHTTPClient(baseURL, &http.Client{Timeout: 10 * time.Second}, log)
}

// NewRecorderWithHTTPClient creates a Recorder with a custom HTTP
// client (for testing).
func NewRecorderWithHTTPClient(baseURL string, httpClient HTTPClient, log *logger.Logger) *Recorder {
	return &Recorder{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
		sleep:      realSleep,
	}
}

// RecordArticleView posts one view event, retrying transient failures
// up to three attempts with a fixed delay between them.
func (r *Recorder) RecordArticleView(ctx context.Context, userID string, a *article.Article, level types.SkillLevel) error {
	payload := viewPayload{
		UserID:     userID,
		ArxivID:    a.ArxivID,
		Title:      a.Title,
		Categories: a.Categories,
		SkillLevel: string(level),
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = r.post(ctx, payload)
		if lastErr == nil {
			return nil
		}

		r.log.Warn("view recording attempt failed", map[string]interface{}{
			"arxiv_id": a.ArxivID,
			"attempt":  attempt,
			"error":    lastErr.Error(),
		})

		if attempt == maxAttempts {
			break
		}
		if err := r.sleep(ctx, retryDelay); err != nil {
			return err
		}
	}
	return fmt.Errorf("recording view for %s: %w", a.ArxivID, lastErr)
}

// RecordAsync fires a view recording in the background. Errors are
// logged as non-critical and never returned; done (if non-nil) is
// closed when the attempt sequence finishes, which tests use to avoid
// sleeping.
func (r *Recorder) RecordAsync(ctx context.Context, userID string, a *article.Article, level types.SkillLevel, done chan<- struct{}) {
	view := *a
	go func() {
		if done != nil {
			defer close(done)
		}
		if err := r.RecordArticleView(ctx, userID, &view, level); err != nil {
			r.log.Warn("view recording abandoned", map[string]interface{}{
				"arxiv_id": view.ArxivID,
				"error":    err.Error(),
			})
		}
	}()
}

// GetUserViewingStats fetches the aggregate reading history for a user
func (r *Recorder) GetUserViewingStats(ctx context.Context, userID string) (*ViewingStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/views/"+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, logger.WrapError(err, logger.ErrorTypeAPI, "viewing stats request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, logger.NewAppError(logger.ErrorTypeAPI,
			fmt.Sprintf("viewing stats returned status %d", resp.StatusCode), nil)
	}

	var stats ViewingStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, logger.WrapError(err, logger.ErrorTypeData, "failed to parse viewing stats")
	}
	return &stats, nil
}

func (r *Recorder) post(ctx context.Context, payload viewPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/views", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("view request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("view request returned status %d", resp.StatusCode)
	}
	return nil
}
