package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

// EventType is the auth-state transition kind
type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// Event is delivered to subscribers on every auth-state transition
type Event struct {
	Type    EventType
	Session *Session
}

// Session identifies an authenticated user
type Session struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Profile is the user's stored preferences
type Profile struct {
	UserID            string           `json:"user_id"`
	DisplayName       string           `json:"display_name,omitempty"`
	SkillLevel        types.SkillLevel `json:"skill_level"`
	ResearchInterests []string         `json:"research_interests"`
	Theme             string           `json:"theme,omitempty"`
}

// HTTPClient interface for making HTTP requests (allows mocking)
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the auth provider and broadcasts state transitions
// to subscribers. Subscriptions deliver SIGNED_IN when a session
// appears and SIGNED_OUT when it goes away.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	log        *logger.Logger

	mu          sync.Mutex
	current     *Session
	subscribers map[int]chan Event
	nextSubID   int
}

// New creates an auth client with production HTTP settings
func New(baseURL string, log *logger.Logger) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 15 * time.Second}, log)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing)
func NewWithHTTPClient(baseURL string, httpClient HTTPClient, log *logger.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		log:         log,
		subscribers: make(map[int]chan Event),
	}
}

// GetSession fetches the current session, or nil when signed out.
// State transitions observed here are broadcast to subscribers.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	var session *Session
	status, err := c.getJSON(ctx, "/v1/auth/session", &session)
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusNoContent {
		session = nil
	}

	c.updateSession(session)
	return session, nil
}

// GetProfile fetches the stored profile for a user
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var profile Profile
	status, err := c.getJSON(ctx, "/v1/auth/profile/"+userID, &profile)
	if err != nil {
		return nil, fmt.Errorf("fetching profile for %s: %w", userID, err)
	}
	if status != http.StatusOK {
		return nil, logger.NewAppError(logger.ErrorTypeAuth,
			fmt.Sprintf("profile fetch returned status %d", status), nil)
	}
	return &profile, nil
}

// UpdateProfile stores the full profile
func (c *Client) UpdateProfile(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.UserID == "" {
		return logger.NewAppError(logger.ErrorTypeAuth, "profile update requires a user id", nil)
	}
	if err := c.putJSON(ctx, "/v1/auth/profile/"+profile.UserID, profile); err != nil {
		return fmt.Errorf("updating profile for %s: %w", profile.UserID, err)
	}
	return nil
}

// UpdateResearchInterests stores just the research-interest list
func (c *Client) UpdateResearchInterests(ctx context.Context, userID string, interests []string) error {
	if userID == "" {
		return logger.NewAppError(logger.ErrorTypeAuth, "interest update requires a user id", nil)
	}
	payload := map[string]interface{}{"research_interests": interests}
	if err := c.putJSON(ctx, "/v1/auth/profile/"+userID+"/interests", payload); err != nil {
		return fmt.Errorf("updating interests for %s: %w", userID, err)
	}
	return nil
}

// Subscribe registers for auth-state transitions. The returned cancel
// function must be called when the subscriber goes away.
func (c *Client) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan Event, 4)
	c.subscribers[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// CurrentSession returns the last session observed by GetSession
func (c *Client) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Client) updateSession(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.current != nil
	is := session != nil
	c.current = session

	var event Event
	switch {
	case !was && is:
		event = Event{Type: SignedIn, Session: session}
	case was && !is:
		event = Event{Type: SignedOut}
	default:
		return
	}

	c.log.Info("auth state changed", map[string]interface{}{"event": string(event.Type)})
	for _, ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscribers drop events rather than block auth checks.
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, logger.WrapError(err, logger.ErrorTypeAuth, "auth request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusOK && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, logger.WrapError(err, logger.ErrorTypeData, "failed to parse auth response")
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) putJSON(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return logger.WrapError(err, logger.ErrorTypeAuth, "auth request failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return logger.NewAppError(logger.ErrorTypeAuth,
			fmt.Sprintf("auth update returned status %d", resp.StatusCode), nil)
	}
	return nil
}
