package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownField is returned for field ids outside the quiz table
var ErrUnknownField = errors.New("unknown field")

// ErrNotAuthenticated is returned when saving interests without a session
var ErrNotAuthenticated = errors.New("not authenticated")

// interestCount is the fixed number of categories per field
const interestCount = 5

// fieldCategories maps each field-quiz answer to its category list.
// Every entry carries exactly interestCount categories.
var fieldCategories = map[string][]string{
	"medicine": {
		"Healthcare AI",
		"Medical Imaging",
		"Drug Discovery",
		"Clinical NLP",
		"Genomics",
	},
	"finance": {
		"Financial ML",
		"Time Series Forecasting",
		"Risk Modeling",
		"Fraud Detection",
		"Algorithmic Trading",
	},
	"education": {
		"Intelligent Tutoring",
		"Learning Analytics",
		"Natural Language Processing",
		"Knowledge Representation",
		"Human-AI Interaction",
	},
	"tech": {
		"Large Language Models",
		"Computer Vision",
		"Machine Learning",
		"Neural Networks",
		"MLOps",
	},
	"legal": {
		"Legal NLP",
		"Information Retrieval",
		"Document Understanding",
		"Explainable AI",
		"AI Governance",
	},
}

// DefaultInterests is used when no profile is available
var DefaultInterests = []string{
	"Machine Learning",
	"Large Language Models",
	"Computer Vision",
	"Natural Language Processing",
	"Neural Networks",
}

// Fields returns the closed set of known field identifiers
func Fields() []string {
	return []string{"medicine", "finance", "education", "tech", "legal"}
}

// Categories returns the fixed category list for a field id
func Categories(fieldID string) ([]string, error) {
	categories, ok := fieldCategories[fieldID]
	if !ok {
		return nil, fmt.Errorf("field %q: %w", fieldID, ErrUnknownField)
	}
	return append([]string(nil), categories...), nil
}

// ProfileUpdater persists research interests to the user's profile
type ProfileUpdater interface {
	UpdateResearchInterests(ctx context.Context, userID string, interests []string) error
}

// Session holds the research-interest state for one browsing session.
// Selecting a field only sets a transient override; nothing is
// persisted until an explicit save.
type Session struct {
	mu        sync.Mutex
	persisted []string
	override  []string
}

// NewSession starts from the user's persisted interests, or the default
// list when none exist.
func NewSession(persisted []string) *Session {
	if len(persisted) == 0 {
		persisted = DefaultInterests
	}
	return &Session{persisted: append([]string(nil), persisted...)}
}

// SelectField applies a field's categories as the transient override
// and returns them.
func (s *Session) SelectField(fieldID string) ([]string, error) {
	categories, err := Categories(fieldID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.override = categories
	s.mu.Unlock()
	return append([]string(nil), categories...), nil
}

// Clear drops any transient override, reverting to persisted interests
func (s *Session) Clear() {
	s.mu.Lock()
	s.override = nil
	s.mu.Unlock()
}

// Interests returns the active category list: the override when one is
// set, otherwise the persisted interests.
func (s *Session) Interests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override != nil {
		return append([]string(nil), s.override...)
	}
	return append([]string(nil), s.persisted...)
}

// Save persists the active interests through the profile updater. It is
// rejected for unauthenticated callers; the transient override becomes
// the persisted list on success.
func (s *Session) Save(ctx context.Context, updater ProfileUpdater, userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	interests := s.Interests()
	if err := updater.UpdateResearchInterests(ctx, userID, interests); err != nil {
		return fmt.Errorf("saving research interests: %w", err)
	}

	s.mu.Lock()
	s.persisted = interests
	s.override = nil
	s.mu.Unlock()
	return nil
}
