package types

// SkillLevel selects which pre-generated summary tier the backend returns
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"

	// DefaultSkillLevel is the baseline used when no profile is available
	DefaultSkillLevel = SkillBeginner
)

// Valid reports whether the skill level is one of the known tiers
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return true
	}
	return false
}

// Paper represents a raw paper record as returned by the hosted backend.
// Higher IDs are assigned to more recently ingested papers.
type Paper struct {
	ID              int64    `json:"id"`
	ArxivID         string   `json:"arxiv_id"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	Categories      []string `json:"categories"`
	CategoriesName  []string `json:"categories_name"`
	PublishedDate   string   `json:"published_date,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
	PDFURL          string   `json:"pdf_url,omitempty"`
	AbstractURL     string   `json:"abstract_url,omitempty"`
	SummaryTitle    string   `json:"summaryTitle,omitempty"`
	SummaryOverview string   `json:"summaryOverview,omitempty"`
	SummaryContent  string   `json:"summaryContent,omitempty"`
	Quiz            *Quiz    `json:"quiz,omitempty"`
}

// HasSummary reports whether any skill-level summary field is present
func (p *Paper) HasSummary() bool {
	return p.SummaryTitle != "" || p.SummaryOverview != "" || p.SummaryContent != ""
}

// Quiz is the optional per-paper quiz attached by the backend
type Quiz struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
}

// Category represents a browsable category exposed by the backend
type Category struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
}

// Answer represents a correct quiz answer recorded for a user.
// The number of answers equals the user's token balance.
type Answer struct {
	ID         int64  `json:"id"`
	PaperID    int64  `json:"paper_id"`
	AnsweredAt string `json:"answered_at"`
}
