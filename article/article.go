package article

import (
	"github.com/parizob/Peardox-2.0-sub001/types"
)

// Article is the normalized view model derived from a raw backend paper.
// Articles are immutable after construction; Original retains the raw
// record for fields not promoted to the view model.
type Article struct {
	ID               int64
	ArxivID          string
	Title            string
	ShortDescription string
	Authors          []string
	Categories       []string
	Tags             []string
	PublishedDate    string
	HasSummary       bool
	SummaryContent   string
	PDFURL           string
	AbstractURL      string
	SkillLevel       types.SkillLevel
	Original         *types.Paper
}

// PrimaryCategory returns the first category. Categories is never empty.
func (a *Article) PrimaryCategory() string {
	return a.Categories[0]
}
