package app

import (
	"time"

	"github.com/parizob/Peardox-2.0-sub001/article"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

// DemoTitle marks the placeholder article shown when every load tier
// fails; the UI pairs it with a retry action.
const DemoTitle = "Connection Problem - Showing a Demo Paper"

// DemoArticles returns the fixed substitute collection used when the
// backend is unreachable, so browsing stays interactive.
func DemoArticles() []article.Article {
	return []article.Article{
		{
			ID:               1,
			ArxivID:          "0000.00000",
			Title:            DemoTitle,
			ShortDescription: "We could not reach the paper service. This demo paper shows how summaries look; use Retry to reload the live feed.",
			Authors:          []string{"The Peardox Team"},
			Categories:       []string{"General"},
			Tags:             []string{"General"},
			PublishedDate:    time.Now().UTC().Format("January 2, 2006"),
			SkillLevel:       types.DefaultSkillLevel,
		},
	}
}

// DemoCategories returns the category set paired with the demo article
func DemoCategories() []types.Category {
	return []types.Category{
		{Code: "general", Name: "General"},
	}
}
