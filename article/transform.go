package article

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/parizob/Peardox-2.0-sub001/types"
)

const (
	fallbackTitle       = "Research Paper"
	fallbackDescription = "Summary not yet available for this paper."
	fallbackCategory    = "General"

	displayDateLayout = "January 2, 2006"
	descriptionLimit  = 200
)

// hypeAdjectives are stripped from raw titles during simplification
var hypeAdjectives = []string{"Novel", "New", "Improved", "Enhanced", "Advanced", "Efficient"}

// softeningSubstitutions maps academic phrasing to plainer wording in
// derived descriptions. Inflected forms come before their stems so the
// replacer never splits a longer word.
var softeningSubstitutions = []string{
	"demonstrating", "showing",
	"demonstrates", "shows",
	"demonstrated", "showed",
	"demonstrate", "show",
	"utilizing", "using",
	"utilizes", "uses",
	"utilized", "used",
	"utilize", "use",
	"leveraging", "using",
	"leverages", "uses",
	"leveraged", "used",
	"leverage", "use",
	"facilitates", "helps",
	"facilitated", "helped",
	"facilitating", "helping",
	"facilitate", "help",
	"methodologies", "methods",
	"methodology", "method",
	"subsequently", "then",
	"approximately", "about",
	"numerous", "many",
}

var softeningReplacer = buildSofteningReplacer(softeningSubstitutions)

// topicTag pairs a display tag with the keywords that trigger it.
// Order matters: matched tags are appended in table order.
type topicTag struct {
	Tag      string
	Keywords []string
}

var topicTags = []topicTag{
	{"Large Language Models", []string{"large language model", "llm", "gpt"}},
	{"Computer Vision", []string{"computer vision", "image recognition", "visual"}},
	{"Reinforcement Learning", []string{"reinforcement learning", "reward signal", "policy gradient"}},
	{"Natural Language Processing", []string{"natural language", "nlp", "text generation"}},
	{"Neural Networks", []string{"neural network", "deep learning", "transformer"}},
	{"Robotics", []string{"robot", "manipulation", "autonomous"}},
	{"Healthcare AI", []string{"medical", "clinical", "diagnosis", "patient"}},
}

// Transform maps a raw backend paper into the Article view model.
// It is pure: the same paper and skill level always produce the same
// Article, and the input is never mutated.
func Transform(p types.Paper, level types.SkillLevel) Article {
	now := time.Now().UTC()
	return transformAt(p, level, now)
}

// transformAt exists so date fallback behavior can be tested against a
// fixed clock.
func transformAt(p types.Paper, level types.SkillLevel, now time.Time) Article {
	title := p.SummaryTitle
	if title == "" {
		title = SimplifyTitle(p.Title)
	}
	if title == "" {
		title = fallbackTitle
	}

	description := p.SummaryOverview
	if description == "" {
		description = SimplifyDescription(p.Abstract)
	}
	if description == "" {
		description = fallbackDescription
	}

	categories := displayCategories(p)

	original := p
	return Article{
		ID:               p.ID,
		ArxivID:          p.ArxivID,
		Title:            title,
		ShortDescription: description,
		Authors:          append([]string(nil), p.Authors...),
		Categories:       categories,
		Tags:             deriveTags(categories, p.Title+" "+p.Abstract),
		PublishedDate:    formatPublishedDate(p.PublishedDate, p.CreatedAt, now),
		HasSummary:       p.HasSummary(),
		SummaryContent:   p.SummaryContent,
		PDFURL:           p.PDFURL,
		AbstractURL:      p.AbstractURL,
		SkillLevel:       level,
		Original:         &original,
	}
}

// TransformAll maps a batch of papers, preserving input order
func TransformAll(papers []types.Paper, level types.SkillLevel) []Article {
	articles := make([]Article, 0, len(papers))
	for _, p := range papers {
		articles = append(articles, Transform(p, level))
	}
	return articles
}

// SimplifyTitle strips leading articles, trailing colon-qualifier clauses
// and a fixed set of hype adjectives from a raw paper title.
func SimplifyTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	// Qualifier clauses trail the colon: "X: A Novel Framework for Y"
	if idx := strings.Index(title, ":"); idx > 0 {
		head := strings.TrimSpace(title[:idx])
		if head != "" {
			title = head
		}
	}

	words := strings.Fields(title)
	if len(words) > 1 {
		switch strings.ToLower(words[0]) {
		case "a", "an", "the":
			words = words[1:]
		}
	}

	kept := words[:0]
	for _, w := range words {
		if isHypeAdjective(w) && len(words) > 1 {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		kept = words
	}

	return strings.Join(kept, " ")
}

func isHypeAdjective(word string) bool {
	trimmed := strings.Trim(word, ",;")
	for _, adj := range hypeAdjectives {
		if strings.EqualFold(trimmed, adj) {
			return true
		}
	}
	return false
}

// SimplifyDescription derives a short description from an abstract: the
// first sentence with softened wording, or a truncated prefix when no
// sentence boundary exists.
func SimplifyDescription(abstract string) string {
	abstract = strings.TrimSpace(abstract)
	if abstract == "" {
		return ""
	}

	if idx := strings.IndexAny(abstract, ".!?"); idx >= 0 {
		sentence := strings.TrimSpace(abstract[:idx])
		if sentence == "" {
			return ""
		}
		return softeningReplacer.Replace(sentence) + "."
	}

	if len(abstract) > descriptionLimit {
		return abstract[:descriptionLimit] + "..."
	}
	return abstract + "..."
}

func buildSofteningReplacer(subs []string) *strings.Replacer {
	pairs := make([]string, 0, len(subs)*2)
	for i := 0; i+1 < len(subs); i += 2 {
		from, to := subs[i], subs[i+1]
		pairs = append(pairs, from, to)
		pairs = append(pairs, capitalize(from), capitalize(to))
	}
	return strings.NewReplacer(pairs...)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// displayCategories prefers backend display names over raw category codes
// and guarantees a non-empty result.
func displayCategories(p types.Paper) []string {
	src := p.CategoriesName
	if len(src) == 0 {
		src = p.Categories
	}

	categories := make([]string, 0, len(src))
	for _, c := range src {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}
	if len(categories) == 0 {
		categories = []string{fallbackCategory}
	}
	return categories
}

// deriveTags unions categories with keyword-matched topic tags, keeping
// categories first and deduplicating case-insensitively.
func deriveTags(categories []string, text string) []string {
	lowered := strings.ToLower(text)

	tags := make([]string, 0, len(categories)+len(topicTags))
	seen := make(map[string]bool, len(categories)+len(topicTags))
	add := func(tag string) {
		key := strings.ToLower(tag)
		if !seen[key] {
			seen[key] = true
			tags = append(tags, tag)
		}
	}

	for _, c := range categories {
		add(c)
	}
	for _, tt := range topicTags {
		for _, kw := range tt.Keywords {
			if strings.Contains(lowered, kw) {
				add(tt.Tag)
				break
			}
		}
	}
	return tags
}

// formatPublishedDate renders a long-form UTC date from whichever raw
// timestamp is present, falling back to today when parsing fails.
func formatPublishedDate(publishedDate, createdAt string, now time.Time) string {
	for _, raw := range []string{publishedDate, createdAt} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := dateparse.ParseIn(raw, time.UTC)
		if err != nil {
			continue
		}
		return parsed.UTC().Format(displayDateLayout)
	}
	return now.UTC().Format(displayDateLayout)
}
