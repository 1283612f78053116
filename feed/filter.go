package feed

import (
	"sort"
	"strings"

	"github.com/parizob/Peardox-2.0-sub001/article"
)

// Filter applies the search term and category filter over the article
// collection and returns the matches sorted descending by id. Ordering by
// id is deliberate: ids encode ingestion recency, and relevance ranking
// is out of scope. The input slice is never mutated.
func Filter(articles []article.Article, searchTerm, selectedCategory string) []article.Article {
	term := strings.ToLower(strings.TrimSpace(searchTerm))

	out := make([]article.Article, 0, len(articles))
	for _, a := range articles {
		if matchesSearch(&a, term) && matchesCategory(&a, selectedCategory) {
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID > out[j].ID
	})
	return out
}

// matchesSearch is an OR across display title, short description, the
// original backend title, authors, tags and summary body.
func matchesSearch(a *article.Article, term string) bool {
	if term == "" {
		return true
	}

	if containsFold(a.Title, term) || containsFold(a.ShortDescription, term) {
		return true
	}
	if a.Original != nil && containsFold(a.Original.Title, term) {
		return true
	}
	for _, author := range a.Authors {
		if containsFold(author, term) {
			return true
		}
	}
	for _, tag := range a.Tags {
		if containsFold(tag, term) {
			return true
		}
	}
	return a.SummaryContent != "" && containsFold(a.SummaryContent, term)
}

// matchesCategory requires exact membership, not substring matching
func matchesCategory(a *article.Article, category string) bool {
	if category == "" {
		return true
	}
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// containsFold reports whether s contains the already-lowercased term
func containsFold(s, loweredTerm string) bool {
	return strings.Contains(strings.ToLower(s), loweredTerm)
}
