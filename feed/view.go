package feed

import (
	"github.com/parizob/Peardox-2.0-sub001/article"
)

// View tracks the filter and pagination state for one browsing session.
// Changing the search term or category invalidates the filtered set, so
// the page always resets to 1 on either change.
type View struct {
	searchTerm       string
	selectedCategory string
	page             int
	pageSize         int

	lastTotalPages int
}

// NewView creates a View on page 1 with the fixed page size
func NewView() *View {
	return &View{page: 1, pageSize: PageSize}
}

// SetSearch updates the search term and resets pagination
func (v *View) SetSearch(term string) {
	if term == v.searchTerm {
		return
	}
	v.searchTerm = term
	v.page = 1
}

// SetCategory updates the category filter and resets pagination
func (v *View) SetCategory(category string) {
	if category == v.selectedCategory {
		return
	}
	v.selectedCategory = category
	v.page = 1
}

// Page returns the current 1-indexed page
func (v *View) Page() int {
	return v.page
}

// SearchTerm returns the active search term
func (v *View) SearchTerm() string {
	return v.searchTerm
}

// SelectedCategory returns the active category filter
func (v *View) SelectedCategory() string {
	return v.selectedCategory
}

// NextPage advances one page, guarded at the last known page count
func (v *View) NextPage() {
	if v.page < v.lastTotalPages {
		v.page++
	}
}

// PrevPage steps back one page, never below 1
func (v *View) PrevPage() {
	if v.page > 1 {
		v.page--
	}
}

// Results filters the given articles with the view's current state and
// returns the current page.
func (v *View) Results(articles []article.Article) Page {
	filtered := Filter(articles, v.searchTerm, v.selectedCategory)
	p := Paginate(filtered, v.page, v.pageSize)
	v.lastTotalPages = p.TotalPages
	return p
}
