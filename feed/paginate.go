package feed

import (
	"github.com/parizob/Peardox-2.0-sub001/article"
)

// PageSize is the fixed number of articles per page
const PageSize = 30

// Page holds one slice of a filtered result set
type Page struct {
	Items      []article.Article
	Number     int
	TotalPages int
}

// Paginate slices the filtered set into the requested 1-indexed page.
// It does not clamp: an out-of-range page yields an empty slice, and
// callers guard navigation at the boundaries.
func Paginate(filtered []article.Article, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = PageSize
	}

	totalPages := 0
	if len(filtered) > 0 {
		totalPages = (len(filtered) + pageSize - 1) / pageSize
	}

	p := Page{Number: page, TotalPages: totalPages}
	if page < 1 || page > totalPages {
		p.Items = []article.Article{}
		return p
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	p.Items = filtered[start:end]
	return p
}
