package feed

import (
	"sort"
	"sync"

	"github.com/parizob/Peardox-2.0-sub001/article"
)

// Collection is the in-memory article set shared by the landing view,
// the spotlight and the deep-link resolver. It is mutated only by
// wholesale replacement on reload and single-item prepends from direct
// fetches; every mutation bumps the generation counter so derived state
// knows to recompute.
type Collection struct {
	mu         sync.RWMutex
	articles   []article.Article
	generation uint64
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{}
}

// Replace swaps in a freshly loaded article set, normalized to
// descending id order. The spotlight pool and the landing feed both
// assume the head of the collection is the newest ingested article, so
// the ordering is enforced here rather than trusted from the loader.
func (c *Collection) Replace(articles []article.Article) {
	sorted := append([]article.Article(nil), articles...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID > sorted[j].ID
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles = sorted
	c.generation++
}

// Prepend inserts a directly fetched article at the head unless an
// article with the same id is already present.
func (c *Collection) Prepend(a article.Article) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.articles {
		if c.articles[i].ID == a.ID {
			return false
		}
	}

	c.articles = append([]article.Article{a}, c.articles...)
	c.generation++
	return true
}

// Articles returns a snapshot copy of the current article set
func (c *Collection) Articles() []article.Article {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]article.Article(nil), c.articles...)
}

// Len returns the number of loaded articles
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.articles)
}

// Generation returns the current mutation counter
func (c *Collection) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// FindByArxivID locates an article by arXiv id, tolerating version-suffix
// mismatches in either direction.
func (c *Collection) FindByArxivID(arxivID string) (article.Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stripped := StripVersion(arxivID)
	for _, a := range c.articles {
		if a.ArxivID == arxivID || StripVersion(a.ArxivID) == stripped {
			return a, true
		}
	}
	return article.Article{}, false
}
