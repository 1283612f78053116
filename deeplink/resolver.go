package deeplink

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/parizob/Peardox-2.0-sub001/article"
	"github.com/parizob/Peardox-2.0-sub001/feed"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 10
	defaultHardStop     = 10 * time.Second
)

// ErrInvalidPath means the path does not encode an article id; the
// resolver has nothing to do.
var ErrInvalidPath = errors.New("path does not reference an article")

// ErrNotFound means the article could not be located after the full
// poll-and-fetch sequence.
var ErrNotFound = errors.New("article not found")

// articlePath matches /article/<arxivId[vN]>-<slug>
var articlePath = regexp.MustCompile(`^/article/(\d{4}\.\d{4,5}(?:v\d+)?)(?:-|$)`)

// ParseArticlePath extracts the arXiv id from a deep-link path
func ParseArticlePath(path string) (string, bool) {
	m := articlePath.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PaperFetcher performs the one direct backend fetch used after polling
// is exhausted.
type PaperFetcher interface {
	GetAllPapersWithSummaries(ctx context.Context, level types.SkillLevel) ([]types.Paper, error)
}

// Clock abstracts time so the bounded-retry contract can be tested
// without real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Resolver locates deep-linked articles in the loaded collection,
// polling while the collection loads and falling back to one direct
// backend fetch before giving up.
type Resolver struct {
	collection *feed.Collection
	fetcher    PaperFetcher
	log        *logger.Logger

	clock        Clock
	pollInterval time.Duration
	maxAttempts  int
	hardStop     time.Duration
}

// NewResolver creates a Resolver with the production polling bounds
func NewResolver(collection *feed.Collection, fetcher PaperFetcher, log *logger.Logger) *Resolver {
	return &Resolver{
		collection:   collection,
		fetcher:      fetcher,
		log:          log,
		clock:        realClock{},
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
		hardStop:     defaultHardStop,
	}
}

// Resolve locates the article referenced by path. It checks the loaded
// collection, polls it at a fixed interval while it may still be
// loading, then performs one direct backend fetch at the given skill
// level. The whole sequence terminates within the hard-stop bound, and
// cancelling ctx stops it immediately.
func (r *Resolver) Resolve(ctx context.Context, path string, level types.SkillLevel) (*article.Article, error) {
	arxivID, ok := ParseArticlePath(path)
	if !ok {
		return nil, ErrInvalidPath
	}

	deadline := r.clock.After(r.hardStop)

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if a, found := r.collection.FindByArxivID(arxivID); found {
			r.log.Debug("deep link resolved from loaded collection", map[string]interface{}{
				"arxiv_id": arxivID,
				"attempt":  attempt,
			})
			return &a, nil
		}
		if attempt == r.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			r.log.Warn("deep link polling hit hard stop", map[string]interface{}{
				"arxiv_id": arxivID,
				"attempts": attempt,
			})
			return nil, ErrNotFound
		case <-r.clock.After(r.pollInterval):
		}
	}

	return r.directFetch(ctx, arxivID, level)
}

// directFetch pulls the full paper set once and prepends a match into
// the collection so later lookups hit it immediately.
func (r *Resolver) directFetch(ctx context.Context, arxivID string, level types.SkillLevel) (*article.Article, error) {
	r.log.Info("deep link falling back to direct fetch", map[string]interface{}{
		"arxiv_id": arxivID,
		"level":    string(level),
	})

	papers, err := r.fetcher.GetAllPapersWithSummaries(ctx, level)
	if err != nil {
		r.log.Error("direct fetch failed", err, map[string]interface{}{"arxiv_id": arxivID})
		return nil, fmt.Errorf("direct fetch for %s: %w", arxivID, ErrNotFound)
	}

	stripped := feed.StripVersion(arxivID)
	for _, p := range papers {
		if p.ArxivID == arxivID || feed.StripVersion(p.ArxivID) == stripped {
			a := article.Transform(p, level)
			r.collection.Prepend(a)
			return &a, nil
		}
	}

	r.log.Warn("deep-linked article not present in backend", map[string]interface{}{
		"arxiv_id": arxivID,
		"papers":   len(papers),
	})
	return nil, ErrNotFound
}
