package spotlight

import (
	"fmt"
	"time"

	"github.com/parizob/Peardox-2.0-sub001/article"
)

// poolLimit bounds the candidate pool to the newest articles of the
// descending-by-id collection.
const poolLimit = 50

// DailySeed derives a deterministic seed from the calendar date alone.
// The same date always yields the same seed, so the spotlight pick is
// stable for a whole day without any stored state.
func DailySeed(t time.Time) int32 {
	key := fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())

	var hash int32
	for _, ch := range []byte(key) {
		hash = hash*31 + int32(ch)
	}
	return hash
}

// Select picks the spotlight article for the given day from the loaded
// collection. The collection must already be sorted descending by id.
// An empty collection yields nil.
func Select(articles []article.Article, t time.Time) *article.Article {
	if len(articles) == 0 {
		return nil
	}

	poolSize := len(articles)
	if poolSize > poolLimit {
		poolSize = poolLimit
	}

	seed := int64(DailySeed(t))
	if seed < 0 {
		seed = -seed
	}

	pick := articles[int(seed%int64(poolSize))]
	return &pick
}
