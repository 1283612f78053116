package app

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"github.com/parizob/Peardox-2.0-sub001/article"
	"github.com/parizob/Peardox-2.0-sub001/auth"
	"github.com/parizob/Peardox-2.0-sub001/feed"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/prefs"
	"github.com/parizob/Peardox-2.0-sub001/snapshot"
	"github.com/parizob/Peardox-2.0-sub001/spotlight"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

const (
	recentWindow  = 14 * 24 * time.Hour
	fallbackLimit = 500
)

// Source identifies which tier of the load chain produced the
// current collection.
type Source string

const (
	SourceSummaries   Source = "summaries"
	SourceLightweight Source = "lightweight"
	SourceSnapshot    Source = "snapshot"
	SourceDemo        Source = "demo"
)

// LoadResult reports one completed load cycle
type LoadResult struct {
	Source   Source
	Count    int
	Degraded bool // snapshot or demo tier; a retry is worthwhile
	Stale    bool // superseded by a newer load; collection untouched
}

// Backend is the slice of the paper API the reader needs
type Backend interface {
	GetAllPapersWithSummaries(ctx context.Context, level types.SkillLevel) ([]types.Paper, error)
	GetAllPapers(ctx context.Context, page, pageSize int, lightweight bool) ([]types.Paper, error)
	GetCategories(ctx context.Context) ([]types.Category, error)
}

// SnapshotLoader restores the last-known-good paper set
type SnapshotLoader interface {
	LoadLatest(ctx context.Context) (*snapshot.Snapshot, error)
}

// Reader orchestrates the read side: it owns the article collection,
// runs the tiered load chain, and applies profile-driven settings.
type Reader struct {
	backend   Backend
	snapshots SnapshotLoader
	log       *logger.Logger
	now       func() time.Time

	collection *feed.Collection

	mu         sync.RWMutex
	skillLevel types.SkillLevel
	interests  []string
	categories []types.Category

	// loadVersion orders overlapping loads; only the newest may
	// publish its result (last writer wins).
	loadVersion uint64
}

// NewReader creates a Reader at the baseline skill level. snapshots may
// be nil when no snapshot store is configured.
func NewReader(backend Backend, snapshots SnapshotLoader, log *logger.Logger) *Reader {
	return &Reader{
		backend:    backend,
		snapshots:  snapshots,
		log:        log,
		now:        time.Now,
		collection: feed.NewCollection(),
		skillLevel: types.DefaultSkillLevel,
		interests:  prefs.DefaultInterests,
	}
}

// Collection exposes the live article collection for the feed and
// deep-link layers.
func (r *Reader) Collection() *feed.Collection {
	return r.collection
}

// SkillLevel returns the active summary tier
func (r *Reader) SkillLevel() types.SkillLevel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skillLevel
}

// Interests returns the active research-interest list
func (r *Reader) Interests() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.interests...)
}

// Categories returns the category taxonomy from the last load
func (r *Reader) Categories() []types.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.Category(nil), r.categories...)
}

// Spotlight returns today's featured article, or nil while empty
func (r *Reader) Spotlight(t time.Time) *article.Article {
	return spotlight.Select(r.collection.Articles(), t)
}

// Load runs the full load chain and publishes the result into the
// collection unless a newer load has started in the meantime.
func (r *Reader) Load(ctx context.Context) (*LoadResult, error) {
	version := atomic.AddUint64(&r.loadVersion, 1)
	level := r.SkillLevel()

	log := r.log.WithTraceID(uuid.New().String())
	log.Info("starting load cycle", map[string]interface{}{
		"skill_level": string(level),
		"version":     version,
	})

	papers, source := r.fetchPapers(ctx, log, level)

	var result *LoadResult
	if papers == nil {
		result = r.publishDemo(log, version)
	} else {
		papers = r.applyRecentWindow(log, papers)
		articles := article.TransformAll(papers, level)
		result = r.publish(log, version, articles, source)
	}

	if result.Stale || result.Degraded {
		// The backend that just failed is not asked for categories
		// too; degraded tiers keep the previous (or demo) taxonomy.
		return result, nil
	}

	if categories, err := r.backend.GetCategories(ctx); err != nil {
		log.Warn("category fetch failed, keeping previous taxonomy", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		r.mu.Lock()
		r.categories = categories
		r.mu.Unlock()
	}

	return result, nil
}

// Retry re-invokes the full load sequence; it is what a user-facing
// retry action calls after a degraded load.
func (r *Reader) Retry(ctx context.Context) (*LoadResult, error) {
	return r.Load(ctx)
}

// SetSkillLevel switches the summary tier and reloads. Overlapping
// reloads are resolved by the load version: stale results are dropped.
func (r *Reader) SetSkillLevel(ctx context.Context, level types.SkillLevel) (*LoadResult, error) {
	if !level.Valid() {
		return nil, logger.NewAppError(logger.ErrorTypeData, "unknown skill level: "+string(level), nil)
	}

	r.mu.Lock()
	changed := r.skillLevel != level
	r.skillLevel = level
	r.mu.Unlock()

	if !changed {
		return &LoadResult{Source: SourceSummaries, Count: r.collection.Len()}, nil
	}
	return r.Load(ctx)
}

// ApplyProfile adopts skill level and interests from a fetched profile.
// A failed profile fetch falls back to the baseline defaults and is
// logged only.
func (r *Reader) ApplyProfile(profile *auth.Profile, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil || profile == nil {
		r.skillLevel = types.DefaultSkillLevel
		r.interests = prefs.DefaultInterests
		if err != nil {
			r.log.Warn("profile load failed, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	if profile.SkillLevel.Valid() {
		r.skillLevel = profile.SkillLevel
	} else {
		r.skillLevel = types.DefaultSkillLevel
	}
	if len(profile.ResearchInterests) > 0 {
		r.interests = append([]string(nil), profile.ResearchInterests...)
	} else {
		r.interests = prefs.DefaultInterests
	}
}

// fetchPapers walks the network tiers: summaries, then the lightweight
// query, then the snapshot. A nil return means every tier failed.
func (r *Reader) fetchPapers(ctx context.Context, log *logger.Logger, level types.SkillLevel) ([]types.Paper, Source) {
	papers, err := r.backend.GetAllPapersWithSummaries(ctx, level)
	if err == nil {
		return papers, SourceSummaries
	}
	log.Warn("summaries query failed, falling back to lightweight papers", map[string]interface{}{
		"error": err.Error(),
	})

	papers, err = r.backend.GetAllPapers(ctx, 1, fallbackLimit, true)
	if err == nil {
		return papers, SourceLightweight
	}
	log.Error("lightweight query failed", err, nil)

	if r.snapshots != nil {
		snap, snapErr := r.snapshots.LoadLatest(ctx)
		if snapErr == nil {
			log.InfoWithCount("restored collection from snapshot", len(snap.Papers), map[string]interface{}{
				"taken_at": snap.TakenAt.Format(time.RFC3339),
			})
			return snap.Papers, SourceSnapshot
		}
		log.Error("snapshot restore failed", snapErr, nil)
	}

	return nil, SourceDemo
}

// applyRecentWindow keeps the default feed fresh: when nothing falls
// inside the recent window, the most recent papers are shown instead of
// an empty state.
func (r *Reader) applyRecentWindow(log *logger.Logger, papers []types.Paper) []types.Paper {
	cutoff := r.now().UTC().Add(-recentWindow)

	recent := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if t, ok := paperDate(p); ok && !t.Before(cutoff) {
			recent = append(recent, p)
		}
	}
	if len(recent) > 0 {
		return recent
	}
	if len(papers) == 0 {
		return papers
	}

	log.Warn("no papers inside recent window, showing newest instead", map[string]interface{}{
		"total": len(papers),
	})

	sorted := append([]types.Paper(nil), papers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, _ := paperDate(sorted[i])
		tj, _ := paperDate(sorted[j])
		return ti.After(tj)
	})
	if len(sorted) > fallbackLimit {
		sorted = sorted[:fallbackLimit]
	}
	return sorted
}

func (r *Reader) publish(log *logger.Logger, version uint64, articles []article.Article, source Source) *LoadResult {
	if atomic.LoadUint64(&r.loadVersion) != version {
		log.Warn("dropping stale load result", map[string]interface{}{
			"version": version,
			"source":  string(source),
		})
		return &LoadResult{Source: source, Count: len(articles), Stale: true}
	}

	r.collection.Replace(articles)
	log.InfoWithCount("collection published", len(articles), map[string]interface{}{
		"source": string(source),
	})
	return &LoadResult{
		Source:   source,
		Count:    len(articles),
		Degraded: source == SourceSnapshot || source == SourceDemo,
	}
}

func (r *Reader) publishDemo(log *logger.Logger, version uint64) *LoadResult {
	demo := DemoArticles()
	result := r.publish(log, version, demo, SourceDemo)
	if !result.Stale {
		r.mu.Lock()
		r.categories = DemoCategories()
		r.mu.Unlock()
	}
	return result
}

func paperDate(p types.Paper) (time.Time, bool) {
	for _, raw := range []string{p.PublishedDate, p.CreatedAt} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
