package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parizob/Peardox-2.0-sub001/auth"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/snapshot"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

type fakeBackend struct {
	summaries    []types.Paper
	summariesErr error
	lightweight  []types.Paper
	lightErr     error
	categories   []types.Category
	categoryErr  error

	summaryCalls int
	lightCalls   int
	lastLevel    types.SkillLevel

	onSummaries func()
}

func (f *fakeBackend) GetAllPapersWithSummaries(ctx context.Context, level types.SkillLevel) ([]types.Paper, error) {
	f.summaryCalls++
	f.lastLevel = level
	if f.onSummaries != nil {
		f.onSummaries()
	}
	return f.summaries, f.summariesErr
}

func (f *fakeBackend) GetAllPapers(ctx context.Context, page, pageSize int, lightweight bool) ([]types.Paper, error) {
	f.lightCalls++
	return f.lightweight, f.lightErr
}

func (f *fakeBackend) GetCategories(ctx context.Context) ([]types.Category, error) {
	return f.categories, f.categoryErr
}

type fakeSnapshots struct {
	snap *snapshot.Snapshot
	err  error
}

func (f *fakeSnapshots) LoadLatest(ctx context.Context) (*snapshot.Snapshot, error) {
	return f.snap, f.err
}

func newTestReader(backend Backend, snapshots SnapshotLoader) *Reader {
	r := NewReader(backend, snapshots, logger.NewWithWriter("app-test", &bytes.Buffer{}))
	r.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return r
}

func recentPapers() []types.Paper {
	return []types.Paper{
		{ID: 2, ArxivID: "2408.00002", Title: "Newer", PublishedDate: "2026-08-28"},
		{ID: 1, ArxivID: "2408.00001", Title: "Older", PublishedDate: "2026-08-20"},
	}
}

func TestLoad_SummariesTier(t *testing.T) {
	backend := &fakeBackend{
		summaries:  recentPapers(),
		categories: []types.Category{{Code: "cs.LG", Name: "Machine Learning"}},
	}
	r := newTestReader(backend, nil)

	result, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceSummaries, result.Source)
	assert.Equal(t, 2, result.Count)
	assert.False(t, result.Degraded)
	assert.Equal(t, 2, r.Collection().Len())
	require.Len(t, r.Categories(), 1)
	assert.Zero(t, backend.lightCalls)
}

func TestLoad_LightweightFallbackIsSilent(t *testing.T) {
	backend := &fakeBackend{
		summariesErr: errors.New("summaries exploded"),
		lightweight:  recentPapers(),
	}
	r := newTestReader(backend, nil)

	result, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceLightweight, result.Source)
	assert.False(t, result.Degraded, "lightweight fallback is not user-visible")
	assert.Equal(t, 2, r.Collection().Len())
}

func TestLoad_SnapshotTier(t *testing.T) {
	backend := &fakeBackend{
		summariesErr: errors.New("down"),
		lightErr:     errors.New("down"),
	}
	snapshots := &fakeSnapshots{snap: &snapshot.Snapshot{Papers: recentPapers()}}
	r := newTestReader(backend, snapshots)

	result, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, result.Source)
	assert.True(t, result.Degraded)
	assert.Equal(t, 2, r.Collection().Len())
}

func TestLoad_DemoTierThenRetry(t *testing.T) {
	backend := &fakeBackend{
		summariesErr: errors.New("down"),
		lightErr:     errors.New("down"),
	}
	r := newTestReader(backend, &fakeSnapshots{err: errors.New("no snapshot")})

	result, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDemo, result.Source)
	assert.True(t, result.Degraded)

	articles := r.Collection().Articles()
	require.Len(t, articles, 1)
	assert.Equal(t, DemoTitle, articles[0].Title)
	require.Len(t, r.Categories(), 1)
	assert.Equal(t, "General", r.Categories()[0].Name)

	// Retry re-invokes the full sequence and replaces the demo set.
	backend.summariesErr = nil
	backend.summaries = recentPapers()
	result, err = r.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceSummaries, result.Source)
	assert.Equal(t, 2, r.Collection().Len())
}

func TestLoad_RecentWindowKeepsFreshPapers(t *testing.T) {
	backend := &fakeBackend{summaries: []types.Paper{
		{ID: 3, ArxivID: "2408.00003", PublishedDate: "2026-08-29"},
		{ID: 2, ArxivID: "2406.00002", PublishedDate: "2026-06-01"},
	}}
	r := newTestReader(backend, nil)

	_, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, r.Collection().Len())
	assert.Equal(t, int64(3), r.Collection().Articles()[0].ID)
}

func TestLoad_StaleWindowShowsNewestInstead(t *testing.T) {
	backend := &fakeBackend{summaries: []types.Paper{
		{ID: 1, ArxivID: "2401.00001", PublishedDate: "2026-01-05"},
		{ID: 3, ArxivID: "2403.00003", PublishedDate: "2026-03-10"},
		{ID: 2, ArxivID: "2402.00002", PublishedDate: "2026-02-07"},
	}}
	r := newTestReader(backend, nil)

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	articles := r.Collection().Articles()
	require.Len(t, articles, 3, "older papers shown rather than an empty feed")
	assert.Equal(t, int64(3), articles[0].ID, "descending id order after publish")
	assert.Equal(t, int64(2), articles[1].ID)
	assert.Equal(t, int64(1), articles[2].ID)
}

func TestLoad_SpotlightPoolIsNewestRegardlessOfResponseOrder(t *testing.T) {
	// The backend returns papers in ascending id order; the spotlight
	// pool must still be the 50 newest by id.
	papers := make([]types.Paper, 0, 100)
	for i := 1; i <= 100; i++ {
		papers = append(papers, types.Paper{
			ID:            int64(i),
			ArxivID:       fmt.Sprintf("2408.%05d", i),
			PublishedDate: "2026-08-25",
		})
	}
	backend := &fakeBackend{summaries: papers}
	r := newTestReader(backend, nil)

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		pick := r.Spotlight(day.AddDate(0, 0, i))
		require.NotNil(t, pick)
		assert.GreaterOrEqual(t, pick.ID, int64(51))
	}
}

func TestSetSkillLevel_ReloadsAtNewLevel(t *testing.T) {
	backend := &fakeBackend{summaries: recentPapers()}
	r := newTestReader(backend, nil)

	result, err := r.SetSkillLevel(context.Background(), types.SkillAdvanced)
	require.NoError(t, err)
	assert.Equal(t, SourceSummaries, result.Source)
	assert.Equal(t, types.SkillAdvanced, backend.lastLevel)
	assert.Equal(t, types.SkillAdvanced, r.SkillLevel())
}

func TestSetSkillLevel_NoopWhenUnchanged(t *testing.T) {
	backend := &fakeBackend{summaries: recentPapers()}
	r := newTestReader(backend, nil)
	_, err := r.Load(context.Background())
	require.NoError(t, err)
	calls := backend.summaryCalls

	_, err = r.SetSkillLevel(context.Background(), r.SkillLevel())
	require.NoError(t, err)
	assert.Equal(t, calls, backend.summaryCalls)
}

func TestSetSkillLevel_RejectsUnknownLevel(t *testing.T) {
	r := newTestReader(&fakeBackend{}, nil)
	_, err := r.SetSkillLevel(context.Background(), types.SkillLevel("expert"))
	require.Error(t, err)
	assert.True(t, logger.IsErrorType(err, logger.ErrorTypeData))
}

func TestLoad_StaleResultIsDropped(t *testing.T) {
	backend := &fakeBackend{summaries: recentPapers()}
	r := newTestReader(backend, nil)

	// A second load starts (and finishes) while the first is still
	// fetching; the first must not overwrite the newer result.
	newer := []types.Paper{{ID: 9, ArxivID: "2408.00009", PublishedDate: "2026-08-29"}}
	first := true
	backend.onSummaries = func() {
		if first {
			first = false
			backend.summaries = newer
			_, err := r.Load(context.Background())
			require.NoError(t, err)
		}
	}

	result, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Stale)

	articles := r.Collection().Articles()
	require.Len(t, articles, 1)
	assert.Equal(t, int64(9), articles[0].ID, "last writer wins")
}

func TestApplyProfile(t *testing.T) {
	r := newTestReader(&fakeBackend{}, nil)

	r.ApplyProfile(&auth.Profile{
		SkillLevel:        types.SkillIntermediate,
		ResearchInterests: []string{"Robotics"},
	}, nil)
	assert.Equal(t, types.SkillIntermediate, r.SkillLevel())
	assert.Equal(t, []string{"Robotics"}, r.Interests())

	// Fetch failure falls back to the baseline defaults.
	r.ApplyProfile(nil, errors.New("profile service down"))
	assert.Equal(t, types.DefaultSkillLevel, r.SkillLevel())
	assert.NotEmpty(t, r.Interests())
}
