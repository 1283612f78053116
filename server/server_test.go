package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parizob/Peardox-2.0-sub001/analytics"
	"github.com/parizob/Peardox-2.0-sub001/app"
	"github.com/parizob/Peardox-2.0-sub001/article"
	"github.com/parizob/Peardox-2.0-sub001/deeplink"
	"github.com/parizob/Peardox-2.0-sub001/forms"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/meta"
	"github.com/parizob/Peardox-2.0-sub001/prefs"
	"github.com/parizob/Peardox-2.0-sub001/spotlight"
	"github.com/parizob/Peardox-2.0-sub001/store"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

type fakeResolver struct {
	article *article.Article
	err     error
}

func (f *fakeResolver) Resolve(ctx context.Context, path string, level types.SkillLevel) (*article.Article, error) {
	return f.article, f.err
}

type fakeViews struct {
	recorded []string
}

func (f *fakeViews) RecordAsync(ctx context.Context, userID string, a *article.Article, level types.SkillLevel, done chan<- struct{}) {
	f.recorded = append(f.recorded, a.ArxivID)
	if done != nil {
		close(done)
	}
}

type fakeTokens struct {
	balance int
	err     error
}

func (f *fakeTokens) Balance(ctx context.Context, userID string) (int, error) {
	return f.balance, f.err
}

type fakeSubmitter struct {
	contacts    []forms.ContactForm
	redemptions []forms.RedemptionForm
	err         error
}

func (f *fakeSubmitter) SubmitContactForm(ctx context.Context, form forms.ContactForm) error {
	if f.err == nil {
		f.contacts = append(f.contacts, form)
	}
	return f.err
}

func (f *fakeSubmitter) SubmitRedemption(ctx context.Context, form forms.RedemptionForm, balance int) error {
	if f.err == nil {
		f.redemptions = append(f.redemptions, form)
	}
	return f.err
}

type fakeStats struct {
	stats *analytics.ViewingStats
	err   error
}

func (f *fakeStats) GetUserViewingStats(ctx context.Context, userID string) (*analytics.ViewingStats, error) {
	return f.stats, f.err
}

type fakeThemes struct {
	theme string
}

func (f *fakeThemes) SaveTheme(userID, theme string) error {
	if userID == "" {
		return store.ErrNoSession
	}
	f.theme = theme
	return nil
}

func (f *fakeThemes) Theme() (string, error) { return f.theme, nil }

type fakeProfiles struct {
	saved map[string][]string
	err   error
}

func (f *fakeProfiles) UpdateResearchInterests(ctx context.Context, userID string, interests []string) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string][]string)
	}
	f.saved[userID] = append([]string(nil), interests...)
	return nil
}

type fakeInterests struct {
	cached map[string][]string
}

func (f *fakeInterests) CacheInterests(userID string, interests []string) error {
	if f.cached == nil {
		f.cached = make(map[string][]string)
	}
	f.cached[userID] = append([]string(nil), interests...)
	return nil
}

type serverFixture struct {
	server    *Server
	reader    *app.Reader
	resolver  *fakeResolver
	views     *fakeViews
	tokens    *fakeTokens
	stats     *fakeStats
	themes    *fakeThemes
	profiles  *fakeProfiles
	interests *fakeInterests
	submitter *fakeSubmitter
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()
	log := logger.NewWithWriter("server-test", &bytes.Buffer{})
	f := &serverFixture{
		reader:    app.NewReader(nil, nil, log),
		resolver:  &fakeResolver{},
		views:     &fakeViews{},
		tokens:    &fakeTokens{},
		stats:     &fakeStats{},
		themes:    &fakeThemes{},
		profiles:  &fakeProfiles{},
		interests: &fakeInterests{},
		submitter: &fakeSubmitter{},
	}
	f.server = New(Deps{
		Reader:    f.reader,
		Resolver:  f.resolver,
		Metas:     meta.NewBuilder("Peardox", "AI paper summaries", "https://peardox.example"),
		Views:     f.views,
		Tokens:    f.tokens,
		Stats:     f.stats,
		Themes:    f.themes,
		Submitter: f.submitter,
		Prefs:     prefs.NewSession(nil),
		Profiles:  f.profiles,
		Interests: f.interests,
		Log:       log,
	})
	return f
}

func seedArticles(f *serverFixture, n int) {
	articles := make([]article.Article, 0, n)
	for i := 1; i <= n; i++ {
		articles = append(articles, article.Article{
			ID:         int64(i),
			ArxivID:    fmt.Sprintf("2401.%05d", i),
			Title:      fmt.Sprintf("Paper %d", i),
			Categories: []string{"Machine Learning"},
		})
	}
	f.reader.Collection().Replace(articles)
}

func (f *serverFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleArticles_Pagination(t *testing.T) {
	f := newFixture(t)
	seedArticles(f, 45)

	rec := f.do(http.MethodGet, "/api/articles?page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp articleListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 45, resp.Total)
	assert.Len(t, resp.Items, 15)
	assert.Equal(t, int64(15), resp.Items[0].ID, "descending ids, page 2 starts after the first 30")
}

func TestHandleArticles_SearchAndCategory(t *testing.T) {
	f := newFixture(t)
	f.reader.Collection().Replace([]article.Article{
		{ID: 1, ArxivID: "2401.00001", Title: "Graph Learning", Categories: []string{"Machine Learning"}},
		{ID: 2, ArxivID: "2401.00002", Title: "Protein Folding", Categories: []string{"Healthcare AI"}},
	})

	rec := f.do(http.MethodGet, "/api/articles?q=graph&category=Machine+Learning", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp articleListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Graph Learning", resp.Items[0].Title)
}

func TestHandleArticles_BadPage(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/articles?page=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSpotlight(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/spotlight", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "empty collection has no spotlight")

	seedArticles(f, 3)
	rec = f.do(http.MethodGet, "/api/spotlight", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pick article.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pick))
	assert.NotZero(t, pick.ID)
}

func TestHandleSpotlight_RollsOverOnConfiguredCalendar(t *testing.T) {
	f := newFixture(t)
	seedArticles(f, 60)

	// Late UTC evening is already the next calendar day in the
	// configured zone, so the daily pick must differ from the UTC one.
	loc := time.FixedZone("UTC+14", 14*60*60)
	now := time.Date(2026, 8, 30, 20, 0, 0, 0, time.UTC)
	f.server.loc = loc
	f.server.now = func() time.Time { return now }

	rec := f.do(http.MethodGet, "/api/spotlight", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pick article.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pick))

	articles := f.reader.Collection().Articles()
	local := spotlight.Select(articles, now.In(loc))
	require.NotNil(t, local)
	assert.Equal(t, local.ID, pick.ID)

	utc := spotlight.Select(articles, now.UTC())
	require.NotNil(t, utc)
	assert.NotEqual(t, utc.ID, pick.ID)
}

func TestHandleTokens(t *testing.T) {
	f := newFixture(t)
	f.tokens.balance = 7

	rec := f.do(http.MethodGet, "/api/tokens/user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance": 7}`, rec.Body.String())
}

func TestHandleStats(t *testing.T) {
	f := newFixture(t)
	f.stats.stats = &analytics.ViewingStats{
		TotalViews:       12,
		CategoriesViewed: []string{"Machine Learning"},
	}

	rec := f.do(http.MethodGet, "/api/stats/user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_views":12`)
}

func TestHandleFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/fields", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "medicine")

	rec = f.do(http.MethodGet, "/api/fields/medicine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Healthcare AI")

	rec = f.do(http.MethodGet, "/api/fields/astrology", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInterestSelectionFlow(t *testing.T) {
	f := newFixture(t)

	// Selecting a field overrides the active interests.
	rec := f.do(http.MethodPost, "/api/interests/select", `{"field_id": "medicine"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Healthcare AI")

	rec = f.do(http.MethodGet, "/api/interests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Healthcare AI")

	// The category browser sees the override too.
	rec = f.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats categoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.Contains(t, cats.Interests, "Healthcare AI")

	// Clearing reverts to the persisted defaults.
	rec = f.do(http.MethodPost, "/api/interests/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Machine Learning")
	assert.NotContains(t, rec.Body.String(), "Healthcare AI")
}

func TestSelectField_UnknownField(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/interests/select", `{"field_id": "astrology"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSaveInterests(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/interests/select", `{"field_id": "finance"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/interests/save", `{"user_id": "user-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, f.profiles.saved["user-1"], "Financial ML")
	assert.Contains(t, f.interests.cached["user-1"], "Financial ML")

	// The override became the persisted list.
	rec = f.do(http.MethodPost, "/api/interests/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Financial ML")
}

func TestSaveInterests_RequiresSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/interests/save", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.profiles.saved)
	assert.Empty(t, f.interests.cached)
}

func TestThemeRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/api/theme", `{"user_id": "user-1", "theme": "dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"theme": "dark"}`, rec.Body.String())
}

func TestPutTheme_RequiresSession(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/api/theme", `{"theme": "dark"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.themes.theme)
}

func TestHandleContact(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/contact",
		`{"name": "Ada", "email": "ada@example.com", "message": "hi"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.submitter.contacts, 1)
	assert.Equal(t, "Ada", f.submitter.contacts[0].Name)
}

func TestHandleContact_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/contact", `{"email": "ada@example.com"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "name")
	assert.Empty(t, f.submitter.contacts, "invalid forms never reach the backend")
}

func TestHandleRedeem_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.tokens.balance = 1

	body := `{"user_id": "user-1", "form": {
		"name": "Ada", "email": "ada@example.com",
		"shipping_address": "1 Analytical Way", "item_id": "mug", "token_cost": 5}}`
	rec := f.do(http.MethodPost, "/api/redeem", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, f.submitter.redemptions)
}

func TestHandleRedeem(t *testing.T) {
	f := newFixture(t)
	f.tokens.balance = 10

	body := `{"user_id": "user-1", "form": {
		"name": "Ada", "email": "ada@example.com",
		"shipping_address": "1 Analytical Way", "item_id": "mug", "token_cost": 5}}`
	rec := f.do(http.MethodPost, "/api/redeem", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.submitter.redemptions, 1)
}

func TestHandleArticlePage(t *testing.T) {
	f := newFixture(t)
	f.resolver.article = &article.Article{
		ID:               1,
		ArxivID:          "2401.12345",
		Title:            "Graph Learning Survey",
		ShortDescription: "A short overview.",
		Authors:          []string{"Ada Lovelace", "Alan Turing", "Grace Hopper"},
		Categories:       []string{"Machine Learning"},
		SummaryContent:   "## Key idea\n\nGraphs are *everywhere*.",
		SkillLevel:       types.SkillBeginner,
	}

	rec := f.do(http.MethodGet, "/article/2401.12345-graph-learning-survey", "")
	require.Equal(t, http.StatusOK, rec.Code)

	html := rec.Body.String()
	assert.Contains(t, html, "<title>Graph Learning Survey | Peardox</title>")
	assert.Contains(t, html, `property="og:title"`)
	assert.Contains(t, html, `name="description"`)
	assert.Contains(t, html, "<h2") // goldmark-rendered summary heading
	assert.Contains(t, html, "Ada Lovelace and 2 others")

	assert.Equal(t, []string{"2401.12345"}, f.views.recorded)
}

func TestHandleArticlePage_NotFound(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = deeplink.ErrNotFound

	rec := f.do(http.MethodGet, "/article/2401.99999-missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.views.recorded)
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t)
	seedArticles(f, 2)

	rec := f.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"articles":2`)
}
