package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/parizob/Peardox-2.0-sub001/analytics"
	"github.com/parizob/Peardox-2.0-sub001/app"
	"github.com/parizob/Peardox-2.0-sub001/article"
	"github.com/parizob/Peardox-2.0-sub001/deeplink"
	"github.com/parizob/Peardox-2.0-sub001/feed"
	"github.com/parizob/Peardox-2.0-sub001/forms"
	"github.com/parizob/Peardox-2.0-sub001/logger"
	"github.com/parizob/Peardox-2.0-sub001/meta"
	"github.com/parizob/Peardox-2.0-sub001/prefs"
	"github.com/parizob/Peardox-2.0-sub001/store"
	"github.com/parizob/Peardox-2.0-sub001/types"
)

// ArticleResolver locates deep-linked articles
type ArticleResolver interface {
	Resolve(ctx context.Context, path string, level types.SkillLevel) (*article.Article, error)
}

// ViewRecorder fires view events without blocking the response
type ViewRecorder interface {
	RecordAsync(ctx context.Context, userID string, a *article.Article, level types.SkillLevel, done chan<- struct{})
}

// TokenService reports a user's token balance
type TokenService interface {
	Balance(ctx context.Context, userID string) (int, error)
}

// StatsSource reports a user's viewing history
type StatsSource interface {
	GetUserViewingStats(ctx context.Context, userID string) (*analytics.ViewingStats, error)
}

// ThemeStore persists the theme preference for signed-in users
type ThemeStore interface {
	SaveTheme(userID, theme string) error
	Theme() (string, error)
}

// FormSubmitter forwards validated forms to the backend
type FormSubmitter interface {
	SubmitContactForm(ctx context.Context, form forms.ContactForm) error
	SubmitRedemption(ctx context.Context, form forms.RedemptionForm, balance int) error
}

// InterestCache keeps a local copy of saved research interests
type InterestCache interface {
	CacheInterests(userID string, interests []string) error
}

// Deps bundles everything the HTTP surface is wired onto. Location sets
// the calendar used for the daily spotlight rollover; nil means UTC.
type Deps struct {
	Reader    *app.Reader
	Resolver  ArticleResolver
	Metas     *meta.Builder
	Views     ViewRecorder
	Tokens    TokenService
	Stats     StatsSource
	Themes    ThemeStore
	Submitter FormSubmitter
	Prefs     *prefs.Session
	Profiles  prefs.ProfileUpdater
	Interests InterestCache
	Location  *time.Location
	Log       *logger.Logger
}

// Server is the HTTP surface over the reader: JSON feed endpoints plus
// server-rendered article pages with meta tags.
type Server struct {
	deps Deps
	log  *logger.Logger
	loc  *time.Location
	now  func() time.Time

	md  goldmark.Markdown
	mux *http.ServeMux
}

// New wires the HTTP surface
func New(deps Deps) *Server {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{
		deps: deps,
		log:  deps.Log,
		loc:  loc,
		now:  time.Now,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/articles", s.handleArticles)
	mux.HandleFunc("GET /api/spotlight", s.handleSpotlight)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/tokens/{user}", s.handleTokens)
	mux.HandleFunc("GET /api/stats/{user}", s.handleStats)
	mux.HandleFunc("GET /api/fields", s.handleFields)
	mux.HandleFunc("GET /api/fields/{field}", s.handleFieldCategories)
	mux.HandleFunc("GET /api/interests", s.handleInterests)
	mux.HandleFunc("POST /api/interests/select", s.handleSelectField)
	mux.HandleFunc("POST /api/interests/clear", s.handleClearInterests)
	mux.HandleFunc("POST /api/interests/save", s.handleSaveInterests)
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handlePutTheme)
	mux.HandleFunc("POST /api/contact", s.handleContact)
	mux.HandleFunc("POST /api/redeem", s.handleRedeem)
	mux.HandleFunc("GET /article/{slug}", s.handleArticlePage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux = mux
	return s
}

// Handler returns the routing handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

type articleListResponse struct {
	Items      []article.Article `json:"items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Total      int               `json:"total"`
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = parsed
	}

	filtered := feed.Filter(s.deps.Reader.Collection().Articles(), q.Get("q"), q.Get("category"))
	result := feed.Paginate(filtered, page, feed.PageSize)

	s.writeJSON(w, http.StatusOK, articleListResponse{
		Items:      result.Items,
		Page:       result.Number,
		TotalPages: result.TotalPages,
		Total:      len(filtered),
	})
}

func (s *Server) handleSpotlight(w http.ResponseWriter, r *http.Request) {
	// The daily pick rolls over on the configured local calendar day,
	// not the UTC one.
	pick := s.deps.Reader.Spotlight(s.now().In(s.loc))
	if pick == nil {
		s.writeError(w, http.StatusNotFound, "no articles loaded yet")
		return
	}
	s.writeJSON(w, http.StatusOK, pick)
}

type categoriesResponse struct {
	Interests  []string         `json:"interests"`
	Categories []types.Category `json:"categories"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, categoriesResponse{
		Interests:  s.deps.Prefs.Interests(),
		Categories: s.deps.Reader.Categories(),
	})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"fields": prefs.Fields()})
}

func (s *Server) handleFieldCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := prefs.Categories(r.PathValue("field"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (s *Server) handleInterests(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"interests": s.deps.Prefs.Interests()})
}

type selectFieldRequest struct {
	FieldID string `json:"field_id"`
}

func (s *Server) handleSelectField(w http.ResponseWriter, r *http.Request) {
	var req selectFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interests, err := s.deps.Prefs.SelectField(req.FieldID)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"interests": interests})
}

func (s *Server) handleClearInterests(w http.ResponseWriter, r *http.Request) {
	s.deps.Prefs.Clear()
	s.writeJSON(w, http.StatusOK, map[string][]string{"interests": s.deps.Prefs.Interests()})
}

type saveInterestsRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleSaveInterests(w http.ResponseWriter, r *http.Request) {
	var req saveInterestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.deps.Prefs.Save(r.Context(), s.deps.Profiles, req.UserID); err != nil {
		if errors.Is(err, prefs.ErrNotAuthenticated) {
			s.writeError(w, http.StatusUnauthorized, "sign in to save interests")
			return
		}
		s.log.Error("interest save failed", err, map[string]interface{}{"user_id": req.UserID})
		s.writeError(w, http.StatusBadGateway, "could not save interests")
		return
	}

	interests := s.deps.Prefs.Interests()
	if err := s.deps.Interests.CacheInterests(req.UserID, interests); err != nil {
		s.log.Warn("interest cache write failed", map[string]interface{}{
			"user_id": req.UserID,
			"error":   err.Error(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"interests": interests})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")
	balance, err := s.deps.Tokens.Balance(r.Context(), userID)
	if err != nil {
		s.log.Error("token balance lookup failed", err, map[string]interface{}{"user_id": userID})
		s.writeError(w, http.StatusBadGateway, "token balance unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")
	stats, err := s.deps.Stats.GetUserViewingStats(r.Context(), userID)
	if err != nil {
		s.log.Error("viewing stats lookup failed", err, map[string]interface{}{"user_id": userID})
		s.writeError(w, http.StatusBadGateway, "viewing stats unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.deps.Themes.Theme()
	if err != nil {
		s.log.Error("theme read failed", err, nil)
		s.writeError(w, http.StatusInternalServerError, "theme unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

type themeRequest struct {
	UserID string `json:"user_id"`
	Theme  string `json:"theme"`
}

func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.deps.Themes.SaveTheme(req.UserID, req.Theme); err != nil {
		if errors.Is(err, store.ErrNoSession) {
			s.writeError(w, http.StatusUnauthorized, "sign in to save a theme")
			return
		}
		s.log.Error("theme save failed", err, nil)
		s.writeError(w, http.StatusInternalServerError, "could not save theme")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var form forms.ContactForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := form.Validate(); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.deps.Submitter.SubmitContactForm(r.Context(), form); err != nil {
		s.log.Error("contact submission failed", err, nil)
		s.writeError(w, http.StatusBadGateway, "could not deliver message")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type redeemRequest struct {
	UserID string               `json:"user_id"`
	Form   forms.RedemptionForm `json:"form"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	balance, err := s.deps.Tokens.Balance(r.Context(), req.UserID)
	if err != nil {
		s.log.Error("balance check failed", err, map[string]interface{}{"user_id": req.UserID})
		s.writeError(w, http.StatusBadGateway, "token balance unavailable")
		return
	}

	if err := req.Form.Validate(balance); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.deps.Submitter.SubmitRedemption(r.Context(), req.Form, balance); err != nil {
		s.log.Error("redemption submission failed", err, nil)
		s.writeError(w, http.StatusBadGateway, "could not submit redemption")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
}

var articlePage = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{index .Tags "title"}}</title>
{{range $name, $content := .Tags}}{{if ne $name "title"}}<meta {{if $.IsOpenGraph $name}}property{{else}}name{{end}}="{{$name}}" content="{{$content}}">
{{end}}{{end}}</head>
<body>
<article>
<h1>{{.Article.Title}}</h1>
<p class="byline">{{.Byline}} &middot; {{.Article.PublishedDate}}</p>
<p class="categories">{{range .Article.Categories}}<span>{{.}}</span> {{end}}</p>
{{.Body}}
{{if .Article.PDFURL}}<p><a href="{{.Article.PDFURL}}">PDF</a></p>{{end}}
</article>
</body>
</html>
`))

type articlePageData struct {
	Article *article.Article
	Tags    map[string]string
	Byline  string
	Body    template.HTML
}

func (d articlePageData) IsOpenGraph(name string) bool {
	return strings.HasPrefix(name, "og:") || strings.HasPrefix(name, "twitter:")
}

func (s *Server) handleArticlePage(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Resolver.Resolve(r.Context(), r.URL.Path, s.deps.Reader.SkillLevel())
	if err != nil {
		if errors.Is(err, deeplink.ErrInvalidPath) || errors.Is(err, deeplink.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.Error("article resolution failed", err, map[string]interface{}{"path": r.URL.Path})
		s.writeError(w, http.StatusInternalServerError, "article unavailable")
		return
	}

	// View recording never blocks the page render.
	s.deps.Views.RecordAsync(context.WithoutCancel(r.Context()), r.URL.Query().Get("user"), a, a.SkillLevel, nil)

	body := a.SummaryContent
	if body == "" {
		body = a.ShortDescription
	}
	var rendered bytes.Buffer
	if err := s.md.Convert([]byte(body), &rendered); err != nil {
		s.log.Error("summary rendering failed", err, map[string]interface{}{"arxiv_id": a.ArxivID})
		rendered.Reset()
		rendered.WriteString(template.HTMLEscapeString(body))
	}

	data := articlePageData{
		Article: a,
		Tags:    s.deps.Metas.Tags(a),
		Byline:  byline(a.Authors),
		Body:    template.HTML(rendered.String()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := articlePage.Execute(w, data); err != nil {
		s.log.Error("article page render failed", err, nil)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"articles": s.deps.Reader.Collection().Len(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("response encoding failed", err, nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func byline(authors []string) string {
	switch len(authors) {
	case 0:
		return "Unknown authors"
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " and " + authors[1]
	default:
		return fmt.Sprintf("%s and %d others", authors[0], len(authors)-1)
	}
}
