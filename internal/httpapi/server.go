// Package httpapi serves the read path: article listings with score hues and stored digests.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/ports"
	"github.com/paaalop/news-analyzer/internal/score"
)

const defaultPageSize = 10

// Server exposes articles and digests as JSON.
type Server struct {
	articles   ports.ArticleReader
	digests    ports.DigestRepository
	normalizer score.Normalizer
	pageSize   int
	logger     *slog.Logger
	router     chi.Router
}

// NewServer builds the router.
func NewServer(articles ports.ArticleReader, digests ports.DigestRepository, normalizer score.Normalizer, pageSize int, logger *slog.Logger) *Server {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		articles:   articles,
		digests:    digests,
		normalizer: normalizer,
		pageSize:   pageSize,
		logger:     logger,
		router:     chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Get("/articles", s.handleArticles)
		r.Get("/articles/{id}", s.handleArticle)
		r.Get("/digests", s.handleDigests)
		r.Get("/digests/latest", s.handleLatestDigest)
		r.Get("/digests/{date}", s.handleDigest)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type articleJSON struct {
	ID             int64   `json:"id"`
	Press          string  `json:"press"`
	Subcategory    string  `json:"subcategory"`
	Title          string  `json:"title"`
	Link           string  `json:"link"`
	PublishTime    string  `json:"publishTime"`
	Journalist     string  `json:"journalist"`
	Summary        string  `json:"summary"`
	HeadlineScore  int     `json:"headlineScore"`
	RelevanceScore int     `json:"relevanceScore"`
	RelevanceHue   float64 `json:"relevanceHue"`
	StimulusHue    float64 `json:"stimulusHue"`
}

type articlePageJSON struct {
	Articles   []articleJSON `json:"articles"`
	Category   string        `json:"category"`
	Query      string        `json:"query,omitempty"`
	Field      string        `json:"field,omitempty"`
	Page       int           `json:"page"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}

type digestJSON struct {
	Date    string `json:"date"`
	Summary string `json:"summary"`
}

func (s *Server) toJSON(a domain.Article) articleJSON {
	v := s.normalizer.View(a)
	return articleJSON{
		ID:             v.ID,
		Press:          v.Press,
		Subcategory:    v.Subcategory,
		Title:          v.Title,
		Link:           v.Link,
		PublishTime:    v.PublishTime,
		Journalist:     v.Journalist,
		Summary:        v.Summary,
		HeadlineScore:  v.StimulusRaw,
		RelevanceScore: v.RelevanceRaw,
		RelevanceHue:   v.Scores.RelevanceHue,
		StimulusHue:    v.Scores.StimulusHue,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, append([]string{domain.CategoryAll}, domain.Subcategories...))
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	category := q.Get("category")
	if category == "" {
		category = domain.CategoryAll
	}

	result, err := s.articles.Articles(r.Context(), domain.ArticleQuery{
		Category: category,
		Field:    q.Get("field"),
		Search:   q.Get("query"),
		Page:     page,
		PageSize: s.pageSize,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := articlePageJSON{
		Articles:   make([]articleJSON, 0, len(result.Articles)),
		Category:   category,
		Query:      q.Get("query"),
		Field:      q.Get("field"),
		Page:       result.Page,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	}
	for _, a := range result.Articles {
		out.Articles = append(out.Articles, s.toJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	a, err := s.articles.Article(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toJSON(a))
}

func (s *Server) handleDigests(w http.ResponseWriter, r *http.Request) {
	all, err := s.digests.Digests(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]digestJSON, 0, len(all))
	for _, d := range all {
		out = append(out, digestJSON{Date: d.Date, Summary: d.Text})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLatestDigest(w http.ResponseWriter, r *http.Request) {
	d, err := s.digests.LatestDigest(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, digestJSON{Date: d.Date, Summary: d.Text})
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	d, err := s.digests.Digest(r.Context(), date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, digestJSON{Date: d.Date, Summary: d.Text})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
