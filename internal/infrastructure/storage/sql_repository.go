package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/ports"
)

// PublishTimeLayout is how newsdata.publish_time is stored.
const PublishTimeLayout = "2006-01-02 15:04:05"

var publishTimeLayouts = []string{PublishTimeLayout, "2006-01-02 15:04", "2006-01-02T15:04:05Z07:00", domain.DateLayout}

var articleColumns = []string{
	"id", "press", "subcategory", "title", "link", "publish_time",
	"journalist", "summary", "headline_score", "relevance_score",
}

// searchColumns maps a search field (and its aliases) onto a newsdata column.
var searchColumns = map[string]string{
	"title":      "title",
	"journalist": "journalist",
	"author":     "journalist",
	"summary":    "summary",
	"press":      "press",
	"source":     "press",
}

// SQLRepository persists summaries and digests in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

var (
	_ ports.SummaryRepository = (*SQLRepository)(nil)
	_ ports.DigestRepository  = (*SQLRepository)(nil)
	_ ports.ArticleReader     = (*SQLRepository)(nil)
)

// NewSQLRepository wires a sql.DB implementation for the given dialect.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
	}
}

// SummariesForDay returns the non-empty summaries whose publish_time starts with day's
// calendar date (in day's location), oldest first.
func (r *SQLRepository) SummariesForDay(ctx context.Context, day time.Time) ([]domain.ArticleSummary, error) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())

	query, args, err := r.builder.
		Select("id", "summary", "headline_score", "relevance_score", "publish_time").
		From("newsdata").
		Where(sq.Like{"publish_time": start.Format(domain.DateLayout) + "%"}).
		Where(sq.NotEq{"summary": ""}).
		OrderBy("publish_time ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build summaries query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query summaries: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.ArticleSummary
	for rows.Next() {
		var (
			item    domain.ArticleSummary
			publish string
		)
		if err := rows.Scan(&item.ID, &item.Summary, &item.StimulusRaw, &item.RelevanceRaw, &publish); err != nil {
			return nil, fmt.Errorf("%w: scan summary: %w", domain.ErrStore, err)
		}
		item.PublishedAt = parsePublishTime(publish, start)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %w", domain.ErrStore, err)
	}
	return out, nil
}

func parsePublishTime(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range publishTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, fallback.Location()); err == nil {
			return t
		}
	}
	return fallback
}

// UpsertDigest writes the digest for its date, replacing any previous text.
func (r *SQLRepository) UpsertDigest(ctx context.Context, digest domain.Digest) error {
	query, args, err := r.builder.
		Insert("summarydata").
		Columns("summary_date", "summary").
		Values(digest.Date, digest.Text).
		Suffix("ON CONFLICT (summary_date) DO UPDATE SET summary = EXCLUDED.summary").
		ToSql()
	if err != nil {
		return &domain.StoreError{Op: "build digest upsert", Payload: digest, Err: err}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.StoreError{Op: "upsert digest", Payload: digest, Err: err}
	}
	return nil
}

// Digest returns the digest stored for date or domain.ErrNotFound.
func (r *SQLRepository) Digest(ctx context.Context, date string) (domain.Digest, error) {
	return r.oneDigest(ctx, r.builder.
		Select("summary_date", "summary").
		From("summarydata").
		Where(sq.Eq{"summary_date": date}))
}

// LatestDigest returns the digest with the greatest date or domain.ErrNotFound.
func (r *SQLRepository) LatestDigest(ctx context.Context) (domain.Digest, error) {
	return r.oneDigest(ctx, r.builder.
		Select("summary_date", "summary").
		From("summarydata").
		OrderBy("summary_date DESC").
		Limit(1))
}

func (r *SQLRepository) oneDigest(ctx context.Context, b sq.SelectBuilder) (domain.Digest, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return domain.Digest{}, fmt.Errorf("build digest query: %w", err)
	}

	var out domain.Digest
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&out.Date, &out.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Digest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Digest{}, fmt.Errorf("%w: select digest: %w", domain.ErrStore, err)
	}
	return out, nil
}

// Digests lists every stored digest, newest first.
func (r *SQLRepository) Digests(ctx context.Context) ([]domain.Digest, error) {
	query, args, err := r.builder.
		Select("summary_date", "summary").
		From("summarydata").
		OrderBy("summary_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build digests query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query digests: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	out := []domain.Digest{}
	for rows.Next() {
		var d domain.Digest
		if err := rows.Scan(&d.Date, &d.Text); err != nil {
			return nil, fmt.Errorf("%w: scan digest: %w", domain.ErrStore, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %w", domain.ErrStore, err)
	}
	return out, nil
}

// Articles returns one page of articles matching q, newest first.
func (r *SQLRepository) Articles(ctx context.Context, q domain.ArticleQuery) (domain.ArticlePage, error) {
	if q.PageSize <= 0 {
		q.PageSize = 10
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	where := sq.And{}
	if q.Category != "" && q.Category != domain.CategoryAll {
		where = append(where, sq.Eq{"subcategory": q.Category})
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		column, ok := searchColumns[strings.ToLower(q.Field)]
		if !ok {
			column = "title"
		}
		where = append(where, r.dialect.like(column, "%"+search+"%"))
	}

	countQuery, countArgs, err := r.builder.Select("COUNT(*)").From("newsdata").Where(where).ToSql()
	if err != nil {
		return domain.ArticlePage{}, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return domain.ArticlePage{}, fmt.Errorf("%w: count articles: %w", domain.ErrStore, err)
	}

	query, args, err := r.builder.
		Select(articleColumns...).
		From("newsdata").
		Where(where).
		OrderBy("publish_time DESC", "id DESC").
		Limit(uint64(q.PageSize)).
		Offset(uint64((q.Page - 1) * q.PageSize)).
		ToSql()
	if err != nil {
		return domain.ArticlePage{}, fmt.Errorf("build articles query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ArticlePage{}, fmt.Errorf("%w: query articles: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	page := domain.ArticlePage{
		Articles:   []domain.Article{},
		Total:      total,
		Page:       q.Page,
		TotalPages: (total + q.PageSize - 1) / q.PageSize,
	}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return domain.ArticlePage{}, err
		}
		page.Articles = append(page.Articles, a)
	}
	if err := rows.Err(); err != nil {
		return domain.ArticlePage{}, fmt.Errorf("%w: rows iteration: %w", domain.ErrStore, err)
	}
	return page, nil
}

// Article returns one article by id or domain.ErrNotFound.
func (r *SQLRepository) Article(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := r.builder.
		Select(articleColumns...).
		From("newsdata").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article query: %w", err)
	}

	a, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrNotFound
	}
	return a, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var a domain.Article
	err := row.Scan(&a.ID, &a.Press, &a.Subcategory, &a.Title, &a.Link, &a.PublishTime,
		&a.Journalist, &a.Summary, &a.StimulusRaw, &a.RelevanceRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, err
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("%w: scan article: %w", domain.ErrStore, err)
	}
	return a, nil
}
