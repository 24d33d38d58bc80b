package ports

import (
	"context"
	"time"

	"github.com/paaalop/news-analyzer/internal/domain"
)

// SummaryRepository loads the upstream per-article summaries for a calendar day.
type SummaryRepository interface {
	SummariesForDay(ctx context.Context, day time.Time) ([]domain.ArticleSummary, error)
}

// DigestRepository persists one digest per date with upsert semantics.
type DigestRepository interface {
	UpsertDigest(ctx context.Context, digest domain.Digest) error
	Digest(ctx context.Context, date string) (domain.Digest, error)
	LatestDigest(ctx context.Context) (domain.Digest, error)
	Digests(ctx context.Context) ([]domain.Digest, error)
}

// ArticleReader serves the paginated listing on the read path.
type ArticleReader interface {
	Articles(ctx context.Context, q domain.ArticleQuery) (domain.ArticlePage, error)
	Article(ctx context.Context, id int64) (domain.Article, error)
}

// Embedder turns one text into a unit-normalized vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.Vector, error)
}

// SummarizeRequest asks for a condensed text over one or more inputs.
// Final marks a call whose output is the digest itself: it asks for the ranked, numbered
// digest layout instead of a sentence-capped partial.
type SummarizeRequest struct {
	Texts        []string
	MaxSentences int
	Final        bool
}

// ClassifyRequest asks whether two texts share a topic; the answer is a single token.
type ClassifyRequest struct {
	A string
	B string
}

// ReduceRequest merges ordered topic blocks into the final digest text.
type ReduceRequest struct {
	Blocks []string
}

// Summarizer is the free-form summarize call shape.
type Summarizer interface {
	Summarize(ctx context.Context, req SummarizeRequest) (string, error)
}

// Classifier is the binary classification call shape.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (string, error)
}

// Reducer is the structured digest reduce call shape.
type Reducer interface {
	Reduce(ctx context.Context, req ReduceRequest) (string, error)
}

// LanguageModel bundles the three language-model call shapes used by the core.
type LanguageModel interface {
	Summarizer
	Classifier
	Reducer
}

// Notifier publishes a finished digest to an outbound channel (Telegram, etc.).
type Notifier interface {
	PublishDigest(ctx context.Context, digest domain.Digest) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
