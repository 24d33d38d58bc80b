package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/paaalop/news-analyzer/internal/cluster"
	"github.com/paaalop/news-analyzer/internal/digest"
	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/ports"
	"github.com/paaalop/news-analyzer/internal/textutil"
)

const defaultEmbedWorkers = 4

// PipelineDeps wires all driven adapters into the digest pipeline.
type PipelineDeps struct {
	Summaries    ports.SummaryRepository
	Digests      ports.DigestRepository
	Embedder     ports.Embedder
	Digester     *digest.Summarizer
	Notifier     ports.Notifier
	Policy       cluster.Policy
	Confirmer    cluster.Confirmer
	ChunkSize    int
	EmbedWorkers int
	Logger       *slog.Logger
}

// DigestPipeline turns one day of article summaries into a stored digest.
type DigestPipeline struct {
	summaries    ports.SummaryRepository
	digests      ports.DigestRepository
	embedder     ports.Embedder
	digester     *digest.Summarizer
	notifier     ports.Notifier
	policy       cluster.Policy
	confirmer    cluster.Confirmer
	chunkSize    int
	embedWorkers int
	logger       *slog.Logger
}

// Report summarizes one ProcessDay run.
type Report struct {
	RunID    string
	Day      string
	Loaded   int
	Embedded int
	Skipped  int
	Clusters int
	Chunks   int
	Digest   domain.Digest
	NoInput  bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) (*DigestPipeline, error) {
	if deps.Summaries == nil || deps.Digests == nil || deps.Embedder == nil || deps.Digester == nil {
		return nil, errors.New("pipeline requires summaries, digests, embedder and digester")
	}
	if deps.Policy == (cluster.Policy{}) {
		deps.Policy = cluster.DefaultPolicy()
	}
	if err := deps.Policy.Validate(); err != nil {
		return nil, err
	}
	if deps.Policy.Mode == cluster.ModeVerified && deps.Confirmer == nil {
		return nil, errors.New("verified clustering requires a confirmer")
	}
	if deps.ChunkSize <= 0 {
		deps.ChunkSize = digest.DefaultChunkSize
	}
	if deps.EmbedWorkers <= 0 {
		deps.EmbedWorkers = defaultEmbedWorkers
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &DigestPipeline{
		summaries:    deps.Summaries,
		digests:      deps.Digests,
		embedder:     deps.Embedder,
		digester:     deps.Digester,
		notifier:     deps.Notifier,
		policy:       deps.Policy,
		confirmer:    deps.Confirmer,
		chunkSize:    deps.ChunkSize,
		embedWorkers: deps.EmbedWorkers,
		logger:       deps.Logger,
	}, nil
}

// ProcessDay clusters the day's summaries, condenses the topic blocks and upserts the digest
// for day. A day with no summaries returns a report with NoInput set and a nil error.
func (p *DigestPipeline) ProcessDay(ctx context.Context, day time.Time) (Report, error) {
	report := Report{RunID: uuid.NewString(), Day: domain.DigestDate(day)}
	logger := p.logger.With("run_id", report.RunID, "day", report.Day)
	logger.Info("digest run started", "mode", p.policy.Mode, "threshold", p.policy.Threshold)

	items, err := p.summaries.SummariesForDay(ctx, day)
	if err != nil {
		return report, fmt.Errorf("load summaries: %w", err)
	}
	items = cleanSummaries(items)
	report.Loaded = len(items)
	if len(items) == 0 {
		report.NoInput = true
		logger.Info("no summaries for day, nothing to digest")
		return report, nil
	}

	vectors := p.embedAll(ctx, logger, items)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	set, err := cluster.NewSet(p.policy, p.confirmer, logger.With("component", "cluster"))
	if err != nil {
		return report, err
	}
	for i, item := range items {
		if vectors[i] == nil {
			report.Skipped++
			continue
		}
		report.Embedded++
		set.Admit(ctx, item, vectors[i])
	}
	if report.Embedded == 0 {
		return report, fmt.Errorf("all %d summaries failed to embed: %w", report.Loaded, domain.ErrEmbedding)
	}

	clusters := set.Sorted()
	report.Clusters = len(clusters)
	logger.Info("clustering finished", "embedded", report.Embedded, "skipped", report.Skipped, "clusters", report.Clusters)

	result, err := p.digester.Summarize(ctx, cluster.Blocks(clusters), p.chunkSize)
	report.Chunks = result.Chunks
	if err != nil {
		return report, fmt.Errorf("summarize digest: %w", err)
	}
	if result.FailedChunks > 0 {
		logger.Warn("digest built from partial chunks", "failed", result.FailedChunks, "chunks", result.Chunks)
	}

	report.Digest = domain.Digest{Date: report.Day, Text: result.Text}
	if err := p.digests.UpsertDigest(ctx, report.Digest); err != nil {
		return report, fmt.Errorf("store digest: %w", err)
	}
	logger.Info("digest stored", "chunks", report.Chunks, "reduced", result.Reduced)

	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, report.Digest); err != nil {
			logger.Warn("publish digest failed", "error", err)
		}
	}

	return report, nil
}

// cleanSummaries strips markup, drops blank summaries and orders by publish time.
func cleanSummaries(items []domain.ArticleSummary) []domain.ArticleSummary {
	out := make([]domain.ArticleSummary, 0, len(items))
	for _, item := range items {
		item.Summary = textutil.PlainText(item.Summary)
		if item.Summary == "" {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.Before(out[j].PublishedAt)
	})
	return out
}

// embedAll computes vectors concurrently; a failed item leaves a nil slot.
func (p *DigestPipeline) embedAll(ctx context.Context, logger *slog.Logger, items []domain.ArticleSummary) []domain.Vector {
	vectors := make([]domain.Vector, len(items))
	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.embedWorkers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, item.Summary)
			if err != nil {
				failed.Add(1)
				logger.Warn("embedding failed, skipping item", "id", item.ID, "error", err)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		logger.Warn("some summaries were not embedded", "failed", n, "total", len(items))
	}
	return vectors
}
