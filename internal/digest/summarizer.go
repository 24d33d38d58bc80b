// Package digest condenses ordered topic blocks into one daily digest with a
// bounded map stage followed by a single reduce call.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/ports"
)

const (
	defaultWorkers      = 4
	defaultMaxSentences = 5
	defaultCallTimeout  = 2 * time.Minute
)

// Options tunes the map stage.
type Options struct {
	Workers       int
	RatePerSecond float64
	MaxSentences  int
	CallTimeout   time.Duration
}

// Summarizer runs the map-reduce over topic blocks.
type Summarizer struct {
	summarizer ports.Summarizer
	reducer    ports.Reducer
	limiter    *rate.Limiter
	opts       Options
	logger     *slog.Logger
}

// Result describes what a Summarize call did.
type Result struct {
	Text         string
	Chunks       int
	FailedChunks int
	Reduced      bool
}

// NewSummarizer wires the summarize and reduce call shapes.
func NewSummarizer(summarizer ports.Summarizer, reducer ports.Reducer, opts Options, logger *slog.Logger) *Summarizer {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxSentences <= 0 {
		opts.MaxSentences = defaultMaxSentences
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		summarizer: summarizer,
		reducer:    reducer,
		limiter:    rate.NewLimiter(limit, 1),
		opts:       opts,
		logger:     logger,
	}
}

// Summarize condenses items into one digest text. When items fit into one chunk a single
// summarize call is made and no reduce happens.
func (s *Summarizer) Summarize(ctx context.Context, items []string, chunkSize int) (Result, error) {
	if len(items) == 0 {
		return Result{}, domain.ErrNoInput
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if len(items) <= chunkSize {
		text, err := s.summarize(ctx, items, true)
		if err != nil {
			return Result{Chunks: 1, FailedChunks: 1}, fmt.Errorf("summarize single chunk: %w", err)
		}
		return Result{Text: text, Chunks: 1}, nil
	}

	chunks := Chunk(items, chunkSize)
	partials := s.mapChunks(ctx, chunks)
	if err := ctx.Err(); err != nil {
		return Result{Chunks: len(chunks)}, err
	}

	blocks := make([]string, 0, len(partials))
	for _, p := range partials {
		if p != "" {
			blocks = append(blocks, p)
		}
	}
	res := Result{Chunks: len(chunks), FailedChunks: len(chunks) - len(blocks)}
	if len(blocks) == 0 {
		return res, fmt.Errorf("all %d chunks failed: %w", len(chunks), domain.ErrCapability)
	}

	text, err := s.reduce(ctx, blocks)
	if err != nil {
		return res, fmt.Errorf("reduce %d chunk summaries: %w", len(blocks), err)
	}
	res.Text = text
	res.Reduced = true
	return res, nil
}

// mapChunks summarizes chunks concurrently; a failed chunk leaves an empty slot.
func (s *Summarizer) mapChunks(ctx context.Context, chunks [][]string) []string {
	partials := make([]string, len(chunks))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			text, err := s.summarize(ctx, chunk, false)
			if err != nil {
				s.logger.Warn("chunk summary failed, dropping chunk", "chunk", i, "items", len(chunk), "error", err)
				return nil
			}
			partials[i] = text
			s.logger.Debug("chunk summarized", "chunk", i, "items", len(chunk))
			return nil
		})
	}
	_ = g.Wait()

	return partials
}

func (s *Summarizer) summarize(ctx context.Context, texts []string, final bool) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	text, err := s.summarizer.Summarize(callCtx, ports.SummarizeRequest{
		Texts:        texts,
		MaxSentences: s.opts.MaxSentences,
		Final:        final,
	})
	return checkOutput(text, err)
}

func (s *Summarizer) reduce(ctx context.Context, blocks []string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	text, err := s.reducer.Reduce(callCtx, ports.ReduceRequest{Blocks: blocks})
	return checkOutput(text, err)
}

func checkOutput(text string, err error) (string, error) {
	if err != nil {
		if errors.Is(err, domain.ErrCapability) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrCapability, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty output", domain.ErrCapability)
	}
	return text, nil
}
