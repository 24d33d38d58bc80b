package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paaalop/news-analyzer/internal/cluster"
	"github.com/paaalop/news-analyzer/internal/config"
	"github.com/paaalop/news-analyzer/internal/digest"
	"github.com/paaalop/news-analyzer/internal/httpapi"
	"github.com/paaalop/news-analyzer/internal/infrastructure/embedding"
	"github.com/paaalop/news-analyzer/internal/infrastructure/llm"
	"github.com/paaalop/news-analyzer/internal/infrastructure/scheduler"
	"github.com/paaalop/news-analyzer/internal/infrastructure/storage"
	"github.com/paaalop/news-analyzer/internal/infrastructure/telegram"
	"github.com/paaalop/news-analyzer/internal/logging"
	"github.com/paaalop/news-analyzer/internal/ports"
	"github.com/paaalop/news-analyzer/internal/score"
	"github.com/paaalop/news-analyzer/internal/usecase"
	"github.com/paaalop/news-analyzer/internal/verify"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	db        *sql.DB
	pipeline  *usecase.DigestPipeline
	scheduler *usecase.Scheduler
	api       *httpapi.Server
	logger    *slog.Logger
}

// New opens the store and builds every adapter the configured run needs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, dialect, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureSchema(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo := storage.NewSQLRepository(db, dialect)

	model := llm.NewChatGPTClient(cfg.ChatGPT)

	policy := cluster.Policy{Mode: cluster.Mode(cfg.Clustering.Mode), Threshold: cfg.Clustering.Threshold}
	var confirmer cluster.Confirmer
	if policy.Mode == cluster.ModeVerified {
		confirmer = verify.New(model, cfg.Verifier.Timeout(), baseLogger.With("component", "verifier"))
	}

	digester := digest.NewSummarizer(model, model, digest.Options{
		Workers:       cfg.Digest.Workers,
		RatePerSecond: cfg.Digest.RatePerSecond,
		MaxSentences:  cfg.Digest.MaxSentences,
		CallTimeout:   cfg.ChatGPT.Timeout(),
	}, baseLogger.With("component", "digest"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	pipeline, err := usecase.NewPipeline(usecase.PipelineDeps{
		Summaries:    repo,
		Digests:      repo,
		Embedder:     embedding.NewClient(cfg.Embedding),
		Digester:     digester,
		Notifier:     notifier,
		Policy:       policy,
		Confirmer:    confirmer,
		ChunkSize:    cfg.Digest.ChunkSize,
		EmbedWorkers: cfg.Embedding.Workers,
		Logger:       baseLogger.With("component", "pipeline"),
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	driver, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(), baseLogger.With("component", "scheduler"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	normalizer := score.Normalizer{
		RelevanceThreshold: cfg.Scores.RelevanceThreshold,
		MaxRelevance:       cfg.Scores.MaxRelevance,
		MaxStimulus:        cfg.Scores.MaxStimulus,
	}

	return &Application{
		cfg:       cfg,
		db:        db,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler")),
		api:       httpapi.NewServer(repo, repo, normalizer, cfg.HTTP.PageSize, baseLogger.With("component", "http")),
		logger:    baseLogger,
	}, nil
}

// RunOnce digests day and returns the run report.
func (a *Application) RunOnce(ctx context.Context, day time.Time) (usecase.Report, error) {
	report, err := a.pipeline.ProcessDay(ctx, day)
	if err != nil {
		return report, err
	}
	usecase.LogReport(a.logger, report)
	return report, nil
}

// Schedule runs the daily digest until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return a.stopScheduler()
}

// Serve runs the scheduler and the HTTP API until ctx is done or the server fails.
func (a *Application) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Schedule(gctx) })
	g.Go(func() error { return a.api.ListenAndServe(gctx, a.cfg.HTTP.Addr) })
	return g.Wait()
}

func (a *Application) stopScheduler() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(ctx)
}

// Close releases the database handle.
func (a *Application) Close() error {
	return a.db.Close()
}
