package usecase

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paaalop/news-analyzer/internal/cluster"
	"github.com/paaalop/news-analyzer/internal/config"
	"github.com/paaalop/news-analyzer/internal/digest"
	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/infrastructure/storage"
	"github.com/paaalop/news-analyzer/internal/ports"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeEmbedder struct {
	vectors map[string]domain.Vector
}

func (f fakeEmbedder) Embed(_ context.Context, text string) (domain.Vector, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, domain.ErrEmbedding
	}
	return v, nil
}

type fakeModel struct {
	mu         sync.Mutex
	summarized [][]string
	fail       bool
}

func (f *fakeModel) Summarize(_ context.Context, req ports.SummarizeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarized = append(f.summarized, req.Texts)
	if f.fail {
		return "", domain.ErrCapability
	}
	return "digest:" + strings.Join(req.Texts, "|"), nil
}

func (f *fakeModel) Reduce(_ context.Context, req ports.ReduceRequest) (string, error) {
	return strings.Join(req.Blocks, "\n"), nil
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summarized)
}

type fakeNotifier struct {
	published []domain.Digest
	err       error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, d domain.Digest) error {
	f.published = append(f.published, d)
	return f.err
}

type rejectAll struct{ calls int }

func (r *rejectAll) Confirm(context.Context, string, string) bool {
	r.calls++
	return false
}

const (
	chipA = "A chip shortage eases"
	chipB = "Chip shortage easing reported"
	phone = "New phone launched"
)

func chipVectors() map[string]domain.Vector {
	y := (0.1 - 0.09) / math.Sqrt(1-0.81)
	return map[string]domain.Vector{
		chipA: {1, 0, 0},
		chipB: {0.9, float32(math.Sqrt(1 - 0.81)), 0},
		phone: {0.1, float32(y), float32(math.Sqrt(1 - 0.01 - y*y))},
	}
}

func newStore(t *testing.T) (*storage.SQLRepository, *sql.DB) {
	t.Helper()

	ctx := context.Background()
	db, dialect, err := storage.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "news.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.EnsureSchema(ctx, db, dialect))
	return storage.NewSQLRepository(db, dialect), db
}

func seed(t *testing.T, db *sql.DB, link, publish, summary string) {
	t.Helper()

	_, err := sq.Insert("newsdata").
		Columns("link", "publish_time", "summary").
		Values(link, publish, summary).
		RunWith(db).
		Exec()
	require.NoError(t, err)
}

type harness struct {
	repo     *storage.SQLRepository
	db       *sql.DB
	model    *fakeModel
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	repo, db := newStore(t)
	return &harness{repo: repo, db: db, model: &fakeModel{}, notifier: &fakeNotifier{}}
}

func (h *harness) pipeline(t *testing.T, policy cluster.Policy, confirmer cluster.Confirmer) *DigestPipeline {
	t.Helper()

	p, err := NewPipeline(PipelineDeps{
		Summaries:    h.repo,
		Digests:      h.repo,
		Embedder:     fakeEmbedder{vectors: chipVectors()},
		Digester:     digest.NewSummarizer(h.model, h.model, digest.Options{Workers: 2}, discard),
		Notifier:     h.notifier,
		Policy:       policy,
		Confirmer:    confirmer,
		EmbedWorkers: 2,
		Logger:       discard,
	})
	require.NoError(t, err)
	return p
}

var day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestProcessDayChipShortage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seed(t, h.db, "1", "2024-05-01 08:00:00", chipA)
	seed(t, h.db, "2", "2024-05-01 09:00:00", "<p>"+chipB+"</p>")
	seed(t, h.db, "3", "2024-05-01 10:00:00", phone)
	seed(t, h.db, "4", "2024-05-01 11:00:00", "unembeddable")
	seed(t, h.db, "5", "2024-05-02 08:00:00", "tomorrow")

	report, err := h.pipeline(t, cluster.DefaultPolicy(), nil).ProcessDay(context.Background(), day)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "2024-05-01", report.Day)
	assert.Equal(t, 4, report.Loaded)
	assert.Equal(t, 3, report.Embedded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Clusters)
	assert.Equal(t, 1, report.Chunks)
	assert.False(t, report.NoInput)

	require.Equal(t, 1, h.model.calls())
	assert.Equal(t, []string{
		"[Topic 1 | 2 articles]\n- " + chipA + "\n- " + chipB,
		"[Topic 2 | 1 articles]\n- " + phone,
	}, h.model.summarized[0])

	stored, err := h.repo.Digest(context.Background(), "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, report.Digest, stored)
	assert.True(t, strings.HasPrefix(stored.Text, "digest:[Topic 1 | 2 articles]"))

	require.Len(t, h.notifier.published, 1)
	assert.Equal(t, stored, h.notifier.published[0])
}

func TestProcessDayNoInput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seed(t, h.db, "1", "2024-04-30 08:00:00", chipA)

	report, err := h.pipeline(t, cluster.DefaultPolicy(), nil).ProcessDay(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, report.NoInput)
	assert.Zero(t, h.model.calls())

	_, err = h.repo.Digest(context.Background(), "2024-05-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, h.notifier.published)
}

func TestProcessDayCapabilityFailureStoresNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.model.fail = true
	seed(t, h.db, "1", "2024-05-01 08:00:00", chipA)

	_, err := h.pipeline(t, cluster.DefaultPolicy(), nil).ProcessDay(context.Background(), day)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCapability)

	_, err = h.repo.Digest(context.Background(), "2024-05-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, h.notifier.published)
}

func TestProcessDayAllEmbeddingsFail(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seed(t, h.db, "1", "2024-05-01 08:00:00", "unknown one")
	seed(t, h.db, "2", "2024-05-01 09:00:00", "unknown two")

	report, err := h.pipeline(t, cluster.DefaultPolicy(), nil).ProcessDay(context.Background(), day)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, h.model.calls())
}

func TestProcessDayRerunOverwrites(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seed(t, h.db, "1", "2024-05-01 08:00:00", chipA)
	p := h.pipeline(t, cluster.DefaultPolicy(), nil)

	_, err := p.ProcessDay(context.Background(), day)
	require.NoError(t, err)

	seed(t, h.db, "2", "2024-05-01 09:00:00", phone)
	second, err := p.ProcessDay(context.Background(), day)
	require.NoError(t, err)

	all, err := h.repo.Digests(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.Digest.Text, all[0].Text)
}

func TestProcessDayNotifierFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.notifier.err = errors.New("telegram down")
	seed(t, h.db, "1", "2024-05-01 08:00:00", chipA)

	_, err := h.pipeline(t, cluster.DefaultPolicy(), nil).ProcessDay(context.Background(), day)
	require.NoError(t, err)

	_, err = h.repo.Digest(context.Background(), "2024-05-01")
	assert.NoError(t, err)
}

func TestProcessDayVerifiedModeRejects(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	seed(t, h.db, "1", "2024-05-01 08:00:00", chipA)
	seed(t, h.db, "2", "2024-05-01 09:00:00", chipB)
	seed(t, h.db, "3", "2024-05-01 10:00:00", phone)

	confirmer := &rejectAll{}
	policy := cluster.Policy{Mode: cluster.ModeVerified, Threshold: cluster.DefaultVerifiedThreshold}
	report, err := h.pipeline(t, policy, confirmer).ProcessDay(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Clusters)
	assert.Equal(t, 1, confirmer.calls)
}

func TestNewPipelineValidates(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(PipelineDeps{})
	assert.Error(t, err)

	repo, _ := newStore(t)
	model := &fakeModel{}
	_, err = NewPipeline(PipelineDeps{
		Summaries: repo,
		Digests:   repo,
		Embedder:  fakeEmbedder{},
		Digester:  digest.NewSummarizer(model, model, digest.Options{}, discard),
		Policy:    cluster.Policy{Mode: cluster.ModeVerified, Threshold: 0.85},
	})
	assert.Error(t, err, "verified mode without confirmer")
}
