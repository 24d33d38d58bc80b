// Package cluster groups article summaries into topics in a single streaming pass.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/similarity"
)

// Mode selects the merge regime of a run. A run uses exactly one mode.
type Mode string

const (
	// ModeLenient merges on raw cosine at or above the threshold.
	ModeLenient Mode = "lenient"
	// ModeVerified merges only when the verifier confirms a match at or above the threshold.
	ModeVerified Mode = "verified"

	DefaultLenientThreshold  = 0.75
	DefaultVerifiedThreshold = 0.85
)

// Policy configures the merge decision.
type Policy struct {
	Mode      Mode
	Threshold float64
}

// DefaultPolicy returns the lenient 0.75 regime.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeLenient, Threshold: DefaultLenientThreshold}
}

// Validate rejects unknown modes and thresholds outside (0, 1].
func (p Policy) Validate() error {
	switch p.Mode {
	case ModeLenient, ModeVerified:
	default:
		return fmt.Errorf("unknown clustering mode %q", p.Mode)
	}
	if p.Threshold <= 0 || p.Threshold > 1 {
		return fmt.Errorf("clustering threshold %.2f outside (0, 1]", p.Threshold)
	}
	return nil
}

// Confirmer double-checks a candidate merge.
type Confirmer interface {
	Confirm(ctx context.Context, a, b string) bool
}

// Set is the run-owned collection of clusters. It is not safe for concurrent use;
// admission order determines the result.
type Set struct {
	policy   Policy
	verifier Confirmer
	logger   *slog.Logger
	clusters []*domain.Cluster
}

// NewSet builds an empty cluster set. verifier is required in verified mode.
func NewSet(policy Policy, verifier Confirmer, logger *slog.Logger) (*Set, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if policy.Mode == ModeVerified && verifier == nil {
		return nil, fmt.Errorf("verified clustering requires a verifier")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{policy: policy, verifier: verifier, logger: logger}, nil
}

// Admit assigns item to the most similar cluster or opens a new one, and returns that cluster.
func (s *Set) Admit(ctx context.Context, item domain.ArticleSummary, vec domain.Vector) *domain.Cluster {
	best, score := s.nearest(vec)
	if best != nil && score >= s.policy.Threshold && s.accept(ctx, best, item, score) {
		best.Count++
		best.Extras = append(best.Extras, item.Summary)
		s.logger.Debug("admitted into cluster", "id", item.ID, "score", score, "count", best.Count)
		return best
	}

	c := &domain.Cluster{
		Representative: item.Summary,
		Centroid:       vec,
		Count:          1,
	}
	s.clusters = append(s.clusters, c)
	s.logger.Debug("opened cluster", "id", item.ID, "best_score", score, "clusters", len(s.clusters))
	return c
}

// nearest returns the cluster whose centroid is most similar to vec; ties keep the older cluster.
func (s *Set) nearest(vec domain.Vector) (*domain.Cluster, float64) {
	var (
		best  *domain.Cluster
		score float64
	)
	for _, c := range s.clusters {
		sim := similarity.Cosine(c.Centroid, vec)
		if best == nil || sim > score {
			best, score = c, sim
		}
	}
	return best, score
}

func (s *Set) accept(ctx context.Context, c *domain.Cluster, item domain.ArticleSummary, score float64) bool {
	if s.policy.Mode != ModeVerified {
		return true
	}
	ok := s.verifier.Confirm(ctx, c.Representative, item.Summary)
	if !ok {
		s.logger.Debug("verifier rejected merge", "id", item.ID, "score", score)
	}
	return ok
}

// Len returns the number of clusters.
func (s *Set) Len() int {
	return len(s.clusters)
}

// Sorted returns the clusters by member count, largest first; equal counts keep admission order.
func (s *Set) Sorted() []*domain.Cluster {
	out := make([]*domain.Cluster, len(s.clusters))
	copy(out, s.clusters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
