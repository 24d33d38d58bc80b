// Package verify asks a language model whether two summaries report the same topic.
package verify

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/paaalop/news-analyzer/internal/ports"
)

const (
	// Affirmative is the only token accepted as a match.
	Affirmative = "YES"
	// Negative is the expected non-match token.
	Negative = "NO"

	defaultTimeout = 15 * time.Second
)

// Verifier confirms borderline cluster merges.
type Verifier struct {
	classifier ports.Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

// New builds a verifier; timeout <= 0 falls back to 15s.
func New(classifier ports.Classifier, timeout time.Duration, logger *slog.Logger) *Verifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{classifier: classifier, timeout: timeout, logger: logger}
}

// Confirm reports whether a and b cover the same topic. Failures count as "not matched".
func (v *Verifier) Confirm(ctx context.Context, a, b string) bool {
	if v == nil || v.classifier == nil {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	answer, err := v.classifier.Classify(callCtx, ports.ClassifyRequest{A: a, B: b})
	if err != nil {
		v.logger.Warn("verifier call failed, treating as no match", "error", err)
		return false
	}

	token := normalizeToken(answer)
	switch token {
	case Affirmative:
		return true
	case Negative:
		return false
	default:
		v.logger.Warn("verifier returned malformed answer, treating as no match", "answer", answer)
		return false
	}
}

func normalizeToken(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.ToUpper(s)
}
