package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/paaalop/news-analyzer/internal/ports"
)

type fakeClassifier struct {
	answer string
	err    error
	calls  int
	wait   bool
}

func (f *fakeClassifier) Classify(ctx context.Context, req ports.ClassifyRequest) (string, error) {
	f.calls++
	if f.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		answer string
		err    error
		want   bool
	}{
		{name: "yes", answer: "YES", want: true},
		{name: "yes lower with punctuation", answer: " yes.\n", want: true},
		{name: "no", answer: "NO", want: false},
		{name: "explanation", answer: "YES, both cover the chip shortage", want: false},
		{name: "empty", answer: "", want: false},
		{name: "error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeClassifier{answer: tt.answer, err: tt.err}
			v := New(fc, time.Second, quietLogger())
			assert.Equal(t, tt.want, v.Confirm(context.Background(), "a", "b"))
			assert.Equal(t, 1, fc.calls)
		})
	}
}

func TestConfirmTimeout(t *testing.T) {
	t.Parallel()

	fc := &fakeClassifier{wait: true}
	v := New(fc, 10*time.Millisecond, quietLogger())
	assert.False(t, v.Confirm(context.Background(), "a", "b"))
	assert.Equal(t, 1, fc.calls)
}

func TestConfirmNilVerifier(t *testing.T) {
	t.Parallel()

	var v *Verifier
	assert.False(t, v.Confirm(context.Background(), "a", "b"))
}
