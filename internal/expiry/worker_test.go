package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
)

type stubExpirer struct {
	n     int64
	err   error
	calls int
}

func (s *stubExpirer) ExpireDue(_ context.Context, _ time.Time) (int64, error) {
	s.calls++
	return s.n, s.err
}

func TestSweepWorker_ExpiresDue(t *testing.T) {
	exp := &stubExpirer{n: 3}
	w := NewSweepWorker(exp, nil)

	if err := w.Work(context.Background(), &river.Job[SweepArgs]{}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if exp.calls != 1 {
		t.Errorf("ExpireDue called %d times, want 1", exp.calls)
	}
}

func TestSweepWorker_PropagatesError(t *testing.T) {
	exp := &stubExpirer{err: errors.New("db down")}
	w := NewSweepWorker(exp, nil)

	if err := w.Work(context.Background(), &river.Job[SweepArgs]{}); err == nil {
		t.Fatal("expected error so the job retries")
	}
}

func TestSweepArgsKind(t *testing.T) {
	if (SweepArgs{}).Kind() != "commission_expiry_sweep" {
		t.Fatalf("unexpected kind %q", (SweepArgs{}).Kind())
	}
}
