package image

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"thumbsmith/internal/domain"
)

type flakySynthesizer struct {
	failures int32
	calls    atomic.Int32
	err      error
}

func (f *flakySynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*domain.Image, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, errors.New("model overloaded")
	}
	return &domain.Image{Aspect: req.Aspect, Variant: req.Variant, MIME: "image/png", Data: []byte("png")}, nil
}

func TestRetryingRecovers(t *testing.T) {
	next := &flakySynthesizer{failures: 2}
	r := NewRetrying(next, RetryOptions{InitialInterval: time.Millisecond})

	img, err := r.Synthesize(context.Background(), SynthesisRequest{Aspect: domain.AspectHorizontal, Variant: 1})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if img.Variant != 1 || next.calls.Load() != 3 {
		t.Fatalf("variant=%d calls=%d", img.Variant, next.calls.Load())
	}
}

func TestRetryingExhausts(t *testing.T) {
	next := &flakySynthesizer{failures: 10}
	r := NewRetrying(next, RetryOptions{InitialInterval: time.Millisecond})

	_, err := r.Synthesize(context.Background(), SynthesisRequest{Aspect: domain.AspectVertical})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := next.calls.Load(); got != DefaultMaxAttempts {
		t.Fatalf("calls = %d, want %d", got, DefaultMaxAttempts)
	}
	want := "synthesize 9:16 image after 3 attempts: model overloaded"
	if err.Error() != want {
		t.Fatalf("err = %q, want %q", err, want)
	}
}

func TestRetryingStopsOnInvalidRequest(t *testing.T) {
	next := &flakySynthesizer{failures: 10, err: domain.ErrInvalidRequest}
	r := NewRetrying(next, RetryOptions{InitialInterval: time.Millisecond})

	_, err := r.Synthesize(context.Background(), SynthesisRequest{Aspect: domain.AspectHorizontal})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v", err)
	}
	if got := next.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestRetryingHonoursCancellation(t *testing.T) {
	next := &flakySynthesizer{failures: 10}
	r := NewRetrying(next, RetryOptions{InitialInterval: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Synthesize(ctx, SynthesisRequest{Aspect: domain.AspectHorizontal})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("retry loop ignored cancellation")
	}
}

func TestRetryPolicyDoubles(t *testing.T) {
	r := NewRetrying(&flakySynthesizer{}, RetryOptions{})
	b := r.policy(context.Background())
	b.Reset()
	var waits []string
	for i := 0; i < 3; i++ {
		waits = append(waits, b.NextBackOff().String())
	}
	if got := strings.Join(waits, ","); got != "2s,4s,-1ns" {
		t.Fatalf("waits = %s, want 2s,4s,-1ns", got)
	}
}
