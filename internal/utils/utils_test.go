package utils

import (
	"context"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestRandomDelayStaysInBounds(t *testing.T) {
	t.Parallel()

	min := 100 * time.Millisecond
	max := 200 * time.Millisecond

	for i := 0; i < 50; i++ {
		d := RandomDelay(min, max)
		if d < min || d > max {
			t.Fatalf("delay %v out of [%v, %v]", d, min, max)
		}
	}

	if d := RandomDelay(max, min); d != max {
		t.Fatalf("expected inverted bounds to return min, got %v", d)
	}
}

func TestWaitForHonorsCancellation(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) { select {} }
	defer func() { sleep = originalSleep }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); err == nil {
		t.Fatal("expected context error")
	}
}

func TestWaitForSkipsNonPositive(t *testing.T) {
	t.Parallel()

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
