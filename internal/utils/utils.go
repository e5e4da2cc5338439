package utils

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for the given duration or until the context is cancelled.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// RandomDelay returns a duration sampled uniformly from [min, max].
// When the bounds are not usable the minimum is returned as-is.
func RandomDelay(min, max time.Duration) time.Duration {
	if min < 0 {
		min = 0
	}
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
