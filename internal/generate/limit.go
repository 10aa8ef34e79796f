package generate

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited throttles calls to the wrapped Generator.
type Limited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewLimited allows rps calls per second with bursts of up to burst calls.
// A non-positive rps disables throttling.
func NewLimited(next Generator, rps float64, burst int) *Limited {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Generate waits for a token, then delegates. It gives up when ctx is done first.
func (l *Limited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return l.next.Generate(ctx, prompt)
}
