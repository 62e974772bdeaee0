package data

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/go-github/v83/github"
)

const (
	rateLimitThreshold = 10
	rateLimitJitterMS  = 2000
)

// rateLimitWait returns how long to pause before the next call, zero when
// enough quota remains or the window already reset.
func rateLimitWait(resp *github.Response, now time.Time) time.Duration {
	if resp == nil {
		return 0
	}

	if resp.Rate.Remaining > rateLimitThreshold {
		return 0
	}

	wait := resp.Rate.Reset.Time.Sub(now)
	if wait <= 0 {
		return 0
	}

	return wait + time.Duration(rand.IntN(rateLimitJitterMS))*time.Millisecond
}

// checkRateLimit blocks until the rate limit window resets or ctx is done.
func checkRateLimit(ctx context.Context, resp *github.Response) error {
	wait := rateLimitWait(resp, time.Now())
	if wait == 0 {
		return nil
	}

	slog.Info("rate limit approaching, waiting",
		"remaining", resp.Rate.Remaining,
		"reset_at", resp.Rate.Reset.Format(time.RFC3339),
		"wait", wait.String(),
	)

	t := time.NewTimer(wait)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for rate limit reset: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

func rateInfo(r *github.Rate) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("rate:%d/%d until:%s", r.Remaining, r.Limit, r.Reset.Format("15:04"))
}
