package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-github/v83/github"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitWait_Nil(t *testing.T) {
	assert.Zero(t, rateLimitWait(nil, time.Now()))
	assert.NoError(t, checkRateLimit(context.Background(), nil))
}

func TestRateLimitWait_HighRemaining(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 100,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
	assert.Zero(t, rateLimitWait(resp, time.Now()))
}

func TestRateLimitWait_ResetInPast(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 0,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(-time.Hour)},
		},
	}
	assert.Zero(t, rateLimitWait(resp, time.Now()))
	assert.NoError(t, checkRateLimit(context.Background(), resp))
}

func TestRateLimitWait_Exhausted(t *testing.T) {
	now := time.Now()
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 2,
			Limit:     5000,
			Reset:     github.Timestamp{Time: now.Add(time.Minute)},
		},
	}
	wait := rateLimitWait(resp, now)
	assert.GreaterOrEqual(t, wait, time.Minute)
	assert.Less(t, wait, time.Minute+rateLimitJitterMS*time.Millisecond)
}

func TestCheckRateLimit_CanceledContext(t *testing.T) {
	resp := &github.Response{
		Rate: github.Rate{
			Remaining: 0,
			Limit:     5000,
			Reset:     github.Timestamp{Time: time.Now().Add(time.Hour)},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, checkRateLimit(ctx, resp), context.Canceled)
}

func TestRateInfo(t *testing.T) {
	assert.Empty(t, rateInfo(nil))
	r := &github.Rate{Remaining: 1, Limit: 60, Reset: github.Timestamp{Time: time.Date(2025, 1, 1, 9, 5, 0, 0, time.UTC)}}
	assert.Equal(t, "rate:1/60 until:09:05", rateInfo(r))
}
