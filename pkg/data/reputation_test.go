package data

import (
	"testing"
	"time"

	"github.com/mchmarny/hireable/pkg/scoring"
	"github.com/stretchr/testify/assert"
)

func TestReputationSignals(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	c := &Candidate{
		Profile: scoring.Profile{
			Login:     "alice",
			CreatedAt: now.AddDate(0, 0, -400),
			Followers: 30,
		},
		Following: 3,
		Repos:     []scoring.Repository{{Name: "a"}, {Name: "b"}},
	}
	m := &scoring.Metrics{DaysSinceLastPush: 12}

	s := ReputationSignals(c, m, now)
	assert.Equal(t, int64(400), s.AgeDays)
	assert.Equal(t, int64(30), s.Followers)
	assert.Equal(t, int64(3), s.Following)
	assert.Equal(t, int64(2), s.PublicRepos)
	assert.Equal(t, int64(12), s.LastCommitDays)
	assert.Zero(t, s.Commits)

	c.PublicRepos = 9
	assert.Equal(t, int64(9), ReputationSignals(c, m, now).PublicRepos)
}

func TestReputationSignals_Nil(t *testing.T) {
	s := ReputationSignals(nil, nil, time.Now())
	assert.Zero(t, s.AgeDays)
	assert.Zero(t, s.LastCommitDays)
}

func TestComputeReputation(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	fresh := &Candidate{Profile: scoring.Profile{Login: "new", CreatedAt: now}}
	seasoned := &Candidate{
		Profile:     scoring.Profile{Login: "old", CreatedAt: now.AddDate(-6, 0, 0), Followers: 500},
		Following:   20,
		PublicRepos: 60,
	}

	low := ComputeReputation(fresh, &scoring.Metrics{DaysSinceLastPush: scoring.NoActivityDays}, now)
	high := ComputeReputation(seasoned, &scoring.Metrics{DaysSinceLastPush: 1}, now)

	assert.GreaterOrEqual(t, low, 0.0)
	assert.LessOrEqual(t, high, 1.0)
	assert.Greater(t, high, low)
}
