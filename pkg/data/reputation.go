package data

import (
	"time"

	"github.com/mchmarny/hireable/pkg/scoring"
	"github.com/mchmarny/reputer/pkg/score"
)

// ReputationSignals maps a candidate onto the reputer model inputs. Only
// public profile signals are available, commit provenance stays empty.
func ReputationSignals(c *Candidate, m *scoring.Metrics, now time.Time) score.Signals {
	var s score.Signals
	if c == nil {
		return s
	}

	if !c.Profile.CreatedAt.IsZero() && now.After(c.Profile.CreatedAt) {
		s.AgeDays = int64(now.Sub(c.Profile.CreatedAt).Hours() / 24)
	}
	s.Followers = int64(c.Profile.Followers)
	s.Following = int64(c.Following)

	s.PublicRepos = int64(c.PublicRepos)
	if s.PublicRepos == 0 {
		s.PublicRepos = int64(len(c.Repos))
	}

	if m != nil {
		s.LastCommitDays = int64(m.DaysSinceLastPush)
	}

	return s
}

// ComputeReputation returns the reputer score in [0.0, 1.0]. It is reported
// next to the hireability metrics and never feeds into them.
func ComputeReputation(c *Candidate, m *scoring.Metrics, now time.Time) float64 {
	return score.Compute(ReputationSignals(c, m, now))
}
