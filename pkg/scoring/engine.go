package scoring

import (
	"math"
	"time"
	"unicode/utf8"
)

const (
	ActivityWeight      = 30
	OriginalityWeight   = 20
	DiversityWeight     = 15
	DocumentationWeight = 15
	MaturityWeight      = 10
	ComplexityWeight    = 10

	starBonusMax     = 5.0
	languageBonusMax = 10.0
	languageSlots    = 4.0
	ageMaxYears      = 5.0
	followerMax      = 5.0
	followerCeil     = 100.0

	velocityCap       = 10
	velocityPoints    = 3.0
	recentWindowDays  = 90
	highlyActiveDays  = 7
	highlyActiveRepos = 5
	moderateDays      = 30
	minDocLength      = 20
	daysPerYear       = 365.0

	// NoActivityDays is reported as the day gap when there are no repositories.
	NoActivityDays = 999
	// NoActivity is reported as the last activity when there are no repositories.
	NoActivity = "N/A"
)

const day = 24 * time.Hour

// Score computes metrics relative to the current time.
func Score(p Profile, repos []Repository) *Metrics {
	return Compute(p, repos, time.Now().UTC())
}

// Compute derives the hireability metrics for a profile and its
// repositories as of now. It never fails and does not modify its inputs.
func Compute(p Profile, repos []Repository, now time.Time) *Metrics {
	originals := make([]Repository, 0, len(repos))
	for _, r := range repos {
		if !r.Fork {
			originals = append(originals, r)
		}
	}

	act := computeActivity(repos, now)
	originality := ratio(len(originals), len(repos)) * OriginalityWeight
	stars, langs := diversity(originals)
	documentation := documentationScore(originals)
	maturity := maturityScore(p, now)
	complexity := complexityScore(originals)

	total := act.score + originality + stars + langs + documentation + maturity + complexity

	m := &Metrics{
		TotalScore:         round(total),
		ActivityScore:      round(act.score),
		OriginalityScore:   round(originality),
		DiversityScore:     round(stars + langs),
		DocumentationScore: round(documentation),
		MaturityScore:      round(maturity),
		ComplexityScore:    round(complexity),
		StarImpact:         round(stars),
		ActivityLevel:      act.level,
		LastActivity:       NoActivity,
		DaysSinceLastPush:  act.days,
		RecentVelocity:     act.velocity,
	}
	m.RepoCountScore = m.OriginalityScore

	if act.hasLast {
		m.LastActivity = act.last.UTC().Format(time.RFC3339)
	}

	return m
}

type activity struct {
	score    float64
	level    ActivityLevel
	last     time.Time
	hasLast  bool
	days     int
	velocity int
}

func computeActivity(repos []Repository, now time.Time) activity {
	a := activity{level: Inactive, days: NoActivityDays}
	if len(repos) == 0 {
		return a
	}

	windowStart := now.Add(-recentWindowDays * day)
	for i, r := range repos {
		if i == 0 || r.PushedAt.After(a.last) {
			a.last = r.PushedAt
		}
		if !r.PushedAt.Before(windowStart) {
			a.velocity++
		}
	}
	a.hasLast = true
	a.days = daysBetween(a.last, now)

	switch {
	case a.days <= highlyActiveDays && a.velocity >= highlyActiveRepos:
		a.level = HighlyActive
	case a.days <= moderateDays && a.velocity >= 1:
		a.level = ModeratelyActive
	}

	a.score = clamp(float64(min(velocityCap, a.velocity))*velocityPoints*recency(a.days), ActivityWeight)
	return a
}

// recency decays linearly from 1 on the day of the push to 0 at 90 days.
func recency(days int) float64 {
	if days <= 0 {
		return 1
	}
	return math.Max(0, 1-float64(days)/recentWindowDays)
}

func diversity(originals []Repository) (stars, langs float64) {
	var total int
	seen := make(map[string]struct{})
	for _, r := range originals {
		total += max(0, r.Stars)
		if r.Language != "" {
			seen[r.Language] = struct{}{}
		}
	}

	stars = clamp(starBonusMax*math.Log10(float64(total)+1)/2, starBonusMax)
	langs = clamp(languageBonusMax*float64(len(seen))/languageSlots, languageBonusMax)
	return stars, langs
}

func documentationScore(originals []Repository) float64 {
	var signals int
	for _, r := range originals {
		if utf8.RuneCountInString(r.Description) > minDocLength {
			signals++
		}
		if r.HasIssues || r.HasProjects || r.HasPages {
			signals++
		}
	}
	return clamp(ratio(signals, 2*len(originals))*DocumentationWeight, DocumentationWeight)
}

func maturityScore(p Profile, now time.Time) float64 {
	years := now.Sub(p.CreatedAt).Hours() / 24 / daysPerYear
	age := clamp(years, ageMaxYears)
	followers := clamp(float64(p.Followers)/followerCeil*followerMax, followerMax)
	return age + followers
}

func complexityScore(originals []Repository) float64 {
	if len(originals) == 0 {
		return 0
	}
	var size int
	for _, r := range originals {
		size += max(0, r.Size)
	}
	avg := float64(size) / float64(len(originals))
	return clamp(ComplexityWeight*math.Log10(avg+1)/5, ComplexityWeight)
}

// daysBetween returns whole elapsed days, zero when then is after now.
func daysBetween(then, now time.Time) int {
	d := now.Sub(then)
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func clamp(v, hi float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, hi)
}

func round(v float64) int {
	return int(math.Round(v))
}
