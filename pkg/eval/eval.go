// Package eval produces the qualitative verdict for a scored developer.
// Implementations call out to a generative model, so their output is not
// deterministic; callers inject an Evaluator and may run without one.
package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mchmarny/hireable/pkg/scoring"
)

const (
	// MaxRepoSummaries caps the repositories included in a prompt.
	MaxRepoSummaries = 10

	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var ErrUnknownTier = errors.New("unknown tier")

// Tier is the hiring tier assigned by the evaluator.
type Tier string

const (
	TierExceptional Tier = "EXCEPTIONAL"
	TierStrong      Tier = "STRONG"
	TierCapable     Tier = "CAPABLE"
	TierEmerging    Tier = "EMERGING"
)

// Tiers lists every tier, best first.
var Tiers = []Tier{TierExceptional, TierStrong, TierCapable, TierEmerging}

// ParseTier accepts any casing and surrounding whitespace.
func ParseTier(s string) (Tier, error) {
	v := Tier(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range Tiers {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Evaluator turns metrics and raw repository context into a verdict.
type Evaluator interface {
	Evaluate(ctx context.Context, in *Input) (*Verdict, error)
}

// RepoSummary is the per-repository context handed to the model.
type RepoSummary struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
	Stars       int    `json:"stars" yaml:"stars"`
	Fork        bool   `json:"fork,omitempty" yaml:"fork,omitempty"`
}

// Excerpt is a sampled README.
type Excerpt struct {
	Repo string `json:"repo" yaml:"repo"`
	Text string `json:"text" yaml:"text"`
}

type Input struct {
	Username string           `json:"username"`
	Metrics  *scoring.Metrics `json:"metrics"`
	Repos    []RepoSummary    `json:"repos,omitempty"`
	Readmes  []Excerpt        `json:"readmes,omitempty"`
}

// Verdict is the qualitative result.
type Verdict struct {
	Tier            Tier     `json:"tier" yaml:"tier"`
	Summary         string   `json:"summary" yaml:"summary"`
	Strengths       []string `json:"strengths,omitempty" yaml:"strengths,omitempty"`
	Risks           []string `json:"risks,omitempty" yaml:"risks,omitempty"`
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	Model           string   `json:"model,omitempty" yaml:"model,omitempty"`
}

// SummarizeRepos picks the most starred originals, then forks, up to MaxRepoSummaries.
func SummarizeRepos(repos []scoring.Repository) []RepoSummary {
	list := make([]RepoSummary, 0, len(repos))
	for _, r := range repos {
		list = append(list, RepoSummary{
			Name:        r.Name,
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.Stars,
			Fork:        r.Fork,
		})
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Fork != list[j].Fork {
			return !list[i].Fork
		}
		return list[i].Stars > list[j].Stars
	})

	if len(list) > MaxRepoSummaries {
		list = list[:MaxRepoSummaries]
	}
	return list
}

const systemPrompt = `You are a senior engineering hiring manager reviewing a developer's public GitHub work.
You receive deterministic metrics (0-100 total with six sub-scores), a list of repositories, and README excerpts.
Return ONLY a JSON object, no markdown, with these fields:

"tier": one of EXCEPTIONAL, STRONG, CAPABLE, EMERGING
"summary": 2-3 sentences on the candidate
"strengths": array of short strings
"risks": array of short strings
"recommendations": array of short strings for the hiring team`

// BuildPrompt renders the user message for an input.
func BuildPrompt(in *Input) string {
	if in == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Candidate: %s\n\n", in.Username)

	if m := in.Metrics; m != nil {
		fmt.Fprintf(&b, "Total score: %d/100\n", m.TotalScore)
		for _, s := range m.Breakdown() {
			fmt.Fprintf(&b, "- %s: %d/%d\n", s.Name, s.Value, s.Max)
		}
		fmt.Fprintf(&b, "Activity level: %s (last push %s, %d days ago, %d repos pushed in 90 days)\n",
			m.ActivityLevel, m.LastActivity, m.DaysSinceLastPush, m.RecentVelocity)
	}

	if len(in.Repos) > 0 {
		b.WriteString("\nRepositories:\n")
		for _, r := range in.Repos {
			lang := r.Language
			if lang == "" {
				lang = "unknown"
			}
			kind := ""
			if r.Fork {
				kind = " (fork)"
			}
			fmt.Fprintf(&b, "- %s%s [%s, %d stars]: %s\n", r.Name, kind, lang, r.Stars, r.Description)
		}
	}

	for _, e := range in.Readmes {
		fmt.Fprintf(&b, "\nREADME of %s:\n%s\n", e.Repo, strings.TrimSpace(e.Text))
	}

	return b.String()
}

// ParseVerdict decodes a model response into a validated verdict.
func ParseVerdict(raw string) (*Verdict, error) {
	content := stripCodeFences(raw)
	if content == "" {
		return nil, errors.New("empty model response")
	}

	var v Verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, fmt.Errorf("parsing verdict: %w", err)
	}

	tier, err := ParseTier(string(v.Tier))
	if err != nil {
		return nil, err
	}

	v.Tier = tier
	v.Summary = strings.TrimSpace(v.Summary)
	return &v, nil
}

// stripCodeFences removes markdown code fences some models wrap around JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i != -1 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
