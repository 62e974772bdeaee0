package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mchmarny/hireable/pkg/eval"
	"github.com/mchmarny/hireable/pkg/scoring"
)

var ErrInvalidCandidate = errors.New("invalid candidate")

// Candidate is everything retrieved about one developer.
type Candidate struct {
	Profile     scoring.Profile      `json:"profile" yaml:"profile"`
	Repos       []scoring.Repository `json:"repos" yaml:"repos"`
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	AvatarURL   string               `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Bio         string               `json:"bio,omitempty" yaml:"bio,omitempty"`
	Location    string               `json:"location,omitempty" yaml:"location,omitempty"`
	Following   int                  `json:"following,omitempty" yaml:"following,omitempty"`
	PublicRepos int                  `json:"public_repos,omitempty" yaml:"publicRepos,omitempty"`
	Readmes     []eval.Excerpt       `json:"readmes,omitempty" yaml:"readmes,omitempty"`
}

// ParseCandidate decodes and validates a candidate from JSON. Timestamps
// must be RFC 3339.
func ParseCandidate(r io.Reader) (*Candidate, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no input", ErrInvalidCandidate)
	}

	var c Candidate
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks the fields the scoring engine relies on.
func (c *Candidate) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil candidate", ErrInvalidCandidate)
	}
	if strings.TrimSpace(c.Profile.Login) == "" {
		return fmt.Errorf("%w: profile login is required", ErrInvalidCandidate)
	}
	if c.Profile.CreatedAt.IsZero() {
		return fmt.Errorf("%w: profile created_at is required", ErrInvalidCandidate)
	}
	if c.Profile.Followers < 0 {
		return fmt.Errorf("%w: negative follower count", ErrInvalidCandidate)
	}

	for i, r := range c.Repos {
		if r.Stars < 0 || r.Size < 0 {
			return fmt.Errorf("%w: repo[%d] %s has negative counts", ErrInvalidCandidate, i, r.Name)
		}
	}

	return nil
}

// EvalInput assembles the evaluator context for the candidate.
func (c *Candidate) EvalInput(m *scoring.Metrics) *eval.Input {
	return &eval.Input{
		Username: c.Profile.Login,
		Metrics:  m,
		Repos:    eval.SummarizeRepos(c.Repos),
		Readmes:  c.Readmes,
	}
}
