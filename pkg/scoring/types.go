package scoring

import (
	"fmt"
	"time"
)

// ActivityLevel classifies how recently and how often a developer pushes code.
type ActivityLevel string

const (
	HighlyActive     ActivityLevel = "HIGHLY_ACTIVE"
	ModeratelyActive ActivityLevel = "MODERATELY_ACTIVE"
	Inactive         ActivityLevel = "INACTIVE"
)

// ActivityLevels lists every level, most active first.
var ActivityLevels = []ActivityLevel{HighlyActive, ModeratelyActive, Inactive}

// ParseActivityLevel validates a textual level.
func ParseActivityLevel(s string) (ActivityLevel, error) {
	for _, l := range ActivityLevels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown activity level: %q", s)
}

func (l ActivityLevel) String() string {
	return string(l)
}

// Profile holds the account fields that participate in scoring.
type Profile struct {
	Login     string    `json:"login" yaml:"login"`
	CreatedAt time.Time `json:"created_at" yaml:"createdAt"`
	Followers int       `json:"followers" yaml:"followers"`
}

// Repository is a single public repository owned by the profile.
type Repository struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Stars       int       `json:"stars" yaml:"stars"`
	Language    string    `json:"language,omitempty" yaml:"language,omitempty"`
	PushedAt    time.Time `json:"pushed_at" yaml:"pushedAt"`
	Size        int       `json:"size" yaml:"size"`
	Fork        bool      `json:"fork" yaml:"fork"`
	HasIssues   bool      `json:"has_issues" yaml:"hasIssues"`
	HasProjects bool      `json:"has_projects" yaml:"hasProjects"`
	HasPages    bool      `json:"has_pages" yaml:"hasPages"`
}

// Metrics is the scored result for one profile.
//
// RepoCountScore mirrors OriginalityScore and StarImpact mirrors only the
// star bonus part of DiversityScore. Both are kept under these names for
// existing consumers.
type Metrics struct {
	TotalScore         int           `json:"total_score" yaml:"totalScore"`
	ActivityScore      int           `json:"activity_score" yaml:"activityScore"`
	OriginalityScore   int           `json:"originality_score" yaml:"originalityScore"`
	DiversityScore     int           `json:"diversity_score" yaml:"diversityScore"`
	DocumentationScore int           `json:"documentation_score" yaml:"documentationScore"`
	MaturityScore      int           `json:"maturity_score" yaml:"maturityScore"`
	ComplexityScore    int           `json:"complexity_score" yaml:"complexityScore"`
	RepoCountScore     int           `json:"repo_count_score" yaml:"repoCountScore"`
	StarImpact         int           `json:"star_impact" yaml:"starImpact"`
	ActivityLevel      ActivityLevel `json:"activity_level" yaml:"activityLevel"`
	LastActivity       string        `json:"last_activity" yaml:"lastActivity"`
	DaysSinceLastPush  int           `json:"days_since_last_push" yaml:"daysSinceLastPush"`
	RecentVelocity     int           `json:"recent_velocity" yaml:"recentVelocity"`
}

// SubScore is one named component of the total with its maximum weight.
type SubScore struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
	Max   int    `json:"max" yaml:"max"`
}

// Breakdown returns the six sub-scores in display order.
func (m *Metrics) Breakdown() []SubScore {
	if m == nil {
		return nil
	}
	return []SubScore{
		{Name: "activity", Value: m.ActivityScore, Max: ActivityWeight},
		{Name: "originality", Value: m.OriginalityScore, Max: OriginalityWeight},
		{Name: "diversity", Value: m.DiversityScore, Max: DiversityWeight},
		{Name: "documentation", Value: m.DocumentationScore, Max: DocumentationWeight},
		{Name: "maturity", Value: m.MaturityScore, Max: MaturityWeight},
		{Name: "complexity", Value: m.ComplexityScore, Max: ComplexityWeight},
	}
}
