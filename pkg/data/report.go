package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mchmarny/hireable/pkg/eval"
	"github.com/mchmarny/hireable/pkg/scoring"
)

const (
	StaleHoursDefault  = 24
	ReportLimitDefault = 50

	upsertReportSQL = `INSERT INTO report (
			username,
			name,
			avatar,
			repo_count,
			total_score,
			activity_level,
			reputation,
			metrics,
			verdict,
			scored_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			name = excluded.name,
			avatar = excluded.avatar,
			repo_count = excluded.repo_count,
			total_score = excluded.total_score,
			activity_level = excluded.activity_level,
			reputation = excluded.reputation,
			metrics = excluded.metrics,
			verdict = excluded.verdict,
			scored_at = excluded.scored_at
	`

	selectReportSQL = `SELECT
			username,
			COALESCE(name, ''),
			COALESCE(avatar, ''),
			repo_count,
			reputation,
			metrics,
			verdict,
			scored_at
		FROM report
		WHERE username = ?
	`

	listReportsSQL = `SELECT
			username,
			COALESCE(name, ''),
			total_score,
			activity_level,
			reputation,
			scored_at
		FROM report
		ORDER BY total_score DESC, username ASC
		LIMIT ?
	`

	deleteReportSQL = `DELETE FROM report WHERE username = ?`
)

// Report is a scored developer as stored and served.
type Report struct {
	Username   string           `json:"username" yaml:"username"`
	Name       string           `json:"name,omitempty" yaml:"name,omitempty"`
	AvatarURL  string           `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	RepoCount  int              `json:"repo_count" yaml:"repoCount"`
	Metrics    *scoring.Metrics `json:"metrics" yaml:"metrics"`
	Reputation float64          `json:"reputation" yaml:"reputation"`
	Verdict    *eval.Verdict    `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	ScoredAt   time.Time        `json:"scored_at" yaml:"scoredAt"`
	Cached     bool             `json:"cached" yaml:"cached"`
}

// ReportListItem is the summary row of a stored report.
type ReportListItem struct {
	Username      string                `json:"username" yaml:"username"`
	Name          string                `json:"name,omitempty" yaml:"name,omitempty"`
	TotalScore    int                   `json:"total_score" yaml:"totalScore"`
	ActivityLevel scoring.ActivityLevel `json:"activity_level" yaml:"activityLevel"`
	Reputation    float64               `json:"reputation" yaml:"reputation"`
	ScoredAt      string                `json:"scored_at" yaml:"scoredAt"`
}

// ReportOptions controls report caching.
type ReportOptions struct {
	StaleHours int
	Refresh    bool
}

// BuildReport scores a candidate as of now and, when ev is set, attaches a
// verdict. Evaluator failures are logged and leave the verdict empty.
func BuildReport(ctx context.Context, c *Candidate, ev eval.Evaluator, now time.Time) *Report {
	m := scoring.Compute(c.Profile, c.Repos, now)

	r := &Report{
		Username:   strings.ToLower(c.Profile.Login),
		Name:       c.Name,
		AvatarURL:  c.AvatarURL,
		RepoCount:  len(c.Repos),
		Metrics:    m,
		Reputation: ComputeReputation(c, m, now),
		ScoredAt:   now.UTC(),
	}

	if ev == nil {
		return r
	}

	v, err := ev.Evaluate(ctx, c.EvalInput(m))
	if err != nil {
		slog.Warn("evaluation failed, report has no verdict", "username", r.Username, "error", err)
		return r
	}
	r.Verdict = v

	return r
}

// GetOrComputeReport returns a stored report younger than StaleHours,
// otherwise retrieves, scores and stores a new one.
func GetOrComputeReport(ctx context.Context, db *sql.DB, src CandidateSource, ev eval.Evaluator, username string, opts ReportOptions) (*Report, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if src == nil {
		return nil, errors.New("candidate source is required")
	}

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, errors.New("username is required")
	}

	if opts.StaleHours <= 0 {
		opts.StaleHours = StaleHoursDefault
	}

	now := time.Now().UTC()

	if !opts.Refresh {
		existing, err := GetReport(db, username)
		if err != nil {
			return nil, err
		}
		threshold := now.Add(-time.Duration(opts.StaleHours) * time.Hour)
		if existing != nil && existing.ScoredAt.After(threshold) {
			slog.Debug("using stored report", "username", username, "scored_at", existing.ScoredAt)
			existing.Cached = true
			return existing, nil
		}
	}

	c, err := src.GetCandidate(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error retrieving candidate %s: %w", username, err)
	}

	r := BuildReport(ctx, c, ev, now)

	if err := SaveReport(db, r); err != nil {
		return nil, fmt.Errorf("error storing report for %s: %w", username, err)
	}

	slog.Info("report computed",
		"username", r.Username,
		"score", r.Metrics.TotalScore,
		"level", r.Metrics.ActivityLevel,
		"verdict", r.Verdict != nil,
	)

	return r, nil
}

func SaveReport(db *sql.DB, r *Report) error {
	if db == nil {
		return errDBNotInitialized
	}
	if r == nil || r.Metrics == nil || r.Username == "" {
		return errors.New("report with username and metrics is required")
	}

	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics for %s: %w", r.Username, err)
	}

	var verdict *string
	if r.Verdict != nil {
		b, err := json.Marshal(r.Verdict)
		if err != nil {
			return fmt.Errorf("failed to marshal verdict for %s: %w", r.Username, err)
		}
		s := string(b)
		verdict = &s
	}

	_, err = db.Exec(rebind(db, upsertReportSQL),
		strings.ToLower(r.Username),
		r.Name,
		r.AvatarURL,
		r.RepoCount,
		r.Metrics.TotalScore,
		string(r.Metrics.ActivityLevel),
		r.Reputation,
		string(metrics),
		verdict,
		r.ScoredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save report for %s: %w", r.Username, err)
	}

	return nil
}

// GetReport returns nil without error when no report is stored.
func GetReport(db *sql.DB, username string) (*Report, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	var (
		r        Report
		metrics  string
		verdict  sql.NullString
		scoredAt string
	)

	err := db.QueryRow(rebind(db, selectReportSQL), strings.ToLower(username)).Scan(
		&r.Username,
		&r.Name,
		&r.AvatarURL,
		&r.RepoCount,
		&r.Reputation,
		&metrics,
		&verdict,
		&scoredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report for %s: %w", username, err)
	}

	var m scoring.Metrics
	if err := json.Unmarshal([]byte(metrics), &m); err != nil {
		return nil, fmt.Errorf("failed to decode metrics for %s: %w", username, err)
	}
	r.Metrics = &m

	if verdict.Valid && verdict.String != "" {
		var v eval.Verdict
		if err := json.Unmarshal([]byte(verdict.String), &v); err != nil {
			return nil, fmt.Errorf("failed to decode verdict for %s: %w", username, err)
		}
		r.Verdict = &v
	}

	if r.ScoredAt, err = time.Parse(time.RFC3339, scoredAt); err != nil {
		return nil, fmt.Errorf("failed to parse scored_at for %s: %w", username, err)
	}

	return &r, nil
}

func ListReports(db *sql.DB, limit int) ([]*ReportListItem, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		limit = ReportLimitDefault
	}

	rows, err := db.Query(rebind(db, listReportsSQL), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	list := make([]*ReportListItem, 0)
	for rows.Next() {
		var (
			item  ReportListItem
			level string
		)
		if err := rows.Scan(&item.Username, &item.Name, &item.TotalScore, &level, &item.Reputation, &item.ScoredAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if item.ActivityLevel, err = scoring.ParseActivityLevel(level); err != nil {
			return nil, fmt.Errorf("invalid report row for %s: %w", item.Username, err)
		}
		list = append(list, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return list, nil
}

// DeleteReport reports whether a row was removed.
func DeleteReport(db *sql.DB, username string) (bool, error) {
	if db == nil {
		return false, errDBNotInitialized
	}

	res, err := db.Exec(rebind(db, deleteReportSQL), strings.ToLower(username))
	if err != nil {
		return false, fmt.Errorf("failed to delete report for %s: %w", username, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted reports: %w", err)
	}

	return n > 0, nil
}
