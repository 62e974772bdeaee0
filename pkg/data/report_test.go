package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/mchmarny/hireable/pkg/eval"
	"github.com/mchmarny/hireable/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	candidate *Candidate
	err       error
	calls     int
}

func (f *fakeSource) GetCandidate(_ context.Context, username string) (*Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidate, nil
}

type fakeEvaluator struct {
	verdict *eval.Verdict
	err     error
	input   *eval.Input
}

func (f *fakeEvaluator) Evaluate(_ context.Context, in *eval.Input) (*eval.Verdict, error) {
	f.input = in
	return f.verdict, f.err
}

func testCandidate() *Candidate {
	now := time.Now().UTC()
	return &Candidate{
		Profile: scoring.Profile{Login: "Alice", CreatedAt: now.AddDate(-2, 0, 0), Followers: 50},
		Name:    "Alice Example",
		Repos: []scoring.Repository{
			{Name: "svc", Description: "a service with a long description", Stars: 120,
				Language: "Go", PushedAt: now, Size: 5000, HasIssues: true},
			{Name: "fork", Fork: true, PushedAt: now.AddDate(0, 0, -3)},
		},
	}
}

func testReport(username string, score int, scoredAt time.Time) *Report {
	return &Report{
		Username:   username,
		RepoCount:  3,
		Metrics:    &scoring.Metrics{TotalScore: score, ActivityLevel: scoring.Inactive, LastActivity: scoring.NoActivity},
		Reputation: 0.25,
		ScoredAt:   scoredAt,
	}
}

func TestSaveAndGetReport(t *testing.T) {
	db := setupTestDB(t)
	scoredAt := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	r := testReport("Alice", 61, scoredAt)
	r.Name = "Alice Example"
	r.Verdict = &eval.Verdict{Tier: eval.TierStrong, Summary: "solid"}
	require.NoError(t, SaveReport(db, r))

	got, err := GetReport(db, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "Alice Example", got.Name)
	assert.Equal(t, 3, got.RepoCount)
	assert.Equal(t, 61, got.Metrics.TotalScore)
	assert.Equal(t, scoring.Inactive, got.Metrics.ActivityLevel)
	assert.InDelta(t, 0.25, got.Reputation, 0.0001)
	require.NotNil(t, got.Verdict)
	assert.Equal(t, eval.TierStrong, got.Verdict.Tier)
	assert.True(t, scoredAt.Equal(got.ScoredAt))
	assert.False(t, got.Cached)
}

func TestSaveReport_Upserts(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()

	r := testReport("bob", 10, now)
	r.Verdict = &eval.Verdict{Tier: eval.TierEmerging}
	require.NoError(t, SaveReport(db, r))
	require.NoError(t, SaveReport(db, testReport("bob", 20, now)))

	got, err := GetReport(db, "bob")
	require.NoError(t, err)
	assert.Equal(t, 20, got.Metrics.TotalScore)
	assert.Nil(t, got.Verdict)

	list, err := ListReports(db, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSaveReport_Invalid(t *testing.T) {
	db := setupTestDB(t)
	assert.Error(t, SaveReport(db, nil))
	assert.Error(t, SaveReport(db, &Report{Username: "x"}))
	assert.Error(t, SaveReport(nil, testReport("x", 1, time.Now())))
}

func TestGetReport_Missing(t *testing.T) {
	db := setupTestDB(t)
	r, err := GetReport(db, "nobody")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestGetReport_NilDB(t *testing.T) {
	_, err := GetReport(nil, "x")
	assert.ErrorIs(t, err, errDBNotInitialized)
}

func TestListReports(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()
	require.NoError(t, SaveReport(db, testReport("low", 12, now)))
	require.NoError(t, SaveReport(db, testReport("high", 88, now)))
	require.NoError(t, SaveReport(db, testReport("mid", 50, now)))

	list, err := ListReports(db, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "high", list[0].Username)
	assert.Equal(t, 88, list[0].TotalScore)
	assert.Equal(t, scoring.Inactive, list[0].ActivityLevel)
	assert.Equal(t, "low", list[2].Username)

	list, err = ListReports(db, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = ListReports(nil, 1)
	assert.Error(t, err)
}

func TestListReports_InvalidLevel(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SaveReport(db, testReport("bad", 10, time.Now().UTC())))
	_, err := db.Exec(`UPDATE report SET activity_level = 'Hyperactive' WHERE username = 'bad'`)
	require.NoError(t, err)

	_, err = ListReports(db, 10)
	assert.ErrorContains(t, err, "unknown activity level")
}

func TestDeleteReport(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SaveReport(db, testReport("gone", 1, time.Now())))

	deleted, err := DeleteReport(db, "GONE")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = DeleteReport(db, "gone")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = DeleteReport(nil, "gone")
	assert.Error(t, err)
}

func TestBuildReport(t *testing.T) {
	now := time.Now().UTC()
	c := testCandidate()
	ev := &fakeEvaluator{verdict: &eval.Verdict{Tier: eval.TierCapable}}

	r := BuildReport(context.Background(), c, ev, now)
	assert.Equal(t, "alice", r.Username)
	assert.Equal(t, 2, r.RepoCount)
	assert.Equal(t, scoring.Compute(c.Profile, c.Repos, now), r.Metrics)
	assert.Greater(t, r.Reputation, 0.0)
	require.NotNil(t, r.Verdict)
	assert.Equal(t, eval.TierCapable, r.Verdict.Tier)

	require.NotNil(t, ev.input)
	assert.Equal(t, "Alice", ev.input.Username)
	assert.Same(t, r.Metrics, ev.input.Metrics)
}

func TestBuildReport_EvaluatorError(t *testing.T) {
	ev := &fakeEvaluator{err: errors.New("model unavailable")}
	r := BuildReport(context.Background(), testCandidate(), ev, time.Now())
	assert.NotNil(t, r.Metrics)
	assert.Nil(t, r.Verdict)
}

func TestBuildReport_NoEvaluator(t *testing.T) {
	r := BuildReport(context.Background(), testCandidate(), nil, time.Now())
	assert.Nil(t, r.Verdict)
}

func TestGetOrComputeReport(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	src := &fakeSource{candidate: testCandidate()}

	first, err := GetOrComputeReport(ctx, db, src, nil, " Alice ", ReportOptions{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "alice", first.Username)

	second, err := GetOrComputeReport(ctx, db, src, nil, "alice", ReportOptions{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first.Metrics, second.Metrics)

	third, err := GetOrComputeReport(ctx, db, src, nil, "alice", ReportOptions{Refresh: true})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, src.calls)
}

func TestGetOrComputeReport_Stale(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SaveReport(db, testReport("alice", 5, time.Now().UTC().Add(-48*time.Hour))))

	src := &fakeSource{candidate: testCandidate()}
	r, err := GetOrComputeReport(context.Background(), db, src, nil, "alice", ReportOptions{StaleHours: 24})
	require.NoError(t, err)
	assert.False(t, r.Cached)
	assert.Equal(t, 1, src.calls)
	assert.NotEqual(t, 5, r.Metrics.TotalScore)
}

func TestGetOrComputeReport_Errors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := GetOrComputeReport(ctx, nil, &fakeSource{}, nil, "a", ReportOptions{})
	assert.ErrorIs(t, err, errDBNotInitialized)

	_, err = GetOrComputeReport(ctx, db, nil, nil, "a", ReportOptions{})
	assert.Error(t, err)

	_, err = GetOrComputeReport(ctx, db, &fakeSource{}, nil, " ", ReportOptions{})
	assert.Error(t, err)

	boom := errors.New("github down")
	_, err = GetOrComputeReport(ctx, db, &fakeSource{err: boom}, nil, "a", ReportOptions{})
	assert.ErrorIs(t, err, boom)

	r, err := GetReport(db, "a")
	require.NoError(t, err)
	assert.Nil(t, r)
}

var _ CandidateSource = (*fakeSource)(nil)
var _ CandidateSource = (*GitHubSource)(nil)
var _ eval.Evaluator = (*fakeEvaluator)(nil)

func countReports(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM report").Scan(&n))
	return n
}

func TestGetOrComputeReport_StoresOnce(t *testing.T) {
	db := setupTestDB(t)
	src := &fakeSource{candidate: testCandidate()}
	for i := 0; i < 3; i++ {
		_, err := GetOrComputeReport(context.Background(), db, src, nil, "alice", ReportOptions{Refresh: true})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, countReports(t, db))
}
