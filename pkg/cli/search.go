package cli

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/mchmarny/hireable/pkg/data"
	urfave "github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const searchScoreConcurrency = 2

var (
	queryFlag = &urfave.StringFlag{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   `GitHub user search query (e.g. "language:go location:lisbon")`,
	}

	searchLimitFlag = &urfave.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of users to return",
		Value: data.SearchLimitDefault,
	}

	withScoreFlag = &urfave.BoolFlag{
		Name:  "score",
		Usage: "Score every match and sort by total score",
	}

	searchCmd = &urfave.Command{
		Name:            "search",
		HideHelpCommand: true,
		Usage:           "Find candidates with a GitHub user search",
		Flags: []urfave.Flag{
			queryFlag,
			searchLimitFlag,
			withScoreFlag,
		},
		Action: cmdSearch,
	}
)

// candidateSearcher finds and retrieves candidates.
type candidateSearcher interface {
	data.CandidateSource
	SearchCandidates(ctx context.Context, query string, limit int) ([]*data.CandidateListItem, error)
}

type searchResult struct {
	data.CandidateListItem `yaml:",inline"`
	TotalScore *int   `json:"total_score,omitempty" yaml:"totalScore,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

func cmdSearch(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	query := cmd.String(queryFlag.Name)
	if query == "" {
		return errors.New("--query is required")
	}

	results, err := searchCandidates(ctx, cfg, cfg.githubSource(ctx), query,
		cmd.Int(searchLimitFlag.Name), cmd.Bool(withScoreFlag.Name))
	if err != nil {
		return err
	}

	return encode(cmd.Root().Writer, cfg.Format, results)
}

func searchCandidates(ctx context.Context, cfg *appConfig, src candidateSearcher, query string, limit int, score bool) ([]*searchResult, error) {
	list, err := src.SearchCandidates(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*searchResult, 0, len(list))
	for _, item := range list {
		if item != nil {
			results = append(results, &searchResult{CandidateListItem: *item})
		}
	}

	if score {
		scoreResults(ctx, cfg, src, results)
	}

	return results, nil
}

// scoreResults scores each hit, recording per user failures in the result.
func scoreResults(ctx context.Context, cfg *appConfig, src data.CandidateSource, results []*searchResult) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchScoreConcurrency)

	for _, res := range results {
		g.Go(func() error {
			r, err := data.GetOrComputeReport(gctx, cfg.DB, src, nil, res.Username, cfg.reportOptions(false))
			if err != nil {
				slog.Warn("scoring failed", "username", res.Username, "error", err)
				res.Error = err.Error()
				return nil
			}
			score := r.Metrics.TotalScore
			res.TotalScore = &score
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return scoreOf(results[i]) > scoreOf(results[j])
	})
}

func scoreOf(r *searchResult) int {
	if r.TotalScore == nil {
		return -1
	}
	return *r.TotalScore
}
