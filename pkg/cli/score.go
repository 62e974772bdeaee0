package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mchmarny/hireable/pkg/data"
	"github.com/mchmarny/hireable/pkg/eval"
	urfave "github.com/urfave/cli/v3"
)

var (
	userFlag = &urfave.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "GitHub username",
	}

	refreshFlag = &urfave.BoolFlag{
		Name:  "refresh",
		Usage: "Ignore the stored report and score again",
	}

	aiFlag = &urfave.BoolFlag{
		Name:  "ai",
		Usage: "Add a model generated verdict using the configured evaluator",
	}

	inputFlag = &urfave.StringFlag{
		Name:  "input",
		Usage: "Score a candidate JSON file instead of GitHub (- for stdin)",
	}

	scoreCmd = &urfave.Command{
		Name:            "score",
		HideHelpCommand: true,
		Usage:           "Score a developer",
		UsageText: `hireable score --user octocat
   hireable score --user octocat --refresh --ai
   hireable score --input candidate.json`,
		Flags: []urfave.Flag{
			userFlag,
			refreshFlag,
			aiFlag,
			inputFlag,
		},
		Action: cmdScore,
	}
)

func cmdScore(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	ev, err := cfg.evaluator(ctx, cmd.Bool(aiFlag.Name))
	if err != nil {
		return err
	}

	var r *data.Report
	if in := cmd.String(inputFlag.Name); in != "" {
		r, err = scoreFile(ctx, cmd.Root().Reader, in, ev)
	} else {
		user := cmd.String(userFlag.Name)
		if user == "" {
			return errors.New("either --user or --input is required")
		}
		r, err = data.GetOrComputeReport(ctx, cfg.DB, cfg.source(ctx), ev, user, cfg.reportOptions(cmd.Bool(refreshFlag.Name)))
	}
	if err != nil {
		return err
	}

	return encode(cmd.Root().Writer, cfg.Format, r)
}

// scoreFile scores an offline candidate without storing the result.
func scoreFile(ctx context.Context, stdin io.Reader, path string, ev eval.Evaluator) (*data.Report, error) {
	var src io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening candidate file: %w", err)
		}
		defer f.Close()
		src = f
	}

	c, err := data.ParseCandidate(src)
	if err != nil {
		return nil, err
	}

	return data.BuildReport(ctx, c, ev, time.Now().UTC()), nil
}
