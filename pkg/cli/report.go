package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mchmarny/hireable/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

var (
	limitFlag = &urfave.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of reports to list",
		Value: data.ReportLimitDefault,
	}

	reportCmd = &urfave.Command{
		Name:            "report",
		HideHelpCommand: true,
		Usage:           "Manage stored reports",
		Commands: []*urfave.Command{
			{
				Name:   "list",
				Usage:  "List stored reports, highest score first",
				Flags:  []urfave.Flag{limitFlag},
				Action: cmdReportList,
			},
			{
				Name:   "get",
				Usage:  "Print a stored report without scoring",
				Flags:  []urfave.Flag{userFlag},
				Action: cmdReportGet,
			},
			{
				Name:   "delete",
				Usage:  "Delete the stored report of a user",
				Flags:  []urfave.Flag{userFlag},
				Action: cmdReportDelete,
			},
		},
	}
)

func cmdReportList(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	list, err := data.ListReports(cfg.DB, cmd.Int(limitFlag.Name))
	if err != nil {
		return err
	}

	return encode(cmd.Root().Writer, cfg.Format, list)
}

func cmdReportGet(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	user := cmd.String(userFlag.Name)
	if user == "" {
		return errors.New("--user is required")
	}

	r, err := data.GetReport(cfg.DB, user)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("no stored report for %s", user)
	}

	return encode(cmd.Root().Writer, cfg.Format, r)
}

func cmdReportDelete(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	user := cmd.String(userFlag.Name)
	if user == "" {
		return errors.New("--user is required")
	}

	deleted, err := data.DeleteReport(cfg.DB, user)
	if err != nil {
		return err
	}

	return encode(cmd.Root().Writer, cfg.Format, map[string]any{
		"username": user,
		"deleted":  deleted,
	})
}
