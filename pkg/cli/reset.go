package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/hireable/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

var (
	yesFlag = &urfave.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}

	resetCmd = &urfave.Command{
		Name:            "reset",
		Usage:           "Delete all stored reports and start fresh",
		HideHelpCommand: true,
		Flags:           []urfave.Flag{yesFlag},
		Action:          cmdReset,
	}
)

func cmdReset(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	out := cmd.Root().Writer

	if !cmd.Bool(yesFlag.Name) {
		fmt.Fprintf(out, "This will permanently delete all reports in %s\n", cfg.DSN)
		fmt.Fprint(out, "Are you sure? [y/N]: ")

		answer, err := bufio.NewReader(cmd.Root().Reader).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if cfg.DB != nil {
		cfg.DB.Close()
		cfg.DB = nil
	}

	if err := data.Reset(cfg.DSN); err != nil {
		return fmt.Errorf("resetting database: %w", err)
	}
	slog.Info("database reset", "dsn", redactDSN(cfg.DSN))

	db, err := data.GetDB(cfg.DSN)
	if err != nil {
		return fmt.Errorf("reopening database: %w", err)
	}
	cfg.DB = db

	fmt.Fprintln(out, "Reset complete.")
	return nil
}

// redactDSN hides the password of a URL style DSN.
func redactDSN(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":***@" + host
}
