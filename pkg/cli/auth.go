package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mchmarny/hireable/pkg/auth"
	urfave "github.com/urfave/cli/v3"
)

var (
	logoutFlag = &urfave.BoolFlag{
		Name:  "logout",
		Usage: "Remove the stored token instead of creating one",
	}

	authCmd = &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Authenticate to GitHub to obtain an access token",
		Flags:           []urfave.Flag{logoutFlag},
		Action:          cmdAuth,
	}
)

func cmdAuth(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	store := auth.NewTokenStore(cfg.Dir)
	out := cmd.Root().Writer

	if cmd.Bool(logoutFlag.Name) {
		if err := store.Delete(); err != nil {
			return fmt.Errorf("deleting token: %w", err)
		}
		fmt.Fprintln(out, "Token removed")
		return nil
	}

	flow := auth.NewDeviceFlow(cfg.Conf.GitHubClientID)
	code, err := flow.GetDeviceCode(ctx)
	if err != nil {
		return fmt.Errorf("getting device code: %w", err)
	}

	fmt.Fprintf(out, "1). Copy this code: %s\n", code.UserCode)
	fmt.Fprintf(out, "2). Navigate to this URL in your browser to authenticate: %s\n", code.VerificationURL)
	fmt.Fprint(out, "3). Hit enter once authorized:\n>")

	if _, err := bufio.NewReader(cmd.Root().Reader).ReadString('\n'); err != nil {
		return fmt.Errorf("reading user input: %w", err)
	}

	token, err := flow.PollToken(ctx, code)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	if err := store.Save(token.AccessToken); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintln(out, "Token saved")
	return nil
}
