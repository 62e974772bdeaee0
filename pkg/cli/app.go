package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/hireable/pkg/auth"
	"github.com/mchmarny/hireable/pkg/config"
	"github.com/mchmarny/hireable/pkg/data"
	"github.com/mchmarny/hireable/pkg/eval"
	"github.com/mchmarny/hireable/pkg/logging"
	"github.com/mchmarny/hireable/pkg/net"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &urfave.BoolFlag{
		Name:    "debug",
		Usage:   "Prints verbose logs",
		Sources: urfave.EnvVars("HIREABLE_DEBUG"),
	}

	dbFlag = &urfave.StringFlag{
		Name:    "db",
		Usage:   "SQLite file path or postgres:// DSN (default: ~/.hireable/data.db)",
		Sources: urfave.EnvVars("HIREABLE_DB"),
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	configDirFlag = &urfave.StringFlag{
		Name:    "config",
		Usage:   "Directory holding config.yaml and the token fallback (default: ~/.hireable)",
		Sources: urfave.EnvVars("HIREABLE_CONFIG"),
	}
)

type appConfigKey struct{}

// appConfig is the per run state shared by all commands.
type appConfig struct {
	Dir    string
	DSN    string
	Format string
	Conf   *config.Config
	DB     *sql.DB
}

func getConfig(ctx context.Context) (*appConfig, error) {
	cfg, ok := ctx.Value(appConfigKey{}).(*appConfig)
	if !ok || cfg == nil {
		return nil, errors.New("app config not initialized")
	}
	return cfg, nil
}

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	if err := config.LoadEnv(); err != nil {
		slog.Warn("env file not loaded", "error", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  "hireable",
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:                 "Score GitHub developers for hireability",
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Flags: []urfave.Flag{
			debugFlag,
			dbFlag,
			formatFlag,
			configDirFlag,
		},
		Commands: []*urfave.Command{
			authCmd,
			scoreCmd,
			reportCmd,
			searchCmd,
			resetCmd,
			serverCmd,
		},
		Before: initApp,
		After: func(ctx context.Context, _ *urfave.Command) error {
			if cfg, err := getConfig(ctx); err == nil && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func initApp(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
	if cmd.Bool(debugFlag.Name) {
		logging.SetDefaultCLILogger("debug")
	}

	format := strings.ToLower(cmd.String(formatFlag.Name))
	switch format {
	case formatJSON:
	case formatYAML, "yml":
		format = formatYAML
	default:
		return ctx, fmt.Errorf("unsupported output format: %s", format)
	}

	dir := cmd.String(configDirFlag.Name)
	if dir == "" {
		d, _, err := config.GetOrCreateHomeDir(config.AppName)
		if err != nil {
			return ctx, fmt.Errorf("resolving config dir: %w", err)
		}
		dir = d
	}

	conf, err := config.ReadOrCreate(dir)
	if err != nil {
		return ctx, fmt.Errorf("reading config: %w", err)
	}
	conf.ApplyEnv()

	dsn := cmd.String(dbFlag.Name)
	if dsn == "" {
		dsn = conf.DB
	}
	if dsn == "" {
		dsn = filepath.Join(dir, data.DataFileName)
	}

	if err := data.Init(dsn); err != nil {
		return ctx, fmt.Errorf("initializing database: %w", err)
	}

	db, err := data.GetDB(dsn)
	if err != nil {
		return ctx, fmt.Errorf("opening database: %w", err)
	}

	slog.Debug("app initialized", "dir", dir, "format", format)

	return context.WithValue(ctx, appConfigKey{}, &appConfig{
		Dir:    dir,
		DSN:    dsn,
		Format: format,
		Conf:   conf,
		DB:     db,
	}), nil
}

func (c *appConfig) source(ctx context.Context) data.CandidateSource {
	return c.githubSource(ctx)
}

// githubSource authenticates with GITHUB_TOKEN or the stored token. Without
// either the public, heavily rate limited API is used.
func (c *appConfig) githubSource(ctx context.Context) *data.GitHubSource {
	token := c.Conf.GitHubToken
	if token == "" {
		t, err := auth.NewTokenStore(c.Dir).Load()
		if err != nil {
			slog.Warn("no GitHub token, using unauthenticated API", "reason", err)
		}
		token = t
	}

	return data.NewGitHubSource(net.GetOAuthClient(ctx, token), data.FetchOptions{
		MaxRepos:       c.Conf.Fetch.MaxRepos,
		ReadmeSample:   c.Conf.Fetch.ReadmeSample,
		ReadmeMaxChars: c.Conf.Fetch.ReadmeMaxChars,
	})
}

// evaluator returns nil unless enabled.
func (c *appConfig) evaluator(ctx context.Context, enabled bool) (eval.Evaluator, error) {
	if !enabled {
		return nil, nil
	}
	e := c.Conf.Evaluator
	ev, err := eval.New(ctx, eval.Options{
		Provider: e.Provider,
		Model:    e.Model,
		APIKey:   e.APIKey(),
		BaseURL:  e.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s evaluator: %w", e.Provider, err)
	}
	return ev, nil
}

func (c *appConfig) reportOptions(refresh bool) data.ReportOptions {
	return data.ReportOptions{
		StaleHours: c.Conf.StaleHours,
		Refresh:    refresh,
	}
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		if err := e.Encode(v); err != nil {
			return err
		}
		return e.Close()
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
