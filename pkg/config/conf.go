package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"
	AppName  = "hireable"

	dirMode  = 0700
	fileMode = 0600

	defaultProvider       = "openai"
	defaultMaxRepos       = 300
	defaultReadmeSample   = 3
	defaultReadmeMaxChars = 2000
	defaultStaleHours     = 24
	defaultPort           = 8080

	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvGeminiKey     = "GEMINI_API_KEY"
	EnvProvider      = "HIREABLE_EVAL_PROVIDER"
	EnvModel         = "HIREABLE_EVAL_MODEL"
	EnvClientID      = "HIREABLE_GITHUB_CLIENT_ID"
)

// Config is the persisted application configuration. Secrets never come
// from the file, only from the environment.
type Config struct {
	DB         string    `yaml:"db,omitempty"`
	StaleHours int       `yaml:"staleHours"`
	Fetch      Fetch     `yaml:"fetch"`
	Evaluator  Evaluator `yaml:"evaluator"`
	Server     Server    `yaml:"server"`

	// GitHubClientID selects the OAuth app used by the device flow.
	GitHubClientID string `yaml:"githubClientID,omitempty"`

	GitHubToken string `yaml:"-"`
}

type Fetch struct {
	MaxRepos       int `yaml:"maxRepos"`
	ReadmeSample   int `yaml:"readmeSample"`
	ReadmeMaxChars int `yaml:"readmeMaxChars"`
}

type Evaluator struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"baseURL,omitempty"`

	OpenAIKey string `yaml:"-"`
	GeminiKey string `yaml:"-"`
}

type Server struct {
	Port int `yaml:"port"`
}

// APIKey returns the key for the configured provider.
func (e Evaluator) APIKey() string {
	switch strings.ToLower(e.Provider) {
	case "gemini":
		return e.GeminiKey
	case "openai":
		return e.OpenAIKey
	default:
		return ""
	}
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		StaleHours: defaultStaleHours,
		Fetch: Fetch{
			MaxRepos:       defaultMaxRepos,
			ReadmeSample:   defaultReadmeSample,
			ReadmeMaxChars: defaultReadmeMaxChars,
		},
		Evaluator: Evaluator{
			Provider: defaultProvider,
		},
		Server: Server{
			Port: defaultPort,
		},
	}
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if err := os.MkdirAll(dirPath, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
	}

	path := filepath.Join(dirPath, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Load(path)
}

// Load reads the config file at path. Unset values fall back to defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	c.fillDefaults()

	return c, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.StaleHours <= 0 {
		c.StaleHours = d.StaleHours
	}
	if c.Fetch.MaxRepos <= 0 {
		c.Fetch.MaxRepos = d.Fetch.MaxRepos
	}
	if c.Fetch.ReadmeSample < 0 {
		c.Fetch.ReadmeSample = 0
	}
	if c.Fetch.ReadmeMaxChars <= 0 {
		c.Fetch.ReadmeMaxChars = d.Fetch.ReadmeMaxChars
	}
	if c.Evaluator.Provider == "" {
		c.Evaluator.Provider = d.Evaluator.Provider
	}
	if c.Server.Port <= 0 {
		c.Server.Port = d.Server.Port
	}
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored, existing variables are never overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading env file %s: %w", f, err)
		}
		slog.Debug("loaded env file", "path", f)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv() {
	c.GitHubToken = os.Getenv(EnvGitHubToken)
	c.Evaluator.OpenAIKey = os.Getenv(EnvOpenAIKey)
	c.Evaluator.GeminiKey = os.Getenv(EnvGeminiKey)

	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		c.Evaluator.BaseURL = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		c.Evaluator.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Evaluator.Model = v
	}
	if v := os.Getenv(EnvClientID); v != "" {
		c.GitHubClientID = v
	}
}

// GetOrCreateHomeDir returns the application directory under the user home.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
