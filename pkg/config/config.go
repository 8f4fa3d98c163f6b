package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/internal/output"
	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/joho/godotenv"
)

// Output formats
const (
	FormatCSV    = output.FormatCSV
	FormatXLSX   = output.FormatXLSX
	FormatSQLite = output.FormatSQLite
)

// MaxPerPage is the largest page size GitHub accepts
const MaxPerPage = 100

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9](?:-?[A-Za-z0-9])*$`)

type Config struct {
	Target TargetConfig
	GitHub GitHubConfig
	Crawl  CrawlConfig
	Output OutputConfig
	Status StatusConfig
	Log    LogConfig
}

type TargetConfig struct {
	User string
	Org  string
}

type GitHubConfig struct {
	BaseURL        string
	Token          string
	TokenSet       bool
	TokenFile      string
	Tokens         []string
	PerPage        int
	MaxRetries     int
	RetryBackoff   time.Duration
	RequestTimeout time.Duration
	RateLimit      float64
	NoWait         bool
}

type CrawlConfig struct {
	Workers     int
	SkipNoreply bool
}

type OutputConfig struct {
	Format string
	Path   string
}

type StatusConfig struct {
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from .env file and environment variables.
// Tokens are never read from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return &Config{
		GitHub: GitHubConfig{
			BaseURL:        getEnv("GITHUB_API_URL", "https://api.github.com/"),
			PerPage:        getEnvAsInt("GITEMAILS_PER_PAGE", MaxPerPage),
			MaxRetries:     getEnvAsInt("GITEMAILS_MAX_RETRIES", 3),
			RetryBackoff:   getEnvAsDuration("GITEMAILS_RETRY_BACKOFF", time.Second),
			RequestTimeout: getEnvAsDuration("GITEMAILS_REQUEST_TIMEOUT", 30*time.Second),
			RateLimit:      getEnvAsFloat("GITEMAILS_RATE_LIMIT", 0),
			NoWait:         getEnvAsBool("GITEMAILS_NO_WAIT", false),
		},
		Crawl: CrawlConfig{
			Workers:     getEnvAsInt("GITEMAILS_WORKERS", 1),
			SkipNoreply: getEnvAsBool("GITEMAILS_SKIP_NOREPLY", false),
		},
		Output: OutputConfig{
			Format: getEnv("GITEMAILS_FORMAT", FormatCSV),
		},
		Status: StatusConfig{
			Addr: getEnv("GITEMAILS_STATUS_ADDR", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

// Validate checks the configuration before any network call is made
func (c *Config) Validate() error {
	user := strings.TrimSpace(c.Target.User)
	org := strings.TrimSpace(c.Target.Org)
	switch {
	case user == "" && org == "":
		return &models.ValidationError{Field: "target", Message: "one of --user or --org is required"}
	case user != "" && org != "":
		return &models.ValidationError{Field: "target", Message: "--user and --org are mutually exclusive"}
	}

	name := user + org
	if len(name) > 39 || !loginPattern.MatchString(name) {
		return &models.ValidationError{Field: "target", Message: fmt.Sprintf("%q is not a valid GitHub login", name)}
	}

	if c.GitHub.Token != "" && c.GitHub.TokenFile != "" {
		return &models.ValidationError{Field: "token", Message: "--token and --token-file are mutually exclusive"}
	}
	if c.GitHub.TokenSet || c.GitHub.Token != "" {
		token := strings.TrimSpace(c.GitHub.Token)
		switch {
		case token == "":
			return &models.ValidationError{Field: "token", Message: "must not be blank"}
		case strings.ContainsAny(token, " \t\r\n"):
			return &models.ValidationError{Field: "token", Message: "must not contain whitespace"}
		}
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > MaxPerPage {
		return &models.ValidationError{Field: "per-page", Message: fmt.Sprintf("must be between 1 and %d", MaxPerPage)}
	}
	if c.GitHub.MaxRetries < 0 {
		return &models.ValidationError{Field: "max-retries", Message: "must not be negative"}
	}
	if c.GitHub.RateLimit < 0 {
		return &models.ValidationError{Field: "rate-limit", Message: "must not be negative"}
	}
	if c.Crawl.Workers < 1 {
		return &models.ValidationError{Field: "workers", Message: "must be at least 1"}
	}

	switch c.Output.Format {
	case FormatCSV, FormatXLSX, FormatSQLite:
	default:
		return &models.ValidationError{Field: "format", Message: fmt.Sprintf("unknown output format %q", c.Output.Format)}
	}
	return nil
}

// ResolveTokens fills GitHub.Tokens from --token or --token-file
func (c *Config) ResolveTokens() error {
	switch {
	case c.GitHub.TokenFile != "":
		values, err := tokens.LoadFile(c.GitHub.TokenFile)
		if err != nil {
			return err
		}
		c.GitHub.Tokens = values
	case c.GitHub.Token != "":
		c.GitHub.Tokens = []string{strings.TrimSpace(c.GitHub.Token)}
	default:
		c.GitHub.Tokens = nil
	}
	return nil
}

// CrawlTarget returns the validated target
func (c *Config) CrawlTarget() models.Target {
	if org := strings.TrimSpace(c.Target.Org); org != "" {
		return models.Target{Name: org, Kind: models.OwnerKindOrg}
	}
	return models.Target{Name: strings.TrimSpace(c.Target.User), Kind: models.OwnerKindUser}
}

// OutputPath returns the configured output path or github-data-<target>.<ext>
func (c *Config) OutputPath() string {
	if c.Output.Path != "" {
		return c.Output.Path
	}
	return DefaultOutputPath(c.CrawlTarget().Name, c.Output.Format)
}

// DefaultOutputPath builds the default file name for a target and format
func DefaultOutputPath(target, format string) string {
	ext := format
	if format == FormatSQLite {
		ext = "db"
	}
	return filepath.Clean(fmt.Sprintf("github-data-%s.%s", target, ext))
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
