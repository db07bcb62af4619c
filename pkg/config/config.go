package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github" toml:"github"`
	Jira     JiraConfig     `mapstructure:"jira" toml:"jira"`
	Figma    FigmaConfig    `mapstructure:"figma" toml:"figma"`
	AI       AIConfig       `mapstructure:"ai" toml:"ai"`
	Analysis AnalysisConfig `mapstructure:"analysis" toml:"analysis"`
}

// GitHubConfig holds GitHub integration configuration
type GitHubConfig struct {
	Token      string `mapstructure:"token" toml:"token"`           // GITHUB_TOKEN env var takes precedence
	Repository string `mapstructure:"repository" toml:"repository"` // "owner/repo", GITHUB_REPOSITORY takes precedence
	APIURL     string `mapstructure:"api_url" toml:"api_url"`       // Empty for github.com; GHES base URL otherwise
}

// JiraConfig holds Jira integration configuration
type JiraConfig struct {
	Enabled bool     `mapstructure:"enabled" toml:"enabled"`
	BaseURL string   `mapstructure:"base_url" toml:"base_url"` // e.g., "https://your-domain.atlassian.net"
	Email   string   `mapstructure:"email" toml:"email"`       // User email for Basic Auth
	Token   string   `mapstructure:"token" toml:"token"`       // JIRA_API_TOKEN env var takes precedence
	Hosts   []string `mapstructure:"hosts" toml:"hosts"`       // Ticket hosts recognized in PR descriptions; empty accepts any
	Comment bool     `mapstructure:"comment" toml:"comment"`   // Echo the analysis to the ticket
}

// FigmaConfig holds design provider configuration
type FigmaConfig struct {
	Token     string        `mapstructure:"token" toml:"token"` // FIGMA_ACCESS_TOKEN env var takes precedence
	BaseURL   string        `mapstructure:"base_url" toml:"base_url"`
	Hosts     []string      `mapstructure:"hosts" toml:"hosts"` // Hosts whose links count as design links
	CacheDir  string        `mapstructure:"cache_dir" toml:"cache_dir"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" toml:"cache_ttl"`
	MaxFrames int           `mapstructure:"max_frames" toml:"max_frames"` // Frames rendered for a link without node-id
	Scale     float64       `mapstructure:"scale" toml:"scale"`
	Mock      bool          `mapstructure:"mock" toml:"mock"` // Substitute placeholder images
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Provider  string        `mapstructure:"provider" toml:"provider"` // "anthropic", "gemini", "vertex", "groq", "openai", "ollama"
	Model     string        `mapstructure:"model" toml:"model"`       // Empty means use per-provider default
	APIKey    string        `mapstructure:"api_key" toml:"api_key"`   // Provider env var takes precedence
	Endpoint  string        `mapstructure:"endpoint" toml:"endpoint"` // Custom endpoint URL
	Timeout   time.Duration `mapstructure:"timeout" toml:"timeout"`   // Per-call bound
	MaxTokens int           `mapstructure:"max_tokens" toml:"max_tokens"`

	// Vertex AI
	Project         string `mapstructure:"project" toml:"project"`
	Location        string `mapstructure:"location" toml:"location"`
	CredentialsFile string `mapstructure:"credentials_file" toml:"credentials_file"` // GOOGLE_APPLICATION_CREDENTIALS takes precedence

	// Per-provider default models (used when Model is empty)
	AnthropicModel string `mapstructure:"anthropic_model" toml:"anthropic_model"`
	GeminiModel    string `mapstructure:"gemini_model" toml:"gemini_model"`
	VertexModel    string `mapstructure:"vertex_model" toml:"vertex_model"`
	GroqModel      string `mapstructure:"groq_model" toml:"groq_model"`
	OpenAIModel    string `mapstructure:"openai_model" toml:"openai_model"`
	OllamaModel    string `mapstructure:"ollama_model" toml:"ollama_model"`
	OllamaEndpoint string `mapstructure:"ollama_endpoint" toml:"ollama_endpoint"`
}

// AnalysisConfig holds comparison pipeline configuration
type AnalysisConfig struct {
	Concurrency   int    `mapstructure:"concurrency" toml:"concurrency"`
	Annotate      bool   `mapstructure:"annotate" toml:"annotate"`
	ArtifactDir   string `mapstructure:"artifact_dir" toml:"artifact_dir"`
	TriggerPhrase string `mapstructure:"trigger_phrase" toml:"trigger_phrase"`
	StatusContext string `mapstructure:"status_context" toml:"status_context"`
}

// Mode names one externally triggered operation.
type Mode string

const (
	ModeDetect  Mode = "detect"
	ModeRequest Mode = "request"
	ModeAnalyze Mode = "analyze"
)

// ValidProviders is the list of supported AI providers.
var ValidProviders = []string{"anthropic", "gemini", "vertex", "groq", "openai", "ollama"}

// providerKeyEnv maps providers to the environment variable holding their key.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"groq":      "GROQ_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// SecurityWarning represents a configuration security issue
type SecurityWarning struct {
	Field   string
	Message string
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	config := &Config{}

	setDefaults()

	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	applyWellKnownEnv(config)

	if err := expandPaths(config); err != nil {
		return nil, errors.Wrap(err, "failed to expand paths")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// applyWellKnownEnv overlays the environment variables set by GitHub Actions
// and the provider SDK conventions. They take precedence over file values.
func applyWellKnownEnv(c *Config) {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_REPOSITORY"); v != "" {
		c.GitHub.Repository = v
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" && c.GitHub.APIURL == "" && v != "https://api.github.com" {
		c.GitHub.APIURL = v
	}
	if v := os.Getenv("JIRA_API_TOKEN"); v != "" {
		c.Jira.Token = v
	}
	if v := os.Getenv("FIGMA_ACCESS_TOKEN"); v != "" {
		c.Figma.Token = v
	}
	if env, ok := providerKeyEnv[c.AI.Provider]; ok {
		if v := os.Getenv(env); v != "" {
			c.AI.APIKey = v
		}
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.AI.CredentialsFile = v
	}
}

// CheckSecurityWarnings returns warnings for insecure configuration practices.
func CheckSecurityWarnings(config *Config) []SecurityWarning {
	var warnings []SecurityWarning

	if viper.InConfig("github.token") && config.GitHub.Token != "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "github.token",
			Message: "GitHub token is set in a config file. Pass GITHUB_TOKEN from the workflow instead.",
		})
	}

	if viper.InConfig("jira.token") && config.Jira.Token != "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "jira.token",
			Message: "Jira token is set in a config file. Use the JIRA_API_TOKEN secret instead.",
		})
	}

	if viper.InConfig("figma.token") && config.Figma.Token != "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "figma.token",
			Message: "Figma token is set in a config file. Use the FIGMA_ACCESS_TOKEN secret instead.",
		})
	}

	if viper.InConfig("ai.api_key") && config.AI.APIKey != "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "ai.api_key",
			Message: "AI API key is set in a config file. Use the provider's key secret (e.g. ANTHROPIC_API_KEY) instead.",
		})
	}

	return warnings
}

// ValidateProvider validates that an AI provider is supported.
func ValidateProvider(provider string) error {
	for _, valid := range ValidProviders {
		if provider == valid {
			return nil
		}
	}
	return errors.Newf("invalid AI provider %q: must be one of: %s", provider, strings.Join(ValidProviders, ", "))
}

// Validate validates values independent of the mode being run.
func (c *Config) Validate() error {
	if err := ValidateProvider(c.AI.Provider); err != nil {
		return rigerrors.NewConfigErrorWithCause("ai.provider", "unsupported provider", err)
	}
	if c.Analysis.Concurrency < 1 {
		return rigerrors.NewConfigError("analysis.concurrency", "must be at least 1")
	}
	if c.Figma.MaxFrames < 1 {
		return rigerrors.NewConfigError("figma.max_frames", "must be at least 1")
	}
	if c.AI.Timeout <= 0 {
		return rigerrors.NewConfigError("ai.timeout", "must be positive")
	}
	if c.GitHub.Repository != "" {
		if _, _, err := c.GitHub.OwnerRepo(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFor checks that every credential the given mode needs is present.
// It runs before any network call so a misconfigured job fails fast.
func (c *Config) ValidateFor(mode Mode) error {
	if c.GitHub.Token == "" {
		return rigerrors.NewConfigError("github.token", "GitHub token is required (set GITHUB_TOKEN)")
	}
	if c.GitHub.Repository == "" {
		return rigerrors.NewConfigError("github.repository", "repository is required as owner/repo (set GITHUB_REPOSITORY)")
	}

	switch mode {
	case ModeRequest:
		return nil
	case ModeDetect:
		if err := c.validateJira(); err != nil {
			return err
		}
		return c.validateAI()
	case ModeAnalyze:
		if err := c.validateJira(); err != nil {
			return err
		}
		if err := c.validateAI(); err != nil {
			return err
		}
		if !c.Figma.Mock && c.Figma.Token == "" {
			return rigerrors.NewConfigError("figma.token", "Figma token is required unless figma.mock is set (set FIGMA_ACCESS_TOKEN)")
		}
		return nil
	default:
		return rigerrors.NewConfigError("mode", "unknown mode "+string(mode))
	}
}

func (c *Config) validateJira() error {
	if !c.Jira.Enabled {
		return nil
	}
	if c.Jira.BaseURL == "" {
		return rigerrors.NewConfigError("jira.base_url", "Jira base URL is required")
	}
	if c.Jira.Email == "" {
		return rigerrors.NewConfigError("jira.email", "Jira account email is required")
	}
	if c.Jira.Token == "" {
		return rigerrors.NewConfigError("jira.token", "Jira API token is required (set JIRA_API_TOKEN)")
	}
	return nil
}

func (c *Config) validateAI() error {
	switch c.AI.Provider {
	case "ollama":
		return nil
	case "vertex":
		if c.AI.Project == "" {
			return rigerrors.NewConfigError("ai.project", "Google Cloud project is required for the vertex provider")
		}
		return nil
	default:
		if c.AI.APIKey == "" {
			return rigerrors.NewConfigError("ai.api_key", "API key is required for the "+c.AI.Provider+" provider (set "+providerKeyEnv[c.AI.Provider]+")")
		}
		return nil
	}
}

// OwnerRepo splits Repository into owner and name.
func (g GitHubConfig) OwnerRepo() (string, string, error) {
	parts := strings.Split(g.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", rigerrors.NewConfigError("github.repository", "expected owner/repo, got "+g.Repository)
	}
	return parts[0], parts[1], nil
}

// Redacted returns a copy with every secret masked, for display.
func (c Config) Redacted() Config {
	c.GitHub.Token = redact(c.GitHub.Token)
	c.Jira.Token = redact(c.Jira.Token)
	c.Figma.Token = redact(c.Figma.Token)
	c.AI.APIKey = redact(c.AI.APIKey)
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// setDefaults sets default configuration values
func setDefaults() {
	// GitHub defaults (token and repository usually come from the Actions environment)
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.repository", "")
	viper.SetDefault("github.api_url", "")

	// Jira defaults
	viper.SetDefault("jira.enabled", true)
	viper.SetDefault("jira.base_url", "")
	viper.SetDefault("jira.email", "")
	viper.SetDefault("jira.token", "")
	viper.SetDefault("jira.hosts", []string{})
	viper.SetDefault("jira.comment", true)

	// Figma defaults
	viper.SetDefault("figma.token", "")
	viper.SetDefault("figma.base_url", "https://api.figma.com")
	viper.SetDefault("figma.hosts", []string{"figma.com", "www.figma.com"})
	viper.SetDefault("figma.cache_dir", ".designcheck-cache")
	viper.SetDefault("figma.cache_ttl", 24*time.Hour)
	viper.SetDefault("figma.max_frames", 5)
	viper.SetDefault("figma.scale", 2.0)
	viper.SetDefault("figma.mock", false)

	// AI defaults
	viper.SetDefault("ai.provider", "anthropic")
	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.api_key", "")
	viper.SetDefault("ai.endpoint", "")
	viper.SetDefault("ai.timeout", 120*time.Second)
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.project", "")
	viper.SetDefault("ai.location", "us-central1")
	viper.SetDefault("ai.credentials_file", "")

	// Per-provider AI model defaults (configurable)
	viper.SetDefault("ai.anthropic_model", "claude-sonnet-4-20250514")
	viper.SetDefault("ai.gemini_model", "gemini-2.5-flash")
	viper.SetDefault("ai.vertex_model", "gemini-2.5-pro")
	viper.SetDefault("ai.groq_model", "meta-llama/llama-4-scout-17b-16e-instruct")
	viper.SetDefault("ai.openai_model", "gpt-4o")
	viper.SetDefault("ai.ollama_model", "llama3.2-vision")
	viper.SetDefault("ai.ollama_endpoint", "http://localhost:11434")

	// Analysis defaults
	viper.SetDefault("analysis.concurrency", 3)
	viper.SetDefault("analysis.annotate", true)
	viper.SetDefault("analysis.artifact_dir", "designcheck-artifacts")
	viper.SetDefault("analysis.trigger_phrase", "/design-check")
	viper.SetDefault("analysis.status_context", "designcheck/figma")
}

// expandPaths expands ~ in paths
func expandPaths(config *Config) error {
	var err error

	config.Figma.CacheDir, err = expandPath(config.Figma.CacheDir)
	if err != nil {
		return err
	}

	config.Analysis.ArtifactDir, err = expandPath(config.Analysis.ArtifactDir)
	if err != nil {
		return err
	}

	config.AI.CredentialsFile, err = expandPath(config.AI.CredentialsFile)
	if err != nil {
		return err
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, path[1:]), nil
}
