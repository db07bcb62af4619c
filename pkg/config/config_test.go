package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

func loadClean(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func clearWellKnownEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GITHUB_TOKEN", "GITHUB_REPOSITORY", "GITHUB_API_URL", "JIRA_API_TOKEN", "FIGMA_ACCESS_TOKEN",
		"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearWellKnownEnv(t)
	cfg := loadClean(t)

	if cfg.AI.Provider != "anthropic" {
		t.Errorf("AI.Provider = %q, want anthropic", cfg.AI.Provider)
	}
	if cfg.AI.Timeout != 120*time.Second {
		t.Errorf("AI.Timeout = %v, want 120s", cfg.AI.Timeout)
	}
	if cfg.Figma.MaxFrames != 5 {
		t.Errorf("Figma.MaxFrames = %d, want 5", cfg.Figma.MaxFrames)
	}
	if cfg.Figma.CacheTTL != 24*time.Hour {
		t.Errorf("Figma.CacheTTL = %v, want 24h", cfg.Figma.CacheTTL)
	}
	if cfg.Analysis.StatusContext != "designcheck/figma" {
		t.Errorf("Analysis.StatusContext = %q", cfg.Analysis.StatusContext)
	}
	if cfg.Analysis.TriggerPhrase != "/design-check" {
		t.Errorf("Analysis.TriggerPhrase = %q", cfg.Analysis.TriggerPhrase)
	}
}

func TestLoad_WellKnownEnvTakesPrecedence(t *testing.T) {
	clearWellKnownEnv(t)
	t.Setenv("GITHUB_TOKEN", "gh-env")
	t.Setenv("GITHUB_REPOSITORY", "acme/web")
	t.Setenv("FIGMA_ACCESS_TOKEN", "figma-env")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("github.token", "gh-file")
	viper.Set("ai.api_key", "sk-file")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GitHub.Token != "gh-env" {
		t.Errorf("GitHub.Token = %q, want env value", cfg.GitHub.Token)
	}
	if cfg.GitHub.Repository != "acme/web" {
		t.Errorf("GitHub.Repository = %q", cfg.GitHub.Repository)
	}
	if cfg.Figma.Token != "figma-env" {
		t.Errorf("Figma.Token = %q", cfg.Figma.Token)
	}
	if cfg.AI.APIKey != "sk-env" {
		t.Errorf("AI.APIKey = %q, want env value", cfg.AI.APIKey)
	}
}

func TestLoad_InvalidProvider(t *testing.T) {
	clearWellKnownEnv(t)
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("ai.provider", "clippy")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should reject an unknown provider")
	}
	if !rigerrors.IsConfigError(err) {
		t.Errorf("error should be a ConfigError, got %T", err)
	}
}

func validConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{Token: "gh", Repository: "acme/web"},
		Jira:   JiraConfig{Enabled: true, BaseURL: "https://acme.atlassian.net", Email: "bot@acme.test", Token: "jt"},
		Figma:  FigmaConfig{Token: "ft", MaxFrames: 5},
		AI:     AIConfig{Provider: "anthropic", APIKey: "sk", Timeout: time.Minute},
		Analysis: AnalysisConfig{
			Concurrency: 2,
		},
	}
}

func TestValidateFor(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		mode      Mode
		wantField string
	}{
		{"detect complete", func(*Config) {}, ModeDetect, ""},
		{"analyze complete", func(*Config) {}, ModeAnalyze, ""},
		{"request needs only github", func(c *Config) { c.Jira = JiraConfig{}; c.AI.APIKey = ""; c.Figma.Token = "" }, ModeRequest, ""},
		{"missing github token", func(c *Config) { c.GitHub.Token = "" }, ModeRequest, "github.token"},
		{"missing repository", func(c *Config) { c.GitHub.Repository = "" }, ModeDetect, "github.repository"},
		{"detect missing jira token", func(c *Config) { c.Jira.Token = "" }, ModeDetect, "jira.token"},
		{"jira disabled needs no credentials", func(c *Config) { c.Jira = JiraConfig{} }, ModeDetect, ""},
		{"detect missing ai key", func(c *Config) { c.AI.APIKey = "" }, ModeDetect, "ai.api_key"},
		{"detect ollama needs no key", func(c *Config) { c.AI.Provider = "ollama"; c.AI.APIKey = "" }, ModeDetect, ""},
		{"vertex needs project", func(c *Config) { c.AI.Provider = "vertex"; c.AI.APIKey = "" }, ModeDetect, "ai.project"},
		{"analyze missing figma token", func(c *Config) { c.Figma.Token = "" }, ModeAnalyze, "figma.token"},
		{"analyze mock needs no figma token", func(c *Config) { c.Figma.Token = ""; c.Figma.Mock = true }, ModeAnalyze, ""},
		{"unknown mode", func(*Config) {}, Mode("deploy"), "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateFor(tt.mode)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateFor() error = %v, want nil", err)
				}
				return
			}

			var cfgErr *rigerrors.ConfigError
			if !rigerrors.As(err, &cfgErr) {
				t.Fatalf("ValidateFor() error = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestOwnerRepo(t *testing.T) {
	owner, repo, err := GitHubConfig{Repository: "acme/web"}.OwnerRepo()
	if err != nil || owner != "acme" || repo != "web" {
		t.Errorf("OwnerRepo() = (%q, %q, %v)", owner, repo, err)
	}

	for _, bad := range []string{"acme", "acme/", "/web", "a/b/c"} {
		if _, _, err := (GitHubConfig{Repository: bad}).OwnerRepo(); err == nil {
			t.Errorf("OwnerRepo(%q) should fail", bad)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	r := cfg.Redacted()

	if r.GitHub.Token == "gh" || r.Jira.Token == "jt" || r.Figma.Token == "ft" || r.AI.APIKey == "sk" {
		t.Errorf("Redacted() leaked a secret: %+v", r)
	}
	if cfg.GitHub.Token != "gh" {
		t.Error("Redacted() must not modify the receiver")
	}
	if r.GitHub.Repository != "acme/web" {
		t.Error("Redacted() should keep non-secret values")
	}

	empty := Config{}.Redacted()
	if empty.GitHub.Token != "" {
		t.Error("empty secrets should stay empty")
	}
}
