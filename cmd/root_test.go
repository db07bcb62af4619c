package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// isolateConfig points config discovery at an empty directory and clears the
// environment variables config loading reads.
func isolateConfig(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("GITHUB_WORKSPACE", tmpDir)
	for _, env := range []string{"GITHUB_TOKEN", "GITHUB_REPOSITORY", "GITHUB_API_URL", "JIRA_API_TOKEN", "FIGMA_ACCESS_TOKEN", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}
	t.Setenv("GO_TEST", "true")

	resetConfig()
	t.Cleanup(resetConfig)

	oldCfgFile := cfgFile
	cfgFile = ""
	t.Cleanup(func() { cfgFile = oldCfgFile })

	return tmpDir
}

func TestRootCommandStructure(t *testing.T) {
	// Not parallel - accesses global rootCmd
	cmd := rootCmd

	if cmd.Use != "designcheck" {
		t.Errorf("root command Use = %q, want %q", cmd.Use, "designcheck")
	}
	if cmd.Short == "" {
		t.Error("root command should have Short description")
	}

	for _, keyword := range []string{"Jira", "Figma", "pull"} {
		if !strings.Contains(cmd.Long, keyword) {
			t.Errorf("root command Long description should mention %q", keyword)
		}
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	cmd := rootCmd

	configFlag := cmd.PersistentFlags().Lookup("config")
	if configFlag == nil {
		t.Fatal("root command should have --config persistent flag")
	}
	if configFlag.Shorthand != "C" {
		t.Errorf("--config shorthand should be 'C', got %q", configFlag.Shorthand)
	}
	if !strings.Contains(configFlag.Usage, ".designcheck.toml") {
		t.Error("--config usage should mention the repository config file")
	}

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	if verboseFlag == nil {
		t.Fatal("root command should have --verbose persistent flag")
	}
	if verboseFlag.DefValue != "false" {
		t.Errorf("--verbose default should be 'false', got %q", verboseFlag.DefValue)
	}
	if verboseFlag.Shorthand != "v" {
		t.Errorf("--verbose shorthand should be 'v', got %q", verboseFlag.Shorthand)
	}

	if cmd.PersistentFlags().Lookup("provider") == nil {
		t.Error("root command should have --provider persistent flag")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	registered := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		registered[strings.Split(sub.Use, " ")[0]] = true
	}

	for _, expected := range []string{"detect", "request", "analyze", "config", "version"} {
		if !registered[expected] {
			t.Errorf("root command should have %q subcommand registered", expected)
		}
	}
}

func TestModeCommandsTakePRFlag(t *testing.T) {
	for _, cmd := range []*cobra.Command{detectCmd, requestCmd, analyzeCmd} {
		if cmd.Flags().Lookup("pr") == nil {
			t.Errorf("%s should have --pr flag", cmd.Name())
		}
	}
	if analyzeCmd.Flags().Lookup("comment-id") == nil {
		t.Error("analyze should have --comment-id flag")
	}
	if requestCmd.Flags().Lookup("links") == nil {
		t.Error("request should have --links flag")
	}
}

func TestInitConfig_WithCustomConfigFile(t *testing.T) {
	// Don't run in parallel - modifies global viper state
	tmpDir := isolateConfig(t)

	configContent := `[ai]
provider = "gemini"

[analysis]
concurrency = 7

[jira]
enabled = false
`
	customConfigPath := filepath.Join(tmpDir, "custom-config.toml")
	if err := os.WriteFile(customConfigPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write custom config: %v", err)
	}
	cfgFile = customConfigPath

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}

	if appConfig.AI.Provider != "gemini" {
		t.Errorf("ai.provider = %q, want %q", appConfig.AI.Provider, "gemini")
	}
	if appConfig.Analysis.Concurrency != 7 {
		t.Errorf("analysis.concurrency = %d, want 7", appConfig.Analysis.Concurrency)
	}
	if appConfig.Jira.Enabled {
		t.Error("jira.enabled should be false")
	}
}

func TestInitConfig_RepositoryConfig(t *testing.T) {
	tmpDir := isolateConfig(t)

	configContent := `[figma]
mock = true
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".designcheck.toml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write repository config: %v", err)
	}

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	if !appConfig.Figma.Mock {
		t.Error("figma.mock should be read from the repository config")
	}
}

func TestInitConfig_MissingConfigFile(t *testing.T) {
	tmpDir := isolateConfig(t)
	cfgFile = filepath.Join(tmpDir, "missing.toml")

	if err := initConfig(); err == nil {
		t.Error("initConfig() should fail for an explicit config file that does not exist")
	}
}

func TestLoadConfig_FlagOverridesDefault(t *testing.T) {
	isolateConfig(t)

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("provider", "", "")
	fs.Bool("mock", false, "")
	fs.Int("pr", 0, "")
	if err := fs.Parse([]string{"--provider=ollama", "--mock", "--pr=3"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := bindFlags(fs); err != nil {
		t.Fatalf("bindFlags() error = %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.AI.Provider != "ollama" {
		t.Errorf("ai.provider = %q, want %q", cfg.AI.Provider, "ollama")
	}
	if !cfg.Figma.Mock {
		t.Error("figma.mock should be set by --mock")
	}
}

func TestLoadConfig_UnsetFlagKeepsDefault(t *testing.T) {
	isolateConfig(t)

	if err := initConfig(); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("concurrency", 0, "")
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := bindFlags(fs); err != nil {
		t.Fatalf("bindFlags() error = %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Analysis.Concurrency != 3 {
		t.Errorf("analysis.concurrency = %d, want default 3", cfg.Analysis.Concurrency)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(buf.String(), "designcheck "+Version) {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestRootCommand_ExecuteWithUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer

	testCmd := *rootCmd
	testCmd.SetArgs([]string{"unknown-subcommand-xyz"})
	testCmd.SetOut(&bytes.Buffer{})
	testCmd.SetErr(&stderr)

	if err := testCmd.Execute(); err == nil {
		t.Error("Execute with unknown subcommand should return error")
	}
}
