package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/designcheck/pkg/bootstrap"
	"thoreinstein.com/designcheck/pkg/config"
)

var cfgFile string
var verbose bool
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "designcheck",
	Short: "designcheck - compare pull request screenshots against Figma designs",
	Long: `designcheck is a CI bot that links Jira tickets, Figma designs and GitHub
pull requests.

It finds the design links behind the tickets a pull request references, asks
reviewers for implementation screenshots, and has a vision model compare each
screenshot against its design. The result is published as an idempotent PR
comment, a commit status and, optionally, a Jira comment.

Typical workflow usage:
  designcheck detect --pr 42
  designcheck request --pr 42 --links "$DESIGN_LINKS"
  designcheck analyze --pr 42 --comment-id 123456`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cfgFile, verbose = bootstrap.PreParseGlobalFlags(os.Args)

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		_ = initConfig()
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is .designcheck.toml in the repository root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("provider", "", "AI provider (anthropic, gemini, vertex, groq, openai, ollama)")
	rootCmd.PersistentFlags().String("model", "", "AI model, overriding the provider default")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error
	appConfig, err = bootstrap.InitConfig(cfgFile, verbose)
	return err
}

// loadConfig re-reads the configuration so flag overrides bound after
// initialization are applied.
func loadConfig() (*config.Config, error) {
	if appConfig == nil {
		if err := initConfig(); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// resetConfig clears the cached configuration.
// This is primarily used in tests to ensure each test starts with a fresh config.
func resetConfig() {
	appConfig = nil
	bootstrap.Reset()
	viper.Reset()
}

// newLogger returns the text logger every component shares.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
