package cmd

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"thoreinstein.com/designcheck/pkg/config"
)

var configValidateMode string

// configCmd groups configuration inspection commands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		return writeConfig(cmd.OutOrStdout(), cfg)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the credentials a mode needs are configured",
	Long: `Check that every credential the given mode needs is configured, without
making any network calls.

Examples:
  designcheck config validate --mode analyze`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		mode := config.Mode(configValidateMode)
		if err := cfg.ValidateFor(mode); err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), "Configuration is complete for %s", mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configValidateCmd.Flags().StringVar(&configValidateMode, "mode", string(config.ModeAnalyze), "mode to validate (detect, request, analyze)")
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	data, err := toml.Marshal(cfg.Redacted())
	if err != nil {
		return errors.Wrap(err, "failed to encode configuration")
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "failed to write configuration")
}
