package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags to the config keys they override.
var flagKeys = map[string]string{
	"provider":     "ai.provider",
	"model":        "ai.model",
	"mock":         "figma.mock",
	"artifact-dir": "analysis.artifact_dir",
	"annotate":     "analysis.annotate",
	"concurrency":  "analysis.concurrency",
}

// bindFlags binds every known flag in fs to its config key. Flags left unset
// fall through to the environment, config files and defaults.
func bindFlags(fs *pflag.FlagSet) error {
	var errs error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := viper.BindPFlag(key, f); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "failed to bind --%s", f.Name))
		}
	})
	return errs
}
