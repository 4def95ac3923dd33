package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Logger is built in PersistentPreRunE; commands constructed on their
	// own (as in tests) log nothing.
	Logger *zap.Logger

	cfg *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ConfigKeys are the flags that may also come from the config file or a
// REMAPCHECK_* environment variable. Flags set on the command line win.
var ConfigKeys = []string{"tolerance", "index-origin", "src-var", "dest-var", "db", "parallel"}

// NewRootCommand creates the root command for the remapcheck CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "remapcheck",
		Short: "remapcheck - conservative regridding verifier",
		Long: `Verify that a sparse remapping weight matrix conserves the global integral
of a field between two grids.

The relative error |sum(W·src) - sum(dest)| / |sum(dest)| is computed over
valid destination cells and compared with a tolerance (default 1e-9).

Configuration keys (tolerance, index-origin, src-var, dest-var, db, parallel)
can be set by flag, by REMAPCHECK_<KEY> environment variable, or in the file
given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.ConfigFile != "" {
				cfg := opts.config()
				cfg.SetConfigFile(opts.ConfigFile)
				if err := cfg.ReadInConfig(); err != nil {
					return WrapExitError(ExitCommandError, "failed to read config file", err)
				}
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize logger", err)
			}
			opts.Logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, json or toml)")

	// Add subcommands
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSynthCommand(opts))

	return cmd
}

// newLogger builds a production zap logger on stderr. Verbose runs log at
// debug; otherwise only warnings and errors are shown.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// logger returns the command logger, or a no-op logger.
func (o *RootOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// config returns the shared viper instance, creating it on first use.
func (o *RootOptions) config() *viper.Viper {
	if o.cfg == nil {
		o.cfg = viper.New()
		o.cfg.SetEnvPrefix("REMAPCHECK")
		o.cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		o.cfg.AutomaticEnv()
	}
	return o.cfg
}

// settings binds the running command's config-backed flags and returns the
// viper instance to read them from. Binding happens per invocation since
// several commands share a key such as "db".
func (o *RootOptions) settings(cmd *cobra.Command) (*viper.Viper, error) {
	cfg := o.config()
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || !slices.Contains(ConfigKeys, f.Name) {
			return
		}
		bindErr = cfg.BindPFlag(f.Name, f)
	})
	if bindErr != nil {
		return nil, WrapExitError(ExitCommandError, "failed to bind flags", bindErr)
	}
	return cfg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
