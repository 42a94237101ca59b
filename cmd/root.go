// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-wd/internal/config"
	"github.com/xkilldash9x/scalpel-wd/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// rootFlags holds the persistent flags that override configuration values.
type rootFlags struct {
	cfgFile  string
	host     string
	port     int
	logLevel string
	trace    bool
}

// NewRootCommand builds the scalpel-wd command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "scalpel-wd",
		Short:         "scalpel-wd drives browsers over the JSON wire protocol.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)
			config.BindEnv(v)

			if err := initializeConfig(v, flags.cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "scalpel-wd"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			if err := applyFlagOverrides(cmd, cfg, flags); err != nil {
				return err
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting scalpel-wd", zap.String("version", Version))

			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.cfgFile, "config", "c", "", "config file (default is ./scalpel-wd.yaml)")
	pf.StringVar(&flags.host, "host", "", "WebDriver server host")
	pf.IntVar(&flags.port, "port", 0, "WebDriver server port")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.trace, "trace", false, "log every session and element call")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newKeysCmd())
	return cmd
}

// Execute runs the root command with ctx and logs a failure.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
		return err
	}
	return nil
}

// initializeConfig reads the config file into v. A missing default file is
// not an error; a missing explicit file is.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(config.FileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg config.Interface, flags *rootFlags) error {
	pf := cmd.Flags()
	if pf.Changed("host") {
		cfg.SetServerHost(flags.host)
	}
	if pf.Changed("port") {
		cfg.SetServerPort(flags.port)
	}
	if pf.Changed("log-level") {
		cfg.SetLoggerLevel(flags.logLevel)
	}
	if pf.Changed("trace") {
		cfg.SetTraceLogMethodCalls(flags.trace)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// configFromContext returns the configuration stored by PersistentPreRunE.
func configFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

func withConfig(ctx context.Context, cfg config.Interface) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}
