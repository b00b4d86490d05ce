// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiharness/internal/config"
	"github.com/xkilldash9x/uiharness/internal/observability"
	"github.com/xkilldash9x/uiharness/internal/service"
)

type contextKey string

const configKey contextKey = "config"

// NewRootCommand returns the root command wired to the production browser
// and database.
func NewRootCommand() *cobra.Command {
	return newRootCmd(service.NewComponentFactory(), NewStoreProvider())
}

func newRootCmd(factory service.ComponentFactory, stores storeProvider) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "uiharness",
		Short: "uiharness drives web UIs through fallback locators and resilient clicks.",
		Long: `uiharness resolves logical UI targets through ordered locator strategies,
clicks with a scripted fallback when native input is intercepted, and follows
navigation into new windows until the page has settled.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "uiharness"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting uiharness",
				zap.String("version", Version),
				zap.String("profile", cfg.ActiveProfile().Name),
			)

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.uiharness/config.yaml)")
	rootCmd.PersistentFlags().Bool("constrained", false, "use the constrained timeout profile (also UIHARNESS_CONSTRAINED or CI)")
	rootCmd.PersistentFlags().Bool("headless", true, "run the browser headless")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newProbeCmd(factory))
	rootCmd.AddCommand(newFollowCmd(factory))
	rootCmd.AddCommand(newOutcomesCmd(stores))
	return rootCmd
}

// Execute runs the root command with ctx, which should be signal-aware.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command aborted.")
		} else {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
	}
	observability.Sync()
	return err
}

// initializeConfig points v at the config file and environment, and binds
// the global flags. A missing config file is not an error.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".uiharness"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("UIHARNESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"constrained": "timeouts.constrained",
		"headless":    "browser.headless",
	}
	for flag, key := range bindings {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in command context")
	}
	return cfg, nil
}
