// Package cmd wires the lungcheck command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/lungcheck/cmd/diagnose"
	"github.com/tphakala/lungcheck/cmd/history"
	"github.com/tphakala/lungcheck/cmd/serve"
	"github.com/tphakala/lungcheck/internal/buildinfo"
	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/logger"
	"github.com/tphakala/lungcheck/internal/telemetry"
)

// RootCommand creates the root command. settings is populated from defaults, the
// config file, environment and flags before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "lungcheck",
		Short:         "Pneumonia screening for chest X-ray images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	serveCmd := serve.Command(settings)
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Current())
		},
	}
	rootCmd.AddCommand(serveCmd, diagnose.Command(settings), history.Command(settings), versionCmd)

	// serve without a subcommand
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for the version command
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(settings, configFile)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		telemetry.Flush(telemetry.DefaultFlushTimeout)
		if err := logger.Global().Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to flush logs: %v\n", err)
		}
	}

	return rootCmd
}

// initialize loads settings and sets up logging and telemetry for every subcommand.
func initialize(settings *conf.Settings, configFile string) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	central, err := logger.NewCentralLogger(settings.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)

	if err := telemetry.Init(settings, nil); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if settings.ConfigFile != "" {
		conf.GetLogger().Info("configuration loaded", logger.String("file", settings.ConfigFile))
	}
	return nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to config file (default: ./config.yaml, ~/.config/lungcheck, /etc/lungcheck)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
