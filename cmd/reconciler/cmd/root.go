package cmd

import (
	"fmt"
	"os"
	"strings"

	"card-reconciliation/cmd/reconciler/config"
	"card-reconciliation/pkg/errors"
	"card-reconciliation/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Card ledger and settlement statement reconciliation tool",
	Long: `Reconciler compares card ledger exports with settlement provider statements,
card by card. Incoming transfers are matched by authorization code and
outgoing transfers by date, amount and counterparty account.

Examples:
  reconciler reconcile --cutoff-date 2026-01-31 --input-dir ./exports
  reconciler reconcile --cutoff-date 31/01/2026 178-D17-31-01-2026.csv statement-d17-178-01.csv
  reconciler reconcile --cutoff-date 2026-01-31 -d ./exports -f xlsx -o report.xlsx
  reconciler version`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reconciler %s (commit %s, built %s)\n", version, commit, date)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")

	// Bind flags to viper
	viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			err = errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
				WithSuggestion("Check the config file path and syntax")
			os.Exit(NewCLIErrorHandler().HandleError(err))
		}
	}

	// RECONCILER_CUTOFF_DATE maps to cutoff-date
	viper.SetEnvPrefix("RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := setupLogging(); err != nil {
		os.Exit(NewCLIErrorHandler().HandleError(err))
	}

	if cfgFile != "" {
		logger.WithComponent("cli").WithField("file", viper.ConfigFileUsed()).Debug("Using config file")
	}
}

func setupLogging() error {
	logConfig, err := config.LoggerConfig(viper.GetBool(config.KeyVerbose), viper.GetString(config.KeyLogFormat))
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "logging", logConfig, err)
	}
	logger.SetGlobalLogger(log)
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
