// Package cmd holds the workbench command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rflorenc/rainmaker-workbench/internal/config"
	"github.com/rflorenc/rainmaker-workbench/internal/logging"
)

var (
	cfgFile string
	flagCfg config.Config
	cfg     *config.Config
	logger  = zap.NewNop()
)

// Version info, set via SetVersion.
var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Read-only diagnostics for an ESP RainMaker account",
	Long: `workbench logs in to the ESP RainMaker cloud with the credentials in
RAINMAKER_USERNAME and RAINMAKER_PASSWORD, lists the account's nodes and
samples the parameter keys of the first node. Only GET requests are made
after login, and credentials are never printed.

Running 'workbench' without a subcommand runs 'workbench check'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runCheck,
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

// SetVersion records build information for the version command.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagCfg.LogLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagCfg.LogFormat, "log-format", "",
		"log format (auto, console, json)")
	rootCmd.PersistentFlags().StringVar(&flagCfg.EnvFile, "env-file", "",
		"dotenv file to load credentials from (default .env)")
	rootCmd.PersistentFlags().DurationVar(&flagCfg.RequestTimeout, "timeout", 0,
		"per-request timeout (default 30s)")
}

// setup loads configuration, the dotenv file and the logger before any
// command runs.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile, flagCfg)
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	zap.ReplaceGlobals(logger)

	if err := config.LoadEnv(cfg.EnvFile); err != nil {
		logger.Warn("failed to load env file, using process environment", zap.String("path", cfg.EnvFile), zap.Error(err))
	}
	return nil
}

func versionString() string {
	return fmt.Sprintf("workbench %s (commit: %s, built: %s)", appVersion, appCommit, appDate)
}
