package commands

import (
	"fmt"
	"os"

	"github.com/finreveal/site/internal/build"
	"github.com/finreveal/site/internal/config"
	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/delivery"
	"github.com/finreveal/site/internal/web"
	"github.com/spf13/cobra"
)

var (
	// configPath is the YAML config file. Empty runs on defaults and the
	// environment.
	configPath string

	// logLevel overrides log.level from the config.
	logLevel string

	// logDir overrides log.dir from the config.
	logDir string
)

// Loaded by the root pre-run for every sub-command.
var (
	appCfg     *config.Config
	rootLogger *build.RootLogger
)

// quietAnnotation marks interactive commands whose console log level
// defaults to warn, so records do not interleave with the prompts.
const quietAnnotation = "quiet"

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "finreveal",
	Short: "FinReveal marketing site and contact form",
	Long: `finreveal serves the FinReveal marketing site and its contact form.

The same contact form can be filled in from the terminal with the contact
command, and submissions can be checked offline with validate.`,
	SilenceUsage:       true,
	PersistentPreRunE:  loadConfig,
	PersistentPostRunE: closeLogger,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"Path to the YAML config file",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error, critical, off",
	)
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "",
		"Directory for the rotating log file (empty disables it)",
	)

	// Add subcommands.
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(contactCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config, applies the global flags and wires the
// package loggers.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	switch {
	case logLevel != "":
		cfg.Log.Level = logLevel

	case cmd.Annotations[quietAnnotation] == "true":
		cfg.Log.Level = "warn"
	}
	if logDir != "" {
		cfg.Log.Dir = logDir
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.LogConfig()
	logCfg.Console = os.Stderr

	root, err := build.NewRootLogger(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	setupLoggers(root)

	appCfg = cfg
	rootLogger = root

	return nil
}

// setupLoggers hands every package its sub-system logger.
func setupLoggers(root *build.RootLogger) {
	contact.UseLogger(root.SubLogger(contact.Subsystem))
	delivery.UseLogger(root.SubLogger(delivery.Subsystem))
	web.UseLogger(root.SubLogger(web.Subsystem))
}

func closeLogger(*cobra.Command, []string) error {
	if rootLogger == nil {
		return nil
	}

	return rootLogger.Close()
}
