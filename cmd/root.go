package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dt-pm-tools/jira-sync/internal/config"
	"github.com/dt-pm-tools/jira-sync/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	appConfig config.Config
	logger    = logging.NewNop()
	version   = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "jira-sync",
	Short: "Keep a folder of markdown work items in sync with JIRA",
	Long: `Watches a directory of markdown documents (epics, user stories, tasks) and
creates or updates the matching JIRA issues. Every created issue's browse URL is
written back into the document as a "JIRA:" line, which links the two from then on.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.jira-sync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console, json or auto")
}

// loadSettings reads dotenv, config file and environment without requiring
// credentials. Commands that stay offline call this.
func loadSettings() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	envFile, tried, envErr := config.LoadEnvFile(cwd)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	appConfig = cfg

	l, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(logger)

	envLog := logging.NewComponentLogger(logger, "config")
	switch {
	case envErr != nil:
		envLog.Warn("failed to load env file", logging.Error(envErr))
	case envFile != "":
		envLog.Debug("loaded env file", slog.String(logging.FieldFile, envFile))
	default:
		envLog.Debug("no env file found", "tried", strings.Join(tried, ", "))
	}
	return nil
}

// loadConfig loads and validates configuration. Commands that need JIRA access call this.
func loadConfig() error {
	if err := loadSettings(); err != nil {
		return err
	}
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'jira-sync config' or set the JIRA_* environment variables", err)
	}
	return nil
}

// syncRoot resolves the directory holding the markdown documents. An
// explicit override wins over config and .jira discovery.
func syncRoot(override string) string {
	if override != "" {
		return absPath(override)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return absPath(appConfig.ResolveDir(cwd))
}

// absPath keeps journal entries keyed by one spelling of each file.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
