package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/psops/sentry/internal/logging"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	configPath    string
	logLevelFlags []string // supports multiple --log-level flags
)

var rootCmd = &cobra.Command{
	Use:   "sentry",
	Short: "Sentry - PeopleSoft diagnostic agent",
	Long: `Sentry watches PeopleSoft error tables, matches production errors
against a library of standard operating procedures, and runs an LLM agent
loop to produce root-cause analysis with remediation steps.`,
	Version: Version,
}

func Execute() error {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML config file (default: sentry.yaml if present)")
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use a bare level for the default, or 'package=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level agent.loop=debug --log-level api=warn")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(checkCmd)
}

// HandleError prints error and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// setupLog initializes the logging system with parsed log level flags.
// Priority: CLI flags > LOG_LEVEL_* environment variables > default.
func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags parses CLI flags and environment variables.
//
// CLI format: ["debug"], or ["agent.loop=debug", "api=warn"].
// Env vars: LOG_LEVEL_AGENT_LOOP=debug (package name uppercased, dots to
// underscores).
func parseLogLevelFlags(flags []string) (string, map[string]string, error) {
	result := make(map[string]string)

	for _, envPair := range os.Environ() {
		if !strings.HasPrefix(envPair, "LOG_LEVEL_") {
			continue
		}
		parts := strings.SplitN(envPair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimPrefix(parts[0], "LOG_LEVEL_")
		result[strings.ToLower(strings.ReplaceAll(name, "_", "."))] = parts[1]
	}

	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			result["default"] = flag
			continue
		}
		parts := strings.SplitN(flag, "=", 2)
		result[parts[0]] = parts[1]
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := validateLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, result, nil
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error", "fatal":
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
}
