// Package cli provides the command-line interface for dht.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dht-tools/dht/internal/config"
	"github.com/dht-tools/dht/internal/guardian"
	"github.com/dht-tools/dht/internal/toolchain"
	"github.com/dht-tools/dht/internal/ui"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile    string
	verbose    bool
	outputJSON bool
	noColor    bool
	logLevel   string
	ciMode     bool

	// Global config
	cfg *config.Config

	// Logger
	logger *log.Logger

	// logFile holds the log file handle for cleanup
	logFile *os.File

	// Styles
	styles = ui.DefaultStyles()
)

// SetVersionInfo sets the version information from main.
func SetVersionInfo(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dht",
	Short: "Development environment toolkit with resource-guarded execution",
	Long: `dht inspects, configures, and reproduces development environments.

Every external command dht launches runs under a process guardian that
enforces wall-clock, memory, and CPU ceilings across the whole process
tree, so a runaway build or install can never take the machine down
with it.

Key features:
  • Guarded execution with graceful-then-forceful termination
  • Project type detection (uv, poetry, setuptools, node, docker)
  • Parallel tool probing with semver parsing
  • Environment snapshots and drift diffing
  • Plugin providers for extra tool definitions

Get started with 'dht init' to write a default .dhtconfig.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context for graceful shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Initialize logger with default settings.
	// Format and level are configured in initConfig based on flags.
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})

	// Assigned here rather than in the rootCmd literal: initConfig reads
	// the command's flags, and a reference back to rootCmd from its own
	// initializer would be an initialization cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version commands
		if cmd.Name() == "init" || cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig(cmd)
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: .dhtconfig.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&ciMode, "ci", false, "CI mode: JSON output, non-interactive, no color")

	// Bind flags to viper
	viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig() error {
	loader := config.NewLoader()

	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	}

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// applyGlobalFlags applies global CLI flags to the configuration. The
// flag set comes from the command being run so this never has to reach
// back to the package-level rootCmd.
func applyGlobalFlags(cmd *cobra.Command) {
	if verbose {
		cfg.Output.Verbose = true
	}

	if logLevel != "" && cmd.Flags().Changed("log-level") {
		cfg.Output.LogLevel = logLevel
	}

	if noColor {
		cfg.Output.Color = false
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// applyCIModeFlag applies the --ci flag settings.
func applyCIModeFlag() {
	if !ciMode {
		return
	}

	outputJSON = true // Force JSON output for machine parsing
	noColor = true
	cfg.Output.Color = false
	lipgloss.SetColorProfile(termenv.Ascii)
}

// configureLoggerFormat configures the logger format based on settings.
func configureLoggerFormat() {
	if outputJSON || cfg.Output.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
		logger.SetReportTimestamp(true)
	} else if !cfg.Output.Color || noColor {
		logger.SetFormatter(log.TextFormatter)
	}
}

// configureLogLevel sets the logger level based on configuration.
func configureLogLevel() {
	switch cfg.Output.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if cfg.Output.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// configureLogFile sets up log file output if specified.
func configureLogFile() error {
	if cfg.Output.LogFile == "" {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(cfg.Output.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(logFile)
	return nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cmd *cobra.Command) error {
	if err := loadAndValidateConfig(); err != nil {
		return err
	}

	applyGlobalFlags(cmd)
	applyCIModeFlag()

	configureLoggerFormat()
	configureLogLevel()

	return configureLogFile()
}

// Cleanup closes any open resources. Should be called before program exit.
func Cleanup() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// newGuardian builds a guardian from the loaded configuration.
func newGuardian() *guardian.Guardian {
	return guardian.New(logger, guardian.WithGraceWindow(cfg.Guardian.Grace()))
}

// newRegistry builds the tool registry: builtins layered with the tool
// definitions declared in the config file.
func newRegistry() (*toolchain.Registry, error) {
	registry := toolchain.NewRegistry()
	for _, tc := range cfg.Tools {
		spec, err := tc.Spec(registry)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(spec); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// newRunner builds a toolchain runner over a fresh guardian and registry.
func newRunner() (*toolchain.Runner, error) {
	registry, err := newRegistry()
	if err != nil {
		return nil, err
	}
	return newRunnerWith(registry), nil
}

// newRunnerWith builds a runner over an already-assembled registry.
func newRunnerWith(registry *toolchain.Registry) *toolchain.Runner {
	return toolchain.NewRunner(registry, newGuardian(), cfg.PolicySet(), logger)
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dht %s\n", versionInfo.Version)
		if verbose {
			fmt.Printf("  commit: %s\n", versionInfo.Commit)
			fmt.Printf("  built:  %s\n", versionInfo.Date)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
