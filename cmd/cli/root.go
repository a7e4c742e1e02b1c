// Package cli provides the command-line interface for kibanahunt.
// It implements the Cobra command tree for scanning ranges, previewing
// range plans, managing configuration files and printing version details.
package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/kibanahunt/internal/config"
	"github.com/anstrom/kibanahunt/internal/errors"
	"github.com/anstrom/kibanahunt/internal/logging"
)

// Process exit codes.
const (
	exitOK          = 0
	exitConfig      = 1
	exitInterrupted = 130
)

const envPrefix = "KIBANAHUNT"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string

	// configErr records a config file named with --config that could not be read.
	configErr error
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// errInterrupted is returned by commands cut short by a signal.
var errInterrupted = stderrors.New("scan interrupted")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kibanahunt",
	Short: "Find exposed Kibana and Elasticsearch services",
	Long: `kibanahunt sweeps IPv4 and IPv6 ranges for hosts answering on the
Kibana and Elasticsearch ports, confirms each open port with an HTTP request
and reports the services whose response carries a known signature.`,
	Version:       getVersion(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if !stderrors.Is(err, errInterrupted) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case stderrors.Is(err, errInterrupted):
		return exitInterrupted
	default:
		return exitConfig
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./kibanahunt.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.Default().Logging.Level,
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.Default().Logging.Format,
		"log format (text, json)")
}

// rootFlagKeys maps persistent flags to configuration keys.
var rootFlagKeys = map[string]string{
	"verbose":    "verbose",
	"log-level":  "logging.level",
	"log-format": "logging.format",
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configErr = nil

	// Bind flags to viper
	if err := bindFlags(rootCmd.PersistentFlags(), rootFlagKeys); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in the current directory, then the user config dir
		viper.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(dir + "/kibanahunt")
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("kibanahunt")
	}

	// Read in environment variables that match, e.g. KIBANAHUNT_SCAN_WORKERS
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setConfigDefaults()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		configErr = errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file "+cfgFile, err)
	}

	// Initialize structured logging after config is loaded
	initLogging()
}

// setConfigDefaults registers every configuration key so that environment
// variables and config files can override each of them.
func setConfigDefaults() {
	d := config.Default()

	// Scan parameters
	viper.SetDefault("scan.ranges", d.Scan.Ranges)
	viper.SetDefault("scan.ports", d.Scan.Ports)
	viper.SetDefault("scan.workers", d.Scan.Workers)
	viper.SetDefault("scan.queue_size", d.Scan.QueueSize)
	viper.SetDefault("scan.signatures", d.Scan.Signatures)
	viper.SetDefault("scan.tcp_timeout", d.Scan.TCPTimeout)
	viper.SetDefault("scan.http_timeout", d.Scan.HTTPTimeout)
	viper.SetDefault("scan.max_body_bytes", d.Scan.MaxBodyBytes)
	viper.SetDefault("scan.user_agent", d.Scan.UserAgent)
	viper.SetDefault("scan.resolve_names", d.Scan.ResolveNames)
	viper.SetDefault("scan.dns_server", d.Scan.DNSServer)

	// Logging configuration
	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)
	viper.SetDefault("logging.output", d.Logging.Output)
	viper.SetDefault("logging.add_source", d.Logging.AddSource)

	// Metrics endpoint
	viper.SetDefault("metrics.enabled", d.Metrics.Enabled)
	viper.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)

	// Report rendering
	viper.SetDefault("output.format", d.Output.Format)
	viper.SetDefault("output.color", d.Output.Color)
	viper.SetDefault("output.progress", d.Output.Progress)
}

// decodeConfig merges defaults, the config file, environment and bound flags
// without validating the result.
func decodeConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	cfg := config.Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to decode configuration", err)
	}
	return cfg, nil
}

// loadConfig returns the effective, validated configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := decodeConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	cfg, err := decodeConfig()
	if err != nil {
		// If config decoding fails, use default logging
		logging.SetDefault(logging.NewDefault())
		return
	}

	logConfig := cfg.LoggerConfig()
	if verbose {
		logConfig.Level = logging.LevelDebug
	}
	if logConfig.Level == logging.LevelDebug {
		logConfig.AddSource = true
	}

	logger, err := logging.New(logConfig)
	if err != nil {
		// Fall back to default if creation fails
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	logging.SetDefault(logger)

	if verbose {
		logging.Debug("Structured logging initialized", "level", logConfig.Level, "format", logConfig.Format)
	}
}
