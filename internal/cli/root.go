// internal/cli/root.go
package chatbench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwiater/chatbench/internal/appconfig"
	"github.com/mwiater/chatbench/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "chatbench",
	Short:        "chatbench: latency and throughput benchmarks for the Sudo chat-completion API",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appconfig.LoadDotEnv()
		if err := ensureConfigLoaded(); err != nil {
			return err
		}

		cfg, err := appconfig.FromViper(viper.GetViper())
		if err != nil {
			return err
		}
		if cfgFile != "" {
			cfg.ConfigPath = cfgFile
		}
		currentConfig = &cfg

		if err := logging.Init(currentConfig.LogFilePath()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.SetDebug(currentConfig.Debug)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it under a context
// that is cancelled on SIGINT or SIGTERM. This is called by main.main().
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./chatbench.{json,yaml} or ./config/chatbench.{json,yaml})")

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")
	rootCmd.PersistentFlags().Int("timeout", 0, "per-request timeout in seconds (0 = default)")
	rootCmd.PersistentFlags().Float64("rateLimit", 0, "maximum requests per second across all workers (0 = unlimited)")
	rootCmd.PersistentFlags().String("metricsAddr", "", "serve Prometheus metrics on this address (e.g., :9090)")

	bindViper()
}

// bindViper registers defaults, environment bindings and persistent flags on the
// global viper instance so that flags > environment > config file > defaults.
func bindViper() {
	appconfig.BindDefaults(viper.GetViper())
	for _, name := range []string{"debug", "logFile", "timeout", "rateLimit", "metricsAddr"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig points viper at the explicit config file or the default search paths.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}
	viper.SetConfigName("chatbench")
	viper.AddConfigPath(".")
	viper.AddConfigPath("config")
}

// ensureConfigLoaded reads the config file. A missing default file is not an error;
// a missing file named with --config is.
func ensureConfigLoaded() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// GetConfig returns the loaded application configuration for other packages.
func GetConfig() *appconfig.Config {
	return currentConfig
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
