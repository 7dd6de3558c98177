package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Suhaibinator/SRelease/internal/sanitize"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultServerURL = "http://localhost:3000"

var (
	cfgFile   string // Path to config file (passed via flag)
	serverURL string
	username  string
	password  string
	logLevel  string
	logger    *zap.Logger

	text = sanitize.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "srelease-cli",
	Short: "CLI client for the SRelease release notes server",
	Long: `srelease-cli is a command-line tool to browse release notes and to publish,
replace and delete releases on an SRelease server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger(logLevel)
		return initConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/srelease/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "Server URL (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Admin username (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Admin password (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set logging level (debug, info, warn, error)")
}

// defaultConfigPath is ~/.config/srelease/config.yaml.
func defaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "srelease", "config.yaml"), nil
}

// configPath returns the --config flag or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return defaultConfigPath()
}

// initConfig binds flags, environment variables and the config file.
// Precedence: flag > env > config file > default.
func initConfig(cmd *cobra.Command) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("SRELEASE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // e.g. SRELEASE_SERVER_URL
	viper.SetDefault("server_url", defaultServerURL)

	// configure has its own flags of the same names; they must not be bound.
	if cmd.Name() != "configure" {
		flags := cmd.Root().PersistentFlags()
		for key, flag := range map[string]string{"server_url": "server-url", "username": "username", "password": "password"} {
			if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		GetLogger().Debug("No config file", zap.String("path", path))
		return nil
	}
	GetLogger().Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
	return nil
}

// newClient builds a server client from the effective configuration.
func newClient() (*Client, error) {
	url := viper.GetString("server_url")
	if url == "" {
		return nil, fmt.Errorf("server URL is not configured, use --server-url, SRELEASE_SERVER_URL or 'srelease-cli configure'")
	}
	return NewClient(url, viper.GetString("username"), viper.GetString("password"), GetLogger())
}

// initLogger initializes the Zap logger based on the desired level.
func initLogger(level string) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:    zap.NewAtomicLevelAt(zapLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	var err error
	logger, err = config.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

// GetLogger returns the initialized logger instance.
func GetLogger() *zap.Logger {
	if logger == nil {
		initLogger("info")
	}
	return logger
}
