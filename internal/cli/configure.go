package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configureServerURL string
	configureUsername  string
	configurePassword  string
)

// configureCmd represents the configure command
var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure server URL and admin credentials",
	Long: `Saves the SRelease server URL and admin credentials to the configuration file.
Configuration is stored in ~/.config/srelease/config.yaml by default.

Precedence order for configuration values:
1. Command-line flags (--server-url, --username, --password)
2. Environment variables (SRELEASE_SERVER_URL, SRELEASE_USERNAME, SRELEASE_PASSWORD)
3. Configuration file (~/.config/srelease/config.yaml)
4. Default values

This command updates the configuration file directly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := GetLogger()

		urlSet := cmd.Flags().Changed("server-url")
		userSet := cmd.Flags().Changed("username")
		passSet := cmd.Flags().Changed("password")
		if !urlSet && !userSet && !passSet {
			_ = cmd.Usage()
			return fmt.Errorf("at least one of --server-url, --username or --password must be provided")
		}

		configFilePath, err := configPath()
		if err != nil {
			return err
		}
		configDir := filepath.Dir(configFilePath)
		if err := os.MkdirAll(configDir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
		}

		if urlSet {
			if _, err := NewClient(configureServerURL, "", "", log); err != nil {
				return err
			}
			viper.Set("server_url", configureServerURL)
			log.Info("Setting server_url in config", zap.String("value", configureServerURL))
		}
		if userSet {
			viper.Set("username", configureUsername)
			log.Info("Setting username in config", zap.String("value", configureUsername))
		}
		if passSet {
			viper.Set("password", configurePassword)
			log.Info("Setting password in config") // Don't log the password itself
		}

		// The file may hold the admin password.
		viper.SetConfigPermissions(0o600)
		log.Debug("Writing configuration", zap.String("path", configFilePath))
		if err := viper.WriteConfigAs(configFilePath); err != nil {
			return fmt.Errorf("failed to write config file %s: %w", configFilePath, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration successfully saved to %s\n", configFilePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)

	configureCmd.Flags().StringVar(&configureServerURL, "server-url", "", "Server URL to save")
	configureCmd.Flags().StringVar(&configureUsername, "username", "", "Admin username to save")
	configureCmd.Flags().StringVar(&configurePassword, "password", "", "Admin password to save")
}
