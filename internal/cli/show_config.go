// internal/cli/show_config.go
package chatbench

import (
	"errors"

	"github.com/mwiater/chatbench/internal/appconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// showConfigCmd implements the 'show config' command, which displays the merged configuration.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the config file, .env and environment are loaded properly and overridden by flags accordingly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return errors.New("configuration not loaded")
		}
		return appconfig.ShowConfig(cmd.OutOrStdout(), viper.ConfigFileUsed(), *cfg)
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
}
