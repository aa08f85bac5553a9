// internal/cli/models.go
package chatbench

import (
	"github.com/spf13/cobra"
)

// modelsCmd implements 'models', which prints the models the API accepts.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the supported models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := buildRunner(cmd, 0)
		if err != nil {
			return err
		}
		runner.PrintModels()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
