// internal/cli/show_commands.go
package chatbench

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// showCommandsCmd implements 'show commands', which prints the command tree.
var showCommandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List all commands and subcommands",
	Run: func(cmd *cobra.Command, args []string) {
		printCommandTree(cmd.OutOrStdout(), rootCmd)
	},
}

func init() {
	showCmd.AddCommand(showCommandsCmd)
}

// commandInfo holds the path and description of a command for display.
type commandInfo struct {
	path        string
	description string
}

// printCommandTree prints the command tree in a two-column layout.
func printCommandTree(out io.Writer, root *cobra.Command) {
	commandData := collectCommandData(root, "", "")

	maxPathLength := 0
	for _, data := range commandData {
		if len(data.path) > maxPathLength {
			maxPathLength = len(data.path)
		}
	}

	fmt.Fprintln(out, "Commands and Subcommands:")
	for _, data := range commandData {
		fmt.Fprintf(out, "  %s%s%s\n", data.path, strings.Repeat(" ", maxPathLength-len(data.path)+2), data.description)
	}
}

// collectCommandData walks the command tree and returns a flattened slice of
// path/description pairs, indenting each level by two spaces.
func collectCommandData(cmd *cobra.Command, currentPath string, indent string) []commandInfo {
	fullPath := cmd.Name()
	if currentPath != "" {
		fullPath = currentPath + " " + cmd.Name()
	}

	all := []commandInfo{{path: indent + fullPath, description: cmd.Short}}
	for _, sub := range cmd.Commands() {
		if hiddenFromTree(sub) {
			continue
		}
		all = append(all, collectCommandData(sub, fullPath, indent+"  ")...)
	}
	return all
}

// hiddenFromTree reports whether cobra's generated commands should be skipped.
func hiddenFromTree(cmd *cobra.Command) bool {
	return cmd.Name() == "completion" || cmd.Name() == "help"
}
