// internal/cli/throughput.go
package chatbench

import (
	"time"

	"github.com/mwiater/chatbench/internal/benchmark"
	"github.com/spf13/cobra"
)

// throughputCmd implements 'throughput', which measures sustained request and token rates.
var throughputCmd = &cobra.Command{
	Use:   "throughput",
	Short: "Measure request and token throughput for each model",
	Long: `The 'throughput' command runs --concurrency workers per model. With --duration > 0 each worker
loops non-streaming requests until the duration elapses; with --duration 0 each worker sends a single
streaming request.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		modelCSV, _ := cmd.Flags().GetString("model")
		seconds, _ := cmd.Flags().GetInt("duration")

		bc := throughputConfig(seconds, concurrency, parseModels(modelCSV))
		if err := bc.Validate(); err != nil {
			return err
		}
		dumpConfig(cmd, bc)

		runner, err := buildRunner(cmd, 0)
		if err != nil {
			return err
		}
		_, err = runner.RunThroughput(cmd.Context(), bc)
		return err
	},
}

// throughputConfig selects the looping mode for a positive duration and the
// single-shot streaming mode otherwise.
func throughputConfig(seconds, concurrency int, models []string) benchmark.BenchmarkConfig {
	if seconds > 0 {
		return benchmark.ThroughputConfig(time.Duration(seconds)*time.Second, concurrency, models)
	}
	return benchmark.StreamingThroughputConfig(concurrency, models)
}

func init() {
	throughputCmd.Flags().IntP("concurrency", "n", 10, "concurrent workers per model")
	throughputCmd.Flags().StringP("model", "m", "", "comma-separated models to test (default: all)")
	throughputCmd.Flags().IntP("duration", "d", 0, "seconds each worker loops (0 = one streaming request per worker)")
	rootCmd.AddCommand(throughputCmd)
}
