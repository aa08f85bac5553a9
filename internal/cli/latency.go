// internal/cli/latency.go
package chatbench

import (
	"github.com/mwiater/chatbench/internal/benchmark"
	"github.com/spf13/cobra"
)

// latencyCmd implements 'latency', which measures per-request latency for each model.
var latencyCmd = &cobra.Command{
	Use:   "latency",
	Short: "Measure per-request latency for each model",
	Long: `The 'latency' command issues a fixed number of requests per model, at most --concurrency at a time,
after a short unrecorded warm-up. Streaming requests are used unless --streaming-off is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		requests, _ := cmd.Flags().GetInt("requests")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		modelCSV, _ := cmd.Flags().GetString("model")
		streamingOff, _ := cmd.Flags().GetBool("streaming-off")

		bc := benchmark.LatencyConfig(requests, concurrency, parseModels(modelCSV), !streamingOff)
		if err := bc.Validate(); err != nil {
			return err
		}
		dumpConfig(cmd, bc)

		runner, err := buildRunner(cmd, warmupCount(cmd))
		if err != nil {
			return err
		}
		_, err = runner.RunLatency(cmd.Context(), bc)
		return err
	},
}

func init() {
	latencyCmd.Flags().IntP("requests", "r", 100, "requests per model")
	latencyCmd.Flags().IntP("concurrency", "n", 10, "maximum concurrent requests")
	latencyCmd.Flags().StringP("model", "m", "", "comma-separated models to test (default: all)")
	latencyCmd.Flags().Bool("streaming-off", false, "use non-streaming requests")
	latencyCmd.Flags().Int("warmup", benchmark.DefaultWarmupRequests, "unrecorded warm-up requests per model")
	rootCmd.AddCommand(latencyCmd)
}
