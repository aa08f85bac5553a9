// internal/cli/all.go
package chatbench

import (
	"time"

	"github.com/mwiater/chatbench/internal/benchmark"
	"github.com/spf13/cobra"
)

// allCmd implements 'all', which runs regular latency, streaming latency and
// throughput against every supported model.
var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the comprehensive benchmark suite",
	Long: `The 'all' command runs non-streaming latency, streaming latency and throughput in that order
against all supported models. A failing phase does not stop later phases.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		requests, _ := cmd.Flags().GetInt("latency-requests")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		seconds, _ := cmd.Flags().GetInt("throughput-duration")

		latency := benchmark.LatencyConfig(requests, concurrency, nil, false)
		if err := latency.Validate(); err != nil {
			return err
		}
		throughput := throughputConfig(seconds, concurrency, nil)
		if err := throughput.Validate(); err != nil {
			return err
		}
		dumpConfig(cmd, latency)
		dumpConfig(cmd, throughput)

		runner, err := buildRunner(cmd, warmupCount(cmd))
		if err != nil {
			return err
		}
		return runner.RunComprehensive(cmd.Context(), requests, concurrency, time.Duration(seconds)*time.Second)
	},
}

func init() {
	allCmd.Flags().Int("latency-requests", 50, "latency requests per model")
	allCmd.Flags().IntP("concurrency", "n", 5, "maximum concurrent requests")
	allCmd.Flags().Int("throughput-duration", 0, "seconds each throughput worker loops (0 = one streaming request per worker)")
	rootCmd.AddCommand(allCmd)
}
