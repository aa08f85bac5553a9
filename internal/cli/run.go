// internal/cli/run.go
package chatbench

import (
	"errors"
	"strings"

	"github.com/k0kubun/pp"
	"github.com/mwiater/chatbench/internal/benchmark"
	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/providerfactory"
	"github.com/mwiater/chatbench/internal/telemetry"
	"github.com/spf13/cobra"
)

// Seams replaced in tests.
var (
	newTransport = providerfactory.NewTransport
	newRunner    = benchmark.NewRunner
	serveMetrics = telemetry.Serve
)

// buildRunner creates the transport for the loaded configuration, starts the metrics
// endpoint when one is configured, and fetches the supported model list.
func buildRunner(cmd *cobra.Command, warmup int) (*benchmark.Runner, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}

	var m *telemetry.Metrics
	if cfg.MetricsAddr != "" {
		m = telemetry.New()
	}
	transport, err := newTransport(cfg, m)
	if err != nil {
		return nil, err
	}

	if m != nil {
		addr := cfg.MetricsAddr
		go func() {
			if err := serveMetrics(cmd.Context(), addr, m); err != nil {
				logging.LogError("metrics server stopped: %v", err)
			}
		}()
		logging.LogEvent("Serving metrics on %s/metrics", addr)
	}

	return newRunner(cmd.Context(), transport,
		benchmark.WithOutput(cmd.OutOrStdout()),
		benchmark.WithWarmup(warmup),
		benchmark.WithRateLimit(cfg.RateLimit),
		benchmark.WithThroughputModelLimit(cfg.ThroughputModelLimit),
	)
}

// warmupCount returns the --warmup flag when set, otherwise the configured value.
func warmupCount(cmd *cobra.Command) int {
	if f := cmd.Flags().Lookup("warmup"); f != nil && f.Changed {
		n, _ := cmd.Flags().GetInt("warmup")
		return n
	}
	if cfg := GetConfig(); cfg != nil {
		return cfg.WarmupRequests
	}
	return benchmark.DefaultWarmupRequests
}

// parseModels splits a comma-separated model list. An empty list means all models.
func parseModels(csv string) []string {
	var models []string
	for _, part := range strings.Split(csv, ",") {
		if name := strings.TrimSpace(part); name != "" {
			models = append(models, name)
		}
	}
	return models
}

// dumpConfig pretty-prints the resolved benchmark configuration in debug mode.
func dumpConfig(cmd *cobra.Command, cfg benchmark.BenchmarkConfig) {
	if !DebugEnabled() {
		return
	}
	_, _ = pp.Fprintln(cmd.ErrOrStderr(), cfg)
}
