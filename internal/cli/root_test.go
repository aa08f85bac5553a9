// internal/cli/root_test.go
package chatbench

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mwiater/chatbench/internal/appconfig"
	"github.com/mwiater/chatbench/internal/benchmark"
	"github.com/mwiater/chatbench/internal/logging"
	"github.com/mwiater/chatbench/internal/providers"
	"github.com/mwiater/chatbench/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// stubStream replays data events and then io.EOF.
type stubStream struct {
	events []string
}

func (s *stubStream) Next() (providers.StreamEvent, error) {
	if len(s.events) == 0 {
		return providers.StreamEvent{}, io.EOF
	}
	ev := providers.StreamEvent{Data: s.events[0]}
	s.events = s.events[1:]
	return ev, nil
}

func (s *stubStream) Close() error { return nil }

// stubTransport serves two models and always succeeds.
type stubTransport struct {
	mu          sync.Mutex
	completions int
	streams     int
}

func (s *stubTransport) ListModels(ctx context.Context) ([]providers.SupportedModel, error) {
	return []providers.SupportedModel{
		{Name: "m1", Provider: "openai", ModelID: 1},
		{Name: "m2", Provider: "anthropic", ModelID: 2},
	}, nil
}

func (s *stubTransport) ChatCompletion(ctx context.Context, req providers.ChatCompletionRequest) (*providers.ChatCompletionResponse, providers.Timing, error) {
	s.mu.Lock()
	s.completions++
	s.mu.Unlock()
	tokens := 4
	return &providers.ChatCompletionResponse{
			Model:   req.Model,
			Choices: []providers.Choice{{Message: &providers.ChatMessage{Role: "assistant", Content: "ok"}}},
			Usage:   &providers.Usage{CompletionTokens: &tokens},
		},
		providers.Timing{Total: 10 * time.Millisecond, FirstByte: 5 * time.Millisecond, RequestBytes: 100, ResponseBytes: 200},
		nil
}

func (s *stubTransport) StreamChatCompletion(ctx context.Context, req providers.ChatCompletionRequest) (providers.EventStream, error) {
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
	return &stubStream{events: []string{
		`{"choices":[{"delta":{"content":"Hello there"}}]}`,
		providers.DoneSentinel,
	}}, nil
}

func (s *stubTransport) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completions, s.streams
}

// resetFlags restores every flag in the command tree to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// useStubTransport routes command runs to a stubTransport and records the telemetry handed to the factory.
func useStubTransport(t *testing.T) (*stubTransport, **telemetry.Metrics) {
	t.Helper()
	stub := &stubTransport{}
	var got *telemetry.Metrics
	prev := newTransport
	newTransport = func(cfg *appconfig.Config, m *telemetry.Metrics) (providers.Transport, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		got = m
		return stub, nil
	}
	t.Cleanup(func() { newTransport = prev })
	return stub, &got
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(appconfig.APIKeyEnv, "test-key-1234")

	prevCfgFile := cfgFile
	t.Cleanup(func() {
		cfgFile = prevCfgFile
		viper.Reset()
		bindViper()
		rootCmd.SetArgs([]string{})
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
		_ = logging.Close()
	})
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return buf.String(), err
}

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestRootCmd verifies running the root command with an invalid subcommand reports an error.
func TestRootCmd(t *testing.T) {
	out, err := executeCommand(t, "nonexistent")
	if err == nil {
		t.Error("Expected an error for a nonexistent command, but got none")
	}
	expected := "unknown command \"nonexistent\" for \"chatbench\""
	if !strings.Contains(out, expected) {
		t.Errorf("Expected output to contain '%s', but got '%s'", expected, out)
	}
}

func TestPersistentPreRunEUsesFlagValues(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "chatbench.log")
	_, err := executeCommand(t,
		"--debug", "--timeout", "7", "--rateLimit", "2.5", "--logFile", logPath,
		"show", "config")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected config to be loaded")
	}
	if !cfg.Debug || cfg.TimeoutSeconds != 7 || cfg.RateLimit != 2.5 || cfg.LogFile != logPath {
		t.Fatalf("expected flag values to flow into config: %+v", cfg)
	}
	if cfg.APIKey != "test-key-1234" {
		t.Fatalf("expected API key from environment, got %q", cfg.APIKey)
	}
	if cfg.APIBaseURL() != appconfig.DefaultBaseURL {
		t.Fatalf("expected default base URL, got %s", cfg.APIBaseURL())
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestPersistentPreRunEReadsConfigFile(t *testing.T) {
	path := writeTempConfig(t, "chatbench.yaml", "warmupRequests: 5\nthroughputModelLimit: 3\ntimeout: 30\n")
	_, err := executeCommand(t, "--config", path, "--timeout", "9", "show", "config")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	cfg := GetConfig()
	if cfg.WarmupRequests != 5 || cfg.ThroughputModelLimit != 3 {
		t.Fatalf("expected config file values, got %+v", cfg)
	}
	if cfg.TimeoutSeconds != 9 {
		t.Fatalf("expected flag to override config file, got %d", cfg.TimeoutSeconds)
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected config path %s, got %s", path, cfg.ConfigPath)
	}
}

func TestPersistentPreRunEMissingExplicitConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.json")
	if _, err := executeCommand(t, "--config", missing, "show", "config"); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestShowConfigRedactsAPIKey(t *testing.T) {
	out, err := executeCommand(t, "show", "config")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if !strings.Contains(out, "Current configuration:") {
		t.Fatalf("expected configuration heading, got %q", out)
	}
	if strings.Contains(out, "test-key-1234") || !strings.Contains(out, "****1234") {
		t.Fatalf("expected redacted API key, got %q", out)
	}
}

func TestShowCommandsListsTree(t *testing.T) {
	out, err := executeCommand(t, "show", "commands")
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}
	for _, want := range []string{"chatbench", "  chatbench latency", "  chatbench throughput", "    chatbench show config"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
	for _, hidden := range []string{"chatbench completion", "chatbench help"} {
		if strings.Contains(out, hidden) {
			t.Fatalf("expected %q hidden, got %q", hidden, out)
		}
	}
}

func TestCommandTreeFiltersByNameNotPath(t *testing.T) {
	root := &cobra.Command{Use: "tool", Short: "tool for chat-completion help"}
	helper := &cobra.Command{Use: "helpers", Short: "helper utilities", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(helper)
	root.AddCommand(&cobra.Command{Use: "completion", Short: "generated", Run: func(*cobra.Command, []string) {}})
	root.InitDefaultHelpCmd()

	var buf bytes.Buffer
	printCommandTree(&buf, root)
	out := buf.String()
	if !strings.Contains(out, "  tool helpers") || !strings.Contains(out, "tool for chat-completion help") {
		t.Fatalf("expected helpers command and root description, got %q", out)
	}
	if strings.Contains(out, "tool completion") || strings.Contains(out, "tool help ") {
		t.Fatalf("expected generated commands hidden, got %q", out)
	}
}

func TestMissingAPIKeyIsFatal(t *testing.T) {
	calledRunner := false
	prevRunner := newRunner
	newRunner = func(ctx context.Context, transport providers.Transport, opts ...benchmark.Option) (*benchmark.Runner, error) {
		calledRunner = true
		return prevRunner(ctx, transport, opts...)
	}
	t.Cleanup(func() { newRunner = prevRunner })

	t.Setenv(appconfig.APIKeyEnv, "")
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"models"})
	t.Cleanup(func() {
		rootCmd.SetArgs([]string{})
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		_ = logging.Close()
	})

	_, err := rootCmd.ExecuteC()
	if !errors.Is(err, appconfig.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if calledRunner {
		t.Fatal("expected no runner to be built without an API key")
	}
}

func TestSetVersionInfo(t *testing.T) {
	prevVersion, prevCommit, prevDate := appVersion, appCommit, appDate
	t.Cleanup(func() { SetVersionInfo(prevVersion, prevCommit, prevDate) })

	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	if appVersion != "1.2.3" || appCommit != "abc123" || appDate != "2026-01-01" {
		t.Fatalf("unexpected version info: %s %s %s", appVersion, appCommit, appDate)
	}
}
