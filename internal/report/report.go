// internal/report/report.go
// Package report renders benchmark statistics as a human-readable terminal summary.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/mwiater/chatbench/internal/metrics"
	"github.com/mwiater/chatbench/internal/providers"
	"github.com/mwiater/chatbench/internal/util"
)

const (
	headingRule   = 60
	separatorRule = 80
	maxErrorLines = 5
	maxErrorRunes = 160
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	modelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	successText = color.New(color.FgGreen).SprintFunc()
	failureText = color.New(color.FgRed).SprintFunc()
)

// Printer writes benchmark summaries to an io.Writer.
type Printer struct {
	out io.Writer
	bar progress.Model
}

// New returns a Printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{
		out: out,
		bar: progress.New(
			progress.WithWidth(20),
			progress.WithoutPercentage(),
			progress.WithSolidFill("46"),
		),
	}
}

// Latency prints non-streaming latency statistics, one block per model.
func (p *Printer) Latency(stats []metrics.LatencyStats) {
	p.heading("Regular Latency Benchmark Results")
	for _, s := range stats {
		p.model(s.Model)
		p.row("Requests", fmt.Sprintf("%d", s.RequestCount))
		p.row("Min Latency", formatDuration(s.MinLatency))
		p.row("Max Latency", formatDuration(s.MaxLatency))
		p.row("Mean Latency", formatDuration(s.MeanLatency))
		p.row("Std Dev", formatDuration(s.StdDev))
		p.row("P50 Latency", formatDuration(s.P50Latency))
		p.row("P95 Latency", formatDuration(s.P95Latency))
		p.row("P99 Latency", formatDuration(s.P99Latency))
		p.row("Mean TTFB", formatDuration(s.MeanTTFB))
		p.row("P95 TTFB", formatDuration(s.P95TTFB))
		p.row("Error Rate", formatErrorRate(s.ErrorRate))
	}
}

// Streaming prints streaming latency statistics, one block per model.
func (p *Printer) Streaming(stats []metrics.StreamingStats) {
	p.heading("Streaming Latency Benchmark Results")
	for _, s := range stats {
		p.model(s.Model)
		p.row("Requests", fmt.Sprintf("%d", s.RequestCount))
		p.row("Mean Time to First Chunk", formatDuration(s.MeanTimeToFirstChunk))
		p.row("P95 Time to First Chunk", formatDuration(s.P95TimeToFirstChunk))
		p.row("Tokens per Second", fmt.Sprintf("%.2f", s.MeanTokensPerSecond))
		p.row("Total Chunks", fmt.Sprintf("%d", s.TotalChunks))
		p.row("Error Rate", formatErrorRate(s.ErrorRate))
	}
}

// Throughput prints throughput statistics, one block per model.
func (p *Printer) Throughput(stats []metrics.ThroughputStats) {
	p.heading("Throughput Benchmark Results")
	for _, s := range stats {
		p.model(s.Model)
		p.row("Test Duration", formatDuration(s.TestDuration))
		p.row("Total Requests", fmt.Sprintf("%d", s.TotalRequests))
		p.row("Successful Requests", fmt.Sprintf("%d", s.SuccessfulRequests))
		p.row("Failed Requests", fmt.Sprintf("%d", s.FailedRequests))
		p.row("Success Rate", p.successBar(s.SuccessRate))
		p.row("Requests per Second", fmt.Sprintf("%.2f", s.MeanRequestsPerSecond))
		p.row("Tokens per Second", fmt.Sprintf("%.2f", s.MeanTokensPerSecond))
	}
}

// Models prints the numbered list of supported models in server order.
func (p *Printer) Models(models []providers.SupportedModel) {
	fmt.Fprintln(p.out, headingStyle.Render("Supported Models:"))
	fmt.Fprintln(p.out, strings.Repeat("─", 17))
	for i, m := range models {
		line := fmt.Sprintf("%d. %s", i+1, m.Name)
		if m.Provider != "" {
			line += labelStyle.Render(fmt.Sprintf(" (%s)", m.Provider))
		}
		fmt.Fprintln(p.out, line)
	}
}

// Insufficient reports a model that produced no successful samples.
func (p *Printer) Insufficient(model string) {
	fmt.Fprintln(p.out, failureText(fmt.Sprintf("insufficient data for model %s", model)))
}

// Errors prints a short digest of failed requests.
func (p *Printer) Errors(errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, failureText(fmt.Sprintf("%d request(s) failed", len(errs))))
	for i, e := range errs {
		if i == maxErrorLines {
			fmt.Fprintf(p.out, "  ... and %d more\n", len(errs)-maxErrorLines)
			break
		}
		fmt.Fprintf(p.out, "  - %s\n", util.TruncateRunes(e, maxErrorRunes))
	}
}

// Separator prints the rule between comprehensive-run phases.
func (p *Printer) Separator() {
	fmt.Fprintf(p.out, "\n%s\n\n", strings.Repeat("=", separatorRule))
}

func (p *Printer) heading(title string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, headingStyle.Render(title))
	fmt.Fprintln(p.out, strings.Repeat("=", headingRule))
}

func (p *Printer) model(name string) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, modelStyle.Render("Model: "+name))
	fmt.Fprintln(p.out, strings.Repeat("─", 29))
}

func (p *Printer) row(label, value string) {
	fmt.Fprintf(p.out, "%s %s\n", labelStyle.Render(label+":"), value)
}

func (p *Printer) successBar(rate float64) string {
	text := fmt.Sprintf("%.1f%%", rate)
	if rate < 100 {
		text = failureText(text)
	} else {
		text = successText(text)
	}
	return p.bar.ViewAs(rate/100) + " " + text
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

func formatErrorRate(rate float64) string {
	text := fmt.Sprintf("%.1f%%", rate)
	if rate > 0 {
		return failureText(text)
	}
	return text
}
