package main

import (
	"fmt"
	"io"
	"sort"

	"listacerta/internal/usage"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show Gemini token usage recorded in .lista/usage.json",
	Args:  cobra.NoArgs,
	RunE:  runUsage,
}

func runUsage(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	tracker, err := usage.NewTracker(ws)
	if err != nil {
		return err
	}
	defer tracker.Close()

	recent, _ := cmd.Flags().GetInt("recent")
	printUsage(cmd.OutOrStdout(), tracker.Stats(), tracker.Recent(recent))
	return nil
}

func printUsage(w io.Writer, stats usage.AggregatedStats, recent []usage.UsageEvent) {
	total := stats.Total
	fmt.Fprintf(w, "Chamadas: %d (%d falhas)\n", total.Calls, total.Failures)
	fmt.Fprintf(w, "Tokens:   %d entrada, %d saída, %d total\n", total.Input, total.Output, total.Total)

	printUsageTable(w, "Por modelo", stats.ByModel)
	printUsageTable(w, "Por operação", stats.ByOperation)
	printUsageTable(w, "Por superfície", stats.BySurface)

	if len(recent) == 0 {
		return
	}
	fmt.Fprintf(w, "\nÚltimas chamadas\n")
	for _, ev := range recent {
		status := "ok"
		if ev.Failed {
			status = "falhou"
		}
		fmt.Fprintf(w, "%s  %-8s %-24s %-4s %6d/%-6d %s\n",
			ev.Timestamp.Local().Format("02/01 15:04:05"), ev.Operation, truncate(ev.Model, 24),
			ev.Surface, ev.InputTokens, ev.OutputTokens, status)
	}
}

func printUsageTable(w io.Writer, title string, data map[string]usage.TokenCounts) {
	if len(data) == 0 {
		return
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintf(w, "%-24s | %-6s | %-10s | %-10s | %-10s\n", "Nome", "Calls", "Input", "Output", "Total")
	for _, k := range keys {
		c := data[k]
		fmt.Fprintf(w, "%-24s | %-6d | %-10d | %-10d | %-10d\n", truncate(k, 24), c.Calls, c.Input, c.Output, c.Total)
	}
}

func truncate(s string, l int) string {
	r := []rune(s)
	if len(r) > l {
		return string(r[:l-3]) + "..."
	}
	return s
}
