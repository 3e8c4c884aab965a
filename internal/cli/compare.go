package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgframe/internal/enhance"
	"github.com/ppiankov/kgframe/internal/report"
)

var (
	compareLLM     bool
	compareJSON    string
	compareMD      string
	compareTimeout time.Duration
)

var compareCmd = &cobra.Command{
	Use:   "compare <id>...",
	Short: "Compare frameworks and write a report",
	Long: `Compare builds the criteria matrix for the given framework ids and writes
it as JSON, plus Markdown when --md is set. Unknown ids are ignored.

Example:
  kgframe compare 1 2 3
  kgframe compare 1,2 --md comparison.md
  kgframe compare 1 2 --llm --json out.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().BoolVar(&compareLLM, "llm", false, "add LLM insights (best effort)")
	compareCmd.Flags().StringVar(&compareJSON, "json", "comparison.json", "output JSON path")
	compareCmd.Flags().StringVar(&compareMD, "md", "", "output Markdown path (optional)")
	compareCmd.Flags().DurationVar(&compareTimeout, "timeout", 5*time.Minute, "overall timeout")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), compareTimeout)
	defer cancel()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var orchestrator *enhance.Orchestrator
	if compareLLM {
		orchestrator = newOrchestrator(ctx, cfg)
	}

	result, err := newCompareService(s, orchestrator).Compare(ctx, args, compareLLM)
	if err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}
	if len(result.SelectedFrameworks) == 0 {
		fmt.Fprintln(os.Stderr, "No known frameworks among the given ids")
	}

	if err := report.WriteJSON(result, compareJSON); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ JSON written: %s\n", compareJSON)

	if compareMD != "" {
		if err := report.WriteMarkdown(result, compareMD); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown written: %s\n", compareMD)
	}

	fmt.Fprintf(os.Stderr, "  %d frameworks, %d criteria, %d shared\n",
		len(result.SelectedFrameworks), len(result.Rows), len(result.Similarities))
	if e := result.LLMEnhancement; e != nil && !e.Enhanced {
		fmt.Fprintf(os.Stderr, "  LLM insights unavailable (%s): %s\n", e.Provider, e.Error)
	}
	return nil
}
