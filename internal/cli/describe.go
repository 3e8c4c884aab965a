package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgframe/internal/enhance"
)

var (
	describeOpts    enhance.DescribeOptions
	describeTimeout time.Duration
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Rewrite weak criterion descriptions with the LLM",
	Long: `Describe finds criteria whose stored description is empty, shorter than
30 characters or copied from a paper abstract, and asks the configured
text generator for a short definition grounded in the stored definitions.

With --shared it targets criteria whose name and description appear
verbatim in more than one row, and rewrites each to fit its framework.

Example:
  kgframe describe --dry-run
  kgframe describe --framework Zaveri --criterion accuracy
  kgframe describe --force
  kgframe describe --shared --dry-run`,
	Args: cobra.NoArgs,
	RunE: runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringVar(&describeOpts.Framework, "framework", "", "only frameworks whose name contains this")
	describeCmd.Flags().StringVar(&describeOpts.Criterion, "criterion", "", "only criteria whose name contains this")
	describeCmd.Flags().BoolVar(&describeOpts.Force, "force", false, "rewrite good descriptions too")
	describeCmd.Flags().BoolVar(&describeOpts.Shared, "shared", false, "rewrite descriptions copied verbatim across frameworks (under 200 chars)")
	describeCmd.Flags().BoolVar(&describeOpts.DryRun, "dry-run", false, "print proposals without saving")
	describeCmd.Flags().DurationVar(&describeTimeout, "timeout", 30*time.Minute, "overall timeout")
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), describeTimeout)
	defer cancel()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	stats, err := newOrchestrator(ctx, cfg).Describe(ctx, s, describeOpts)
	if err != nil {
		return fmt.Errorf("describe failed: %w", err)
	}

	for _, ch := range stats.Changes {
		fmt.Printf("%s / %s\n", ch.Framework, ch.Criterion)
		if ch.Before != "" {
			fmt.Printf("  - %s\n", ch.Before)
		}
		fmt.Printf("  + %s\n\n", ch.After)
	}

	verb := "Updated"
	if describeOpts.DryRun {
		verb = "Would update"
	}
	fmt.Fprintf(os.Stderr, "%s %d descriptions (%d skipped, %d errors)\n", verb, stats.Updated, stats.Skipped, stats.Errors)
	return nil
}
