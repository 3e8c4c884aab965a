package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgframe/internal/dedup"
)

var dedupDryRun bool

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Merge duplicate frameworks and criteria",
	Long: `Dedup merges frameworks whose names differ only in case or spacing, then
criteria within each framework the same way, then removes definitions that
repeat or are contained in a longer one. Everything runs in one transaction.

Example:
  kgframe dedup --dry-run
  kgframe dedup`,
	Args: cobra.NoArgs,
	RunE: runDedup,
}

func init() {
	rootCmd.AddCommand(dedupCmd)
	dedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "report what would change, then roll back")
}

func runDedup(cmd *cobra.Command, args []string) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	stats, err := dedup.Run(context.Background(), s, dedupDryRun)
	if err != nil {
		return fmt.Errorf("dedup failed: %w", err)
	}

	verb := "Merged"
	if stats.DryRun {
		verb = "Would merge"
	}
	fmt.Fprintf(os.Stderr, "%s %d frameworks and %d criteria; %d redundant definitions\n",
		verb, stats.FrameworksMerged, stats.CriteriaMerged, stats.DefinitionsRemoved)
	if stats.Total() == 0 {
		fmt.Fprintln(os.Stderr, "✓ Catalog is already clean")
	}
	return nil
}
