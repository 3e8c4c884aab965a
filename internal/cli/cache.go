package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgframe/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the LLM response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached LLM response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cache.New(cfg.Cache.Dir, time.Minute, time.Minute)
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		if cfg.Cache.Dir != "" {
			fmt.Printf("✓ Cleared %s\n", cfg.Cache.Dir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
