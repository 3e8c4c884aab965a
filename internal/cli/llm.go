package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgframe/internal/llm"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM backends",
}

var llmCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show which LLM backend would be used and probe it",
	Long: `Check lists the backends in preference order with whether each is
configured, selects one the same way the server does, and sends it a
one-line probe.`,
	Args: cobra.NoArgs,
	RunE: runLLMCheck,
}

func init() {
	rootCmd.AddCommand(llmCmd)
	llmCmd.AddCommand(llmCheckCmd)
}

func runLLMCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if !cfg.LLM.Enabled {
		fmt.Println("LLM disabled (llm.enabled: false)")
		return nil
	}

	candidates := cfg.LLM.Preference
	if cfg.LLM.Provider != "" {
		candidates = []string{cfg.LLM.Provider}
		fmt.Printf("Forced provider: %s\n", cfg.LLM.Provider)
	}
	for _, name := range candidates {
		state := "not configured"
		if llm.Configured(cfg, name) {
			state = "configured"
		}
		fmt.Printf("  %-12s %s\n", name, state)
	}
	fmt.Println()

	b := selectBackend(ctx, cfg)
	fmt.Printf("Selected backend: %s\n", b.Name)

	switch {
	case b.Generator != nil:
		start := time.Now()
		resp, err := b.Generator.Complete(ctx, llm.CompletionRequest{
			Prompt:    "Reply with the single word: ready",
			MaxTokens: 10,
		})
		if err != nil {
			return fmt.Errorf("probe %s: %w", b.Name, err)
		}
		fmt.Printf("✓ Generator replied in %v (model %s): %q\n", time.Since(start).Round(time.Millisecond), resp.Model, resp.Text)
		if b.Embedder != nil {
			fmt.Printf("✓ Embeddings available via %s\n", b.Embedder.Name())
		}
	case b.Embedder != nil:
		vecs, err := b.Embedder.Embed(ctx, []string{"completeness"})
		if err != nil {
			return fmt.Errorf("probe %s: %w", b.Embedder.Name(), err)
		}
		if len(vecs) == 0 {
			return fmt.Errorf("probe %s: no vectors returned", b.Embedder.Name())
		}
		fmt.Printf("✓ Embedder %s returned %d dimensions\n", b.Embedder.Name(), len(vecs[0]))
	default:
		fmt.Println("No backend available; comparisons will report enhanced: false")
	}
	return nil
}
