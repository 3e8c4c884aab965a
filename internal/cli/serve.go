package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/kgframe/internal/api"
	"github.com/ppiankov/kgframe/internal/logging"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the catalog and comparisons as JSON under /api/.

Example:
  kgframe serve
  kgframe serve --addr 127.0.0.1:9000 --db frameworks.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	orchestrator := newOrchestrator(ctx, cfg)

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	e := api.New(api.Options{
		Catalog:     s,
		Comparer:    newCompareService(s, orchestrator),
		LLMProvider: orchestrator.Backend().Name,
		LogLevel:    cfg.Server.LogLevel,
	})

	logging.Info("starting server", "addr", addr, "db", cfg.Storage.Path)
	if err := api.Serve(ctx, e, addr); err != nil {
		return err
	}
	logging.Info("server stopped")
	return nil
}
