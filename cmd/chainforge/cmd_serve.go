package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chainforge/internal/compiler"
	"chainforge/internal/history"
	"chainforge/internal/llm"
	"chainforge/internal/registry"
	"chainforge/internal/server"
)

var (
	watchChains bool
	skipPreload bool
)

// serveCmd runs the HTTP invocation endpoint
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve chain invocations over HTTP",
	Long: `Starts the invocation endpoint.

POST /invoke with {"chain_name": "...", "inputs": {...}} returns the
chain's declared outputs as JSON. Compiled chains are cached for the
process lifetime; edit a chain and restart (or use --watch during
development) to pick up changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&watchChains, "watch", false, "recompile chains when their spec files change (development)")
	serveCmd.Flags().BoolVar(&skipPreload, "skip-preload", false, "do not compile all chains at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := compiler.OSSource{Root: cfg.Paths.Root}
	reg := registry.New(cfg.Paths.Root, cfg.Paths.ChainsDir, src)

	client, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeout(),
	})
	if err != nil {
		return err
	}

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.DatabasePath)
		if err != nil {
			return err
		}
		defer hist.Close()
	}

	if !skipPreload {
		if err := reg.Preload(ctx); err != nil {
			return err
		}
		logger.Info("chains preloaded")
	}

	if watchChains {
		go func() {
			if err := reg.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("chain watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := server.New(cfg.Server.Addr, reg, client, hist, cfg.RequestTimeout())
	logger.Info("serving", zap.String("addr", cfg.Server.Addr))
	return srv.Run(ctx)
}
