package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chainforge/internal/chainerr"
	"chainforge/internal/compiler"
	"chainforge/internal/executor"
	"chainforge/internal/history"
	"chainforge/internal/llm"
	"chainforge/internal/registry"
)

var (
	runChain string
	runInput string
)

// runCmd executes a chain locally, bypassing the HTTP boundary
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a chain locally and print its outputs",
	Long: `Compiles and executes a chain in-process with the same semantics as
the HTTP endpoint.

Example:
  chainforge run --chain summarize_analyze --input '{"text": "..."}'`,
	RunE: runLocal,
}

func init() {
	runCmd.Flags().StringVar(&runChain, "chain", "", "chain name to run")
	runCmd.Flags().StringVar(&runInput, "input", "{}", "JSON object of input variables")
	_ = runCmd.MarkFlagRequired("chain")
}

func runLocal(cmd *cobra.Command, args []string) error {
	inputs := map[string]string{}
	if err := json.Unmarshal([]byte(runInput), &inputs); err != nil {
		return fmt.Errorf("invalid --input JSON: %w", err)
	}

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

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
	defer cancel()

	chain, err := reg.Resolve(ctx, runChain)
	if err != nil {
		return err
	}

	start := time.Now()
	outputs, runErr := executor.Run(ctx, chain, inputs, client)
	recordRun(ctx, runChain, time.Since(start), outputs, runErr)
	if runErr != nil {
		return runErr
	}

	pretty, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

// recordRun persists the run when history is enabled. Best effort; a
// history failure never masks the run result.
func recordRun(ctx context.Context, chain string, duration time.Duration, outputs map[string]string, runErr error) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.Open(cfg.History.DatabasePath)
	if err != nil {
		logger.Warn("failed to open history store: " + err.Error())
		return
	}
	defer store.Close()

	run := history.Run{
		ID:       uuid.NewString(),
		Chain:    chain,
		Status:   "ok",
		Duration: duration,
		Outputs:  outputs,
	}
	if runErr != nil {
		run.Status = "error"
		var ce *chainerr.Error
		if errors.As(runErr, &ce) {
			run.FailedStep = ce.Step
		}
	}
	if err := store.Record(ctx, run); err != nil {
		logger.Warn("failed to record run: " + err.Error())
	}
}
