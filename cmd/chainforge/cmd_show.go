package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"chainforge/internal/compiler"
	"chainforge/internal/registry"
)

var showRaw bool

// showCmd renders a chain's bound prompts
var showCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a chain's steps and bound prompt templates",
	Long: `Compiles the chain and prints each step's bound template: snippet
placeholders are substituted, runtime placeholders remain visible as
{name}. Templates are rendered as Markdown unless --raw is given.`,
	Args: cobra.ExactArgs(1),
	RunE: showChain,
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print template text without Markdown rendering")
}

func showChain(cmd *cobra.Command, args []string) error {
	name := args[0]

	src := compiler.OSSource{Root: cfg.Paths.Root}
	reg := registry.New(cfg.Paths.Root, cfg.Paths.ChainsDir, src)

	chain, err := reg.Resolve(cmd.Context(), name)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", chain.Name)
	if chain.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", chain.Description)
	}
	fmt.Fprintf(&b, "Inputs: `%s`  \nOutputs: `%s`\n\n",
		strings.Join(chain.Inputs, "`, `"), strings.Join(chain.Outputs, "`, `"))

	for i, step := range chain.Steps {
		fmt.Fprintf(&b, "## %d. %s → %s\n\n", i+1, step.Name, step.OutputKey)
		fmt.Fprintf(&b, "```\n%s\n```\n\n", strings.TrimRight(step.Template, "\n"))
	}

	if showRaw {
		fmt.Print(b.String())
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Fall back to plain output when the terminal profile is unknown.
		fmt.Print(b.String())
		return nil
	}

	out, err := renderer.Render(b.String())
	if err != nil {
		fmt.Print(b.String())
		return nil
	}
	fmt.Print(out)
	return nil
}
