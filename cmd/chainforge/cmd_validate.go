package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chainforge/internal/compiler"
	"chainforge/internal/registry"
)

// validateCmd compiles every chain and reports errors
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile every chain and report structural errors",
	Long: `Compiles each chain in the chains directory: YAML structure, unique
output keys, step ordering, snippet mappings, and referenced files are
all checked. Exits non-zero if any chain fails.`,
	RunE: validateChains,
}

func validateChains(cmd *cobra.Command, args []string) error {
	src := compiler.OSSource{Root: cfg.Paths.Root}
	reg := registry.New(cfg.Paths.Root, cfg.Paths.ChainsDir, src)

	names, err := reg.Names()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println(faintStyle.Render("no chains found"))
		return nil
	}

	failures := 0
	for _, name := range names {
		chain, err := reg.Resolve(cmd.Context(), name)
		if err != nil {
			failures++
			fmt.Println(errorStyle.Render("FAIL ") + name)
			fmt.Println("     " + err.Error())
			continue
		}
		fmt.Printf("%s %s  %s\n",
			successStyle.Render("ok  "), name,
			faintStyle.Render(fmt.Sprintf("steps=%d inputs=%v outputs=%v",
				len(chain.Steps), chain.Inputs, chain.Outputs)))
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d chains failed validation", failures, len(names))
	}
	return nil
}
