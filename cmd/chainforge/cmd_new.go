package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chainforge/internal/scaffold"
)

var forceNew bool

// newCmd scaffolds a new chain
var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Scaffold a new chain with starter prompt and snippet files",
	Long: `Creates chains/<name>.yaml from a starter template, then creates every
prompt and snippet file the specification references that does not
exist yet. Edit the YAML, re-run the command to materialize any newly
referenced files, and fill in the prompt text.`,
	Args: cobra.ExactArgs(1),
	RunE: newChain,
}

func init() {
	newCmd.Flags().BoolVar(&forceNew, "force", false, "overwrite an existing chain specification")
}

func newChain(cmd *cobra.Command, args []string) error {
	name := args[0]

	created, err := scaffold.Create(cfg.Paths.Root, cfg.Paths.ChainsDir, name, forceNew)
	for _, path := range created {
		fmt.Println(successStyle.Render("created ") + path)
	}
	if err != nil {
		return err
	}

	fmt.Println(faintStyle.Render(fmt.Sprintf("chain %q is ready; edit the files above and run 'chainforge validate'", name)))
	return nil
}
