// Package scaffold creates starter files for a new chain: the YAML
// specification, and any prompt or snippet files it references that do
// not exist yet. Prompt starters list the step's snippet and input
// placeholders so the author only has to fill in the surrounding text.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chainforge/internal/chainspec"
	"chainforge/internal/logging"
)

const specTemplate = `name: %[1]s
description: "Describe what this chain does"
steps:
  - name: step1
    prompt_file: prompts/%[1]s_step1.md
    input_variables: [input1]
    output_key: step1_output
    snippets:
      style_snippet: snippets/style.md

  # Add a second step when the chain needs one:
  # - name: step2
  #   prompt_file: prompts/%[1]s_step2.md
  #   input_variables: [step1_output]
  #   output_key: step2_output
`

const defaultSnippetContent = "Write the reusable snippet text here.\n"

// Create writes chains/<name>.yaml under root, then creates every
// referenced prompt and snippet file that is missing. If the
// specification already exists it is left alone (unless force is set)
// and only the files it references are materialized, so re-running
// after editing the YAML fills in new prompts and snippets. Returns the
// paths of all files written, relative to root.
func Create(root, chainsDir, name string, force bool) ([]string, error) {
	log := logging.Get(logging.CategoryScaffold)

	specRel := filepath.Join(chainsDir, name+".yaml")
	specPath := filepath.Join(root, specRel)

	var created []string

	if _, err := os.Stat(specPath); err == nil && !force {
		return Materialize(root, chainsDir, name)
	} else if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(specPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chains directory: %w", err)
	}
	if err := os.WriteFile(specPath, []byte(fmt.Sprintf(specTemplate, name)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", specRel, err)
	}
	created = append(created, specRel)
	log.Infow("wrote chain specification", "path", specRel)

	// Materialize the files the fresh specification references.
	spec, err := chainspec.Load(specPath)
	if err != nil {
		return created, err
	}

	more, err := materialize(root, spec)
	created = append(created, more...)
	return created, err
}

// Materialize creates the missing prompt and snippet files referenced
// by an existing chain specification. Used after hand-editing a spec.
func Materialize(root, chainsDir, name string) ([]string, error) {
	spec, err := chainspec.Load(filepath.Join(root, chainsDir, name+".yaml"))
	if err != nil {
		return nil, err
	}
	return materialize(root, spec)
}

func materialize(root string, spec *chainspec.Spec) ([]string, error) {
	log := logging.Get(logging.CategoryScaffold)
	var created []string

	// Snippets first so prompt starters can reference them.
	for _, st := range spec.Steps {
		for _, path := range sortedValues(st.Snippets) {
			wrote, err := writeIfMissing(filepath.Join(root, path), defaultSnippetContent)
			if err != nil {
				return created, err
			}
			if wrote {
				created = append(created, path)
				log.Infow("wrote snippet starter", "path", path)
			}
		}
	}

	for _, st := range spec.Steps {
		wrote, err := writeIfMissing(filepath.Join(root, st.PromptFile), promptStarter(st))
		if err != nil {
			return created, err
		}
		if wrote {
			created = append(created, st.PromptFile)
			log.Infow("wrote prompt starter", "path", st.PromptFile)
		}
	}

	return created, nil
}

// promptStarter lays out the step's snippet placeholders followed by
// its input placeholders.
func promptStarter(st chainspec.Step) string {
	var b strings.Builder

	if len(st.Snippets) > 0 {
		for _, key := range sortedKeys(st.Snippets) {
			fmt.Fprintf(&b, "{%s}\n", key)
		}
	} else {
		b.WriteString("Write the prompt text here.\n")
	}
	b.WriteString("\n")

	if len(st.InputVariables) > 0 {
		for _, v := range st.InputVariables {
			fmt.Fprintf(&b, "{%s}\n", v)
		}
	} else {
		b.WriteString("No input variables declared.\n")
	}

	return b.String()
}

func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValues(m map[string]string) []string {
	values := make([]string, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
