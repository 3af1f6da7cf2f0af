// Package chainspec defines the YAML chain specification model and its
// structural validation. A chain is an ordered list of steps; each step
// names a prompt template, the runtime variables it consumes, the single
// variable it produces, and the snippet files substituted into its
// template at compile time.
package chainspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"chainforge/internal/chainerr"
)

// Spec is a parsed chain specification.
type Spec struct {
	// Name is the registry key for this chain.
	Name string `yaml:"name"`

	// Description is informational only.
	Description string `yaml:"description"`

	// Steps run in declared order.
	Steps []Step `yaml:"steps"`
}

// Step is one prompt-and-model step of a chain.
type Step struct {
	Name string `yaml:"name"`

	// PromptFile is the path of the Markdown prompt template.
	PromptFile string `yaml:"prompt_file"`

	// InputVariables are the runtime placeholders this step consumes.
	// Each must be caller-supplied or an earlier step's output key.
	InputVariables []string `yaml:"input_variables"`

	// OutputKey names the variable this step produces. Unique per chain.
	OutputKey string `yaml:"output_key"`

	// Snippets maps placeholder names to snippet file paths. Resolved
	// once at compile time.
	Snippets map[string]string `yaml:"snippets"`
}

// Parse decodes and validates a chain specification document.
func Parse(data []byte) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid chain specification: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a chain specification file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain specification %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks the structural invariants of the specification:
// at least one step, required fields present, output keys unique, and
// no step consuming a variable that is only produced later. A variable
// name that matches no output key is assumed caller-supplied.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return chainerr.Config("", "", "missing 'name'")
	}
	if len(s.Steps) == 0 {
		return chainerr.Config(s.Name, "", "no steps defined")
	}

	// Which step index produces each output key.
	producedAt := make(map[string]int, len(s.Steps))
	stepNames := make(map[string]struct{}, len(s.Steps))

	for i, st := range s.Steps {
		if st.Name == "" {
			return chainerr.Config(s.Name, "", fmt.Sprintf("step %d: missing 'name'", i+1))
		}
		if _, dup := stepNames[st.Name]; dup {
			return chainerr.Config(s.Name, st.Name, "duplicate step name")
		}
		stepNames[st.Name] = struct{}{}

		if st.PromptFile == "" {
			return chainerr.Config(s.Name, st.Name, "missing 'prompt_file'")
		}
		if st.OutputKey == "" {
			return chainerr.Config(s.Name, st.Name, "missing 'output_key'")
		}
		if _, dup := producedAt[st.OutputKey]; dup {
			return chainerr.Config(s.Name, st.Name,
				fmt.Sprintf("duplicate output key %q", st.OutputKey))
		}
		producedAt[st.OutputKey] = i
	}

	for i, st := range s.Steps {
		for _, v := range st.InputVariables {
			j, internal := producedAt[v]
			if internal && j >= i {
				return chainerr.Config(s.Name, st.Name,
					fmt.Sprintf("input %q is produced by a later step (%s); reorder the chain",
						v, s.Steps[j].Name))
			}
		}

		// A name cannot be both a snippet placeholder and a runtime
		// input of the same step; substitution order would be ambiguous.
		for key := range st.Snippets {
			for _, v := range st.InputVariables {
				if key == v {
					return chainerr.Config(s.Name, st.Name,
						fmt.Sprintf("placeholder %q is declared both as a snippet and as an input variable", key))
				}
			}
		}
	}

	return nil
}
