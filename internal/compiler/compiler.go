// Package compiler resolves chain specifications into immutable compiled
// chains: prompt templates are read, snippet placeholders are substituted
// permanently, and the chain's aggregate input and output sets are
// computed. Compilation is deterministic given identical files and has no
// side effects beyond file reads.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"chainforge/internal/chainerr"
	"chainforge/internal/chainspec"
	"chainforge/internal/logging"
)

// FileSource abstracts template and snippet file access so callers can
// cache, embed, or count reads.
type FileSource interface {
	ReadFile(path string) ([]byte, error)
}

// OSSource reads files from disk, resolving relative paths against Root.
type OSSource struct {
	Root string
}

// ReadFile implements FileSource.
func (s OSSource) ReadFile(path string) ([]byte, error) {
	if s.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, path)
	}
	return os.ReadFile(path)
}

// CompiledStep is one bound step: snippet placeholders resolved, runtime
// placeholders still literal.
type CompiledStep struct {
	Name string

	// Template is the bound prompt text.
	Template string

	// Inputs are the runtime variables required to render Template.
	Inputs []string

	// OutputKey names the variable this step produces.
	OutputKey string
}

// CompiledChain is an immutable, executable chain.
type CompiledChain struct {
	Name        string
	Description string
	Steps       []CompiledStep

	// Inputs is the aggregate caller-supplied input set: every step
	// input not produced by an earlier step.
	Inputs []string

	// Outputs is the union of all step output keys, in step order.
	Outputs []string
}

// Compile resolves a specification into a compiled chain, or fails with
// a configuration or resource error.
func Compile(spec *chainspec.Spec, src FileSource) (*CompiledChain, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	log := logging.Get(logging.CategoryCompiler)

	compiled := &CompiledChain{
		Name:        spec.Name,
		Description: spec.Description,
		Steps:       make([]CompiledStep, 0, len(spec.Steps)),
	}

	produced := make(map[string]struct{}, len(spec.Steps))
	seenInput := make(map[string]struct{})

	for _, st := range spec.Steps {
		text, err := src.ReadFile(st.PromptFile)
		if err != nil {
			return nil, chainerr.NotFound(spec.Name, st.PromptFile,
				"prompt template not readable")
		}

		// Resolve snippet placeholders permanently.
		snippets := make(map[string]string, len(st.Snippets))
		for key, path := range st.Snippets {
			content, err := src.ReadFile(path)
			if err != nil {
				return nil, chainerr.NotFound(spec.Name, path,
					fmt.Sprintf("snippet %q not readable", key))
			}
			snippets[key] = string(content)
		}
		bound := chainspec.Substitute(string(text), snippets)

		// After the snippet pass every remaining placeholder must be a
		// declared runtime input; anything else is an unmapped snippet
		// or a typo.
		declared := make(map[string]struct{}, len(st.InputVariables))
		for _, v := range st.InputVariables {
			declared[v] = struct{}{}
		}
		for _, name := range chainspec.Placeholders(bound) {
			if _, ok := declared[name]; !ok {
				return nil, chainerr.Config(spec.Name, st.Name,
					fmt.Sprintf("placeholder %q has no snippet mapping and is not a declared input variable", name))
			}
		}

		inputs := make([]string, len(st.InputVariables))
		copy(inputs, st.InputVariables)

		compiled.Steps = append(compiled.Steps, CompiledStep{
			Name:      st.Name,
			Template:  bound,
			Inputs:    inputs,
			OutputKey: st.OutputKey,
		})

		// Aggregate input set: step inputs not satisfied by an earlier
		// step's output.
		for _, v := range st.InputVariables {
			if _, internal := produced[v]; internal {
				continue
			}
			if _, dup := seenInput[v]; dup {
				continue
			}
			seenInput[v] = struct{}{}
			compiled.Inputs = append(compiled.Inputs, v)
		}
		produced[st.OutputKey] = struct{}{}
		compiled.Outputs = append(compiled.Outputs, st.OutputKey)
	}

	log.Debugw("chain compiled",
		"chain", spec.Name,
		"steps", len(compiled.Steps),
		"inputs", compiled.Inputs,
		"outputs", compiled.Outputs)

	return compiled, nil
}
