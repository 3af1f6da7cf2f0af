// Package executor runs compiled chains. Execution is strictly
// sequential in step order: each step renders its bound template from
// the current variable pool, invokes the model once, and stores the
// returned text under its output key for later steps. A model failure
// aborts the run with no partial results.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chainforge/internal/chainerr"
	"chainforge/internal/chainspec"
	"chainforge/internal/compiler"
	"chainforge/internal/llm"
	"chainforge/internal/logging"
)

// Run executes a compiled chain seeded with the caller-supplied inputs
// and returns the values of the chain's declared output keys.
//
// Every variable required by the first unsatisfiable step is checked
// before any model call is made, so an incomplete seed never spends a
// model invocation.
func Run(ctx context.Context, chain *compiler.CompiledChain, inputs map[string]string, client llm.Client) (map[string]string, error) {
	log := logging.Get(logging.CategoryExecutor)
	runID := uuid.NewString()
	start := time.Now()

	// Variable pool: seeded by the caller, grown by one entry per step.
	pool := make(map[string]string, len(inputs)+len(chain.Steps))
	for k, v := range inputs {
		pool[k] = v
	}

	// Fail on the first unsatisfiable variable before invoking anything.
	// Chain-internal variables are guaranteed by compile-time ordering
	// validation, so any miss here is a caller input error.
	produced := make(map[string]struct{}, len(chain.Steps))
	for _, step := range chain.Steps {
		for _, v := range step.Inputs {
			if _, ok := pool[v]; ok {
				continue
			}
			if _, internal := produced[v]; internal {
				continue
			}
			return nil, chainerr.Input(chain.Name, step.Name, v)
		}
		produced[step.OutputKey] = struct{}{}
	}

	log.Infow("run started", "run", runID, "chain", chain.Name, "steps", len(chain.Steps))

	for _, step := range chain.Steps {
		if err := ctx.Err(); err != nil {
			return nil, chainerr.Execution(chain.Name, step.Name, err)
		}

		vars := make(map[string]string, len(step.Inputs))
		for _, v := range step.Inputs {
			value, ok := pool[v]
			if !ok {
				// Unreachable when compile-time validation holds.
				return nil, chainerr.Input(chain.Name, step.Name, v)
			}
			vars[v] = value
		}
		rendered := chainspec.Substitute(step.Template, vars)

		stepStart := time.Now()
		out, err := client.Complete(ctx, rendered)
		if err != nil {
			log.Errorw("run aborted",
				"run", runID, "chain", chain.Name, "step", step.Name, "error", err)
			return nil, chainerr.Execution(chain.Name, step.Name, err)
		}

		log.Debugw("step completed",
			"run", runID,
			"chain", chain.Name,
			"step", step.Name,
			"output_key", step.OutputKey,
			"duration", time.Since(stepStart))

		pool[step.OutputKey] = out
	}

	// Callers only see declared outputs, never intermediate variables.
	outputs := make(map[string]string, len(chain.Outputs))
	for _, key := range chain.Outputs {
		outputs[key] = pool[key]
	}

	log.Infow("run finished", "run", runID, "chain", chain.Name, "duration", time.Since(start))
	return outputs, nil
}
