package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainforge/internal/chainerr"
	"chainforge/internal/compiler"
)

// stubClient routes prompts to canned responses and counts calls.
type stubClient struct {
	mu      sync.Mutex
	calls   int
	respond func(prompt string) (string, error)
}

func (c *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.respond(prompt)
}

func (c *stubClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return c.Complete(ctx, user)
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func twoStepChain() *compiler.CompiledChain {
	return &compiler.CompiledChain{
		Name: "summarize_analyze",
		Steps: []compiler.CompiledStep{
			{Name: "summarize", Template: "Summarize: {text}", Inputs: []string{"text"}, OutputKey: "summary"},
			{Name: "analyze", Template: "Analyze: {summary}", Inputs: []string{"summary"}, OutputKey: "analysis"},
		},
		Inputs:  []string{"text"},
		Outputs: []string{"summary", "analysis"},
	}
}

func TestRun_ThreadsOutputsBetweenSteps(t *testing.T) {
	client := &stubClient{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "hello"):
			return "<STEP:summarize>", nil
		case strings.Contains(prompt, "<STEP:summarize>"):
			return "<STEP:analyze>", nil
		default:
			return "", fmt.Errorf("unexpected prompt: %s", prompt)
		}
	}}

	outputs, err := Run(context.Background(), twoStepChain(),
		map[string]string{"text": "hello"}, client)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"summary":  "<STEP:summarize>",
		"analysis": "<STEP:analyze>",
	}, outputs)
	assert.Equal(t, 2, client.callCount())
}

func TestRun_MissingInputMakesNoModelCall(t *testing.T) {
	client := &stubClient{respond: func(string) (string, error) {
		return "should not be called", nil
	}}

	_, err := Run(context.Background(), twoStepChain(), map[string]string{}, client)
	require.Error(t, err)

	var ce *chainerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, chainerr.CategoryBadRequest, ce.Cat)
	assert.Equal(t, "text", ce.Variable)
	assert.Equal(t, "summarize", ce.Step)
	assert.Equal(t, 0, client.callCount(), "no model call on input error")
}

func TestRun_FailureAbortsBeforeLaterSteps(t *testing.T) {
	chain := &compiler.CompiledChain{
		Name: "three",
		Steps: []compiler.CompiledStep{
			{Name: "one", Template: "1 {text}", Inputs: []string{"text"}, OutputKey: "a"},
			{Name: "two", Template: "2 {a}", Inputs: []string{"a"}, OutputKey: "b"},
			{Name: "three", Template: "3 {b}", Inputs: []string{"b"}, OutputKey: "c"},
		},
		Inputs:  []string{"text"},
		Outputs: []string{"a", "b", "c"},
	}

	boom := errors.New("model unavailable")
	client := &stubClient{respond: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "2 ") {
			return "", boom
		}
		return "ok", nil
	}}

	outputs, err := Run(context.Background(), chain, map[string]string{"text": "x"}, client)
	require.Error(t, err)
	assert.Nil(t, outputs, "no partial results")

	var ce *chainerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "two", ce.Step)
	assert.Equal(t, chainerr.CategoryInternal, ce.Cat)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, client.callCount(), "step three must not run")
}

func TestRun_InputValuesAreNotRescanned(t *testing.T) {
	// A caller value that happens to look like a placeholder is inserted
	// verbatim; it must never expand into another pool variable.
	var prompts []string
	client := &stubClient{respond: func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "ok", nil
	}}

	_, err := Run(context.Background(), twoStepChain(),
		map[string]string{"text": "{summary}"}, client)
	require.NoError(t, err)

	require.Len(t, prompts, 2)
	assert.Equal(t, "Summarize: {summary}", prompts[0])
	assert.Equal(t, "Analyze: ok", prompts[1])
}

func TestRun_ResultRestrictedToDeclaredOutputs(t *testing.T) {
	chain := twoStepChain()
	client := &stubClient{respond: func(string) (string, error) { return "out", nil }}

	outputs, err := Run(context.Background(), chain,
		map[string]string{"text": "x", "extra": "not an output"}, client)
	require.NoError(t, err)

	_, hasExtra := outputs["extra"]
	assert.False(t, hasExtra, "caller-supplied non-output variables are not echoed")
	assert.Len(t, outputs, 2)
}

func TestRun_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &stubClient{respond: func(string) (string, error) { return "ok", nil }}
	_, err := Run(ctx, twoStepChain(), map[string]string{"text": "x"}, client)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, client.callCount())
}
