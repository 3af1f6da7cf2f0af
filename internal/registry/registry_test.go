package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainforge/internal/chainerr"
)

// countingSource is an in-memory FileSource that counts reads and can
// delay them to widen race windows.
type countingSource struct {
	mu    sync.Mutex
	files map[string]string
	reads map[string]int
	delay time.Duration
}

func newCountingSource(files map[string]string) *countingSource {
	return &countingSource{files: files, reads: make(map[string]int)}
}

func (s *countingSource) ReadFile(path string) ([]byte, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	s.reads[path]++
	return []byte(content), nil
}

func (s *countingSource) totalReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.reads {
		total += n
	}
	return total
}

func chainFiles() map[string]string {
	return map[string]string{
		"chains/echo.yaml": `
name: echo
description: "One step"
steps:
  - name: only
    prompt_file: prompts/echo.md
    input_variables: [text]
    output_key: reply
    snippets:
      style: snippets/style.md
`,
		"prompts/echo.md":   "{style}\n\nEcho: {text}",
		"snippets/style.md": "Be brief.",
	}
}

func TestResolve_CachesCompiledChain(t *testing.T) {
	src := newCountingSource(chainFiles())
	reg := New("", "chains", src)

	first, err := reg.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	readsAfterFirst := src.totalReads()
	assert.Equal(t, 3, readsAfterFirst, "spec, prompt and snippet each read once")

	second, err := reg.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	assert.Same(t, first, second, "all callers observe the same instance")
	assert.Equal(t, readsAfterFirst, src.totalReads(), "second lookup reads no files")
}

func TestResolve_NotFound(t *testing.T) {
	reg := New("", "chains", newCountingSource(chainFiles()))

	_, err := reg.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, chainerr.IsNotFound(err))
}

func TestResolve_RejectsPathSyntax(t *testing.T) {
	reg := New("", "chains", newCountingSource(chainFiles()))

	for _, name := range []string{"../echo", "a/b", "", "echo.yaml"} {
		_, err := reg.Resolve(context.Background(), name)
		require.Error(t, err, "name %q", name)
		assert.True(t, chainerr.IsNotFound(err), "name %q", name)
	}
}

func TestResolve_NameMismatchIsConfigError(t *testing.T) {
	files := chainFiles()
	files["chains/alias.yaml"] = files["chains/echo.yaml"] // declares name: echo
	reg := New("", "chains", newCountingSource(files))

	_, err := reg.Resolve(context.Background(), "alias")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `declares name "echo"`)
}

func TestResolve_ConcurrentLookupsCompileOnce(t *testing.T) {
	src := newCountingSource(chainFiles())
	src.delay = 10 * time.Millisecond
	reg := New("", "chains", src)

	const goroutines = 16
	var wg sync.WaitGroup
	results := make([]interface{}, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chain, err := reg.Resolve(context.Background(), "echo")
			results[i], errs[i] = chain, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 3, src.totalReads(), "compilation ran at most once")
}

func TestResolve_FailureNotCached(t *testing.T) {
	files := chainFiles()
	delete(files, "snippets/style.md")
	src := newCountingSource(files)
	reg := New("", "chains", src)

	_, err := reg.Resolve(context.Background(), "echo")
	require.Error(t, err)

	// Fix the underlying file; the next lookup must succeed without
	// any eviction step.
	src.mu.Lock()
	src.files["snippets/style.md"] = "Be brief."
	src.mu.Unlock()

	chain, err := reg.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", chain.Name)
}

func TestInvalidate_ForcesRecompile(t *testing.T) {
	src := newCountingSource(chainFiles())
	reg := New("", "chains", src)

	first, err := reg.Resolve(context.Background(), "echo")
	require.NoError(t, err)

	reg.Invalidate("echo")

	second, err := reg.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 6, src.totalReads())
}

func writeChainFixture(t *testing.T, root string) {
	t.Helper()
	for path, content := range chainFiles() {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestNamesAndPreload(t *testing.T) {
	root := t.TempDir()
	writeChainFixture(t, root)

	// Resolve reads root-relative paths through the OS source.
	reg := New(root, "chains", osRootSource{root})

	names, err := reg.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"echo"}, names)

	require.NoError(t, reg.Preload(context.Background()))

	chain, err := reg.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, []string{"reply"}, chain.Outputs)
}

// osRootSource mirrors compiler.OSSource to keep this package's tests
// free of fixture coupling.
type osRootSource struct{ root string }

func (s osRootSource) ReadFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	return os.ReadFile(path)
}
