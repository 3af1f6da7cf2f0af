// Package registry caches compiled chains by name for the process
// lifetime. Lookups are read-through: the first request for a name
// compiles the chain from its specification file, later requests share
// the cached instance. Concurrent first-time lookups of one name are
// collapsed so a chain is compiled at most once.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"chainforge/internal/chainerr"
	"chainforge/internal/chainspec"
	"chainforge/internal/compiler"
	"chainforge/internal/logging"
)

// Chain names map directly to files under the chains directory, so they
// must not carry path syntax.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Registry resolves chain names to compiled chains.
type Registry struct {
	root      string
	chainsDir string
	src       compiler.FileSource

	mu     sync.RWMutex
	chains map[string]*compiler.CompiledChain
	group  singleflight.Group
}

// New creates a registry. chainsDir is the specifications directory
// relative to root; all file reads during compilation go through src,
// which resolves the same root-relative paths.
func New(root, chainsDir string, src compiler.FileSource) *Registry {
	return &Registry{
		root:      root,
		chainsDir: chainsDir,
		src:       src,
		chains:    make(map[string]*compiler.CompiledChain),
	}
}

// Resolve returns the compiled chain for name, compiling it on first
// use. A missing specification file is a not-found error; a structurally
// broken one is a configuration error. Compilation failures are not
// cached: a later lookup re-reads the file, so a fixed specification
// takes effect without eviction.
func (r *Registry) Resolve(ctx context.Context, name string) (*compiler.CompiledChain, error) {
	if !nameRe.MatchString(name) {
		return nil, chainerr.NotFound(name, "", "no chain specification for name")
	}

	r.mu.RLock()
	chain, ok := r.chains[name]
	r.mu.RUnlock()
	if ok {
		return chain, nil
	}

	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		// A racing caller may have populated the cache while this one
		// waited on the flight group.
		r.mu.RLock()
		cached, ok := r.chains[name]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		compiled, err := r.compile(name)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.chains[name] = compiled
		r.mu.Unlock()

		logging.Get(logging.CategoryRegistry).Infow("chain cached", "chain", name)
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.(*compiler.CompiledChain), nil
}

func (r *Registry) compile(name string) (*compiler.CompiledChain, error) {
	path := filepath.Join(r.chainsDir, name+".yaml")
	data, err := r.src.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chainerr.NotFound(name, path, "no chain specification for name")
		}
		return nil, fmt.Errorf("failed to read chain specification %s: %w", path, err)
	}

	spec, err := chainspec.Parse(data)
	if err != nil {
		return nil, err
	}
	if spec.Name != name {
		return nil, chainerr.Config(name, "",
			fmt.Sprintf("specification file %s declares name %q", path, spec.Name))
	}

	return compiler.Compile(spec, r.src)
}

// Invalidate drops a cached chain so the next lookup recompiles it.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chains, name)
}

// Names lists the chain names available in the chains directory,
// cached or not.
func (r *Registry) Names() ([]string, error) {
	dir := filepath.Join(r.root, r.chainsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		if !strings.HasSuffix(base, ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(base, ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Preload compiles every discovered chain concurrently and fails on the
// first broken one. Used at server startup so a bad deployment surfaces
// immediately instead of on first traffic.
func (r *Registry) Preload(ctx context.Context) error {
	names, err := r.Names()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range names {
		g.Go(func() error {
			if _, err := r.Resolve(ctx, name); err != nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
