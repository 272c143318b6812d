// Package pass runs module transformations in sequence.
package pass

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sarchlab/collfold/ir"
)

// Pass transforms a module in place and reports whether it changed it.
type Pass interface {
	Name() string
	Run(m *ir.Module, threads ir.ExecutionThreads) (bool, error)
}

// Verifier checks a module between passes.
type Verifier interface {
	Verify(m *ir.Module) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(m *ir.Module) error

// Verify calls f.
func (f VerifierFunc) Verify(m *ir.Module) error {
	return f(m)
}

// Factory creates a fresh instance of a pass.
type Factory func() Pass

// ErrDuplicatePass is returned when a name is registered twice.
var ErrDuplicatePass = errors.New("pass already registered")

// Registry maps pass names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicatePass)
	}
	r.factories[name] = factory

	return nil
}

// Lookup creates the pass registered under name.
func (r *Registry) Lookup(name string) (Pass, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown pass %q", name)
	}

	return factory(), nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// PipelineBuilder can create pipelines.
type PipelineBuilder struct {
	passes        []Pass
	maxIterations int
	verifier      Verifier
}

// WithPass appends a pass.
func (b PipelineBuilder) WithPass(p Pass) PipelineBuilder {
	b.passes = append(append([]Pass(nil), b.passes...), p)
	return b
}

// WithMaxIterations repeats the passes until none of them changes the
// module, at most n times. The default of 1 runs every pass once.
func (b PipelineBuilder) WithMaxIterations(n int) PipelineBuilder {
	if n < 1 {
		panic("a pipeline needs at least one iteration")
	}
	b.maxIterations = n
	return b
}

// WithVerifier checks the module after each pass that changed it.
func (b PipelineBuilder) WithVerifier(v Verifier) PipelineBuilder {
	b.verifier = v
	return b
}

// Build creates the pipeline.
func (b PipelineBuilder) Build(name string) *Pipeline {
	iterations := b.maxIterations
	if iterations == 0 {
		iterations = 1
	}
	return &Pipeline{
		name:          name,
		passes:        b.passes,
		maxIterations: iterations,
		verifier:      b.verifier,
	}
}

// Pipeline is a pass made of other passes.
type Pipeline struct {
	name          string
	passes        []Pass
	maxIterations int
	verifier      Verifier
}

// Name returns the pipeline name.
func (p *Pipeline) Name() string {
	return p.name
}

// Run runs the passes in order. It stops at the first error, which is
// wrapped with the failing pass's name.
func (p *Pipeline) Run(m *ir.Module, threads ir.ExecutionThreads) (bool, error) {
	changed := false

	for iter := 0; iter < p.maxIterations; iter++ {
		iterChanged := false

		for _, pass := range p.passes {
			passChanged, err := pass.Run(m, threads)
			if err != nil {
				return changed, fmt.Errorf("pipeline %s: pass %s: %w", p.name, pass.Name(), err)
			}

			slog.Debug("PassDone",
				"Pipeline", p.name,
				"Pass", pass.Name(),
				"Iteration", iter,
				"Changed", passChanged,
			)

			if !passChanged {
				continue
			}
			iterChanged = true

			if p.verifier != nil {
				if err := p.verifier.Verify(m); err != nil {
					return true, fmt.Errorf("pipeline %s: verification after %s: %w",
						p.name, pass.Name(), err)
				}
			}
		}

		changed = changed || iterChanged
		if !iterChanged {
			break
		}
	}

	return changed, nil
}
