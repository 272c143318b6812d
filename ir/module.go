package ir

import (
	"fmt"
	"sort"
	"strings"
)

// ExecutionThreads is a set of execution thread tags. The empty set selects
// every thread.
type ExecutionThreads map[string]struct{}

// NewExecutionThreads builds a thread set from tags.
func NewExecutionThreads(threads ...string) ExecutionThreads {
	s := make(ExecutionThreads, len(threads))
	for _, t := range threads {
		s[t] = struct{}{}
	}
	return s
}

// Includes reports whether thread is selected by the set.
func (s ExecutionThreads) Includes(thread string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[thread]
	return ok
}

func (s ExecutionThreads) String() string {
	if len(s) == 0 {
		return "{*}"
	}
	names := make([]string, 0, len(s))
	for t := range s {
		names = append(names, t)
	}
	sort.Strings(names)
	return "{" + strings.Join(names, ",") + "}"
}

// Module is a collection of computations.
type Module struct {
	name         string
	computations []*Computation
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// AddComputation takes ownership of c.
func (m *Module) AddComputation(c *Computation) *Computation {
	if c.module != nil {
		panic(fmt.Sprintf("computation %s already belongs to module %s", c.name, c.module.name))
	}
	for _, other := range m.computations {
		if other.name == c.name {
			panic(fmt.Sprintf("duplicate computation %s in module %s", c.name, m.name))
		}
	}
	c.module = m
	m.computations = append(m.computations, c)
	return c
}

// Computations returns the computations whose execution thread is selected
// by threads.
func (m *Module) Computations(threads ExecutionThreads) []*Computation {
	out := make([]*Computation, 0, len(m.computations))
	for _, c := range m.computations {
		if threads.Includes(c.thread) {
			out = append(out, c)
		}
	}
	return out
}

// Computation looks up a computation by name.
func (m *Module) Computation(name string) (*Computation, bool) {
	for _, c := range m.computations {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// InstructionCount returns the number of instructions in all computations.
func (m *Module) InstructionCount() int {
	n := 0
	for _, c := range m.computations {
		n += len(c.instructions)
	}
	return n
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	out := NewModule(m.name)
	for _, c := range m.computations {
		out.AddComputation(c.clone())
	}
	return out
}

// String prints the module in a textual form close to HLO text.
func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "HloModule %s\n", m.name)
	for _, c := range m.computations {
		b.WriteString("\n")
		if c.thread != MainThread {
			fmt.Fprintf(&b, "%s, execution_thread=%q {\n", c.name, c.thread)
		} else {
			fmt.Fprintf(&b, "%s {\n", c.name)
		}
		for _, inst := range c.instructions {
			prefix := "  "
			if inst == c.root {
				prefix = "  ROOT "
			}
			b.WriteString(prefix + inst.String() + "\n")
		}
		b.WriteString("}\n")
	}
	return b.String()
}
