package verify

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/collfold/ir"
)

// Mismatch is a root value that differs between two modules.
type Mismatch struct {
	Computation string
	Participant Participant
	Before      int64
	After       int64
}

// EquivalenceReport compares the behavior of a module before and after a
// transformation.
type EquivalenceReport struct {
	Module       string
	Topology     Topology
	Computations int
	BeforeLint   []Issue
	AfterLint    []Issue
	Mismatches   []Mismatch
}

// Equivalent reports whether every root value matched.
func (r *EquivalenceReport) Equivalent() bool {
	return len(r.Mismatches) == 0
}

// CompareBehavior simulates both modules on topo and compares the root of
// every computation of before with the computation of the same name in
// after.
func CompareBehavior(before, after *ir.Module, topo Topology) (*EquivalenceReport, error) {
	report := &EquivalenceReport{
		Module:     before.Name(),
		Topology:   topo,
		BeforeLint: RunLint(before),
		AfterLint:  RunLint(after),
	}

	fsBefore := NewFunctionalSimulator(before, topo)
	if err := fsBefore.Run(); err != nil {
		return nil, fmt.Errorf("simulating original module: %w", err)
	}

	fsAfter := NewFunctionalSimulator(after, topo)
	if err := fsAfter.Run(); err != nil {
		return nil, fmt.Errorf("simulating transformed module: %w", err)
	}

	for _, comp := range before.Computations(nil) {
		if comp.Root() == nil {
			continue
		}
		if _, ok := after.Computation(comp.Name()); !ok {
			return nil, fmt.Errorf("computation %s is missing after the transformation", comp.Name())
		}
		report.Computations++

		for _, p := range topo.Participants() {
			b, _ := fsBefore.RootValue(comp.Name(), p)
			a, _ := fsAfter.RootValue(comp.Name(), p)
			if a != b {
				report.Mismatches = append(report.Mismatches, Mismatch{
					Computation: comp.Name(),
					Participant: p,
					Before:      b,
					After:       a,
				})
			}
		}
	}

	return report, nil
}

// WriteReport writes a formatted report to a writer
func (r *EquivalenceReport) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "EQUIVALENCE REPORT: %s on %d replicas x %d partitions\n",
		r.Module, r.Topology.Replicas, r.Topology.Partitions)
	fmt.Fprintln(w, separator)

	fmt.Fprintf(w, "Lint before: %d issues\n", len(r.BeforeLint))
	for _, issue := range r.BeforeLint {
		fmt.Fprintf(w, "  %s\n", issue)
	}
	fmt.Fprintf(w, "Lint after: %d issues\n", len(r.AfterLint))
	for _, issue := range r.AfterLint {
		fmt.Fprintf(w, "  %s\n", issue)
	}

	if r.Equivalent() {
		fmt.Fprintf(w, "✓ %d computations behave the same on every participant\n", r.Computations)
		return
	}

	fmt.Fprintf(w, "⚠ %d root values differ:\n", len(r.Mismatches))
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Computation", "Participant", "Before", "After"})
	for _, m := range r.Mismatches {
		t.AppendRow(table.Row{m.Computation, m.Participant.String(), m.Before, m.After})
	}
	t.Render()
}

// SaveReportToFile saves the report to a file
func (r *EquivalenceReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
