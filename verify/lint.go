package verify

import (
	"fmt"
	"strings"

	"github.com/sarchlab/collfold/ir"
)

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct  IssueType = "STRUCT"  // Malformed instruction or computation
	IssueRouting IssueType = "ROUTING" // Invalid collective routing table
)

// Issue represents a single lint issue
type Issue struct {
	Type        IssueType
	Computation string
	Instruction string // Empty for computation level issues
	Message     string
}

func (i Issue) String() string {
	if i.Instruction == "" {
		return fmt.Sprintf("[%s] %s: %s", i.Type, i.Computation, i.Message)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", i.Type, i.Computation, i.Instruction, i.Message)
}

// RunLint performs static checks on every computation of a module.
// Returns a list of issues found, or empty list if no issues.
func RunLint(m *ir.Module) []Issue {
	var issues []Issue

	for _, comp := range m.Computations(nil) {
		if comp.Root() == nil {
			issues = append(issues, Issue{
				Type:        IssueStruct,
				Computation: comp.Name(),
				Message:     "computation has no root",
			})
		}

		for _, inst := range comp.Instructions() {
			for _, msg := range lintStruct(comp, inst) {
				issues = append(issues, Issue{
					Type:        IssueStruct,
					Computation: comp.Name(),
					Instruction: inst.Name(),
					Message:     msg,
				})
			}

			if inst.Opcode() != ir.CollectivePermute {
				continue
			}
			for _, msg := range lintRouting(inst.SourceTargetPairs()) {
				issues = append(issues, Issue{
					Type:        IssueRouting,
					Computation: comp.Name(),
					Instruction: inst.Name(),
					Message:     msg,
				})
			}
		}
	}

	return issues
}

func lintStruct(comp *ir.Computation, inst *ir.Instruction) []string {
	var msgs []string

	if !inst.Opcode().Valid() {
		return []string{fmt.Sprintf("unknown opcode %d", int(inst.Opcode()))}
	}
	if want := inst.Opcode().Arity(); inst.OperandCount() != want {
		return []string{fmt.Sprintf("%s expects %d operands, got %d",
			inst.Opcode(), want, inst.OperandCount())}
	}

	for n, op := range inst.Operands() {
		if op.Parent() != comp {
			msgs = append(msgs, fmt.Sprintf("operand %d (%s) is not in the computation", n, op.Name()))
		}
	}

	shape := inst.Shape()
	switch inst.Opcode() {
	case ir.Constant:
		lit := inst.Literal()
		n := len(lit.Ints)
		if lit.Type == ir.F32 {
			n = len(lit.Floats)
		}
		if int64(n) != elementCount(shape) {
			msgs = append(msgs, fmt.Sprintf("literal has %d elements, shape %s needs %d",
				n, shape, elementCount(shape)))
		}
	case ir.Compare:
		if shape.Type != ir.PRED {
			msgs = append(msgs, "compare must produce pred")
		}
	case ir.Select:
		if inst.Operand(0).Shape().Type != ir.PRED {
			msgs = append(msgs, "select predicate must be pred")
		}
		for _, n := range []int{1, 2} {
			if !inst.Operand(n).Shape().Compatible(shape) {
				msgs = append(msgs, fmt.Sprintf("select operand %d has shape %s, result is %s",
					n, inst.Operand(n).Shape(), shape))
			}
		}
	case ir.Broadcast:
		if len(inst.Dimensions()) != len(inst.Operand(0).Shape().Dims) {
			msgs = append(msgs, fmt.Sprintf("broadcast has %d dimensions for a rank-%d operand",
				len(inst.Dimensions()), len(inst.Operand(0).Shape().Dims)))
		}
	case ir.CollectivePermute:
		if !inst.Operand(0).Shape().Compatible(shape) {
			msgs = append(msgs, fmt.Sprintf("collective-permute of %s produces %s",
				inst.Operand(0).Shape(), shape))
		}
		if id, ok := inst.ChannelID(); ok && id <= 0 {
			msgs = append(msgs, fmt.Sprintf("channel id %d is not positive", id))
		}
	}

	return msgs
}

func lintRouting(pairs []ir.SourceTargetPair) []string {
	var msgs []string

	sources := make(map[int64]bool)
	targets := make(map[int64]bool)
	for _, p := range pairs {
		if p.Source < 0 || p.Target < 0 {
			msgs = append(msgs, fmt.Sprintf("negative id in pair %s", p))
			continue
		}
		if sources[p.Source] {
			msgs = append(msgs, fmt.Sprintf("source %d appears more than once", p.Source))
		}
		if targets[p.Target] {
			msgs = append(msgs, fmt.Sprintf("target %d appears more than once", p.Target))
		}
		sources[p.Source] = true
		targets[p.Target] = true
	}

	return msgs
}

func elementCount(s ir.Shape) int64 {
	n := int64(1)
	for _, d := range s.Dims {
		n *= d
	}
	return n
}

// LintVerifier fails when RunLint reports any issue. It can be installed
// as a pipeline verifier.
type LintVerifier struct{}

// Verify runs the lint.
func (LintVerifier) Verify(m *ir.Module) error {
	issues := RunLint(m)
	if len(issues) == 0 {
		return nil
	}

	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = issue.String()
	}

	return fmt.Errorf("module %s has %d lint issues:\n  %s",
		m.Name(), len(issues), strings.Join(lines, "\n  "))
}
