package pass

import (
	"fmt"

	"github.com/sarchlab/collfold/ir"
)

// DeadCodeEliminator removes instructions whose results are never used.
// Parameters, collectives, and roots are kept.
type DeadCodeEliminator struct{}

// Name returns the pass name.
func (DeadCodeEliminator) Name() string {
	return "dce"
}

// Run removes dead instructions from the selected computations.
func (DeadCodeEliminator) Run(m *ir.Module, threads ir.ExecutionThreads) (bool, error) {
	changed := false

	for _, comp := range m.Computations(threads) {
		order := comp.MakeInstructionPostOrder()

		// Users come after their operands, so walking backwards removes
		// whole dead chains in one sweep.
		for i := len(order) - 1; i >= 0; i-- {
			inst := order[i]
			if !isDead(comp, inst) {
				continue
			}

			if err := comp.RemoveInstruction(inst); err != nil {
				return changed, fmt.Errorf("dce: %w", err)
			}

			ir.Trace("RemoveDead",
				"Computation", comp.Name(),
				"Instruction", inst.Name(),
			)
			changed = true
		}
	}

	return changed, nil
}

func isDead(comp *ir.Computation, inst *ir.Instruction) bool {
	if inst == comp.Root() || inst.UserCount() > 0 {
		return false
	}

	switch op := inst.Opcode(); {
	case op == ir.Parameter:
		return false
	case op.IsCollective():
		return false
	default:
		return true
	}
}
