package fold

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/collfold/ir"
)

// PassName is the name the folder reports to pass pipelines.
const PassName = "collective-select-folder"

// CollectiveSelectFolder rewires collective-permutes that consume a select
// whose predicate is uniform across all sending participants.
type CollectiveSelectFolder struct{}

// NewCollectiveSelectFolder creates the pass.
func NewCollectiveSelectFolder() *CollectiveSelectFolder {
	return &CollectiveSelectFolder{}
}

// Name returns PassName.
func (f *CollectiveSelectFolder) Name() string {
	return PassName
}

type sweepStats struct {
	candidates    int
	matched       int
	modeMismatch  int
	indeterminate int
	folded        int
}

// Run visits every instruction of the computations selected by threads once
// and reports whether any collective-permute was rewired. The first hard
// error aborts the sweep; folds applied before it are kept.
func (f *CollectiveSelectFolder) Run(
	m *ir.Module,
	threads ir.ExecutionThreads,
) (bool, error) {
	changed := false
	stats := sweepStats{}

	for _, comp := range m.Computations(threads) {
		for _, inst := range comp.Instructions() {
			localChanged, err := tryFoldCollectivePermuteOfSelect(inst, &stats)
			if err != nil {
				return changed, fmt.Errorf("%s: computation %s: %w",
					PassName, comp.Name(), err)
			}
			changed = changed || localChanged
		}
	}

	slog.Debug("CollectiveSelectFolder",
		"Module", m.Name(),
		"Threads", threads.String(),
		"Candidates", stats.candidates,
		"Matched", stats.matched,
		"ModeMismatch", stats.modeMismatch,
		"Indeterminate", stats.indeterminate,
		"Folded", stats.folded,
	)

	return changed, nil
}

func tryFoldCollectivePermuteOfSelect(inst *ir.Instruction, stats *sweepStats) (bool, error) {
	if inst.Opcode() != ir.CollectivePermute {
		return false, nil
	}
	stats.candidates++

	sel, ok := MatchFoldableSelect(inst.Operand(0))
	if !ok {
		return false, nil
	}
	stats.matched++

	// The id the predicate tests must be the id the routing table uses.
	compatible, err := groupModesAgree(inst, sel)
	if err != nil {
		return false, err
	}
	if !compatible {
		stats.modeMismatch++
		ir.Trace("FoldSkipped",
			"Instruction", inst.Name(),
			"Reason", "group mode mismatch",
			"SelectMode", sel.GroupMode.String(),
		)
		return false, nil
	}

	verdict := EvaluatePredicate(sel, inst.SourceTargetPairs())
	value, known := verdict.Bool()
	if !known {
		stats.indeterminate++
		ir.Trace("FoldSkipped",
			"Instruction", inst.Name(),
			"Reason", "predicate not uniform",
		)
		return false, nil
	}

	if err := foldOperand(inst, sel, value); err != nil {
		return false, err
	}
	stats.folded++

	return true, nil
}

// groupModesAgree derives the collective's group mode without the global
// device id attribute and compares it with the select's identity scope.
// Derivation failures mean the instruction is malformed.
func groupModesAgree(cp *ir.Instruction, sel FoldableSelect) (bool, error) {
	mode, err := cp.CollectiveGroupMode(nil)
	if err != nil {
		return false, fmt.Errorf("deriving group mode: %w", err)
	}
	return mode == sel.GroupMode, nil
}

// foldOperand forwards the winning branch to the collective. The select
// stays in the computation for a later dead code elimination.
func foldOperand(cp *ir.Instruction, sel FoldableSelect, value bool) error {
	operand := sel.FalseOperand
	if value {
		operand = sel.TrueOperand
	}

	if err := cp.ReplaceOperandWith(0, operand); err != nil {
		return fmt.Errorf("folding select into %s: %w", cp.Name(), err)
	}

	ir.Trace("FoldSelect",
		"Instruction", cp.Name(),
		"Predicate", value,
		"Operand", operand.Name(),
	)

	return nil
}
