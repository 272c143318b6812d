// Package fold implements the collective select folder, a pass that removes
// a select feeding a collective-permute when the select's predicate only
// depends on the participant id and has the same value on every participant
// that sends data.
//
// The pass matches
//
//	collective-permute(select(compare(partition-id(), constant), t, f))
//
// or the same with a broadcast around the compare, and with replica-id in
// place of partition-id. The routing table of the collective-permute lists
// every participant that sends data, so if the compare evaluates to the same
// value for all sources, the select is replaced by the branch that always
// wins.
package fold

import (
	"fmt"

	"github.com/sarchlab/collfold/ir"
)

// FoldableSelect holds the facts extracted from a select the pass can
// analyze.
type FoldableSelect struct {
	Direction    ir.ComparisonDirection
	ConstantID   int64
	GroupMode    ir.GroupMode
	TrueOperand  *ir.Instruction
	FalseOperand *ir.Instruction
}

// MatchFoldableSelect matches
//
//	select(broadcast(compare(id, constant)), true_operand, false_operand)
//	select(compare(id, constant), true_operand, false_operand)
//
// where id is replica-id or partition-id and the comparison is EQ or NE.
// Only the identity-on-the-left order is matched.
func MatchFoldableSelect(inst *ir.Instruction) (FoldableSelect, bool) {
	if inst.Opcode() != ir.Select {
		return FoldableSelect{}, false
	}

	// The predicate may be broadcast from a scalar. Unwrap once.
	pred := inst.Operand(0)
	if pred.Opcode() == ir.Broadcast {
		pred = pred.Operand(0)
	}
	if pred.Opcode() != ir.Compare {
		return FoldableSelect{}, false
	}

	dir := pred.ComparisonDirection()
	if dir != ir.DirectionEQ && dir != ir.DirectionNE {
		return FoldableSelect{}, false
	}

	mode, ok := identityGroupMode(pred.Operand(0).Opcode())
	if !ok {
		return FoldableSelect{}, false
	}

	constant := pred.Operand(1)
	if constant.Opcode() != ir.Constant {
		return FoldableSelect{}, false
	}
	id, ok := constant.Literal().FirstInteger()
	if !ok {
		return FoldableSelect{}, false
	}

	return FoldableSelect{
		Direction:    dir,
		ConstantID:   id,
		GroupMode:    mode,
		TrueOperand:  inst.Operand(1),
		FalseOperand: inst.Operand(2),
	}, true
}

// identityGroupMode tells which group mode an identity opcode scopes its id
// to. Every opcode is listed so that a new opcode has to be classified here.
func identityGroupMode(op ir.Opcode) (ir.GroupMode, bool) {
	switch op {
	case ir.ReplicaID:
		return ir.CrossReplica, true
	case ir.PartitionID:
		return ir.CrossPartition, true
	case ir.Parameter,
		ir.Constant,
		ir.Broadcast,
		ir.Compare,
		ir.Select,
		ir.CollectivePermute,
		ir.Add:
		return 0, false
	default:
		panic(fmt.Sprintf("unclassified opcode %d", int(op)))
	}
}
