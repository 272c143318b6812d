package fold

import (
	"github.com/sarchlab/collfold/ir"
)

// Verdict is the outcome of evaluating a predicate over a routing table.
type Verdict int

const (
	// Indeterminate means the predicate is not known to be the same on all
	// sources.
	Indeterminate Verdict = iota
	// StaticallyTrue means the predicate holds on every source.
	StaticallyTrue
	// StaticallyFalse means the predicate fails on every source.
	StaticallyFalse
)

func (v Verdict) String() string {
	switch v {
	case Indeterminate:
		return "indeterminate"
	case StaticallyTrue:
		return "true"
	case StaticallyFalse:
		return "false"
	default:
		panic("invalid verdict")
	}
}

// Bool returns the predicate value and whether it is known.
func (v Verdict) Bool() (value bool, known bool) {
	return v == StaticallyTrue, v != Indeterminate
}

func verdictOf(b bool) Verdict {
	if b {
		return StaticallyTrue
	}
	return StaticallyFalse
}

// EvaluatePredicate evaluates the select's compare for the source id of
// every pair. The predicate tests the id of the participant that executes
// the select, which is the one sending the data, so targets are ignored.
// An empty table gives no participant to evaluate and is Indeterminate, and
// so is any direction other than EQ and NE.
func EvaluatePredicate(sel FoldableSelect, pairs []ir.SourceTargetPair) Verdict {
	if len(pairs) == 0 {
		return Indeterminate
	}

	if sel.Direction != ir.DirectionEQ && sel.Direction != ir.DirectionNE {
		return Indeterminate
	}

	predicate := func(p ir.SourceTargetPair) bool {
		if sel.Direction == ir.DirectionEQ {
			return p.Source == sel.ConstantID
		}
		return p.Source != sel.ConstantID
	}

	candidate := predicate(pairs[0])
	for _, p := range pairs[1:] {
		if predicate(p) != candidate {
			return Indeterminate
		}
	}

	return verdictOf(candidate)
}
