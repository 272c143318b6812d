package ir

import "fmt"

// Opcode represents the operation an instruction performs.
type Opcode int

const (
	Parameter Opcode = iota
	Constant
	Broadcast
	Compare
	Select
	ReplicaID
	PartitionID
	CollectivePermute
	Add

	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	Parameter:         "parameter",
	Constant:          "constant",
	Broadcast:         "broadcast",
	Compare:           "compare",
	Select:            "select",
	ReplicaID:         "replica-id",
	PartitionID:       "partition-id",
	CollectivePermute: "collective-permute",
	Add:               "add",
}

// String returns the textual name of the opcode.
func (o Opcode) String() string {
	if o < 0 || o >= numOpcodes {
		panic(fmt.Sprintf("invalid opcode %d", int(o)))
	}
	return opcodeNames[o]
}

// Valid reports whether o is one of the known opcodes.
func (o Opcode) Valid() bool {
	return o >= 0 && o < numOpcodes
}

var opcodeArity = [numOpcodes]int{
	Parameter:         0,
	Constant:          0,
	ReplicaID:         0,
	PartitionID:       0,
	Broadcast:         1,
	CollectivePermute: 1,
	Compare:           2,
	Add:               2,
	Select:            3,
}

// Arity returns the number of operands an instruction with this opcode takes.
func (o Opcode) Arity() int {
	if !o.Valid() {
		panic(fmt.Sprintf("invalid opcode %d", int(o)))
	}
	return opcodeArity[o]
}

// IsCollective reports whether the opcode moves data across participants.
func (o Opcode) IsCollective() bool {
	return o == CollectivePermute
}

// ParseOpcode converts a textual opcode name back to an Opcode.
func ParseOpcode(name string) (Opcode, error) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown opcode %q", name)
}

// AllOpcodes returns every opcode in declaration order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, numOpcodes)
	for o := Opcode(0); o < numOpcodes; o++ {
		ops = append(ops, o)
	}
	return ops
}

// ComparisonDirection is the relation a compare instruction tests.
type ComparisonDirection int

const (
	DirectionEQ ComparisonDirection = iota
	DirectionNE
	DirectionLT
	DirectionLE
	DirectionGT
	DirectionGE
)

// String returns the textual name of the direction.
func (d ComparisonDirection) String() string {
	switch d {
	case DirectionEQ:
		return "EQ"
	case DirectionNE:
		return "NE"
	case DirectionLT:
		return "LT"
	case DirectionLE:
		return "LE"
	case DirectionGT:
		return "GT"
	case DirectionGE:
		return "GE"
	default:
		panic("invalid comparison direction")
	}
}

// ParseComparisonDirection converts "EQ", "NE", ... to a direction.
func ParseComparisonDirection(s string) (ComparisonDirection, error) {
	switch s {
	case "EQ":
		return DirectionEQ, nil
	case "NE":
		return DirectionNE, nil
	case "LT":
		return DirectionLT, nil
	case "LE":
		return DirectionLE, nil
	case "GT":
		return DirectionGT, nil
	case "GE":
		return DirectionGE, nil
	}
	return 0, fmt.Errorf("unknown comparison direction %q", s)
}

// Apply evaluates lhs <direction> rhs.
func (d ComparisonDirection) Apply(lhs, rhs int64) bool {
	switch d {
	case DirectionEQ:
		return lhs == rhs
	case DirectionNE:
		return lhs != rhs
	case DirectionLT:
		return lhs < rhs
	case DirectionLE:
		return lhs <= rhs
	case DirectionGT:
		return lhs > rhs
	case DirectionGE:
		return lhs >= rhs
	default:
		panic("invalid comparison direction")
	}
}
