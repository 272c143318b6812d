package ir

import "fmt"

// ComputationBuilder appends instructions to a new computation.
type ComputationBuilder struct {
	comp *Computation
}

// NewComputationBuilder starts a computation with the given name.
func NewComputationBuilder(name string) *ComputationBuilder {
	return &ComputationBuilder{comp: NewComputation(name)}
}

// WithExecutionThread sets the thread tag of the computation.
func (b *ComputationBuilder) WithExecutionThread(thread string) *ComputationBuilder {
	b.comp.thread = thread
	return b
}

// Parameter adds parameter number n.
func (b *ComputationBuilder) Parameter(name string, n int, shape Shape) *Instruction {
	return b.comp.AddInstruction(&Instruction{
		name:            name,
		opcode:          Parameter,
		shape:           shape,
		parameterNumber: n,
	})
}

// Constant adds a constant holding lit. The shape is a scalar if the
// literal holds one element and a vector otherwise.
func (b *ComputationBuilder) Constant(name string, lit Literal) *Instruction {
	n := len(lit.Ints)
	if lit.Type == F32 {
		n = len(lit.Floats)
	}
	shape := ScalarShape(lit.Type)
	if n != 1 {
		shape = ArrayShape(lit.Type, int64(n))
	}
	return b.comp.AddInstruction(&Instruction{
		name:    name,
		opcode:  Constant,
		shape:   shape,
		literal: lit,
	})
}

// ReplicaID adds an instruction producing the executing replica's id.
func (b *ComputationBuilder) ReplicaID(name string) *Instruction {
	return b.comp.AddInstruction(&Instruction{
		name:   name,
		opcode: ReplicaID,
		shape:  ScalarShape(U32),
	})
}

// PartitionID adds an instruction producing the executing partition's id.
func (b *ComputationBuilder) PartitionID(name string) *Instruction {
	return b.comp.AddInstruction(&Instruction{
		name:   name,
		opcode: PartitionID,
		shape:  ScalarShape(U32),
	})
}

// Compare adds lhs <dir> rhs producing a predicate of lhs's dimensions.
func (b *ComputationBuilder) Compare(
	name string,
	dir ComparisonDirection,
	lhs, rhs *Instruction,
) *Instruction {
	return b.comp.AddInstruction(&Instruction{
		name:      name,
		opcode:    Compare,
		shape:     lhs.shape.WithType(PRED),
		operands:  []*Instruction{lhs, rhs},
		direction: dir,
	})
}

// Broadcast adds a broadcast of operand to shape. Dimensions map operand
// dimensions to result dimensions.
func (b *ComputationBuilder) Broadcast(
	name string,
	shape Shape,
	operand *Instruction,
	dimensions ...int64,
) *Instruction {
	if len(dimensions) != len(operand.shape.Dims) {
		panic(fmt.Sprintf("broadcast %s: %d dimensions for rank-%d operand",
			name, len(dimensions), len(operand.shape.Dims)))
	}
	return b.comp.AddInstruction(&Instruction{
		name:       name,
		opcode:     Broadcast,
		shape:      shape,
		operands:   []*Instruction{operand},
		dimensions: dimensions,
	})
}

// Select adds an elementwise pred ? onTrue : onFalse.
func (b *ComputationBuilder) Select(name string, pred, onTrue, onFalse *Instruction) *Instruction {
	if !onTrue.shape.Compatible(onFalse.shape) {
		panic(fmt.Sprintf("select %s: branches have shapes %s and %s",
			name, onTrue.shape, onFalse.shape))
	}
	return b.comp.AddInstruction(&Instruction{
		name:     name,
		opcode:   Select,
		shape:    onTrue.shape,
		operands: []*Instruction{pred, onTrue, onFalse},
	})
}

// Add adds an elementwise sum.
func (b *ComputationBuilder) Add(name string, lhs, rhs *Instruction) *Instruction {
	return b.comp.AddInstruction(&Instruction{
		name:     name,
		opcode:   Add,
		shape:    lhs.shape,
		operands: []*Instruction{lhs, rhs},
	})
}

// CollectivePermute adds a collective-permute without a channel id, which
// makes it a cross-replica collective.
func (b *ComputationBuilder) CollectivePermute(
	name string,
	operand *Instruction,
	pairs []SourceTargetPair,
) *Instruction {
	return b.comp.AddInstruction(&Instruction{
		name:              name,
		opcode:            CollectivePermute,
		shape:             operand.shape,
		operands:          []*Instruction{operand},
		sourceTargetPairs: append([]SourceTargetPair(nil), pairs...),
	})
}

// ChannelCollectivePermute adds a collective-permute carrying a channel id,
// which makes it a cross-partition collective.
func (b *ComputationBuilder) ChannelCollectivePermute(
	name string,
	operand *Instruction,
	pairs []SourceTargetPair,
	channelID int64,
) *Instruction {
	inst := b.CollectivePermute(name, operand, pairs)
	inst.channelID = channelID
	inst.hasChannelID = true
	return inst
}

// SetRoot overrides the root, which defaults to the last added instruction.
func (b *ComputationBuilder) SetRoot(root *Instruction) *ComputationBuilder {
	b.comp.SetRoot(root)
	return b
}

// Build returns the computation.
func (b *ComputationBuilder) Build() *Computation {
	return b.comp
}

// Pairs is a shorthand for building routing tables in code and tests:
// Pairs(0, 1, 1, 0) routes 0->1 and 1->0.
func Pairs(ids ...int64) []SourceTargetPair {
	if len(ids)%2 != 0 {
		panic("Pairs needs an even number of ids")
	}
	pairs := make([]SourceTargetPair, 0, len(ids)/2)
	for i := 0; i < len(ids); i += 2 {
		pairs = append(pairs, SourceTargetPair{Source: ids[i], Target: ids[i+1]})
	}
	return pairs
}
