package ir

import (
	"errors"
	"fmt"
)

var (
	// ErrOperandIndex is returned when an operand index is out of range.
	ErrOperandIndex = errors.New("operand index out of range")

	// ErrShapeMismatch is returned when a replacement operand has a shape
	// that is not compatible with the operand it replaces.
	ErrShapeMismatch = errors.New("incompatible operand shape")

	// ErrForeignOperand is returned when an operand does not belong to the
	// computation of the instruction that uses it.
	ErrForeignOperand = errors.New("operand belongs to a different computation")
)

// Instruction is a node of a computation graph. Operands are non-owning
// references to other instructions of the same computation.
type Instruction struct {
	id     int
	name   string
	opcode Opcode
	shape  Shape
	parent *Computation

	operands []*Instruction
	users    []*Instruction

	// Opcode specific payload.
	direction         ComparisonDirection
	literal           Literal
	sourceTargetPairs []SourceTargetPair
	channelID         int64
	hasChannelID      bool
	dimensions        []int64
	parameterNumber   int
}

// Name returns the instruction name, unique within its computation.
func (i *Instruction) Name() string { return i.name }

// Opcode returns the operation the instruction performs.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Shape returns the result shape.
func (i *Instruction) Shape() Shape { return i.shape }

// Parent returns the computation that owns the instruction.
func (i *Instruction) Parent() *Computation { return i.parent }

// OperandCount returns the number of operands.
func (i *Instruction) OperandCount() int { return len(i.operands) }

// Operand returns the operand at index n.
func (i *Instruction) Operand(n int) *Instruction { return i.operands[n] }

// Operands returns a copy of the operand list.
func (i *Instruction) Operands() []*Instruction {
	return append([]*Instruction(nil), i.operands...)
}

// Users returns a copy of the instructions that use this one as an operand.
// An instruction using this one twice appears once.
func (i *Instruction) Users() []*Instruction {
	return append([]*Instruction(nil), i.users...)
}

// UserCount returns the number of distinct users.
func (i *Instruction) UserCount() int { return len(i.users) }

// ComparisonDirection returns the direction of a compare instruction.
func (i *Instruction) ComparisonDirection() ComparisonDirection { return i.direction }

// Literal returns the payload of a constant instruction.
func (i *Instruction) Literal() Literal { return i.literal }

// SourceTargetPairs returns the routing table of a collective-permute.
func (i *Instruction) SourceTargetPairs() []SourceTargetPair {
	return append([]SourceTargetPair(nil), i.sourceTargetPairs...)
}

// ChannelID returns the channel id of a collective and whether it is set.
func (i *Instruction) ChannelID() (int64, bool) { return i.channelID, i.hasChannelID }

// Dimensions returns the operand-to-result dimension mapping of a broadcast.
func (i *Instruction) Dimensions() []int64 {
	return append([]int64(nil), i.dimensions...)
}

// ParameterNumber returns the index of a parameter instruction.
func (i *Instruction) ParameterNumber() int { return i.parameterNumber }

// ReplaceOperandWith replaces the operand at index n with newOperand. The
// user lists of the old and the new operand are kept up to date.
func (i *Instruction) ReplaceOperandWith(n int, newOperand *Instruction) error {
	if n < 0 || n >= len(i.operands) {
		return fmt.Errorf("%s: index %d of %d: %w",
			i.name, n, len(i.operands), ErrOperandIndex)
	}

	if newOperand == nil {
		return fmt.Errorf("%s: replacing operand %d with nil", i.name, n)
	}

	if newOperand.parent != i.parent {
		return fmt.Errorf("%s: operand %s: %w", i.name, newOperand.name, ErrForeignOperand)
	}

	old := i.operands[n]
	if !old.shape.Compatible(newOperand.shape) {
		return fmt.Errorf("%s: replacing %s (%s) with %s (%s): %w",
			i.name, old.name, old.shape, newOperand.name, newOperand.shape,
			ErrShapeMismatch)
	}

	if old == newOperand {
		return nil
	}

	i.operands[n] = newOperand
	if !i.uses(old) {
		old.removeUser(i)
	}
	newOperand.addUser(i)

	Trace("ReplaceOperand",
		"Instruction", i.name,
		"Index", n,
		"Old", old.name,
		"New", newOperand.name,
	)

	return nil
}

func (i *Instruction) uses(op *Instruction) bool {
	for _, o := range i.operands {
		if o == op {
			return true
		}
	}
	return false
}

func (i *Instruction) addUser(user *Instruction) {
	for _, u := range i.users {
		if u == user {
			return
		}
	}
	i.users = append(i.users, user)
}

func (i *Instruction) removeUser(user *Instruction) {
	for n, u := range i.users {
		if u == user {
			i.users = append(i.users[:n], i.users[n+1:]...)
			return
		}
	}
}

func (i *Instruction) String() string {
	return fmt.Sprintf("%%%s = %s %s(%s)%s",
		i.name, i.shape, i.opcode, i.operandNames(), i.attributeString())
}

func (i *Instruction) operandNames() string {
	s := ""
	for n, o := range i.operands {
		if n > 0 {
			s += ", "
		}
		s += "%" + o.name
	}
	if i.opcode == Constant {
		s = i.literal.String()
	}
	if i.opcode == Parameter {
		s = fmt.Sprintf("%d", i.parameterNumber)
	}
	return s
}

func (i *Instruction) attributeString() string {
	switch i.opcode {
	case Compare:
		return ", direction=" + i.direction.String()
	case Broadcast:
		return fmt.Sprintf(", dimensions=%v", i.dimensions)
	case CollectivePermute:
		s := ""
		if i.hasChannelID {
			s += fmt.Sprintf(", channel_id=%d", i.channelID)
		}
		pairs := ""
		for n, p := range i.sourceTargetPairs {
			if n > 0 {
				pairs += ","
			}
			pairs += p.String()
		}
		return s + ", source_target_pairs={" + pairs + "}"
	default:
		return ""
	}
}
