package ir

import (
	"fmt"
	"strings"
)

// MainThread is the execution thread of computations that do not name one.
const MainThread = "main"

// Computation is a graph of instructions with a single root.
type Computation struct {
	name   string
	thread string
	module *Module

	instructions []*Instruction
	byName       map[string]*Instruction
	root         *Instruction
	nextID       int
}

// NewComputation creates an empty computation on the main thread.
func NewComputation(name string) *Computation {
	return &Computation{
		name:   name,
		thread: MainThread,
		byName: make(map[string]*Instruction),
	}
}

// Name returns the computation name.
func (c *Computation) Name() string { return c.name }

// ExecutionThread returns the thread tag of the computation.
func (c *Computation) ExecutionThread() string { return c.thread }

// SetExecutionThread changes the thread tag of the computation.
func (c *Computation) SetExecutionThread(thread string) { c.thread = thread }

// Module returns the module that owns the computation, if any.
func (c *Computation) Module() *Module { return c.module }

// Root returns the root instruction.
func (c *Computation) Root() *Instruction { return c.root }

// SetRoot makes inst the root of the computation.
func (c *Computation) SetRoot(inst *Instruction) {
	if inst.parent != c {
		panic(fmt.Sprintf("root %s does not belong to computation %s", inst.name, c.name))
	}
	c.root = inst
}

// InstructionCount returns the number of instructions.
func (c *Computation) InstructionCount() int { return len(c.instructions) }

// Instructions returns the instructions in insertion order.
func (c *Computation) Instructions() []*Instruction {
	return append([]*Instruction(nil), c.instructions...)
}

// Instruction looks up an instruction by name.
func (c *Computation) Instruction(name string) (*Instruction, bool) {
	inst, ok := c.byName[name]
	return inst, ok
}

// AddInstruction takes ownership of inst. Its operands must already belong
// to the computation. The last added instruction becomes the root.
func (c *Computation) AddInstruction(inst *Instruction) *Instruction {
	if inst.parent != nil {
		panic(fmt.Sprintf("instruction %s already belongs to %s", inst.name, inst.parent.name))
	}

	if inst.name == "" {
		inst.name = fmt.Sprintf("%s.%d", strings.ReplaceAll(inst.opcode.String(), "-", "_"), c.nextID)
	}

	if _, dup := c.byName[inst.name]; dup {
		panic(fmt.Sprintf("duplicate instruction name %s in %s", inst.name, c.name))
	}

	for _, op := range inst.operands {
		if op.parent != c {
			panic(fmt.Sprintf("operand %s of %s is not in computation %s", op.name, inst.name, c.name))
		}
	}

	inst.id = c.nextID
	inst.parent = c
	c.nextID++
	c.instructions = append(c.instructions, inst)
	c.byName[inst.name] = inst
	c.root = inst

	for _, op := range inst.operands {
		op.addUser(inst)
	}

	return inst
}

// RemoveInstruction deletes an instruction that has no users and is not the
// root.
func (c *Computation) RemoveInstruction(inst *Instruction) error {
	if inst.parent != c {
		return fmt.Errorf("%s: %w", inst.name, ErrForeignOperand)
	}
	if len(inst.users) > 0 {
		return fmt.Errorf("cannot remove %s: it still has %d users", inst.name, len(inst.users))
	}
	if inst == c.root {
		return fmt.Errorf("cannot remove root %s", inst.name)
	}

	for _, op := range inst.operands {
		op.removeUser(inst)
	}

	for n, other := range c.instructions {
		if other == inst {
			c.instructions = append(c.instructions[:n], c.instructions[n+1:]...)
			break
		}
	}
	delete(c.byName, inst.name)
	inst.parent = nil

	return nil
}

// MakeInstructionPostOrder returns the instructions reachable from the root
// in post order, followed by the unreachable ones in insertion order.
func (c *Computation) MakeInstructionPostOrder() []*Instruction {
	visited := make(map[*Instruction]bool, len(c.instructions))
	order := make([]*Instruction, 0, len(c.instructions))

	var visit func(inst *Instruction)
	visit = func(inst *Instruction) {
		if visited[inst] {
			return
		}
		visited[inst] = true
		for _, op := range inst.operands {
			visit(op)
		}
		order = append(order, inst)
	}

	if c.root != nil {
		visit(c.root)
	}

	for _, inst := range c.instructions {
		visit(inst)
	}

	return order
}

func (c *Computation) clone() *Computation {
	out := NewComputation(c.name)
	out.thread = c.thread
	out.nextID = c.nextID

	mapping := make(map[*Instruction]*Instruction, len(c.instructions))
	for _, inst := range c.instructions {
		cp := &Instruction{
			id:                inst.id,
			name:              inst.name,
			opcode:            inst.opcode,
			shape:             inst.shape.WithType(inst.shape.Type),
			parent:            out,
			direction:         inst.direction,
			literal:           inst.literal.clone(),
			sourceTargetPairs: append([]SourceTargetPair(nil), inst.sourceTargetPairs...),
			channelID:         inst.channelID,
			hasChannelID:      inst.hasChannelID,
			dimensions:        append([]int64(nil), inst.dimensions...),
			parameterNumber:   inst.parameterNumber,
		}
		mapping[inst] = cp
		out.instructions = append(out.instructions, cp)
		out.byName[cp.name] = cp
	}

	for _, inst := range c.instructions {
		cp := mapping[inst]
		for _, op := range inst.operands {
			cp.operands = append(cp.operands, mapping[op])
		}
		for _, u := range inst.users {
			cp.users = append(cp.users, mapping[u])
		}
	}

	if c.root != nil {
		out.root = mapping[c.root]
	}

	return out
}
