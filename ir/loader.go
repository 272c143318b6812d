package ir

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type yamlModule struct {
	Name         string            `yaml:"name"`
	Computations []yamlComputation `yaml:"computations"`
}

type yamlComputation struct {
	Name         string            `yaml:"name"`
	Thread       string            `yaml:"thread"`
	Root         string            `yaml:"root"`
	Instructions []yamlInstruction `yaml:"instructions"`
}

type yamlInstruction struct {
	Name              string    `yaml:"name"`
	Opcode            string    `yaml:"opcode"`
	Shape             string    `yaml:"shape"`
	Operands          []string  `yaml:"operands"`
	Direction         string    `yaml:"direction"`
	Literal           []string  `yaml:"literal"`
	SourceTargetPairs [][]int64 `yaml:"source_target_pairs"`
	ChannelID         *int64    `yaml:"channel_id"`
	Dimensions        []int64   `yaml:"dimensions"`
	Parameter         int       `yaml:"parameter"`
}

// LoadModuleFromYAML reads a module description from a YAML file.
func LoadModuleFromYAML(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module file: %w", err)
	}

	m, err := ParseModuleYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// ParseModuleYAML builds a module from its YAML description.
//
//	name: m
//	computations:
//	  - name: main
//	    thread: main
//	    root: cp
//	    instructions:
//	      - {name: pid, opcode: partition-id, shape: "u32[]"}
//	      - {name: zero, opcode: constant, shape: "u32[]", literal: [0]}
//	      - {name: cmp, opcode: compare, direction: EQ, operands: [pid, zero]}
//	      - ...
//	      - name: cp
//	        opcode: collective-permute
//	        operands: [sel]
//	        channel_id: 1
//	        source_target_pairs: [[0, 1], [1, 0]]
//
// Operands must be defined before they are used.
func ParseModuleYAML(data []byte) (*Module, error) {
	var ym yamlModule
	if err := yaml.Unmarshal(data, &ym); err != nil {
		return nil, fmt.Errorf("failed to parse module: %w", err)
	}

	m := NewModule(ym.Name)
	for _, yc := range ym.Computations {
		c, err := buildComputation(yc)
		if err != nil {
			return nil, fmt.Errorf("computation %s: %w", yc.Name, err)
		}
		if _, dup := m.Computation(c.Name()); dup {
			return nil, fmt.Errorf("duplicate computation %s", c.Name())
		}
		m.AddComputation(c)
	}

	Trace("LoadModule",
		"Module", m.Name(),
		"Computations", len(ym.Computations),
		"Instructions", m.InstructionCount(),
	)

	return m, nil
}

func buildComputation(yc yamlComputation) (*Computation, error) {
	c := NewComputation(yc.Name)
	if yc.Thread != "" {
		c.thread = yc.Thread
	}

	for _, yi := range yc.Instructions {
		inst, err := buildInstruction(c, yi)
		if err != nil {
			return nil, fmt.Errorf("instruction %s: %w", yi.Name, err)
		}
		c.AddInstruction(inst)
	}

	if yc.Root != "" {
		root, ok := c.Instruction(yc.Root)
		if !ok {
			return nil, fmt.Errorf("unknown root %s", yc.Root)
		}
		c.SetRoot(root)
	}

	return c, nil
}

func buildInstruction(c *Computation, yi yamlInstruction) (*Instruction, error) {
	if yi.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if _, dup := c.Instruction(yi.Name); dup {
		return nil, fmt.Errorf("duplicate name")
	}

	opcode, err := ParseOpcode(yi.Opcode)
	if err != nil {
		return nil, err
	}

	inst := &Instruction{name: yi.Name, opcode: opcode}

	for _, name := range yi.Operands {
		op, ok := c.Instruction(name)
		if !ok {
			return nil, fmt.Errorf("unknown operand %s", name)
		}
		inst.operands = append(inst.operands, op)
	}
	if len(inst.operands) != opcode.Arity() {
		return nil, fmt.Errorf("%s expects %d operands, got %d",
			opcode, opcode.Arity(), len(inst.operands))
	}

	if yi.Shape != "" {
		inst.shape, err = ParseShape(yi.Shape)
		if err != nil {
			return nil, err
		}
	} else {
		inst.shape, err = inferShape(inst)
		if err != nil {
			return nil, err
		}
	}

	switch opcode {
	case Compare:
		inst.direction, err = ParseComparisonDirection(yi.Direction)
		if err != nil {
			return nil, err
		}
	case Constant:
		inst.literal, err = parseLiteral(inst.shape.Type, yi.Literal)
		if err != nil {
			return nil, err
		}
	case CollectivePermute:
		for _, p := range yi.SourceTargetPairs {
			if len(p) != 2 {
				return nil, fmt.Errorf("source target pair %v must have two ids", p)
			}
			inst.sourceTargetPairs = append(inst.sourceTargetPairs,
				SourceTargetPair{Source: p[0], Target: p[1]})
		}
		if yi.ChannelID != nil {
			inst.channelID = *yi.ChannelID
			inst.hasChannelID = true
		}
	case Broadcast:
		inst.dimensions = yi.Dimensions
	case Parameter:
		inst.parameterNumber = yi.Parameter
	}

	return inst, nil
}

func parseLiteral(t ElementType, values []string) (Literal, error) {
	lit := Literal{Type: t}
	for _, v := range values {
		if t == F32 {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				return Literal{}, fmt.Errorf("literal %q: %w", v, err)
			}
			lit.Floats = append(lit.Floats, f)
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Literal{}, fmt.Errorf("literal %q: %w", v, err)
		}
		lit.Ints = append(lit.Ints, n)
	}
	return lit, nil
}

// inferShape fills in the shape of instructions whose shape follows from
// their operands.
func inferShape(inst *Instruction) (Shape, error) {
	switch inst.opcode {
	case ReplicaID, PartitionID:
		return ScalarShape(U32), nil
	case Compare:
		if len(inst.operands) > 0 {
			return inst.operands[0].shape.WithType(PRED), nil
		}
	case Select:
		if len(inst.operands) == 3 {
			return inst.operands[1].shape, nil
		}
	case Add, CollectivePermute:
		if len(inst.operands) > 0 {
			return inst.operands[0].shape, nil
		}
	}
	return Shape{}, fmt.Errorf("missing shape for %s", inst.opcode)
}
