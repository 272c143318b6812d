package verify

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/collfold/ir"
)

// FunctionalSimulator evaluates a module on every participant of a topology.
type FunctionalSimulator struct {
	module  *ir.Module
	topo    Topology
	engine  sim.Engine
	states  map[Participant]*ParticipantState
	latency sim.VTimeInSec

	// ParameterValue gives the value of parameter number n on participant p.
	ParameterValue func(n int, p Participant) int64

	// TraceDelivery, if set, is called for every collective-permute delivery.
	TraceDelivery func(inst *ir.Instruction, from, to Participant, v int64)
}

// NewFunctionalSimulator creates a simulator for m on topo.
func NewFunctionalSimulator(m *ir.Module, topo Topology) *FunctionalSimulator {
	fs := &FunctionalSimulator{
		module:  m,
		topo:    topo,
		engine:  sim.NewSerialEngine(),
		states:  make(map[Participant]*ParticipantState),
		latency: 1e-9,
	}
	fs.ParameterValue = fs.defaultParameterValue

	return fs
}

func (fs *FunctionalSimulator) defaultParameterValue(n int, p Participant) int64 {
	return int64(1000*(n+1) + fs.topo.FlatID(p))
}

// Run evaluates every computation on every participant.
func (fs *FunctionalSimulator) Run() error {
	if err := fs.topo.validate(); err != nil {
		return err
	}

	for _, p := range fs.topo.Participants() {
		fs.states[p] = NewParticipantState()
	}

	for _, comp := range fs.module.Computations(nil) {
		for _, inst := range comp.MakeInstructionPostOrder() {
			var err error
			if inst.Opcode() == ir.CollectivePermute {
				err = fs.runCollectivePermute(comp, inst)
			} else {
				err = fs.runLocal(comp, inst)
			}
			if err != nil {
				return fmt.Errorf("computation %s: instruction %s: %w",
					comp.Name(), inst.Name(), err)
			}
		}
	}

	slog.Debug("FunctionalSimulation",
		"Module", fs.module.Name(),
		"Participants", len(fs.states),
		"Time", float64(fs.engine.CurrentTime()),
	)

	return nil
}

// Value returns what an instruction computed on a participant.
func (fs *FunctionalSimulator) Value(comp, inst string, p Participant) (int64, bool) {
	state, ok := fs.states[p]
	if !ok {
		return 0, false
	}
	return state.Read(comp, inst)
}

// RootValue returns the root value of a computation on a participant.
func (fs *FunctionalSimulator) RootValue(comp string, p Participant) (int64, bool) {
	c, ok := fs.module.Computation(comp)
	if !ok || c.Root() == nil {
		return 0, false
	}
	return fs.Value(comp, c.Root().Name(), p)
}

func (fs *FunctionalSimulator) operand(
	comp *ir.Computation,
	inst *ir.Instruction,
	n int,
	p Participant,
) int64 {
	v, ok := fs.states[p].Read(comp.Name(), inst.Operand(n).Name())
	if !ok {
		panic(fmt.Sprintf("operand %s of %s evaluated out of order",
			inst.Operand(n).Name(), inst.Name()))
	}
	return v
}

func (fs *FunctionalSimulator) runLocal(comp *ir.Computation, inst *ir.Instruction) error {
	for _, p := range fs.topo.Participants() {
		var v int64

		switch inst.Opcode() {
		case ir.Parameter:
			v = fs.ParameterValue(inst.ParameterNumber(), p)
		case ir.Constant:
			v = constantValue(inst.Literal())
		case ir.ReplicaID:
			v = int64(p.Replica)
		case ir.PartitionID:
			v = int64(p.Partition)
		case ir.Broadcast:
			v = fs.operand(comp, inst, 0, p)
		case ir.Compare:
			lhs := fs.operand(comp, inst, 0, p)
			rhs := fs.operand(comp, inst, 1, p)
			if inst.ComparisonDirection().Apply(lhs, rhs) {
				v = 1
			}
		case ir.Select:
			if fs.operand(comp, inst, 0, p) != 0 {
				v = fs.operand(comp, inst, 1, p)
			} else {
				v = fs.operand(comp, inst, 2, p)
			}
		case ir.Add:
			v = fs.operand(comp, inst, 0, p) + fs.operand(comp, inst, 1, p)
		default:
			return fmt.Errorf("opcode %s is not simulated", inst.Opcode())
		}

		fs.states[p].Write(comp.Name(), inst.Name(), v)
	}

	return nil
}

func constantValue(lit ir.Literal) int64 {
	if v, ok := lit.FirstInteger(); ok {
		return v
	}
	if len(lit.Floats) > 0 {
		return int64(lit.Floats[0])
	}
	return 0
}

// deliveryEvent carries one value of a collective-permute to its target.
type deliveryEvent struct {
	*sim.EventBase
	from  Participant
	to    Participant
	value int64
}

// permuteHandler collects the values a collective-permute delivers.
type permuteHandler struct {
	fs       *FunctionalSimulator
	inst     *ir.Instruction
	received map[Participant]int64
}

func (h *permuteHandler) Handle(e sim.Event) error {
	evt, ok := e.(*deliveryEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	h.received[evt.to] = evt.value

	if h.fs.TraceDelivery != nil {
		h.fs.TraceDelivery(h.inst, evt.from, evt.to, evt.value)
	}
	ir.Trace("Deliver",
		"Instruction", h.inst.Name(),
		"From", evt.from.String(),
		"To", evt.to.String(),
		"Value", evt.value,
		"Time", float64(h.fs.engine.CurrentTime()),
	)

	return nil
}

func (fs *FunctionalSimulator) runCollectivePermute(comp *ir.Computation, inst *ir.Instruction) error {
	mode, err := inst.CollectiveGroupMode(nil)
	if err != nil {
		return err
	}

	handler := &permuteHandler{
		fs:       fs,
		inst:     inst,
		received: make(map[Participant]int64),
	}
	now := fs.engine.CurrentTime()
	targeted := make(map[Participant]bool)

	for _, from := range fs.topo.Participants() {
		for _, pair := range inst.SourceTargetPairs() {
			to, sends, err := route(mode, from, pair)
			if err != nil {
				return err
			}
			if !sends {
				continue
			}
			if !fs.topo.Contains(to) {
				return fmt.Errorf("pair %s targets %s outside the %dx%d topology",
					pair, to, fs.topo.Replicas, fs.topo.Partitions)
			}
			if targeted[to] {
				return fmt.Errorf("participant %s receives more than once", to)
			}
			targeted[to] = true

			fs.engine.Schedule(&deliveryEvent{
				EventBase: sim.NewEventBase(now+fs.latency, handler),
				from:      from,
				to:        to,
				value:     fs.operand(comp, inst, 0, from),
			})
		}
	}

	if err := fs.engine.Run(); err != nil {
		return err
	}

	// Participants nobody sends to receive zeros.
	for _, p := range fs.topo.Participants() {
		fs.states[p].Write(comp.Name(), inst.Name(), handler.received[p])
	}

	return nil
}

// route tells where participant from sends data for one pair.
func route(mode ir.GroupMode, from Participant, pair ir.SourceTargetPair) (Participant, bool, error) {
	switch mode {
	case ir.CrossReplica:
		if int64(from.Replica) != pair.Source {
			return Participant{}, false, nil
		}
		return Participant{Replica: int(pair.Target), Partition: from.Partition}, true, nil
	case ir.CrossPartition:
		if int64(from.Partition) != pair.Source {
			return Participant{}, false, nil
		}
		return Participant{Replica: from.Replica, Partition: int(pair.Target)}, true, nil
	default:
		return Participant{}, false, fmt.Errorf("group mode %s is not simulated", mode)
	}
}
