package ir_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/collfold/ir"
)

var _ = Describe("Instruction", func() {
	var (
		b        *ir.ComputationBuilder
		data     *ir.Instruction
		other    *ir.Instruction
		pid      *ir.Instruction
		cmp      *ir.Instruction
		sel      *ir.Instruction
		permute  *ir.Instruction
		vecShape ir.Shape
	)

	BeforeEach(func() {
		vecShape = ir.ArrayShape(ir.F32, 4)
		b = ir.NewComputationBuilder("main")
		data = b.Parameter("data", 0, vecShape)
		other = b.Parameter("other", 1, vecShape)
		pid = b.PartitionID("pid")
		zero := b.Constant("zero", ir.IntLiteral(ir.U32, 0))
		cmp = b.Compare("cmp", ir.DirectionEQ, pid, zero)
		sel = b.Select("sel", cmp, data, other)
		permute = b.ChannelCollectivePermute("cp", sel, ir.Pairs(0, 1, 1, 0), 1)
	})

	It("should track users when instructions are added", func() {
		Expect(sel.Users()).To(ConsistOf(permute))
		Expect(data.Users()).To(ConsistOf(sel))
		Expect(pid.Users()).To(ConsistOf(cmp))
		Expect(b.Build().Root()).To(BeIdenticalTo(permute))
	})

	It("should derive result shapes", func() {
		Expect(cmp.Shape()).To(Equal(ir.ScalarShape(ir.PRED)))
		Expect(sel.Shape().Compatible(vecShape)).To(BeTrue())
		Expect(permute.Shape().Compatible(vecShape)).To(BeTrue())
	})

	Context("when replacing operands", func() {
		It("should rewire the operand and the user lists", func() {
			Expect(permute.ReplaceOperandWith(0, data)).To(Succeed())

			Expect(permute.Operand(0)).To(BeIdenticalTo(data))
			Expect(sel.Users()).To(BeEmpty())
			Expect(data.Users()).To(ConsistOf(sel, permute))
		})

		It("should keep the user entry if the old operand is still used", func() {
			sum := b.Add("sum", data, data)

			Expect(sum.ReplaceOperandWith(0, other)).To(Succeed())

			Expect(data.Users()).To(ContainElement(sum))
			Expect(other.Users()).To(ContainElement(sum))
		})

		It("should reject an index out of range", func() {
			err := permute.ReplaceOperandWith(1, data)
			Expect(err).To(MatchError(ir.ErrOperandIndex))
			Expect(permute.Operand(0)).To(BeIdenticalTo(sel))
		})

		It("should reject an incompatible shape", func() {
			err := permute.ReplaceOperandWith(0, pid)
			Expect(err).To(MatchError(ir.ErrShapeMismatch))
		})

		It("should reject an operand from another computation", func() {
			foreign := ir.NewComputationBuilder("other").Parameter("p", 0, vecShape)
			err := permute.ReplaceOperandWith(0, foreign)
			Expect(err).To(MatchError(ir.ErrForeignOperand))
		})

		It("should reject nil", func() {
			Expect(permute.ReplaceOperandWith(0, nil)).NotTo(Succeed())
		})
	})

	It("should print in HLO-like text", func() {
		Expect(permute.String()).To(Equal(
			"%cp = f32[4] collective-permute(%sel), channel_id=1, source_target_pairs={{0,1},{1,0}}"))
		Expect(cmp.String()).To(Equal("%cmp = pred[] compare(%pid, %zero), direction=EQ"))
	})
})

var _ = Describe("Computation", func() {
	It("should only remove instructions without users", func() {
		b := ir.NewComputationBuilder("main")
		p := b.Parameter("p", 0, ir.ScalarShape(ir.S32))
		dead := b.Add("dead", p, p)
		root := b.Add("root", p, p)
		c := b.SetRoot(root).Build()

		Expect(c.RemoveInstruction(p)).NotTo(Succeed())
		Expect(c.RemoveInstruction(root)).NotTo(Succeed())
		Expect(c.RemoveInstruction(dead)).To(Succeed())

		Expect(c.Instructions()).To(Equal([]*ir.Instruction{p, root}))
		Expect(p.Users()).To(ConsistOf(root))
		_, found := c.Instruction("dead")
		Expect(found).To(BeFalse())
	})

	It("should order operands before users", func() {
		b := ir.NewComputationBuilder("main")
		p := b.Parameter("p", 0, ir.ScalarShape(ir.S32))
		q := b.Parameter("q", 1, ir.ScalarShape(ir.S32))
		sum := b.Add("sum", q, p)
		lone := b.ReplicaID("lone")
		c := b.SetRoot(sum).Build()

		order := c.MakeInstructionPostOrder()

		Expect(order).To(Equal([]*ir.Instruction{q, p, sum, lone}))
	})

	It("should auto-name unnamed instructions", func() {
		b := ir.NewComputationBuilder("main")
		rid := b.ReplicaID("")
		Expect(rid.Name()).To(Equal("replica_id.0"))
	})
})

var _ = Describe("Module", func() {
	var m *ir.Module

	BeforeEach(func() {
		m = ir.NewModule("m")
		m.AddComputation(ir.NewComputationBuilder("main").Build())
		m.AddComputation(ir.NewComputationBuilder("async").
			WithExecutionThread("host").Build())
	})

	It("should select all computations for an empty thread set", func() {
		Expect(m.Computations(nil)).To(HaveLen(2))
		Expect(m.Computations(ir.NewExecutionThreads())).To(HaveLen(2))
	})

	It("should filter computations by thread", func() {
		comps := m.Computations(ir.NewExecutionThreads("host"))
		Expect(comps).To(HaveLen(1))
		Expect(comps[0].Name()).To(Equal("async"))

		Expect(m.Computations(ir.NewExecutionThreads("gpu"))).To(BeEmpty())
	})

	It("should deep copy on clone", func() {
		b := ir.NewComputationBuilder("work")
		p := b.Parameter("p", 0, ir.ScalarShape(ir.S32))
		q := b.Parameter("q", 1, ir.ScalarShape(ir.S32))
		sum := b.Add("sum", p, p)
		m.AddComputation(b.Build())

		clone := m.Clone()
		Expect(clone.String()).To(Equal(m.String()))

		Expect(sum.ReplaceOperandWith(1, q)).To(Succeed())
		Expect(clone.String()).NotTo(Equal(m.String()))

		work, ok := clone.Computation("work")
		Expect(ok).To(BeTrue())
		cloned, _ := work.Instruction("sum")
		Expect(cloned.Operand(1).Name()).To(Equal("p"))
		Expect(cloned.Parent()).To(BeIdenticalTo(work))
	})
})
