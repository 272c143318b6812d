package fold_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/collfold/fold"
	"github.com/sarchlab/collfold/ir"
)

var _ = Describe("CollectiveSelectFolder", func() {
	var folder *fold.CollectiveSelectFolder

	BeforeEach(func() {
		folder = fold.NewCollectiveSelectFolder()
	})

	It("should be named", func() {
		Expect(folder.Name()).To(Equal("collective-select-folder"))
	})

	It("should not fold when the predicate differs across sources", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.PartitionID,
			direction: ir.DirectionEQ,
			constant:  0,
			pairs:     ir.Pairs(0, 1, 1, 2, 2, 0),
			channelID: 1,
		})

		changed, err := folder.Run(g.module, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())
		Expect(g.permute.Operand(0)).To(BeIdenticalTo(g.sel))
	})

	It("should forward the true branch when the predicate always holds", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.PartitionID,
			direction: ir.DirectionNE,
			constant:  5,
			pairs:     ir.Pairs(0, 1, 1, 0),
			channelID: 1,
		})

		changed, err := folder.Run(g.module, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())
		Expect(g.permute.Operand(0)).To(BeIdenticalTo(g.onTrue))
	})

	It("should forward the false branch when the predicate never holds", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.ReplicaID,
			direction: ir.DirectionEQ,
			constant:  5,
			broadcast: true,
			pairs:     ir.Pairs(0, 1, 1, 0),
		})

		changed, err := folder.Run(g.module, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())
		Expect(g.permute.Operand(0)).To(BeIdenticalTo(g.onFalse))
	})

	It("should keep the select in the computation", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.ReplicaID,
			direction: ir.DirectionEQ,
			constant:  1,
			pairs:     ir.Pairs(1, 0),
		})
		count := g.module.InstructionCount()

		changed, err := folder.Run(g.module, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())
		Expect(g.module.InstructionCount()).To(Equal(count))
		Expect(g.sel.Parent()).NotTo(BeNil())
		Expect(g.sel.Users()).To(BeEmpty())
		Expect(g.onTrue.Users()).To(ConsistOf(g.sel, g.permute))
	})

	It("should not fold partition ids into a cross-replica permute", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.PartitionID,
			direction: ir.DirectionNE,
			constant:  5,
			pairs:     ir.Pairs(0, 1, 1, 0),
		})

		changed, err := folder.Run(g.module, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())
		Expect(g.permute.Operand(0)).To(BeIdenticalTo(g.sel))
	})

	It("should not fold replica ids into a cross-partition permute", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.ReplicaID,
			direction: ir.DirectionNE,
			constant:  5,
			pairs:     ir.Pairs(0, 1, 1, 0),
			channelID: 7,
		})

		changed, err := folder.Run(g.module, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())
	})

	It("should not fold a permute with an empty routing table", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.ReplicaID,
			direction: ir.DirectionNE,
			constant:  5,
		})

		changed, err := folder.Run(g.module, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())
	})

	It("should report no change on a second run", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.PartitionID,
			direction: ir.DirectionNE,
			constant:  5,
			pairs:     ir.Pairs(0, 1, 1, 0),
			channelID: 1,
		})

		changed, err := folder.Run(g.module, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())
		before := g.module.String()

		changed, err = folder.Run(g.module, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())
		Expect(g.module.String()).To(Equal(before))
	})

	It("should leave computations of other threads alone", func() {
		g := buildSelectPermute(selectPermute{
			identity:  ir.PartitionID,
			direction: ir.DirectionNE,
			constant:  5,
			pairs:     ir.Pairs(0, 1, 1, 0),
			channelID: 1,
		})

		changed, err := folder.Run(g.module, ir.NewExecutionThreads("host"))
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeFalse())

		changed, err = folder.Run(g.module, ir.NewExecutionThreads(ir.MainThread))
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())
	})

	It("should fold every candidate of a module", func() {
		m, err := ir.ParseModuleYAML([]byte(`
name: two
computations:
  - name: a
    instructions:
      - {name: x, opcode: parameter, shape: "s32[2]", parameter: 0}
      - {name: y, opcode: parameter, shape: "s32[2]", parameter: 1}
      - {name: rid, opcode: replica-id}
      - {name: c, opcode: constant, shape: "u32[]", literal: [9]}
      - {name: cmp, opcode: compare, direction: EQ, operands: [rid, c]}
      - {name: sel, opcode: select, operands: [cmp, x, y]}
      - {name: cp1, opcode: collective-permute, operands: [sel], source_target_pairs: [[0, 1]]}
      - {name: cp2, opcode: collective-permute, operands: [sel], source_target_pairs: [[9, 1]]}
      - {name: out, opcode: add, operands: [cp1, cp2]}
  - name: b
    thread: host
    instructions:
      - {name: x, opcode: parameter, shape: "s32[2]", parameter: 0}
      - {name: y, opcode: parameter, shape: "s32[2]", parameter: 1}
      - {name: pid, opcode: partition-id}
      - {name: c, opcode: constant, shape: "u32[]", literal: [0]}
      - {name: cmp, opcode: compare, direction: NE, operands: [pid, c]}
      - {name: sel, opcode: select, operands: [cmp, x, y]}
      - {name: cp, opcode: collective-permute, operands: [sel], channel_id: 3, source_target_pairs: [[1, 0], [2, 0]]}
`))
		Expect(err).NotTo(HaveOccurred())

		changed, err := folder.Run(m, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(changed).To(BeTrue())

		a, _ := m.Computation("a")
		cp1, _ := a.Instruction("cp1")
		cp2, _ := a.Instruction("cp2")
		Expect(cp1.Operand(0).Name()).To(Equal("y"))
		Expect(cp2.Operand(0).Name()).To(Equal("x"))

		b, _ := m.Computation("b")
		cp, _ := b.Instruction("cp")
		Expect(cp.Operand(0).Name()).To(Equal("x"))
	})

	Context("when the representation is malformed", func() {
		It("should fail on a collective that cannot derive its group mode", func() {
			g := buildSelectPermute(selectPermute{
				identity:  ir.PartitionID,
				direction: ir.DirectionNE,
				constant:  5,
				pairs:     ir.Pairs(0, 1, 1, 0),
				channelID: -1,
			})

			_, err := folder.Run(g.module, nil)

			Expect(err).To(MatchError(ContainSubstring("channel id must be positive")))
			Expect(err).To(MatchError(ContainSubstring("collective-select-folder")))
		})

		It("should fail when the branch cannot replace the operand", func() {
			m, err := ir.ParseModuleYAML([]byte(`
name: bad
computations:
  - name: main
    instructions:
      - {name: x, opcode: parameter, shape: "f32[8]", parameter: 0}
      - {name: y, opcode: parameter, shape: "f32[8]", parameter: 1}
      - {name: pid, opcode: partition-id}
      - {name: c, opcode: constant, shape: "u32[]", literal: [4]}
      - {name: cmp, opcode: compare, direction: NE, operands: [pid, c]}
      - {name: sel, opcode: select, shape: "f32[4]", operands: [cmp, x, y]}
      - {name: cp, opcode: collective-permute, operands: [sel], channel_id: 1, source_target_pairs: [[0, 1]]}
`))
			Expect(err).NotTo(HaveOccurred())

			_, err = folder.Run(m, nil)

			Expect(err).To(MatchError(ir.ErrShapeMismatch))
		})

		It("should keep folds applied before the error", func() {
			m, err := ir.ParseModuleYAML([]byte(`
name: partial
computations:
  - name: main
    instructions:
      - {name: x, opcode: parameter, shape: "f32[8]", parameter: 0}
      - {name: y, opcode: parameter, shape: "f32[8]", parameter: 1}
      - {name: pid, opcode: partition-id}
      - {name: c, opcode: constant, shape: "u32[]", literal: [4]}
      - {name: cmp, opcode: compare, direction: NE, operands: [pid, c]}
      - {name: sel, opcode: select, operands: [cmp, x, y]}
      - {name: good, opcode: collective-permute, operands: [sel], channel_id: 1, source_target_pairs: [[0, 1]]}
      - {name: bad, opcode: collective-permute, operands: [sel], channel_id: 0, source_target_pairs: [[0, 1]]}
`))
			Expect(err).NotTo(HaveOccurred())

			_, err = folder.Run(m, nil)
			Expect(err).To(HaveOccurred())

			main, _ := m.Computation("main")
			good, _ := main.Instruction("good")
			bad, _ := main.Instruction("bad")
			Expect(good.Operand(0).Name()).To(Equal("x"))
			Expect(bad.Operand(0).Name()).To(Equal("sel"))
		})
	})
})
