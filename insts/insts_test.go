package insts_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apex-sim/apexsim/insts"
)

func TestInsts(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Insts Suite")
}

var _ = Describe("Opcode", func() {
	It("should render mnemonics and UNKNOWN for an unrecognized opcode", func() {
		Expect(insts.OpADD.String()).To(Equal("ADD"))
		Expect(insts.OpMOVC.String()).To(Equal("MOVC"))
		Expect(insts.OpSTR.String()).To(Equal("STR"))
		Expect(insts.OpHALT.String()).To(Equal("HALT"))
		Expect(insts.OpUnknown.String()).To(Equal("UNKNOWN"))
	})

	It("should classify LOAD and LDR as loads", func() {
		Expect(insts.IsLoad(insts.OpLOAD)).To(BeTrue())
		Expect(insts.IsLoad(insts.OpLDR)).To(BeTrue())
		Expect(insts.IsLoad(insts.OpADD)).To(BeFalse())
		Expect(insts.IsLoad(insts.OpSTORE)).To(BeFalse())
	})
})

var _ = Describe("OperandTable", func() {
	It("should require two sources and a destination for register ALU ops", func() {
		for _, op := range []insts.Opcode{
			insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpDIV,
			insts.OpAND, insts.OpOR, insts.OpXOR,
		} {
			spec := insts.Operands(op)
			Expect(spec.ReadsRS1).To(BeTrue(), op.String())
			Expect(spec.ReadsRS2).To(BeTrue(), op.String())
			Expect(spec.ReadsRS3).To(BeFalse(), op.String())
			Expect(spec.WritesRD).To(BeTrue(), op.String())
		}
	})

	It("should require one source for immediate ALU ops and LOAD", func() {
		for _, op := range []insts.Opcode{insts.OpADDL, insts.OpSUBL, insts.OpLOAD} {
			spec := insts.Operands(op)
			Expect(spec.ReadsRS1).To(BeTrue(), op.String())
			Expect(spec.ReadsRS2).To(BeFalse(), op.String())
			Expect(spec.WritesRD).To(BeTrue(), op.String())
		}
	})

	It("should give STR three sources and no destination", func() {
		spec := insts.Operands(insts.OpSTR)
		Expect(spec.ReadsRS1).To(BeTrue())
		Expect(spec.ReadsRS2).To(BeTrue())
		Expect(spec.ReadsRS3).To(BeTrue())
		Expect(spec.WritesRD).To(BeFalse())
	})

	It("should give CMP sources but no destination", func() {
		spec := insts.Operands(insts.OpCMP)
		Expect(spec.ReadsRS1).To(BeTrue())
		Expect(spec.ReadsRS2).To(BeTrue())
		Expect(spec.WritesRD).To(BeFalse())
	})

	It("should give branches, HALT, and NOP no operands at all", func() {
		for _, op := range []insts.Opcode{insts.OpBZ, insts.OpBNZ, insts.OpHALT, insts.OpNOP} {
			Expect(insts.Operands(op)).To(BeZero(), op.String())
		}
	})

	It("should default unknown opcodes to no operands", func() {
		Expect(insts.Operands(insts.OpUnknown)).To(BeZero())
	})
})

var _ = Describe("CodeMemory", func() {
	prog := []insts.Instruction{
		{Opcode: insts.OpMOVC, OpcodeStr: "MOVC", RD: 1, Imm: 5},
		{Opcode: insts.OpHALT, OpcodeStr: "HALT"},
	}

	It("should map the base address to the first instruction", func() {
		code := insts.NewCodeMemory(prog)
		Expect(code.At(insts.Base).Opcode).To(Equal(insts.OpMOVC))
		Expect(code.At(insts.Base + 4).Opcode).To(Equal(insts.OpHALT))
	})

	It("should reject addresses outside the program", func() {
		code := insts.NewCodeMemory(prog)
		Expect(code.InRange(insts.Base - 4)).To(BeFalse())
		Expect(code.InRange(insts.Base)).To(BeTrue())
		Expect(code.InRange(insts.Base + 4)).To(BeTrue())
		Expect(code.InRange(insts.Base + 8)).To(BeFalse())
	})

	It("should convert PCs to indexes", func() {
		Expect(insts.IndexForPC(insts.Base)).To(Equal(0))
		Expect(insts.IndexForPC(insts.Base + 12)).To(Equal(3))
	})

	It("should report its length", func() {
		Expect(insts.NewCodeMemory(prog).Len()).To(Equal(2))
	})
})
