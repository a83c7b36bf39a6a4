package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apex-sim/apexsim/emu"
	"github.com/apex-sim/apexsim/insts"
	"github.com/apex-sim/apexsim/timing/pipeline"
)

var _ = Describe("ExecuteStage", func() {
	var stage *pipeline.ExecuteStage

	BeforeEach(func() {
		stage = pipeline.NewExecuteStage()
	})

	inst := func(op insts.Opcode, imm int32) insts.Instruction {
		return insts.Instruction{Opcode: op, OpcodeStr: op.String(), Imm: imm}
	}

	Describe("ALU operations", func() {
		It("should add register operands", func() {
			r := stage.Execute(inst(insts.OpADD, 0), 3, 4, 0)
			Expect(r.Result).To(Equal(int32(7)))
			Expect(r.SetsZF).To(BeTrue())
			Expect(r.ZF).To(BeFalse())
		})

		It("should add an immediate for ADDL", func() {
			r := stage.Execute(inst(insts.OpADDL, 10), 5, 0, 0)
			Expect(r.Result).To(Equal(int32(15)))
		})

		It("should set the zero flag on a zero result", func() {
			r := stage.Execute(inst(insts.OpSUB, 0), 9, 9, 0)
			Expect(r.Result).To(Equal(int32(0)))
			Expect(r.ZF).To(BeTrue())
		})

		It("should wrap signed 32-bit overflow", func() {
			r := stage.Execute(inst(insts.OpADD, 0), 2147483647, 1, 0)
			Expect(r.Result).To(Equal(int32(-2147483648)))
		})

		It("should substitute zero on divide by zero", func() {
			r := stage.Execute(inst(insts.OpDIV, 0), 10, 0, 0)
			Expect(r.Result).To(Equal(int32(0)))
			Expect(r.DivByZero).To(BeTrue())
			Expect(r.ZF).To(BeTrue())
		})

		It("should compute CMP as a subtraction that only sets flags", func() {
			r := stage.Execute(inst(insts.OpCMP, 0), 4, 4, 0)
			Expect(r.Result).To(Equal(int32(0)))
			Expect(r.ZF).To(BeTrue())
		})

		It("should move a constant for MOVC", func() {
			r := stage.Execute(inst(insts.OpMOVC, -42), 0, 0, 0)
			Expect(r.Result).To(Equal(int32(-42)))
		})
	})

	Describe("address formation", func() {
		It("should form LOAD addresses from rs1 + imm", func() {
			r := stage.Execute(inst(insts.OpLOAD, 8), 100, 0, 0)
			Expect(r.MemAddr).To(Equal(int32(108)))
			Expect(r.SetsZF).To(BeFalse())
		})

		It("should form LDR addresses from rs1 + rs2", func() {
			r := stage.Execute(inst(insts.OpLDR, 0), 100, 8, 0)
			Expect(r.MemAddr).To(Equal(int32(108)))
		})

		It("should form STORE addresses from rs2 + imm and carry rs1 as data", func() {
			r := stage.Execute(inst(insts.OpSTORE, 4), 77, 100, 0)
			Expect(r.MemAddr).To(Equal(int32(104)))
			Expect(r.Result).To(Equal(int32(77)))
		})

		It("should form STR addresses from rs2 + rs3 and carry rs1 as data", func() {
			r := stage.Execute(inst(insts.OpSTR, 0), 77, 100, 4)
			Expect(r.MemAddr).To(Equal(int32(104)))
			Expect(r.Result).To(Equal(int32(77)))
		})
	})

	Describe("ResolveBranch", func() {
		It("should take BZ when the zero flag is set", func() {
			taken, target := stage.ResolveBranch(inst(insts.OpBZ, 8), 4012, true)
			Expect(taken).To(BeTrue())
			Expect(target).To(Equal(int32(4020)))
		})

		It("should not take BZ when the zero flag is clear", func() {
			taken, _ := stage.ResolveBranch(inst(insts.OpBZ, 8), 4012, false)
			Expect(taken).To(BeFalse())
		})

		It("should take BNZ when the zero flag is clear", func() {
			taken, target := stage.ResolveBranch(inst(insts.OpBNZ, -4), 4012, false)
			Expect(taken).To(BeTrue())
			Expect(target).To(Equal(int32(4008)))
		})

		It("should never take a non-branch", func() {
			taken, _ := stage.ResolveBranch(inst(insts.OpADD, 0), 4012, true)
			Expect(taken).To(BeFalse())
		})
	})
})

var _ = Describe("MemoryStage", func() {
	var (
		mem   *emu.Memory
		stage *pipeline.MemoryStage
	)

	BeforeEach(func() {
		mem = emu.NewMemory()
		stage = pipeline.NewMemoryStage(mem)
	})

	It("should read data memory for LOAD", func() {
		mem.Write(16, 1234)
		got := stage.Access(insts.Instruction{Opcode: insts.OpLOAD}, 16, 0)
		Expect(got).To(Equal(int32(1234)))
	})

	It("should write data memory for STORE", func() {
		got := stage.Access(insts.Instruction{Opcode: insts.OpSTORE}, 100, 42)
		Expect(got).To(Equal(int32(42)))
		Expect(mem.Read(100)).To(Equal(int32(42)))
	})

	It("should pass other opcodes through untouched", func() {
		got := stage.Access(insts.Instruction{Opcode: insts.OpADD}, 0, 7)
		Expect(got).To(Equal(int32(7)))
	})
})

var _ = Describe("WritebackStage", func() {
	var (
		regFile    *emu.RegFile
		scoreboard *emu.Scoreboard
		stage      *pipeline.WritebackStage
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		scoreboard = &emu.Scoreboard{}
		stage = pipeline.NewWritebackStage(regFile, scoreboard)
	})

	It("should write the result and release the scoreboard claim", func() {
		scoreboard.Claim(5)
		inst := insts.Instruction{Opcode: insts.OpMOVC, RD: 5}
		stage.Writeback(inst, 42, false, insts.NoReg, false, insts.NoReg)

		Expect(regFile.Regs[5]).To(Equal(int32(42)))
		Expect(scoreboard.Busy(5)).To(BeFalse())
	})

	It("should keep the claim when a younger writer is still in flight", func() {
		scoreboard.Claim(5)
		inst := insts.Instruction{Opcode: insts.OpMOVC, RD: 5}
		stage.Writeback(inst, 1, true, 5, false, insts.NoReg)

		Expect(regFile.Regs[5]).To(Equal(int32(1)))
		Expect(scoreboard.Busy(5)).To(BeTrue())
	})

	It("should not touch the register file for destination-less opcodes", func() {
		inst := insts.Instruction{Opcode: insts.OpCMP, RD: insts.NoReg}
		stage.Writeback(inst, 99, false, insts.NoReg, false, insts.NoReg)

		for i := range regFile.Regs {
			Expect(regFile.Regs[i]).To(BeZero())
		}
	})
})

var _ = Describe("FormatInstruction", func() {
	It("should format each opcode shape the way the trace expects", func() {
		cases := map[string]insts.Instruction{
			"ADD,R3,R1,R2":    {Opcode: insts.OpADD, OpcodeStr: "ADD", RD: 3, RS1: 1, RS2: 2},
			"ADDL,R3,R1,#4":   {Opcode: insts.OpADDL, OpcodeStr: "ADDL", RD: 3, RS1: 1, Imm: 4},
			"MOVC,R1,#5":      {Opcode: insts.OpMOVC, OpcodeStr: "MOVC", RD: 1, Imm: 5},
			"LOAD,R2,R1,#0":   {Opcode: insts.OpLOAD, OpcodeStr: "LOAD", RD: 2, RS1: 1, Imm: 0},
			"STORE,R1,R2,#0":  {Opcode: insts.OpSTORE, OpcodeStr: "STORE", RS1: 1, RS2: 2, Imm: 0},
			"STR,R1,R2,R3":    {Opcode: insts.OpSTR, OpcodeStr: "STR", RS1: 1, RS2: 2, RS3: 3},
			"BZ,#8":           {Opcode: insts.OpBZ, OpcodeStr: "BZ", Imm: 8},
			"CMP,R1,R2":       {Opcode: insts.OpCMP, OpcodeStr: "CMP", RS1: 1, RS2: 2},
			"HALT":            {Opcode: insts.OpHALT, OpcodeStr: "HALT"},
		}
		for want, inst := range cases {
			Expect(pipeline.FormatInstruction(inst)).To(Equal(want))
		}
	})
})
