package pipeline

import (
	"github.com/apex-sim/apexsim/emu"
	"github.com/apex-sim/apexsim/insts"
)

// FetchStage produces the Fetch->Decode latch each cycle.
type FetchStage struct {
	code *insts.CodeMemory
}

// NewFetchStage creates a fetch stage reading from code.
func NewFetchStage(code *insts.CodeMemory) *FetchStage {
	return &FetchStage{code: code}
}

// Fetch returns the instruction at pc and whether pc is in range. Out of
// range means Fetch idles and the pipeline drains.
func (s *FetchStage) Fetch(pc int32) (insts.Instruction, bool) {
	if !s.code.InRange(pc) {
		return insts.Instruction{}, false
	}
	return s.code.At(pc), true
}

// DecodeStage turns an instruction's register operands into concrete
// values, or reports that Decode must stall.
type DecodeStage struct {
	regFile    *emu.RegFile
	scoreboard *emu.Scoreboard
	hazard     *HazardUnit
}

// NewDecodeStage creates a decode stage.
func NewDecodeStage(regFile *emu.RegFile, scoreboard *emu.Scoreboard, hazard *HazardUnit) *DecodeStage {
	return &DecodeStage{regFile: regFile, scoreboard: scoreboard, hazard: hazard}
}

// DecodeResult carries the resolved operand values for one instruction and
// whether Decode must stall. The destination claim is made directly on the
// scoreboard.
type DecodeResult struct {
	RS1Val  int32
	RS2Val  int32
	RS3Val  int32
	Stalled bool
}

// Decode resolves every register operand inst's opcode declares, per the
// declarative OperandTable and the resolution ladder in HazardUnit. If any
// required operand cannot be resolved, it reports Stalled and claims
// nothing; the scoreboard and the produced values are otherwise committed
// here (destination claim) so the caller need only copy the latch forward.
func (s *DecodeStage) Decode(inst insts.Instruction, exec *ExecuteMemoryLatch, mem *MemoryWritebackLatch) DecodeResult {
	spec := insts.Operands(inst.Opcode)

	regRead := func(r int) int32 { return s.regFile.ReadReg(r) }
	busy := func(r int) bool { return s.scoreboard.Busy(r) }

	result := DecodeResult{}

	if spec.ReadsRS1 {
		v, ok := s.hazard.ResolveOperand(inst.RS1, busy, regRead, exec, mem)
		if !ok {
			result.Stalled = true
			return result
		}
		result.RS1Val = v
	}

	if spec.ReadsRS2 {
		v, ok := s.hazard.ResolveOperand(inst.RS2, busy, regRead, exec, mem)
		if !ok {
			result.Stalled = true
			return result
		}
		result.RS2Val = v
	}

	if spec.ReadsRS3 {
		v, ok := s.hazard.ResolveOperand(inst.RS3, busy, regRead, exec, mem)
		if !ok {
			result.Stalled = true
			return result
		}
		result.RS3Val = v
	}

	if spec.WritesRD && inst.RD >= 0 {
		s.scoreboard.Claim(inst.RD)
	}

	return result
}

// ExecuteStage computes ALU results, memory addresses, and resolves
// branches.
type ExecuteStage struct{}

// NewExecuteStage creates an execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// ExecuteResult carries everything Execute computes for one instruction.
type ExecuteResult struct {
	Result  int32
	MemAddr int32

	ZF        bool
	SetsZF    bool
	DivByZero bool
}

// Execute performs the computation for inst given its latched (already
// forwarded) operand values.
func (s *ExecuteStage) Execute(inst insts.Instruction, rs1, rs2, rs3 int32) ExecuteResult {
	var r ExecuteResult

	switch inst.Opcode {
	case insts.OpADD:
		r.Result = rs1 + rs2
		r.SetsZF = true
	case insts.OpADDL:
		r.Result = rs1 + inst.Imm
		r.SetsZF = true
	case insts.OpSUB:
		r.Result = rs1 - rs2
		r.SetsZF = true
	case insts.OpSUBL:
		r.Result = rs1 - inst.Imm
		r.SetsZF = true
	case insts.OpMUL:
		r.Result = rs1 * rs2
		r.SetsZF = true
	case insts.OpDIV:
		if rs2 == 0 {
			r.Result = 0
			r.DivByZero = true
		} else {
			r.Result = rs1 / rs2
		}
		r.SetsZF = true
	case insts.OpAND:
		r.Result = rs1 & rs2
		r.SetsZF = true
	case insts.OpOR:
		r.Result = rs1 | rs2
		r.SetsZF = true
	case insts.OpXOR:
		r.Result = rs1 ^ rs2
		r.SetsZF = true
	case insts.OpMOVC:
		r.Result = inst.Imm
		r.SetsZF = true
	case insts.OpLOAD:
		r.MemAddr = rs1 + inst.Imm
	case insts.OpLDR:
		r.MemAddr = rs1 + rs2
	case insts.OpSTORE:
		r.MemAddr = rs2 + inst.Imm
		r.Result = rs1
	case insts.OpSTR:
		r.MemAddr = rs2 + rs3
		r.Result = rs1
	case insts.OpCMP:
		r.Result = rs1 - rs2
		r.SetsZF = true
	case insts.OpBZ, insts.OpBNZ:
		// Resolved separately by ResolveBranch, against the Zero Flag.
	case insts.OpHALT, insts.OpNOP:
		// No computation.
	}

	if r.SetsZF {
		r.ZF = r.Result == 0
	}

	return r
}

// ResolveBranch evaluates BZ/BNZ against the current Zero Flag (the flag
// as it stood before this instruction, since BZ/BNZ themselves never set
// it). Returns whether the branch is taken and its target. BNZ is
// symmetric with BZ: both arm fetch-from-next-cycle on the taken path.
func (s *ExecuteStage) ResolveBranch(inst insts.Instruction, pc int32, zf bool) (taken bool, target int32) {
	switch inst.Opcode {
	case insts.OpBZ:
		if zf {
			return true, pc + inst.Imm
		}
	case insts.OpBNZ:
		if !zf {
			return true, pc + inst.Imm
		}
	}
	return false, 0
}

// MemoryStage resolves data-memory accesses.
type MemoryStage struct {
	mem *emu.Memory
}

// NewMemoryStage creates a memory stage.
func NewMemoryStage(mem *emu.Memory) *MemoryStage {
	return &MemoryStage{mem: mem}
}

// Access performs the load or store for the instruction in the Execute/
// Memory latch, returning the value to publish to Writeback (and, via the
// latch, to next-cycle forwarding).
func (s *MemoryStage) Access(inst insts.Instruction, addr, result int32) int32 {
	switch inst.Opcode {
	case insts.OpLOAD, insts.OpLDR:
		return s.mem.Read(addr)
	case insts.OpSTORE, insts.OpSTR:
		s.mem.Write(addr, result)
		return result
	default:
		return result
	}
}

// WritebackStage retires an instruction and releases its scoreboard claim.
type WritebackStage struct {
	regFile    *emu.RegFile
	scoreboard *emu.Scoreboard
}

// NewWritebackStage creates a writeback stage.
func NewWritebackStage(regFile *emu.RegFile, scoreboard *emu.Scoreboard) *WritebackStage {
	return &WritebackStage{regFile: regFile, scoreboard: scoreboard}
}

// writes reports whether opcode writes a destination register at
// Writeback.
func writes(op insts.Opcode) bool {
	return insts.Operands(op).WritesRD
}

// Writeback commits inst's result to the register file (if it writes one)
// and releases its scoreboard claim under the multi-writer arbitration
// rule, given the destination registers still claimed by the Execute and
// Memory latches this cycle.
func (s *WritebackStage) Writeback(inst insts.Instruction, result int32, execValid bool, execRD int, memValid bool, memRD int) {
	if writes(inst.Opcode) && inst.RD >= 0 {
		s.regFile.WriteReg(inst.RD, result)
		s.scoreboard.Release(inst.RD, execValid, execRD, memValid, memRD)
	}
}
