package pipeline

import "github.com/apex-sim/apexsim/insts"

// HazardUnit implements the scoreboard/forwarding resolution ladder. It
// holds no state of its own; it resolves operands and stall decisions
// against whatever latches and scoreboard it is given, which live on the
// Pipeline.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard/forwarding unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// ResolveOperand applies the four-step resolution ladder to a single
// source register rs, returning the value to use and whether resolution
// succeeded (false means: stall).
//
//  1. busy[rs] == false           -> regs[rs]
//  2. rs == execute.RD (valid,
//     opcode not LOAD/LDR)        -> execute.Result
//  3. rs == memory.RD (valid)     -> memory.Result
//  4. otherwise                   -> stall
func (h *HazardUnit) ResolveOperand(rs int, busy func(int) bool, regRead func(int) int32, exec *ExecuteMemoryLatch, mem *MemoryWritebackLatch) (int32, bool) {
	if !busy(rs) {
		return regRead(rs), true
	}

	if exec.HasInsn && exec.Inst.RD == rs && !insts.IsLoad(exec.Inst.Opcode) {
		return exec.Result, true
	}

	if mem.HasInsn && mem.Inst.RD == rs {
		return mem.Result, true
	}

	return 0, false
}
