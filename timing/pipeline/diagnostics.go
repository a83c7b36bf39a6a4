package pipeline

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/apex-sim/apexsim/insts"
)

// Diagnostics emits the per-cycle, per-stage trace lines — stage name,
// pc, mnemonic, operands — through a structured logr.Logger. Tracing is
// opt-in: without a logger wired in, everything is discarded.
type Diagnostics struct {
	log logr.Logger
}

// NewDiagnostics wraps log for per-cycle stage tracing.
func NewDiagnostics(log logr.Logger) *Diagnostics {
	return &Diagnostics{log: log}
}

// Stage logs one stage's activity for the current cycle.
func (d *Diagnostics) Stage(cycle uint64, stage string, inst insts.Instruction, pc int32, hasInsn bool) {
	if !hasInsn {
		d.log.V(1).Info("stage", "cycle", cycle, "stage", stage, "pc", pc, "insn", "bubble")
		return
	}
	d.log.V(1).Info("stage", "cycle", cycle, "stage", stage, "pc", pc, "insn", FormatInstruction(inst))
}

// Stall logs a Decode stall waiting on a busy register.
func (d *Diagnostics) Stall(cycle uint64, inst insts.Instruction) {
	d.log.V(1).Info("stall", "cycle", cycle, "insn", FormatInstruction(inst))
}

// Flush logs a branch-induced flush.
func (d *Diagnostics) Flush(cycle uint64, target int32) {
	d.log.V(1).Info("flush", "cycle", cycle, "target", target)
}

// DivByZero logs a divide-by-zero substitution. A diagnostic, not a trap.
func (d *Diagnostics) DivByZero(cycle uint64, pc int32) {
	d.log.Info("divide by zero, substituting 0", "cycle", cycle, "pc", pc)
}

// InvalidAddress logs a clamped out-of-range memory address.
func (d *Diagnostics) InvalidAddress(cycle uint64, addr int32) {
	d.log.Info("invalid memory address, clamped", "cycle", cycle, "addr", addr)
}

// Halt logs HALT retirement.
func (d *Diagnostics) Halt(cycle uint64) {
	d.log.Info("halt retired", "cycle", cycle)
}

// FormatInstruction renders inst by its opcode shape: register ALU ops as
// rd,rs1,rs2; immediate forms with a trailing #imm; stores leading with
// the data register; branches with the offset alone.
func FormatInstruction(inst insts.Instruction) string {
	switch inst.Opcode {
	case insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpDIV, insts.OpAND, insts.OpOR, insts.OpXOR, insts.OpLDR:
		return fmt.Sprintf("%s,R%d,R%d,R%d", inst.OpcodeStr, inst.RD, inst.RS1, inst.RS2)
	case insts.OpADDL, insts.OpSUBL:
		return fmt.Sprintf("%s,R%d,R%d,#%d", inst.OpcodeStr, inst.RD, inst.RS1, inst.Imm)
	case insts.OpMOVC:
		return fmt.Sprintf("%s,R%d,#%d", inst.OpcodeStr, inst.RD, inst.Imm)
	case insts.OpLOAD:
		return fmt.Sprintf("%s,R%d,R%d,#%d", inst.OpcodeStr, inst.RD, inst.RS1, inst.Imm)
	case insts.OpSTORE:
		return fmt.Sprintf("%s,R%d,R%d,#%d", inst.OpcodeStr, inst.RS1, inst.RS2, inst.Imm)
	case insts.OpSTR:
		return fmt.Sprintf("%s,R%d,R%d,R%d", inst.OpcodeStr, inst.RS1, inst.RS2, inst.RS3)
	case insts.OpBZ, insts.OpBNZ:
		return fmt.Sprintf("%s,#%d", inst.OpcodeStr, inst.Imm)
	case insts.OpCMP:
		return fmt.Sprintf("%s,R%d,R%d", inst.OpcodeStr, inst.RS1, inst.RS2)
	case insts.OpHALT, insts.OpNOP:
		return inst.OpcodeStr
	default:
		return inst.OpcodeStr
	}
}
