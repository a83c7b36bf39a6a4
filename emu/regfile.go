// Package emu provides the architectural state the APEX pipeline operates
// on: the register file, the scoreboard, and data memory. These are modeled
// as simple flat arrays; the interesting behavior lives in timing/pipeline,
// not here.
package emu

// NumRegs is the number of architectural integer registers.
const NumRegs = 32

// RegFile is the APEX architectural register file: 32 signed 32-bit
// integer registers plus the Zero Flag set by the last ALU-producing
// instruction in Execute.
type RegFile struct {
	// Regs holds R0-R31. All start at zero.
	Regs [NumRegs]int32

	// ZF is the Zero Flag, consumed by BZ and BNZ.
	ZF bool
}

// ReadReg reads register reg. reg must be in [0, NumRegs); no range check
// is made here or in Decode, since the assembler rejects out-of-range
// register operands and an out-of-range index in a decoded instruction is
// an assembler defect, not a runtime condition this layer recovers from.
func (r *RegFile) ReadReg(reg int) int32 {
	return r.Regs[reg]
}

// WriteReg writes value to register reg.
func (r *RegFile) WriteReg(reg int, value int32) {
	r.Regs[reg] = value
}
