// Package pipeline implements the APEX five-stage pipeline control core:
// Fetch, Decode/RegisterRead, Execute, Memory, Writeback, connected by
// latches and driven one cycle at a time by Pipeline.Tick.
package pipeline

import "github.com/apex-sim/apexsim/insts"

// latch is the state shared by every inter-stage register: the instruction
// it carries, the operand/result values derived for it so far, and the
// HasInsn/Stalled control bits.
type latch struct {
	Inst insts.Instruction

	PC int32

	RS1Val int32
	RS2Val int32
	RS3Val int32

	MemAddr int32
	Result  int32

	HasInsn bool
	Stalled bool
}

// Clear invalidates the latch, dropping any instruction it carried.
func (l *latch) Clear() {
	*l = latch{}
}

// FetchDecodeLatch holds state passed from Fetch to Decode.
type FetchDecodeLatch struct{ latch }

// DecodeExecuteLatch holds state passed from Decode to Execute.
type DecodeExecuteLatch struct{ latch }

// ExecuteMemoryLatch holds state passed from Execute to Memory.
type ExecuteMemoryLatch struct{ latch }

// MemoryWritebackLatch holds state passed from Memory to Writeback, the
// retirement point.
type MemoryWritebackLatch struct{ latch }
