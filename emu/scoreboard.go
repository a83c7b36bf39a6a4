package emu

// Scoreboard is the per-register busy table: busy[r] = true means some
// in-flight instruction past Decode has claimed r as its destination and
// has not yet written back.
type Scoreboard struct {
	busy [NumRegs]bool
}

// Busy reports whether register r currently has an outstanding writer.
func (s *Scoreboard) Busy(reg int) bool {
	return s.busy[reg]
}

// Claim marks register r as having an outstanding writer. Called by Decode
// when an instruction with a destination register issues to Execute.
func (s *Scoreboard) Claim(reg int) {
	s.busy[reg] = true
}

// Release clears the busy bit for rd, but only if neither execRD nor memRD
// (the destination registers currently held in the Execute and Memory
// latches, with execValid/memValid false when a latch is empty) still
// claims rd.
//
// This is the multi-writer arbitration rule: when a program writes the
// same register twice in quick succession, the older write retiring must
// not clear the busy bit out from under the younger write still in flight.
func (s *Scoreboard) Release(rd int, execValid bool, execRD int, memValid bool, memRD int) {
	if execValid && execRD == rd {
		return
	}
	if memValid && memRD == rd {
		return
	}
	s.busy[rd] = false
}
