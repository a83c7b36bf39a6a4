package pipeline

import (
	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"github.com/apex-sim/apexsim/emu"
	"github.com/apex-sim/apexsim/insts"
)

// Pipeline is the APEX five-stage pipeline control core. It owns the
// register file, scoreboard, data memory, code memory, PC, and the four
// inter-stage latches, and advances them all exactly one cycle per Tick
// call.
type Pipeline struct {
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	regFile    *emu.RegFile
	scoreboard *emu.Scoreboard
	memory     *emu.Memory
	code       *insts.CodeMemory

	ifid  FetchDecodeLatch
	idex  DecodeExecuteLatch
	exmem ExecuteMemoryLatch
	memwb MemoryWritebackLatch

	nextIfid  FetchDecodeLatch
	nextIdex  DecodeExecuteLatch
	nextExmem ExecuteMemoryLatch
	nextMemwb MemoryWritebackLatch

	pc                 int32
	fetchFromNextCycle bool
	haltFetched        bool

	clock   uint64
	retired uint64

	stallCount  uint64
	branchCount uint64
	flushCount  uint64

	halted bool

	diag  *Diagnostics
	runID xid.ID
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithLogger attaches a logr.Logger for per-cycle diagnostics. Without
// this option, diagnostics are discarded.
func WithLogger(log logr.Logger) Option {
	return func(p *Pipeline) {
		p.diag = NewDiagnostics(log.WithValues("run_id", p.runID.String()))
	}
}

// NewPipeline creates a Pipeline over the given register file, scoreboard,
// data memory, and assembled code memory.
func NewPipeline(regFile *emu.RegFile, scoreboard *emu.Scoreboard, memory *emu.Memory, code *insts.CodeMemory, opts ...Option) *Pipeline {
	hazard := NewHazardUnit()
	p := &Pipeline{
		fetchStage:     NewFetchStage(code),
		decodeStage:    NewDecodeStage(regFile, scoreboard, hazard),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(memory),
		writebackStage: NewWritebackStage(regFile, scoreboard),
		regFile:        regFile,
		scoreboard:     scoreboard,
		memory:         memory,
		code:           code,
		pc:             insts.Base,
		runID:          xid.New(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.diag == nil {
		p.diag = NewDiagnostics(logr.Discard())
	}

	memory.OnInvalidAddress = func(addr int32) {
		p.diag.InvalidAddress(p.clock, addr)
	}

	return p
}

// RunID returns the unique identifier for this pipeline's run, used to
// disambiguate interleaved sessions in the diagnostic log stream.
func (p *Pipeline) RunID() string { return p.runID.String() }

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc int32) { p.pc = pc }

// PC returns the current program counter.
func (p *Pipeline) PC() int32 { return p.pc }

// Halted reports whether HALT has retired.
func (p *Pipeline) Halted() bool { return p.halted }

// Retired returns the number of instructions retired so far.
func (p *Pipeline) Retired() uint64 { return p.retired }

// Clock returns the number of cycles ticked so far.
func (p *Pipeline) Clock() uint64 { return p.clock }

// RegFile returns the pipeline's register file, for inspection.
func (p *Pipeline) RegFile() *emu.RegFile { return p.regFile }

// Memory returns the pipeline's data memory, for inspection.
func (p *Pipeline) Memory() *emu.Memory { return p.memory }

// Stats summarizes pipeline performance counters.
type Stats struct {
	Cycles   uint64
	Retired  uint64
	Stalls   uint64
	Branches uint64
	Flushes  uint64
	CPI      float64
}

// Stats returns the pipeline's performance counters.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Cycles:   p.clock,
		Retired:  p.retired,
		Stalls:   p.stallCount,
		Branches: p.branchCount,
		Flushes:  p.flushCount,
	}
	if s.Retired > 0 {
		s.CPI = float64(s.Cycles) / float64(s.Retired)
	}
	return s
}

// Tick advances the pipeline by exactly one cycle, running the five stages
// leaves-first: Writeback, Memory, Execute, Decode, Fetch. Each stage
// reads the latch its predecessor wrote in the previous cycle and writes
// its own output latch for the next.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.clock++

	p.doWriteback()
	p.doMemory()
	branchTaken, branchTarget := p.doExecute()

	if branchTaken {
		p.branchCount++
		p.flushCount++
		p.diag.Flush(p.clock, branchTarget)
		// Flush the wrong-path instruction sitting in Decode's input latch
		// and arm the redirected PC. A HALT fetched on the wrong path no
		// longer gates fetching.
		p.ifid.Clear()
		p.pc = branchTarget
		p.fetchFromNextCycle = true
		p.haltFetched = false
	}

	decodeStalled := p.doDecode()
	if decodeStalled {
		p.stallCount++
	}

	p.doFetch(decodeStalled)

	p.ifid = p.nextIfid
	p.idex = p.nextIdex
	p.exmem = p.nextExmem
	p.memwb = p.nextMemwb
}

func (p *Pipeline) doFetch(decodeStalled bool) {
	if decodeStalled {
		// Decode can't accept a new instruction, so Fetch holds its latch
		// and does not advance PC.
		p.nextIfid = p.ifid
		p.nextIfid.Stalled = true
		return
	}

	if p.fetchFromNextCycle {
		// This cycle's Fetch does not consume the redirected PC; the
		// target is fetched next cycle.
		p.fetchFromNextCycle = false
		p.nextIfid.Clear()
		return
	}

	if p.haltFetched {
		// No instruction follows a fetched HALT into the pipeline; the
		// driver stops when the HALT retires from Writeback.
		p.nextIfid.Clear()
		return
	}

	inst, ok := p.fetchStage.Fetch(p.pc)
	if !ok {
		p.nextIfid.Clear()
		return
	}

	if inst.Opcode == insts.OpHALT {
		p.haltFetched = true
	}

	p.nextIfid.Clear()
	p.nextIfid.HasInsn = true
	p.nextIfid.Inst = inst
	p.nextIfid.PC = p.pc
	p.diag.Stage(p.clock, "Fetch", inst, p.pc, true)
	p.pc += 4
}

func (p *Pipeline) doDecode() bool {
	if !p.ifid.HasInsn {
		p.nextIdex.Clear()
		return false
	}

	// Decode forwards from the latches Execute and Memory wrote earlier
	// this same cycle (the stages run leaves-first, so by the time Decode
	// runs, nextExmem holds the instruction that just executed and
	// nextMemwb the one that just finished Memory). Reading the previous
	// cycle's latches instead would cost a spurious stall on every
	// back-to-back dependency.
	result := p.decodeStage.Decode(p.ifid.Inst, &p.nextExmem, &p.nextMemwb)
	if result.Stalled {
		p.diag.Stall(p.clock, p.ifid.Inst)
		p.nextIdex.Clear()
		return true
	}

	p.nextIdex.Clear()
	p.nextIdex.HasInsn = true
	p.nextIdex.Inst = p.ifid.Inst
	p.nextIdex.PC = p.ifid.PC
	p.nextIdex.RS1Val = result.RS1Val
	p.nextIdex.RS2Val = result.RS2Val
	p.nextIdex.RS3Val = result.RS3Val
	p.diag.Stage(p.clock, "Decode", p.ifid.Inst, p.ifid.PC, true)
	return false
}

func (p *Pipeline) doExecute() (branchTaken bool, branchTarget int32) {
	if !p.idex.HasInsn {
		p.nextExmem.Clear()
		return false, 0
	}

	inst := p.idex.Inst
	result := p.executeStage.Execute(inst, p.idex.RS1Val, p.idex.RS2Val, p.idex.RS3Val)

	if result.DivByZero {
		p.diag.DivByZero(p.clock, p.idex.PC)
	}
	if result.SetsZF {
		p.regFile.ZF = result.ZF
	}

	taken, target := p.executeStage.ResolveBranch(inst, p.idex.PC, p.regFile.ZF)

	p.nextExmem.Clear()
	p.nextExmem.HasInsn = true
	p.nextExmem.Inst = inst
	p.nextExmem.PC = p.idex.PC
	p.nextExmem.Result = result.Result
	p.nextExmem.MemAddr = result.MemAddr
	p.diag.Stage(p.clock, "Execute", inst, p.idex.PC, true)

	return taken, target
}

func (p *Pipeline) doMemory() {
	if !p.exmem.HasInsn {
		p.nextMemwb.Clear()
		return
	}

	inst := p.exmem.Inst
	result := p.memoryStage.Access(inst, p.exmem.MemAddr, p.exmem.Result)

	p.nextMemwb.Clear()
	p.nextMemwb.HasInsn = true
	p.nextMemwb.Inst = inst
	p.nextMemwb.PC = p.exmem.PC
	p.nextMemwb.Result = result
	p.diag.Stage(p.clock, "Memory", inst, p.exmem.PC, true)
}

func (p *Pipeline) doWriteback() {
	if !p.memwb.HasInsn {
		return
	}

	inst := p.memwb.Inst
	p.writebackStage.Writeback(inst, p.memwb.Result,
		p.idex.HasInsn, p.idex.Inst.RD,
		p.exmem.HasInsn, p.exmem.Inst.RD,
	)
	p.diag.Stage(p.clock, "Writeback", inst, p.memwb.PC, true)
	p.retired++

	if inst.Opcode == insts.OpHALT {
		p.halted = true
		p.diag.Halt(p.clock)
	}
}

// Run ticks the pipeline until HALT retires.
func (p *Pipeline) Run() {
	for !p.halted {
		p.Tick()
	}
}

// RunCycles ticks the pipeline up to n times, stopping early if it halts.
// Returns true if still running (not halted) when it returns.
func (p *Pipeline) RunCycles(n uint64) bool {
	for i := uint64(0); i < n && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// FetchDecode returns a copy of the current Fetch->Decode latch, for
// inspection (tests, diagnostics).
func (p *Pipeline) FetchDecode() FetchDecodeLatch { return p.ifid }

// DecodeExecute returns a copy of the current Decode->Execute latch.
func (p *Pipeline) DecodeExecute() DecodeExecuteLatch { return p.idex }

// ExecuteMemory returns a copy of the current Execute->Memory latch.
func (p *Pipeline) ExecuteMemory() ExecuteMemoryLatch { return p.exmem }

// MemoryWriteback returns a copy of the current Memory->Writeback latch.
func (p *Pipeline) MemoryWriteback() MemoryWritebackLatch { return p.memwb }
