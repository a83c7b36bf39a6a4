// Package core provides the cycle-accurate APEX CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"github.com/apex-sim/apexsim/emu"
	"github.com/apex-sim/apexsim/insts"
	"github.com/apex-sim/apexsim/timing/pipeline"
)

// Core represents a cycle-accurate APEX CPU core.
// It wraps a 5-stage pipeline and provides a simple interface for simulation.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	// Shared resources
	regFile *emu.RegFile
	memory  *emu.Memory
}

// NewCore creates a new Core running the given assembled program. Options
// are passed through to the underlying pipeline.
func NewCore(code *insts.CodeMemory, opts ...pipeline.Option) *Core {
	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	scoreboard := &emu.Scoreboard{}

	return &Core{
		Pipeline: pipeline.NewPipeline(regFile, scoreboard, memory, code, opts...),
		regFile:  regFile,
		memory:   memory,
	}
}

// RegFile returns the core's architectural register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the core's data memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true if the core has halted (HALT retired from Writeback).
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() pipeline.Stats {
	return c.Pipeline.Stats()
}

// Run executes the core until it halts or limit cycles have elapsed.
// A limit of 0 means no cap. Returns true if the core halted.
func (c *Core) Run(limit uint64) bool {
	for !c.Pipeline.Halted() {
		if limit > 0 && c.Pipeline.Clock() >= limit {
			return false
		}
		c.Pipeline.Tick()
	}
	return true
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(n uint64) bool {
	return c.Pipeline.RunCycles(n)
}
