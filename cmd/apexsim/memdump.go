package main

import (
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/apex-sim/apexsim/timing/core"
)

// machineState is the YAML shape written by -memdump: the architectural
// state and counters left behind when the run ends, for offline inspection.
type machineState struct {
	RunID     string       `yaml:"run_id"`
	Cycles    uint64       `yaml:"cycles"`
	Retired   uint64       `yaml:"retired"`
	Registers []int32      `yaml:"registers"`
	ZeroFlag  bool         `yaml:"zero_flag"`
	Memory    []memoryCell `yaml:"memory"`
}

type memoryCell struct {
	Addr  int32 `yaml:"addr"`
	Value int32 `yaml:"value"`
}

func writeMemDump(path string, c *core.Core) error {
	stats := c.Stats()

	state := machineState{
		RunID:     c.Pipeline.RunID(),
		Cycles:    stats.Cycles,
		Retired:   stats.Retired,
		Registers: c.RegFile().Regs[:],
		ZeroFlag:  c.RegFile().ZF,
	}
	for _, cell := range c.Memory().NonZero() {
		state.Memory = append(state.Memory, memoryCell(cell))
	}

	data, err := yaml.Marshal(&state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
