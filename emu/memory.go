package emu

// DataMemorySize is the number of words in data memory.
const DataMemorySize = 4096

// Memory is APEX's flat data memory: a fixed-size array of signed 32-bit
// words, addressed directly by the address an instruction computes.
// It starts zeroed.
type Memory struct {
	words [DataMemorySize]int32

	// OnInvalidAddress, if set, is called whenever Read/Write clamps an
	// out-of-range address. Wired to Diagnostics by the pipeline so the
	// warning reaches the same log stream as stage traces.
	OnInvalidAddress func(addr int32)
}

// NewMemory returns a zeroed Memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Read returns the word at addr, clamping out-of-range addresses to the
// nearest valid index and reporting them via OnInvalidAddress.
func (m *Memory) Read(addr int32) int32 {
	idx := m.clamp(addr)
	return m.words[idx]
}

// Write stores value at addr, with the same clamping behavior as Read.
func (m *Memory) Write(addr int32, value int32) {
	idx := m.clamp(addr)
	m.words[idx] = value
}

func (m *Memory) clamp(addr int32) int32 {
	if addr >= 0 && int(addr) < DataMemorySize {
		return addr
	}
	if m.OnInvalidAddress != nil {
		m.OnInvalidAddress(addr)
	}
	if addr < 0 {
		return 0
	}
	return DataMemorySize - 1
}

// NonZero returns the (address, value) pairs of every nonzero word, in
// address order. Used for the final memory dump, which prints every
// nonzero cell rather than an arbitrary fixed window.
func (m *Memory) NonZero() []MemoryCell {
	var cells []MemoryCell
	for addr, v := range m.words {
		if v != 0 {
			cells = append(cells, MemoryCell{Addr: int32(addr), Value: v})
		}
	}
	return cells
}

// MemoryCell is one nonzero data memory slot.
type MemoryCell struct {
	Addr  int32
	Value int32
}
