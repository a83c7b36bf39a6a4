// Package main provides the entry point for the APEX pipeline simulator.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/apex-sim/apexsim/asm"
	"github.com/apex-sim/apexsim/emu"
	"github.com/apex-sim/apexsim/timing/core"
	"github.com/apex-sim/apexsim/timing/pipeline"
)

var (
	verbose   = flag.Bool("v", false, "Print per-cycle stage traces")
	maxCycles = flag.Uint64("max-cycles", 10000, "Stop the simulation after this many cycles if HALT has not retired")
	memDump   = flag.String("memdump", "", "Write final machine state to this file as YAML")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: apexsim [options] <input_file> [simulate <N> | display <N>]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	inputPath := flag.Arg(0)

	f, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening program: %v\n", err)
		os.Exit(1)
	}
	code, err := asm.Assemble(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error assembling program:\n%v\n", err)
		os.Exit(1)
	}

	var opts []pipeline.Option
	if *verbose {
		opts = append(opts, pipeline.WithLogger(stderrLogger()))
	}

	c := core.NewCore(code, opts...)

	switch flag.NArg() {
	case 1:
		runToHalt(c)
	case 3:
		n, err := strconv.ParseUint(flag.Arg(2), 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cycle count %q is not a number\n", flag.Arg(2))
			os.Exit(1)
		}
		switch flag.Arg(1) {
		case "simulate":
			runSimulate(c, n)
		case "display":
			runDisplay(c, n)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown mode %q (want simulate or display)\n", flag.Arg(1))
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Usage: apexsim [options] <input_file> [simulate <N> | display <N>]\n")
		os.Exit(1)
	}

	printFinalState(c)

	if *memDump != "" {
		if err := writeMemDump(*memDump, c); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory dump: %v\n", err)
			os.Exit(1)
		}
	}
}

// stderrLogger builds a funcr-backed logr.Logger that prints every stage
// trace line to stderr, keeping stdout for the final state report.
func stderrLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: 1})
}

// runToHalt runs until HALT retires or the cycle cap is hit.
func runToHalt(c *core.Core) {
	if !c.Run(*maxCycles) {
		fmt.Printf("Simulation stopped: cycle cap of %d reached without HALT\n", *maxCycles)
		return
	}
	stats := c.Stats()
	fmt.Printf("Simulation complete: run %s, cycles = %d, instructions = %d\n",
		c.Pipeline.RunID(), stats.Cycles, stats.Retired)
}

// runDisplay runs n cycles, then falls through to the final state report.
// The caller-supplied n is honored as given rather than being replaced by a
// fixed count.
func runDisplay(c *core.Core, n uint64) {
	c.RunCycles(n)
	stats := c.Stats()
	fmt.Printf("Displayed state after %d cycle(s), instructions retired = %d\n",
		stats.Cycles, stats.Retired)
}

// runSimulate runs n cycles and then continues interactively, reading
// line-commands from stdin until the core halts or the user quits.
func runSimulate(c *core.Core, n uint64) {
	c.RunCycles(n)

	scanner := bufio.NewScanner(os.Stdin)
	for !c.Halted() {
		fmt.Printf("cycle %d> ", c.Stats().Cycles)
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			c.Tick()
			continue
		}

		switch fields[0] {
		case "step", "s":
			steps := uint64(1)
			if len(fields) > 1 {
				v, err := strconv.ParseUint(fields[1], 10, 64)
				if err != nil {
					fmt.Printf("bad step count %q\n", fields[1])
					continue
				}
				steps = v
			}
			c.RunCycles(steps)
		case "regs", "r":
			printRegFile(c.RegFile())
		case "mem", "m":
			if len(fields) < 2 {
				fmt.Println("usage: mem <addr>")
				continue
			}
			addr, err := strconv.ParseInt(fields[1], 10, 32)
			if err != nil {
				fmt.Printf("bad address %q\n", fields[1])
				continue
			}
			fmt.Printf("MEM[%d] = %d\n", addr, c.Memory().Read(int32(addr)))
		case "quit", "q":
			return
		default:
			fmt.Println("commands: step [n], regs, mem <addr>, quit (empty line steps once)")
		}
	}

	if c.Halted() {
		stats := c.Stats()
		fmt.Printf("Simulation complete: cycles = %d, instructions = %d\n",
			stats.Cycles, stats.Retired)
	}
}

// printFinalState prints the register file, zero flag, nonzero data memory
// cells, and the pipeline performance counters.
func printFinalState(c *core.Core) {
	fmt.Println("\n=============== STATE OF ARCHITECTURAL REGISTER FILE ==========")
	printRegFile(c.RegFile())

	cells := c.Memory().NonZero()
	fmt.Println("\n============== STATE OF DATA MEMORY =============")
	fmt.Printf("%d nonzero cell(s)\n", len(cells))
	for _, cell := range cells {
		fmt.Printf("MEM[%d] = %d\n", cell.Addr, cell.Value)
	}

	stats := c.Stats()
	fmt.Printf("\ncycles = %d, retired = %d, stalls = %d, branches taken = %d, flushes = %d",
		stats.Cycles, stats.Retired, stats.Stalls, stats.Branches, stats.Flushes)
	if stats.Retired > 0 {
		fmt.Printf(", CPI = %.2f", stats.CPI)
	}
	fmt.Println()
}

// printRegFile prints R0-R31 in two rows of sixteen, then the zero flag.
func printRegFile(regFile *emu.RegFile) {
	for row := 0; row < emu.NumRegs/16; row++ {
		for i := 0; i < 16; i++ {
			r := row*16 + i
			fmt.Printf("R%-2d=%-6d ", r, regFile.Regs[r])
		}
		fmt.Println()
	}
	fmt.Printf("ZF=%v\n", regFile.ZF)
}
