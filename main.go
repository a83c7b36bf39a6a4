// Package main provides the entry point for apexsim.
// apexsim is a cycle-accurate simulator for the five-stage in-order APEX
// pipeline.
//
// For the full CLI, use: go run ./cmd/apexsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("apexsim - APEX five-stage pipeline simulator")
	fmt.Println("")
	fmt.Println("Usage: apexsim [options] <program.asm> [simulate <N> | display <N>]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -v            Print per-cycle stage traces")
	fmt.Println("  -max-cycles   Cycle cap when HALT never retires")
	fmt.Println("  -memdump      Write final machine state to a YAML file")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/apexsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/apexsim' instead.")
	}
}
