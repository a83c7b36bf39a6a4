// Package asm implements a small assembler for APEX programs: source lines
// of the form "OPCODE operand,operand,..." are parsed into insts.Instruction
// values and placed in code memory starting at insts.Base, four bytes apart.
//
//	ADD   R3,R1,R2
//	MOVC  R1,#5        ; comment
//	LOAD  R2,R1,#0
//	BZ    #8
//	HALT
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/apex-sim/apexsim/emu"
	"github.com/apex-sim/apexsim/insts"
)

// SyntaxError is returned (joined, possibly many at once) when a line of
// source cannot be parsed.
type SyntaxError struct {
	Pos  int    // 1-based line number.
	Line string // Offending source line, comment stripped.
	Err  error  // Underlying cause.
}

func (se *SyntaxError) Error() string {
	return fmt.Sprintf("asm: line %d: %s: %q", se.Pos, se.Err, se.Line)
}

func (se *SyntaxError) Unwrap() error { return se.Err }

var (
	// ErrOpcode reports an unrecognized mnemonic.
	ErrOpcode = errors.New("unknown opcode")
	// ErrOperand reports a malformed or wrong-count operand list.
	ErrOperand = errors.New("bad operand")
	// ErrRegister reports a register operand out of range [0, 31].
	ErrRegister = errors.New("bad register")
)

var commentPattern = regexp.MustCompile(`;.*$`)

// registerPattern matches "R" followed by a decimal register index.
var registerPattern = regexp.MustCompile(`^[Rr](\d+)$`)

// immediatePattern matches "#" followed by a signed decimal literal.
var immediatePattern = regexp.MustCompile(`^#(-?\d+)$`)

// opcodeTable maps mnemonics to the fixed operand shape the assembler
// expects for them (count and kind, in source order).
type operandKind int

const (
	kindReg operandKind = iota
	kindImm
)

var opcodeTable = map[string]struct {
	op     insts.Opcode
	shape  []operandKind
	fields []string // which Instruction field each shape entry fills: "rd","rs1","rs2","rs3","imm"
}{
	"ADD":   {insts.OpADD, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"SUB":   {insts.OpSUB, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"MUL":   {insts.OpMUL, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"DIV":   {insts.OpDIV, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"AND":   {insts.OpAND, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"OR":    {insts.OpOR, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"XOR":   {insts.OpXOR, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"LDR":   {insts.OpLDR, []operandKind{kindReg, kindReg, kindReg}, []string{"rd", "rs1", "rs2"}},
	"STR":   {insts.OpSTR, []operandKind{kindReg, kindReg, kindReg}, []string{"rs1", "rs2", "rs3"}},
	"ADDL":  {insts.OpADDL, []operandKind{kindReg, kindReg, kindImm}, []string{"rd", "rs1", "imm"}},
	"SUBL":  {insts.OpSUBL, []operandKind{kindReg, kindReg, kindImm}, []string{"rd", "rs1", "imm"}},
	"LOAD":  {insts.OpLOAD, []operandKind{kindReg, kindReg, kindImm}, []string{"rd", "rs1", "imm"}},
	"STORE": {insts.OpSTORE, []operandKind{kindReg, kindReg, kindImm}, []string{"rs1", "rs2", "imm"}},
	"MOVC":  {insts.OpMOVC, []operandKind{kindReg, kindImm}, []string{"rd", "imm"}},
	"CMP":   {insts.OpCMP, []operandKind{kindReg, kindReg}, []string{"rs1", "rs2"}},
	"BZ":    {insts.OpBZ, []operandKind{kindImm}, []string{"imm"}},
	"BNZ":   {insts.OpBNZ, []operandKind{kindImm}, []string{"imm"}},
	"HALT":  {insts.OpHALT, nil, nil},
	"NOP":   {insts.OpNOP, nil, nil},
}

// Parser reads APEX source and accumulates the assembled instruction
// sequence along with every syntax error encountered, rather than stopping
// at the first one — the caller decides what to do with a non-empty Err().
type Parser struct {
	instrs []insts.Instruction
	errs   []error
	log    logr.Logger
}

// Option configures a Parser at construction time.
type Option func(*Parser)

// WithLogger attaches a logr.Logger for a parse-summary trace line.
func WithLogger(log logr.Logger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// NewParser creates an empty Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{log: logr.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads one source stream and appends its instructions to the
// parser's accumulated program. It may be called more than once to
// assemble several fragments into one program.
func (p *Parser) Parse(r io.Reader) {
	scanner := bufio.NewScanner(r)

	pos := 0
	for scanner.Scan() {
		pos++
		line := scanner.Text()

		stripped := commentPattern.ReplaceAllString(line, "")
		stripped = strings.TrimSpace(stripped)
		if stripped == "" {
			continue
		}

		inst, err := p.parseLine(stripped)
		if err != nil {
			p.errs = append(p.errs, &SyntaxError{Pos: pos, Line: stripped, Err: err})
			continue
		}

		p.instrs = append(p.instrs, inst)
	}

	p.log.V(1).Info("parsed source", "instructions", len(p.instrs), "errors", len(p.errs))
}

func (p *Parser) parseLine(line string) (insts.Instruction, error) {
	fields := strings.Fields(line)
	mnemonic := strings.ToUpper(fields[0])

	proto, ok := opcodeTable[mnemonic]
	if !ok {
		return insts.Instruction{}, fmt.Errorf("%w: %q", ErrOpcode, mnemonic)
	}

	inst := insts.Instruction{
		Opcode:    proto.op,
		OpcodeStr: mnemonic,
		RD:        insts.NoReg,
		RS1:       insts.NoReg,
		RS2:       insts.NoReg,
		RS3:       insts.NoReg,
	}

	operandText := strings.Join(fields[1:], "")

	var operands []string
	if operandText != "" {
		for _, tok := range strings.Split(operandText, ",") {
			operands = append(operands, strings.TrimSpace(tok))
		}
	}

	if len(operands) != len(proto.shape) {
		return insts.Instruction{}, fmt.Errorf("%w: %s wants %d operand(s), got %d", ErrOperand, mnemonic, len(proto.shape), len(operands))
	}

	for i, kind := range proto.shape {
		tok := operands[i]
		field := proto.fields[i]

		switch kind {
		case kindReg:
			m := registerPattern.FindStringSubmatch(tok)
			if m == nil {
				return insts.Instruction{}, fmt.Errorf("%w: %q", ErrOperand, tok)
			}
			reg, err := strconv.Atoi(m[1])
			if err != nil || reg >= emu.NumRegs {
				return insts.Instruction{}, fmt.Errorf("%w: %q", ErrRegister, tok)
			}
			setField(&inst, field, int32(reg))
		case kindImm:
			m := immediatePattern.FindStringSubmatch(tok)
			if m == nil {
				return insts.Instruction{}, fmt.Errorf("%w: %q", ErrOperand, tok)
			}
			val, err := strconv.ParseInt(m[1], 10, 32)
			if err != nil {
				return insts.Instruction{}, fmt.Errorf("%w: %q", ErrOperand, tok)
			}
			inst.Imm = int32(val)
		}
	}

	return inst, nil
}

func setField(inst *insts.Instruction, field string, v int32) {
	switch field {
	case "rd":
		inst.RD = int(v)
	case "rs1":
		inst.RS1 = int(v)
	case "rs2":
		inst.RS2 = int(v)
	case "rs3":
		inst.RS3 = int(v)
	}
}

// Err returns every syntax error accumulated across all calls to Parse,
// joined into one error, or nil if there were none.
func (p *Parser) Err() error {
	return errors.Join(p.errs...)
}

// Program returns the assembled instructions parsed so far, in source
// order. Combined with insts.Base, instruction i lands at address
// insts.Base + 4*i.
func (p *Parser) Program() []insts.Instruction {
	return p.instrs
}

// Assemble is a convenience wrapper for the common case of assembling one
// complete source stream into code memory.
func Assemble(r io.Reader) (*insts.CodeMemory, error) {
	p := NewParser()
	p.Parse(r)
	if err := p.Err(); err != nil {
		return nil, err
	}
	return insts.NewCodeMemory(p.Program()), nil
}
