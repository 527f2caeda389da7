// Package svm implements the SVM register machine: instruction encoding,
// the execution engine, the cooperative task scheduler, the host syscall
// capability and a disassembler.
package svm

import "fmt"

// Opcode identifies an SVM instruction.
type Opcode uint8

// Instruction opcodes.
const (
	OpNop Opcode = iota
	OpEnd
	OpMov
	OpPush
	OpPop
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpCmp
	OpClf
	OpJmp
	OpInv
	OpRet
	OpSys
	opMax
)

var opcodeNames = [...]string{
	OpNop:  "nop",
	OpEnd:  "end",
	OpMov:  "mov",
	OpPush: "push",
	OpPop:  "pop",
	OpAdd:  "add",
	OpSub:  "sub",
	OpMul:  "mul",
	OpDiv:  "div",
	OpAnd:  "and",
	OpOr:   "or",
	OpXor:  "xor",
	OpShl:  "shl",
	OpShr:  "shr",
	OpCmp:  "cmp",
	OpClf:  "clf",
	OpJmp:  "jmp",
	OpInv:  "inv",
	OpRet:  "ret",
	OpSys:  "sys",
}

var opcodeIndex map[string]Opcode

func init() {
	opcodeIndex = make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		opcodeIndex[name] = Opcode(op)
	}
}

// String renders the mnemonic for op, or a numeric placeholder if op is out
// of range.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op < opMax
}

// OpcodeByName looks up an opcode by its mnemonic. ok is false if name is not
// a known mnemonic.
func OpcodeByName(name string) (op Opcode, ok bool) {
	op, ok = opcodeIndex[name]
	return op, ok
}

// Ext is a condition (extension) code gating an instruction's side effects.
type Ext uint8

// Condition codes.
const (
	ExtNone Ext = iota
	ExtEq
	ExtNe
	ExtLt
	ExtLe
	ExtGt
	ExtGe
	ExtNz
	ExtZ
	extMax
)

var extNames = [...]string{
	ExtNone: "",
	ExtEq:   "eq",
	ExtNe:   "ne",
	ExtLt:   "lt",
	ExtLe:   "le",
	ExtGt:   "gt",
	ExtGe:   "ge",
	ExtNz:   "nz",
	ExtZ:    "z",
}

var extIndex map[string]Ext

func init() {
	extIndex = make(map[string]Ext, len(extNames))
	for e, name := range extNames {
		if name != "" {
			extIndex[name] = Ext(e)
		}
	}
}

// String renders the suffix name for the condition, the empty string for
// ExtNone.
func (e Ext) String() string {
	if int(e) < len(extNames) {
		return extNames[e]
	}
	return fmt.Sprintf("ext(%d)", uint8(e))
}

// Valid reports whether e is a known condition code.
func (e Ext) Valid() bool {
	return e < extMax
}

// ExtByName looks up a condition code by its suffix (without the leading
// '.'). ok is false if name is not a known suffix.
func ExtByName(name string) (e Ext, ok bool) {
	e, ok = extIndex[name]
	return e, ok
}

// ArgKind classifies one argument slot of a packed instruction word.
type ArgKind uint8

// Argument kinds. ArgR0..ArgR15 map one-to-one onto register indices 0..15.
const (
	ArgNone ArgKind = iota
	ArgR0
	ArgR1
	ArgR2
	ArgR3
	ArgR4
	ArgR5
	ArgR6
	ArgR7
	ArgR8
	ArgR9
	ArgR10
	ArgR11
	ArgR12
	ArgR13
	ArgR14
	ArgR15
	ArgImm
)

// NumRegisters is the number of general-purpose registers per task.
const NumRegisters = 16

// IsRegister reports whether a is one of ArgR0..ArgR15.
func (a ArgKind) IsRegister() bool {
	return a >= ArgR0 && a <= ArgR15
}

// Register returns the register index for a register-kind argument. Only
// meaningful when a.IsRegister() is true.
func (a ArgKind) Register() int {
	return int(a) - int(ArgR0)
}

// RegisterArg returns the ArgKind naming register r (0..15).
func RegisterArg(r int) ArgKind {
	return ArgR0 + ArgKind(r)
}

func (a ArgKind) String() string {
	switch {
	case a == ArgNone:
		return ""
	case a == ArgImm:
		return "imm"
	case a.IsRegister():
		return fmt.Sprintf("r%d", a.Register())
	default:
		return fmt.Sprintf("arg(%d)", uint8(a))
	}
}

// Instruction is the decoded form of one packed 32-bit instruction word: four
// 8-bit fields, op/ext/arg1/arg2, with no padding.
type Instruction struct {
	Op   Opcode
	Ext  Ext
	Arg1 ArgKind
	Arg2 ArgKind
}

// Pack encodes i into its 32-bit wire form: byte 0 is Op, byte 1 is Ext, byte
// 2 is Arg1, byte 3 is Arg2 (little-endian word).
func (i Instruction) Pack() uint32 {
	return uint32(i.Op) | uint32(i.Ext)<<8 | uint32(i.Arg1)<<16 | uint32(i.Arg2)<<24
}

// Unpack decodes a packed 32-bit instruction word.
func Unpack(word uint32) Instruction {
	return Instruction{
		Op:   Opcode(word),
		Ext:  Ext(word >> 8),
		Arg1: ArgKind(word >> 16),
		Arg2: ArgKind(word >> 24),
	}
}

// String renders the instruction as "mnemonic[.ext] arg1 arg2", matching the
// disassembler's per-instruction format minus the offset prefix and with
// IMM arguments unresolved (rendered as "imm").
func (i Instruction) String() string {
	mnem := i.Op.String()
	if i.Ext != ExtNone {
		mnem += "." + i.Ext.String()
	}
	var args string
	if a1 := i.Arg1.String(); a1 != "" {
		args += " " + a1
	}
	if a2 := i.Arg2.String(); a2 != "" {
		args += " " + a2
	}
	return mnem + args
}
