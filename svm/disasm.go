package svm

import (
	"fmt"
	"strconv"
	"strings"
)

// Component G: renders a bytecode buffer back into mnemonic form. Grounded on
// the teacher's single-instruction Disassemble(pc)-returns-next-pc contract,
// generalised to walk a whole buffer.

// DisassembleOne decodes the instruction at words[pc] and returns its
// rendered line (without a leading offset) and the index of the next
// instruction, skipping one extra word per IMM argument.
func DisassembleOne(words []uint32, pc int) (line string, next int) {
	instr := Unpack(words[pc])
	next = pc + 1

	mnem := instr.Op.String()
	if instr.Ext != ExtNone {
		mnem += "." + instr.Ext.String()
	}

	var args []string
	next, args = disasmArg(words, next, instr.Arg1, args)
	next, args = disasmArg(words, next, instr.Arg2, args)

	if len(args) == 0 {
		return mnem, next
	}
	return mnem + " " + strings.Join(args, " "), next
}

func disasmArg(words []uint32, pc int, a ArgKind, args []string) (int, []string) {
	switch {
	case a == ArgNone:
		return pc, args
	case a == ArgImm:
		var v int32
		if pc < len(words) {
			v = int32(words[pc])
		}
		return pc + 1, append(args, strconv.Itoa(int(v)))
	default:
		return pc, append(args, a.String())
	}
}

// Disassemble renders every instruction in words, one line per instruction in
// the form "offset | mnemonic[.ext] arg1 arg2".
func Disassemble(words []uint32) string {
	var b strings.Builder
	for pc := 0; pc < len(words); {
		line, next := DisassembleOne(words, pc)
		fmt.Fprintf(&b, "%04x | %s\n", pc, line)
		pc = next
	}
	return b.String()
}
