package svmasm

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxrt101/svm/svm"
)

// Component C: the two-pass assembler. Pass one walks the token stream once,
// emitting instruction and immediate words as it goes and recording two
// kinds of deferred work: label definitions (bare identifiers, optionally
// ':'-terminated) and patch sites (forward references used as jump/push
// targets, which are emitted as a placeholder word now and fixed up once
// every label is known). Pass two walks the patch list and rewrites each
// placeholder, or reports ErrUndefinedLabel for anything that never
// resolved.
//
// Grounded on the teacher's parser struct (labels map[string]*label, a
// patch-the-uses-at-the-end walk) and, for the per-opcode arity/constraint
// table and the undefined-label message format, on the reference C
// assembler's opcode_meta table and patch-reporting routine.

// argSpec is a bitmask of operand kinds accepted by one argument slot.
type argSpec uint8

const (
	specReg argSpec = 1 << iota
	specImm
)

type opMeta struct {
	maxArgs    int
	arg1, arg2 argSpec
}

var opcodeMeta = map[svm.Opcode]opMeta{
	svm.OpNop: {0, 0, 0},
	svm.OpEnd: {0, 0, 0},
	svm.OpRet: {0, 0, 0},
	svm.OpClf: {0, 0, 0},
	svm.OpMov: {2, specReg, specReg | specImm},
	svm.OpAdd: {2, specReg, specReg | specImm},
	svm.OpSub: {2, specReg, specReg | specImm},
	svm.OpMul: {2, specReg, specReg | specImm},
	svm.OpDiv: {2, specReg, specReg | specImm},
	svm.OpAnd: {2, specReg, specReg | specImm},
	svm.OpOr:  {2, specReg, specReg | specImm},
	svm.OpXor: {2, specReg, specReg | specImm},
	svm.OpShl: {2, specReg, specReg | specImm},
	svm.OpShr: {2, specReg, specReg | specImm},
	svm.OpCmp: {2, specReg | specImm, specReg | specImm},
	svm.OpJmp: {1, specReg | specImm, 0},
	svm.OpInv: {1, specReg | specImm, 0},
	svm.OpSys: {1, specReg | specImm, 0},
}

type patchSite struct {
	offset int
	name   string
	line   int
}

type assembler struct {
	tz   *tokenizer
	errs Errors

	words   []uint32
	labels  map[string]int
	patches []patchSite

	stackSize     int
	callStackSize int
}

func (as *assembler) fail(err error) {
	as.errs = append(as.errs, &posError{line: as.tz.currentLine(), err: err})
}

// Assemble compiles source text into a code image. On any diagnostic it
// keeps scanning (to accumulate as many errors as possible) and returns the
// full Errors list rather than stopping at the first one.
func Assemble(src string) (*svm.Code, error) {
	as := &assembler{
		tz:     newTokenizer(src),
		labels: make(map[string]int),
	}

	for {
		tok, ok := as.tz.next()
		if !ok {
			break
		}

		switch {
		case tok == ".":
			as.directive()

		default:
			if op, isOp := svm.OpcodeByName(tok); isOp {
				ext, err := as.readExt()
				if err != nil {
					as.fail(err)
					continue
				}
				if err := as.emit(op, ext); err != nil {
					as.fail(err)
				}
				continue
			}
			as.defineLabel(tok)
		}
	}

	as.resolvePatches()

	if as.errs.HasErrors() {
		return nil, as.errs
	}

	code := svm.NewCode(as.words)
	code.StackSize = as.stackSize
	code.CallStackSize = as.callStackSize
	return code, nil
}

// AssembleFile reads path and assembles its contents.
func AssembleFile(path string) (*svm.Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrFileOpenFailed, "%s: %v", path, err)
	}
	return Assemble(string(data))
}

// defineLabel registers tok (stripped of an optional trailing ':') as a
// label pointing at the current code offset. A bare identifier that is not
// a known mnemonic is always a label, colon or not.
func (as *assembler) defineLabel(tok string) {
	name := strings.TrimSuffix(tok, ":")
	if name == "" {
		as.fail(errors.New("empty label"))
		return
	}
	if _, exists := as.labels[name]; exists {
		as.fail(errors.Errorf("label %q redefined", name))
		return
	}
	as.labels[name] = len(as.words)
}

// directive handles the two assembler directives that set per-image stack
// metadata, ".stack N" and ".callstack N".
func (as *assembler) directive() {
	name, ok := as.tz.next()
	if !ok {
		as.fail(errors.Wrap(ErrExpectedToken, "expected directive name after '.'"))
		return
	}
	switch name {
	case "stack", "callstack":
		vtok, ok := as.tz.next()
		if !ok {
			as.fail(errors.Wrapf(ErrExpectedToken, "expected integer after '.%s'", name))
			return
		}
		v, ok := parseInt(vtok)
		if !ok {
			as.fail(errors.Errorf("invalid integer %q after '.%s'", vtok, name))
			return
		}
		if name == "stack" {
			as.stackSize = int(v)
		} else {
			as.callStackSize = int(v)
		}
	default:
		as.fail(errors.Errorf("unknown directive %q", name))
	}
}

// readExt consumes an optional ".ext" suffix following a mnemonic. If the
// next token is not a '.', it is rolled back so it can be read again as the
// start of the argument list.
func (as *assembler) readExt() (svm.Ext, error) {
	tok, ok := as.tz.next()
	if !ok {
		return svm.ExtNone, nil
	}
	if tok != "." {
		as.tz.rollback()
		return svm.ExtNone, nil
	}
	extTok, ok := as.tz.next()
	if !ok {
		return svm.ExtNone, errors.Wrap(ErrExpectedToken, "expected condition suffix after '.'")
	}
	e, found := svm.ExtByName(extTok)
	if !found {
		return svm.ExtNone, errors.Errorf("unknown condition suffix %q", extTok)
	}
	return e, nil
}

// emit parses the operand list for op (already past mnemonic and ext) and
// appends the instruction word plus any immediate words to as.words.
func (as *assembler) emit(op svm.Opcode, ext svm.Ext) error {
	switch op {
	case svm.OpPush:
		return as.emitPush(ext)
	case svm.OpPop:
		return as.emitPop(ext)
	}

	meta, ok := opcodeMeta[op]
	if !ok {
		return errors.Errorf("internal: no arity metadata for opcode %s", op)
	}

	instrOffset := len(as.words)
	as.words = append(as.words, 0)

	arg1, arg2 := svm.ArgNone, svm.ArgNone
	if meta.maxArgs >= 1 {
		tok, ok := as.tz.next()
		if !ok {
			return errors.Wrapf(ErrExpectedToken, "expected operand for %s", op)
		}
		a, err := as.resolveOperand(tok, meta.arg1)
		if err != nil {
			return err
		}
		arg1 = a
	}
	if meta.maxArgs >= 2 {
		tok, ok := as.tz.next()
		if !ok {
			return errors.Wrapf(ErrExpectedToken, "expected second operand for %s", op)
		}
		a, err := as.resolveOperand(tok, meta.arg2)
		if err != nil {
			return err
		}
		arg2 = a
	}

	as.words[instrOffset] = svm.Instruction{Op: op, Ext: ext, Arg1: arg1, Arg2: arg2}.Pack()
	return nil
}

// resolveOperand classifies tok against the allowed kinds for this slot. A
// register token resolves immediately; an integer literal is emitted as the
// next word; anything else, when immediates are allowed, is treated as a
// forward label reference and recorded as a patch site.
func (as *assembler) resolveOperand(tok string, spec argSpec) (svm.ArgKind, error) {
	if spec&specReg != 0 {
		if r, ok := parseRegister(tok); ok {
			return r, nil
		}
	}
	if spec&specImm != 0 {
		if v, ok := parseInt(tok); ok {
			as.words = append(as.words, uint32(v))
			return svm.ArgImm, nil
		}
		as.patches = append(as.patches, patchSite{offset: len(as.words), name: tok, line: as.tz.currentLine()})
		as.words = append(as.words, 0)
		return svm.ArgImm, nil
	}
	return svm.ArgNone, errors.Wrapf(ErrArgConstraintUnsatisfied, "operand %q not valid here", tok)
}

// emitPush handles all three PUSH forms. A register operand is peeked one
// token further (using the tokenizer's single-level rollback) to decide
// between a single-register push and a register-range push.
func (as *assembler) emitPush(ext svm.Ext) error {
	instrOffset := len(as.words)
	as.words = append(as.words, 0)

	tok, ok := as.tz.next()
	if !ok {
		return errors.Wrap(ErrExpectedToken, "expected operand for push")
	}

	if r, ok := parseRegister(tok); ok {
		if tok2, ok2 := as.tz.next(); ok2 {
			if r2, ok3 := parseRegister(tok2); ok3 {
				if r2 <= r {
					return errors.Wrap(ErrArgConstraintUnsatisfied, "push register range must satisfy lo < hi")
				}
				as.words[instrOffset] = svm.Instruction{Op: svm.OpPush, Ext: ext, Arg1: r, Arg2: r2}.Pack()
				return nil
			}
			as.tz.rollback()
		}
		as.words[instrOffset] = svm.Instruction{Op: svm.OpPush, Ext: ext, Arg1: r, Arg2: svm.ArgNone}.Pack()
		return nil
	}

	if v, ok := parseInt(tok); ok {
		as.words = append(as.words, uint32(v))
	} else {
		as.patches = append(as.patches, patchSite{offset: len(as.words), name: tok, line: as.tz.currentLine()})
		as.words = append(as.words, 0)
	}
	as.words[instrOffset] = svm.Instruction{Op: svm.OpPush, Ext: ext, Arg1: svm.ArgImm, Arg2: svm.ArgNone}.Pack()
	return nil
}

// emitPop handles both POP forms: a single register, or a register range
// peeked the same way as emitPush.
func (as *assembler) emitPop(ext svm.Ext) error {
	instrOffset := len(as.words)
	as.words = append(as.words, 0)

	tok, ok := as.tz.next()
	if !ok {
		return errors.Wrap(ErrExpectedToken, "expected operand for pop")
	}
	r, ok := parseRegister(tok)
	if !ok {
		return errors.Wrapf(ErrArgConstraintUnsatisfied, "pop requires a register operand, got %q", tok)
	}

	if tok2, ok2 := as.tz.next(); ok2 {
		if r2, ok3 := parseRegister(tok2); ok3 {
			if r2 <= r {
				return errors.Wrap(ErrArgConstraintUnsatisfied, "pop register range must satisfy lo < hi")
			}
			as.words[instrOffset] = svm.Instruction{Op: svm.OpPop, Ext: ext, Arg1: r, Arg2: r2}.Pack()
			return nil
		}
		as.tz.rollback()
	}
	as.words[instrOffset] = svm.Instruction{Op: svm.OpPop, Ext: ext, Arg1: r, Arg2: svm.ArgNone}.Pack()
	return nil
}

// resolvePatches walks every deferred forward reference and rewrites its
// placeholder word to the now-known label offset, or reports
// ErrUndefinedLabel in the exact "undefined label 'foo' referenced at
// 0x0012" form.
func (as *assembler) resolvePatches() {
	for _, p := range as.patches {
		target, ok := as.labels[p.name]
		if !ok {
			as.errs = append(as.errs, &posError{
				line: p.line,
				err:  errors.Wrapf(ErrUndefinedLabel, "undefined label '%s' referenced at 0x%04x", p.name, p.offset),
			})
			continue
		}
		as.words[p.offset] = uint32(target)
	}
}

// parseRegister recognises the "rN" register token form (N in 0..15).
func parseRegister(tok string) (svm.ArgKind, bool) {
	if len(tok) < 2 || tok[0] != 'r' {
		return svm.ArgNone, false
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n >= svm.NumRegisters {
		return svm.ArgNone, false
	}
	return svm.RegisterArg(n), true
}
