package svmasm

import (
	"testing"

	"github.com/maxrt101/svm/svm"
)

func assert(t *testing.T, cond bool, format string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func mustAssemble(t *testing.T, src string) *svm.Code {
	t.Helper()
	code, err := Assemble(src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return code
}

// TestArithmeticScenario assembles a scenario-1-shaped program (mov, mov,
// add, end; here with 10 and 20) from source rather than hand-building
// words, and checks the resulting image runs to the expected register state.
func TestArithmeticScenario(t *testing.T) {
	code := mustAssemble(t, `
		mov r0 10
		mov r1 20
		add r0 r1
		end
	`)
	vm, err := svm.New()
	assert(t, err == nil, "New: %v", err)
	assert(t, vm.Load(code) == nil, "Load failed")
	_, err = vm.Run(100)
	assert(t, err == nil, "Run: %v", err)
	task := vm.CurrentTask()
	assert(t, task.Registers[0] == 30, "r0 = %d, want 30", task.Registers[0])
}

func TestConditionalMoveScenario(t *testing.T) {
	code := mustAssemble(t, `
		mov r0 5
		mov r1 5
		cmp r0 r1
		mov.eq r2 1
		mov.ne r2 2
		end
	`)
	vm, _ := svm.New()
	vm.Load(code)
	vm.Run(100)
	r := vm.CurrentTask().Registers
	assert(t, r[2] == 1, "r2 = %d, want 1", r[2])
}

// TestForwardLabelPatchScenario exercises a forward jump target, which can
// only resolve correctly if patch sites are fixed up after the label is
// defined.
func TestForwardLabelPatchScenario(t *testing.T) {
	code := mustAssemble(t, `
		jmp skip
		mov r0 1
		skip:
		mov r0 2
		end
	`)
	vm, _ := svm.New()
	vm.Load(code)
	vm.Run(100)
	r := vm.CurrentTask().Registers
	assert(t, r[0] == 2, "r0 = %d, want 2 (jump over mov r0 1)", r[0])
}

func TestLoopCountdownScenario(t *testing.T) {
	code := mustAssemble(t, `
		mov r0 3
		loop:
		sub r0 1
		cmp r0 0
		jmp.ne loop
		end
	`)
	vm, _ := svm.New()
	vm.Load(code)
	cycles, err := vm.Run(1000)
	assert(t, err == nil, "Run: %v", err)
	assert(t, cycles == 11, "cycles = %d, want 11", cycles)
	assert(t, vm.CurrentTask().Registers[0] == 0, "r0 = %d, want 0", vm.CurrentTask().Registers[0])
}

func TestStackRoundTripScenario(t *testing.T) {
	code := mustAssemble(t, `
		mov r0 1
		mov r1 2
		mov r2 3
		push r0 r2
		pop r3 r5
		end
	`)
	vm, _ := svm.New()
	vm.Load(code)
	vm.Run(100)
	r := vm.CurrentTask().Registers
	assert(t, r[3] == 1 && r[4] == 2 && r[5] == 3, "got r3..r5 = %d,%d,%d", r[3], r[4], r[5])
}

func TestCallReturnScenario(t *testing.T) {
	code := mustAssemble(t, `
		inv sub
		end
		sub:
		mov r0 42
		ret
	`)
	vm, _ := svm.New()
	vm.Load(code)
	cycles, err := vm.Run(100)
	assert(t, err == nil, "Run: %v", err)
	assert(t, cycles == 4, "cycles = %d, want 4", cycles)
	assert(t, vm.CurrentTask().Registers[0] == 42, "r0 = %d, want 42", vm.CurrentTask().Registers[0])
}

func TestUndefinedLabelReportsPosition(t *testing.T) {
	_, err := Assemble("jmp nowhere\nend\n")
	assert(t, err != nil, "expected an error")
	errs, ok := err.(Errors)
	assert(t, ok, "expected Errors, got %T", err)
	assert(t, len(errs) == 1, "expected 1 error, got %d", len(errs))
	assert(t, errs[0].line == 1, "expected error on line 1, got %d", errs[0].line)
}

// TestDeterministicAssembly asserts that assembling the same source twice
// produces byte-identical images — the assembler holds no hidden state
// (map iteration order, time-based IDs) that could leak into the output.
func TestDeterministicAssembly(t *testing.T) {
	src := `
		mov r0 1
		loop:
		add r0 r0
		cmp r0 64
		jmp.ne loop
		end
	`
	a := mustAssemble(t, src)
	b := mustAssemble(t, src)
	assert(t, len(a.Words) == len(b.Words), "length mismatch")
	for i := range a.Words {
		assert(t, a.Words[i] == b.Words[i], "word %d differs: %#x vs %#x", i, a.Words[i], b.Words[i])
	}
}

// TestDisassembleRoundTrip checks that the disassembler decodes an
// assembled image without panicking and produces non-empty output.
func TestDisassembleRoundTrip(t *testing.T) {
	code := mustAssemble(t, `
		mov r0 10
		push r0
		pop r1
		cmp r0 r1
		jmp.eq done
		done:
		end
	`)
	out := svm.Disassemble(code.Words)
	assert(t, out != "", "expected non-empty disassembly")
}

func TestIntegerLiteralBases(t *testing.T) {
	cases := []struct {
		tok  string
		want int32
	}{
		{"10", 10},
		{"0x1f", 31},
		{"0b101", 5},
		{"-4", -4},
	}
	for _, c := range cases {
		v, ok := parseInt(c.tok)
		assert(t, ok, "parseInt(%q) failed", c.tok)
		assert(t, v == c.want, "parseInt(%q) = %d, want %d", c.tok, v, c.want)
	}
}

func TestStackDirectiveSetsCodeMetadata(t *testing.T) {
	code := mustAssemble(t, `
		.stack 64
		.callstack 4
		mov r0 1
		end
	`)
	assert(t, code.StackSize == 64, "StackSize = %d, want 64", code.StackSize)
	assert(t, code.CallStackSize == 4, "CallStackSize = %d, want 4", code.CallStackSize)
}

func TestPushPopBadRangeIsRejectedAtAssembleTime(t *testing.T) {
	_, err := Assemble("push r2 r1\nend\n")
	assert(t, err != nil, "expected an assembly error for a descending push range")
	_, err = Assemble("pop r2 r1\nend\n")
	assert(t, err != nil, "expected an assembly error for a descending pop range")
}
