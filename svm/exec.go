package svm

import "github.com/pkg/errors"

// Component D: the per-cycle fetch/decode/dispatch contract. Cycle executes
// exactly one instruction (including any immediate operand words) for the
// currently scheduled task.
//
// Grounded on the teacher's Run loop shape (one switch case per opcode,
// inline stack/PC manipulation) adapted from stack semantics to register
// semantics, and cross-checked against the reference C source for exact
// per-opcode behaviour (condition gating applied after argument evaluation,
// sticky nz/z, independent CMP flag sets).

// Cycle executes one instruction for the current task. It returns
// ErrNotRunning if the VM is stopped, ErrCodeOverflow (after clearing
// Running) if pc has run past the end of the code image, or the fault
// raised by the instruction itself.
func (vm *VM) Cycle() (err error) {
	if !vm.Running {
		return ErrNotRunning
	}
	t := vm.CurrentTask()
	if t == nil {
		vm.Running = false
		return ErrNotRunning
	}
	if t.pc >= vm.code.Size() {
		vm.Running = false
		return ErrCodeOverflow
	}

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.Wrapf(e, "svm: recovered panic at pc=%d task=%d", t.pc, t.id)
			} else {
				err = errors.Errorf("svm: recovered panic at pc=%d task=%d: %v", t.pc, t.id, r)
			}
		}
	}()

	word := vm.code.Words[t.pc]
	t.pc++
	instr := Unpack(word)
	return vm.dispatch(t, instr)
}

// Run executes cycles until the VM stops running or a cycle faults. maxCycles
// bounds the number of cycles executed (0 means unbounded); it is a host-side
// safety net, not part of the core's own semantics (the engine itself has no
// timeout facility).
func (vm *VM) Run(maxCycles int) (cycles int, err error) {
	for vm.Running {
		if maxCycles > 0 && cycles >= maxCycles {
			return cycles, errors.Errorf("svm: exceeded cycle cap of %d", maxCycles)
		}
		if err = vm.Cycle(); err != nil {
			return cycles, err
		}
		cycles++
	}
	return cycles, nil
}

// readArg evaluates one argument slot. Register kinds return the register's
// current value; ArgImm reads the word at pc and advances it; ArgNone
// returns 0 (callers must not rely on this for opcodes where arg is
// genuinely absent).
func (vm *VM) readArg(t *Task, a ArgKind) (int32, error) {
	switch {
	case a.IsRegister():
		return t.Registers[a.Register()], nil
	case a == ArgImm:
		if t.pc >= vm.code.Size() {
			vm.Running = false
			return 0, ErrCodeOverflow
		}
		v := int32(vm.code.Words[t.pc])
		t.pc++
		return v, nil
	default:
		return 0, nil
	}
}

func (vm *VM) dispatch(t *Task, instr Instruction) error {
	switch instr.Op {
	case OpNop:
		return nil

	case OpEnd:
		vm.Running = false
		return nil

	case OpMov:
		return vm.binOp(t, instr, func(_, b int32) (int32, error) { return b, nil })
	case OpAdd:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a + b, nil })
	case OpSub:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a - b, nil })
	case OpMul:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a * b, nil })
	case OpDiv:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) {
			if b == 0 {
				return 0, ErrDivByZero
			}
			return a / b, nil
		})
	case OpAnd:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a & b, nil })
	case OpOr:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a | b, nil })
	case OpXor:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a ^ b, nil })
	case OpShl:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a << (uint32(b) & 31), nil })
	case OpShr:
		return vm.binOp(t, instr, func(a, b int32) (int32, error) { return a >> (uint32(b) & 31), nil })

	case OpCmp:
		a, err := vm.readArg(t, instr.Arg1)
		if err != nil {
			return err
		}
		b, err := vm.readArg(t, instr.Arg2)
		if err != nil {
			return err
		}
		// CMP's six comparison flags are assigned fresh on every execution
		// (true or false, per the relation); only nz/z (set via setNZZ) are
		// sticky and CMP never touches them. See DESIGN.md for why this
		// reading, not a literal port of the reference source's
		// only-ever-sets-true comparison flags, is what makes the countdown
		// loop idiom terminate.
		t.Flags.Eq = a == b
		t.Flags.Ne = a != b
		t.Flags.Gt = a > b
		t.Flags.Ge = a >= b
		t.Flags.Lt = a < b
		t.Flags.Le = a <= b
		return nil

	case OpClf:
		t.Flags.clear(instr.Ext)
		return nil

	case OpJmp:
		target, err := vm.readArg(t, instr.Arg1)
		if err != nil {
			return err
		}
		if !t.Flags.test(instr.Ext) {
			return nil
		}
		return vm.jumpTo(t, target)

	case OpInv:
		target, err := vm.readArg(t, instr.Arg1)
		if err != nil {
			return err
		}
		if !t.Flags.test(instr.Ext) {
			return nil
		}
		if err := t.pushCall(t.pc); err != nil {
			return err
		}
		return vm.jumpTo(t, target)

	case OpRet:
		pc, err := t.popCall()
		if err != nil {
			return err
		}
		t.pc = pc
		return nil

	case OpSys:
		num, err := vm.readArg(t, instr.Arg1)
		if err != nil {
			return err
		}
		if !t.Flags.test(instr.Ext) {
			return nil
		}
		if vm.syscall != nil {
			vm.syscall(vm.ctx, &t.Registers, num)
		}
		return nil

	case OpPush:
		return vm.execPush(t, instr)
	case OpPop:
		return vm.execPop(t, instr)

	default:
		return ErrUnknownInstruction
	}
}

// binOp implements the shared MOV/arithmetic/logic shape: dst must be a
// register; src is evaluated (register or immediate) before the condition
// gate is checked, so an immediate src is always consumed from the code
// stream even when the instruction's effect is suppressed.
func (vm *VM) binOp(t *Task, instr Instruction, op func(dst, src int32) (int32, error)) error {
	if !instr.Arg1.IsRegister() {
		return ErrArgNotReg
	}
	src, err := vm.readArg(t, instr.Arg2)
	if err != nil {
		return err
	}
	if !t.Flags.test(instr.Ext) {
		return nil
	}
	reg := instr.Arg1.Register()
	result, err := op(t.Registers[reg], src)
	if err != nil {
		return err
	}
	t.Registers[reg] = result
	t.Flags.setNZZ(result)
	return nil
}

func (vm *VM) jumpTo(t *Task, target int32) error {
	if target < 0 || int(target) >= vm.code.Size() {
		return ErrJmpOverflow
	}
	t.pc = int(target)
	return nil
}

// execPush implements the three PUSH modes described in §4.D: a bare
// immediate, a single register, or an inclusive register range rLo..rHi
// (strict rLo < rHi) pushed in ascending order.
func (vm *VM) execPush(t *Task, instr Instruction) error {
	// Arg1 == ArgImm is the only push mode with an operand word to consume;
	// that consumption must happen before the condition gate is checked, per
	// the same rule as MOV/arithmetic.
	if instr.Arg1 == ArgImm {
		v, err := vm.readArg(t, ArgImm)
		if err != nil {
			return err
		}
		if !t.Flags.test(instr.Ext) {
			return nil
		}
		return t.push(v)
	}
	if !t.Flags.test(instr.Ext) {
		return nil
	}
	switch {
	case instr.Arg1.IsRegister() && instr.Arg2 == ArgNone:
		return t.push(t.Registers[instr.Arg1.Register()])
	case instr.Arg1.IsRegister() && instr.Arg2.IsRegister():
		lo, hi := instr.Arg1.Register(), instr.Arg2.Register()
		if lo >= hi {
			return ErrPushArgBadOrder
		}
		for r := lo; r <= hi; r++ {
			if err := t.push(t.Registers[r]); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrArgNotReg
	}
}

// execPop implements the two POP modes: a single register, or an inclusive
// register range rLo..rHi (strict rLo < rHi, symmetric with PUSH) popped so
// that the top-of-stack value lands in rHi.
func (vm *VM) execPop(t *Task, instr Instruction) error {
	if !t.Flags.test(instr.Ext) {
		return nil
	}
	switch {
	case instr.Arg2 == ArgNone:
		if !instr.Arg1.IsRegister() {
			return ErrArgNotReg
		}
		v, err := t.pop()
		if err != nil {
			return err
		}
		t.Registers[instr.Arg1.Register()] = v
		return nil
	case instr.Arg1.IsRegister() && instr.Arg2.IsRegister():
		lo, hi := instr.Arg1.Register(), instr.Arg2.Register()
		if lo >= hi {
			return ErrPushArgBadOrder
		}
		for r := hi; r >= lo; r-- {
			v, err := t.pop()
			if err != nil {
				return err
			}
			t.Registers[r] = v
		}
		return nil
	default:
		return ErrArgNotReg
	}
}
