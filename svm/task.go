package svm

// DefaultCallStackSize is the call-stack depth used when a task's code image
// does not request an explicit size (metadata value 0).
const DefaultCallStackSize = 8

// DefaultStackSize is the data-stack depth used when a task's code image
// does not request an explicit size (metadata value 0).
const DefaultStackSize = 32

// Flags holds the eight condition flags of a task. CMP assigns the six
// comparison flags (true or false) on every execution; nz and z are sticky,
// set by arithmetic/move instructions via setNZZ and cleared only by CLF.
type Flags struct {
	Eq, Ne, Lt, Le, Gt, Ge, Nz, Z bool
}

// clear resets either all eight flags (ext == ExtNone) or the single flag
// selected by ext.
func (f *Flags) clear(ext Ext) {
	switch ext {
	case ExtNone:
		*f = Flags{}
	case ExtEq:
		f.Eq = false
	case ExtNe:
		f.Ne = false
	case ExtLt:
		f.Lt = false
	case ExtLe:
		f.Le = false
	case ExtGt:
		f.Gt = false
	case ExtGe:
		f.Ge = false
	case ExtNz:
		f.Nz = false
	case ExtZ:
		f.Z = false
	}
}

// test returns whether the flag selected by ext is currently set. ExtNone is
// always true (unconditional).
func (f *Flags) test(ext Ext) bool {
	switch ext {
	case ExtNone:
		return true
	case ExtEq:
		return f.Eq
	case ExtNe:
		return f.Ne
	case ExtLt:
		return f.Lt
	case ExtLe:
		return f.Le
	case ExtGt:
		return f.Gt
	case ExtGe:
		return f.Ge
	case ExtNz:
		return f.Nz
	case ExtZ:
		return f.Z
	default:
		return false
	}
}

// setNZZ applies the sticky nz/z update used by MOV and the arithmetic ops:
// z is set on zero, nz is set on nonzero. The opposite flag is left alone.
func (f *Flags) setNZZ(v int32) {
	if v == 0 {
		f.Z = true
	} else {
		f.Nz = true
	}
}

// Task is an independent execution context: program counter, return-stack
// pointer, registers, flags, data stack and call stack. Tasks share the code
// image but own everything else exclusively.
type Task struct {
	id        int
	pc        int
	Registers [NumRegisters]int32
	Flags     Flags

	stack     []int32
	sp        int
	callStack []int32
	rpc       int
}

// NewTask constructs a task entry point at pc with the given initial
// registers (nil means all zero) and stack sizes (0 means use the defaults).
func NewTask(pc int, registers *[NumRegisters]int32, stackSize, callStackSize int) *Task {
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	if callStackSize <= 0 {
		callStackSize = DefaultCallStackSize
	}
	t := &Task{
		pc:        pc,
		stack:     make([]int32, stackSize),
		callStack: make([]int32, callStackSize),
	}
	if registers != nil {
		t.Registers = *registers
	}
	return t
}

// PC returns the task's current program counter.
func (t *Task) PC() int { return t.pc }

// SP returns the task's current data-stack depth.
func (t *Task) SP() int { return t.sp }

// RPC returns the task's current call-stack depth.
func (t *Task) RPC() int { return t.rpc }

// ID returns the task's scheduler-assigned identity, stable across task
// switches and suitable for logging or TASK_NOT_FOUND lookups.
func (t *Task) ID() int { return t.id }

func (t *Task) push(v int32) error {
	if t.sp >= len(t.stack) {
		return ErrStackOverflow
	}
	t.stack[t.sp] = v
	t.sp++
	return nil
}

func (t *Task) pop() (int32, error) {
	if t.sp == 0 {
		return 0, ErrStackUnderflow
	}
	t.sp--
	return t.stack[t.sp], nil
}

func (t *Task) pushCall(pc int) error {
	if t.rpc >= len(t.callStack) {
		return ErrCallStackOverflow
	}
	t.callStack[t.rpc] = int32(pc)
	t.rpc++
	return nil
}

func (t *Task) popCall() (int, error) {
	if t.rpc == 0 {
		return 0, ErrCallStackUnderflow
	}
	t.rpc--
	return int(t.callStack[t.rpc]), nil
}
