package svm

import "github.com/pkg/errors"

// VM is an SVM instance: a loaded code image, a ring of tasks, and the host
// capability bound to SYS.
type VM struct {
	Running           bool
	TaskSwitchBlocked bool

	code    *Code
	tasks   []*Task
	current int // index into tasks of the currently scheduled task, -1 if none
	nextID  int

	ctx     interface{}
	syscall SyscallHandler
}

// New constructs a VM with no code loaded and no tasks. Call Load to attach a
// code image and create the entry task.
func New(opts ...Option) (*VM, error) {
	vm := &VM{current: -1}
	for _, opt := range opts {
		if err := opt(vm); err != nil {
			return nil, errors.Wrap(err, "svm: option failed")
		}
	}
	return vm, nil
}

// Load attaches a code image and creates the single entry task at pc 0 with
// all registers zero. The VM does not own code: the caller must keep it
// alive for the VM's lifetime.
func (vm *VM) Load(code *Code) error {
	if code == nil {
		return ErrNull
	}
	vm.code = code
	vm.tasks = nil
	t := NewTask(0, nil, code.StackSize, code.CallStackSize)
	vm.addTask(t)
	vm.current = 0
	vm.Running = true
	return nil
}

// Code returns the currently loaded code image, or nil if none is loaded.
func (vm *VM) Code() *Code { return vm.code }

// CurrentTask returns the task the scheduler will execute on the next Cycle,
// or nil if the VM has no tasks.
func (vm *VM) CurrentTask() *Task {
	if vm.current < 0 || vm.current >= len(vm.tasks) {
		return nil
	}
	return vm.tasks[vm.current]
}

// Tasks returns the tasks currently registered with the VM, in scheduler
// order starting from the head of the ring.
func (vm *VM) Tasks() []*Task {
	out := make([]*Task, len(vm.tasks))
	copy(out, vm.tasks)
	return out
}

func (vm *VM) addTask(t *Task) {
	t.id = vm.nextID
	vm.nextID++
	vm.tasks = append(vm.tasks, t)
}
