package svm

// Component E: a cooperative, single-threaded round-robin scheduler over a
// ring of tasks. The ring is modelled as vm.tasks (order == ring order) with
// vm.current as the cursor, rather than the reference source's intrusive
// linked-list pointers — task identity is the opaque Task.ID(), not a slice
// index, so removal never invalidates a live handle.

// CreateTask appends a new task at pc with the given initial registers (nil
// means all zero), using the loaded code image's configured stack sizes, and
// returns it. The scheduler does not switch to it automatically.
func (vm *VM) CreateTask(pc int, registers *[NumRegisters]int32) (*Task, error) {
	if vm.code == nil {
		return nil, ErrNull
	}
	t := NewTask(pc, registers, vm.code.StackSize, vm.code.CallStackSize)
	vm.addTask(t)
	if vm.current < 0 {
		vm.current = len(vm.tasks) - 1
	}
	return t, nil
}

// RemoveTask unlinks and discards the task identified by id. If it is the
// current task, the cursor advances to the next task in ring order (wrapping
// to the head). If no task is left after removal, current becomes -1.
func (vm *VM) RemoveTask(id int) error {
	idx := vm.indexOf(id)
	if idx < 0 {
		return ErrTaskNotFound
	}
	wasCurrent := idx == vm.current
	vm.tasks = append(vm.tasks[:idx], vm.tasks[idx+1:]...)
	switch {
	case len(vm.tasks) == 0:
		vm.current = -1
	case wasCurrent:
		vm.current = idx % len(vm.tasks)
	case idx < vm.current:
		vm.current--
	}
	return nil
}

func (vm *VM) indexOf(id int) int {
	for i, t := range vm.tasks {
		if t.id == id {
			return i
		}
	}
	return -1
}

// SwitchTask advances the scheduler cursor to the next task in ring order,
// wrapping to the head. It fails with TASK_SWITCH_BLOCKED if the VM's block
// flag is set.
func (vm *VM) SwitchTask() error {
	if vm.TaskSwitchBlocked {
		return ErrTaskSwitchBlocked
	}
	if len(vm.tasks) == 0 {
		return ErrTaskNotFound
	}
	vm.current = (vm.current + 1) % len(vm.tasks)
	return nil
}

// BlockTaskSwitch sets or clears the task-switch-blocked flag.
func (vm *VM) BlockTaskSwitch(block bool) {
	vm.TaskSwitchBlocked = block
}
