package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxrt101/svm/svm"
	"github.com/maxrt101/svm/svmhost"
)

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var regs regInit
	fs.Var(&regs, "reg", "set an initial register, `N=V` (repeatable)")
	maxCycles := fs.Int("maxcycles", 0, "stop after `n` cycles (0 = unbounded)")
	withHost := fs.Bool("host", false, "bind the reference sleep/pixel/flush syscall port")
	hostW := fs.Int("w", 16, "framebuffer width when -host is set")
	hostH := fs.Int("h", 16, "framebuffer height when -host is set")
	fs.BoolVar(&debugFlag, "debug", false, "single-step REPL and full error detail on fault")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("run: expected exactly one file")
	}

	code, err := loadCode(fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, "run")
	}

	var opts []svm.Option
	if *withHost {
		host := svmhost.NewHost(*hostW, *hostH, os.Stdout)
		opts = append(opts, svm.WithContext(host), svm.WithSyscallHandler(svmhost.Handler))
	}

	vm, err := svm.New(opts...)
	if err != nil {
		return errors.Wrap(err, "run")
	}
	if err := vm.Load(code); err != nil {
		return errors.Wrap(err, "run")
	}
	vm.CurrentTask().Registers = regs.regs

	if debugFlag {
		return debugLoop(vm)
	}

	cycles, err := vm.Run(*maxCycles)
	if err != nil {
		return faultError(vm, cycles, err)
	}
	return nil
}

// faultError annotates a run-time fault with the pc/task context the
// teacher's atExit prints inline; here it rides on the error itself so the
// same formatting (%v vs %+v) applies uniformly.
func faultError(vm *svm.VM, cycles int, err error) error {
	t := vm.CurrentTask()
	if t == nil {
		return errors.Wrapf(err, "after %d cycles", cycles)
	}
	return errors.Wrapf(err, "after %d cycles, pc=%d task=%d", cycles, t.PC(), t.ID())
}

// debugLoop is a single-step REPL adapted from the teacher's source-level
// debugger: n steps one cycle, r runs to completion (or the next
// breakpoint), b <addr> sets/clears a breakpoint, q quits.
func debugLoop(vm *svm.VM) error {
	breakpoints := make(map[int]bool)
	in := bufio.NewScanner(os.Stdin)

	printState := func() {
		t := vm.CurrentTask()
		if t == nil {
			fmt.Fprintln(stdout, "(no current task)")
			return
		}
		fmt.Fprintf(stdout, "pc=%d task=%d regs=%v\n", t.PC(), t.ID(), t.Registers)
	}

	fmt.Fprintln(stdout, "svm debug: n=step r=run b <addr>=breakpoint q=quit")
	printState()
	for vm.Running {
		fmt.Print("(svm) ")
		if !in.Scan() {
			return nil
		}
		line := strings.TrimSpace(in.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "n":
			if err := vm.Cycle(); err != nil {
				return err
			}
			printState()
		case "r":
			for vm.Running {
				if t := vm.CurrentTask(); t != nil && breakpoints[t.PC()] {
					break
				}
				if err := vm.Cycle(); err != nil {
					return err
				}
			}
			printState()
		case "b":
			if len(fields) != 2 {
				fmt.Println("usage: b <addr>")
				continue
			}
			addr, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("bad address:", fields[1])
				continue
			}
			breakpoints[addr] = !breakpoints[addr]
			fmt.Printf("breakpoint at %d: %v\n", addr, breakpoints[addr])
		case "q":
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
	fmt.Fprintln(stdout, "program ended")
	return nil
}
