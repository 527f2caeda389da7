// Command svm assembles, disassembles and runs SVM programs.
package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxrt101/svm/internal/svmio"
	"github.com/maxrt101/svm/svm"
	"github.com/maxrt101/svm/svmasm"
	"github.com/maxrt101/svm/svmimg"
)

// stdout is shared by the dis and run(-debug) subcommands so a broken pipe
// surfaces once, at exit, instead of as a flurry of identical write errors.
var stdout = svmio.NewErrWriter(os.Stdout)

// Component J: the CLI driver. Grounded on the teacher's cmd/retro/main.go
// almost directly: custom flag.Value implementations for small closed
// inputs, an atExit-shaped error renderer that prints a one-line message
// normally and a full %+v stack trace in debug mode, and a
// defer-flush-then-exit pattern.

// regInit is a flag.Value collecting "N=V" initial-register assignments,
// e.g. "-reg 0=5 -reg 1=10". Grounded on the teacher's fileList: a
// flag.Value that appends to a slice across repeated uses.
type regInit struct {
	regs [svm.NumRegisters]int32
}

func (r *regInit) String() string { return "" }

func (r *regInit) Set(s string) error {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return errors.Errorf("expected N=V, got %q", s)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < 0 || n >= svm.NumRegisters {
		return errors.Errorf("invalid register index %q", parts[0])
	}
	v, err := strconv.ParseInt(parts[1], 0, 32)
	if err != nil {
		return errors.Errorf("invalid register value %q", parts[1])
	}
	r.regs[n] = int32(v)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: svm <command> [arguments]

commands:
  help             show this message
  asm [-o <out>] <in>  assemble source; hex-dump it, or save a binary image with -o
  run [flags] <file>   run a source file or binary image
  dis <file>           disassemble a source file or binary image

flags go before the file name.`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "help", "-h", "--help":
		usage()
		return
	case "asm":
		err = runAsm(args)
	case "run":
		err = runRun(args)
	case "dis":
		err = runDis(args)
	default:
		fmt.Fprintf(os.Stderr, "svm: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}
	if err == nil {
		err = stdout.Err
	}
	atExit(err)
}

// atExit prints err (if any) and sets the process exit status, mirroring
// the teacher's one-line-message-by-default, full-detail-with-debug-flag
// split. The status is the numeric code of the svm.Error or svmasm.Error
// found in err's wrap chain (the first diagnostic, for an svmasm.Errors
// list), and 1 for any other error.
func atExit(err error) {
	if err == nil {
		return
	}
	if debugFlag {
		fmt.Fprintf(os.Stderr, "svm: %+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "svm: %v\n", errors.Cause(err))
	}
	status := 1
	var vmErr svm.Error
	var asmErr svmasm.Error
	var asmErrs svmasm.Errors
	switch {
	case stderrors.As(err, &vmErr):
		status = int(vmErr.Code())
	case stderrors.As(err, &asmErr):
		status = int(asmErr.Code())
	case stderrors.As(err, &asmErrs) && len(asmErrs) > 0 && stderrors.As(asmErrs[0], &asmErr):
		status = int(asmErr.Code())
	}
	os.Exit(status)
}

// debugFlag is set by whichever subcommand parsed -debug; read by atExit.
var debugFlag bool

// loadCode assembles path if it looks like source (no recognisable binary
// header) and loads it as a pre-built image otherwise. The detection itself
// just tries LoadImage first and falls back to AssembleFile, since the
// image header's magic number makes a source file an unambiguous LoadImage
// failure.
func loadCode(path string) (*svm.Code, error) {
	if code, err := svmimg.LoadImage(path); err == nil {
		return code, nil
	}
	return svmasm.AssembleFile(path)
}
