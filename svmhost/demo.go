// Package svmhost provides a small reference host capability: three
// illustrative SYS handlers (sleep, set-pixel, flush-to-terminal) bound to
// an in-memory framebuffer.
package svmhost

import (
	"fmt"
	"io"
	"time"
)

// Component I: reference syscall demo port. Grounded on the teacher's
// port-handler-wrapper idiom in cmd/retro/main.go (a small closure taking
// the running instance/value/port and deciding what to do before or after
// calling the default handler) and cmd/retro/term.go's terminal-writing
// style for the flush renderer, adapted from ngaro's byte-stream ports to
// SVM's register-passing SYS convention.

// Syscall numbers recognised by Handler.
const (
	SysSleepMillis int32 = 1 // r0 = milliseconds to sleep
	SysSetPixel    int32 = 2 // r0 = x, r1 = y, r2 = color (0 or 1)
	SysFlush       int32 = 3 // render the framebuffer to Out
)

// Host is the opaque context bound to a VM alongside Handler. It owns a
// small monochrome framebuffer and the writer flush renders to.
type Host struct {
	Out    io.Writer
	Width  int
	Height int

	pixels []bool

	// Sleep defaults to time.Sleep; tests substitute a no-op so the sleep
	// syscall can be exercised without slowing the test suite down.
	Sleep func(time.Duration)
}

// NewHost constructs a Host with a width x height framebuffer, all pixels
// off.
func NewHost(width, height int, out io.Writer) *Host {
	return &Host{
		Out:    out,
		Width:  width,
		Height: height,
		pixels: make([]bool, width*height),
	}
}

func (h *Host) sleepFunc() func(time.Duration) {
	if h.Sleep != nil {
		return h.Sleep
	}
	return time.Sleep
}

func (h *Host) setPixel(x, y int, on bool) {
	if x < 0 || y < 0 || x >= h.Width || y >= h.Height {
		return
	}
	h.pixels[y*h.Width+x] = on
}

// flush renders the framebuffer as rows of '#'/'.' followed by a blank
// line, the same "dump a text-mode grid" shape as the teacher's terminal
// writer, minus the raw-tty/cursor-escape handling this CLI has no use for.
func (h *Host) flush() {
	if h.Out == nil {
		return
	}
	for y := 0; y < h.Height; y++ {
		row := make([]byte, h.Width)
		for x := 0; x < h.Width; x++ {
			if h.pixels[y*h.Width+x] {
				row[x] = '#'
			} else {
				row[x] = '.'
			}
		}
		fmt.Fprintln(h.Out, string(row))
	}
	fmt.Fprintln(h.Out)
}

// Handler is an svm.SyscallHandler bound to a *Host context (via
// svm.WithContext and svm.WithSyscallHandler). Unrecognised syscall numbers
// are silently ignored, matching SYS's "no handler bound" behaviour.
func Handler(ctx interface{}, registers *[16]int32, num int32) {
	h, ok := ctx.(*Host)
	if !ok || h == nil {
		return
	}
	switch num {
	case SysSleepMillis:
		h.sleepFunc()(time.Duration(registers[0]) * time.Millisecond)
	case SysSetPixel:
		h.setPixel(int(registers[0]), int(registers[1]), registers[2] != 0)
	case SysFlush:
		h.flush()
	}
}
