package svmhost

import (
	"strings"
	"testing"
	"time"
)

func assert(t *testing.T, cond bool, format string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestSetPixelAndFlush(t *testing.T) {
	var out strings.Builder
	h := NewHost(3, 2, &out)

	var regs [16]int32
	regs[0], regs[1], regs[2] = 1, 0, 1
	Handler(h, &regs, SysSetPixel)
	Handler(h, &regs, SysFlush)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert(t, len(lines) == 2, "expected 2 rows, got %d", len(lines))
	assert(t, lines[0] == ".#.", "row 0 = %q, want \".#.\"", lines[0])
	assert(t, lines[1] == "...", "row 1 = %q, want \"...\"", lines[1])
}

func TestSetPixelOutOfBoundsIgnored(t *testing.T) {
	h := NewHost(2, 2, nil)
	var regs [16]int32
	regs[0], regs[1], regs[2] = 99, 99, 1
	Handler(h, &regs, SysSetPixel) // must not panic
}

func TestSleepInvokesOverride(t *testing.T) {
	h := NewHost(1, 1, nil)
	var got time.Duration
	h.Sleep = func(d time.Duration) { got = d }

	var regs [16]int32
	regs[0] = 25
	Handler(h, &regs, SysSleepMillis)
	assert(t, got == 25*time.Millisecond, "got %v, want 25ms", got)
}

func TestUnknownSyscallIgnored(t *testing.T) {
	h := NewHost(1, 1, nil)
	var regs [16]int32
	Handler(h, &regs, 999) // must not panic
}

func TestHandlerIgnoresNonHostContext(t *testing.T) {
	var regs [16]int32
	Handler("not a host", &regs, SysFlush) // must not panic
}
