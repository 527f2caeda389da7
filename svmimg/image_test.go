package svmimg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxrt101/svm/svm"
	"github.com/maxrt101/svm/svmasm"
)

func assert(t *testing.T, cond bool, format string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// TestImageRoundTrip assembles a small program, saves it, reloads it from
// disk, and checks the reloaded image runs to the same result as the
// original (the round trip of SPEC_FULL.md scenario 7, run here on a small
// multiply program rather than on scenario 1's source).
func TestImageRoundTrip(t *testing.T) {
	code, err := svmasm.Assemble(`
		.stack 16
		.callstack 4
		mov r0 7
		mov r1 6
		mul r0 r1
		end
	`)
	assert(t, err == nil, "assemble: %v", err)

	path := filepath.Join(t.TempDir(), "prog.svmimg")
	assert(t, SaveImage(code, path) == nil, "SaveImage failed")

	loaded, err := LoadImage(path)
	assert(t, err == nil, "LoadImage: %v", err)
	assert(t, len(loaded.Words) == len(code.Words), "word count mismatch: %d vs %d", len(loaded.Words), len(code.Words))
	for i := range code.Words {
		assert(t, loaded.Words[i] == code.Words[i], "word %d: %#x vs %#x", i, loaded.Words[i], code.Words[i])
	}
	assert(t, loaded.StackSize == 16, "StackSize = %d, want 16", loaded.StackSize)
	assert(t, loaded.CallStackSize == 4, "CallStackSize = %d, want 4", loaded.CallStackSize)

	vm, _ := svm.New()
	assert(t, vm.Load(loaded) == nil, "Load failed")
	_, err = vm.Run(100)
	assert(t, err == nil, "Run: %v", err)
	assert(t, vm.CurrentTask().Registers[0] == 42, "r0 = %d, want 42", vm.CurrentTask().Registers[0])
}

func TestLoadImageRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.svmimg")
	assert(t, os.WriteFile(path, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, 0o644) == nil, "WriteFile failed")

	_, err := LoadImage(path)
	assert(t, err != nil, "expected an error for a bad-magic file")
}
