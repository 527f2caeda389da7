package svm

// Code is a flat 32-bit code image plus the per-task stack sizes the
// compiler suggests for programs loaded from it. A zero size means "use the
// package defaults" (DefaultCallStackSize / DefaultStackSize).
type Code struct {
	Words         []uint32
	StackSize     int
	CallStackSize int
}

// Size returns the number of words in the image.
func (c *Code) Size() int {
	if c == nil {
		return 0
	}
	return len(c.Words)
}

// NewCode wraps words as a code image with default stack sizes.
func NewCode(words []uint32) *Code {
	return &Code{Words: words}
}
