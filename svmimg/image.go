// Package svmimg persists svm.Code images to and from disk.
package svmimg

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/maxrt101/svm/svm"
)

// Component H: image I/O. Grounded on the teacher's vm/mem.go Load/Save pair
// (bufio reader/writer, encoding/binary.LittleEndian, errors.Wrap at every
// I/O boundary, "file too large"/short-read checks), adapted to add a small
// fixed header recording the per-task stack sizes the source image was
// assembled with — the teacher's raw-Cell images have nothing equivalent
// since ngaro's stack sizes are a VM-wide runtime flag, not per-image.
const (
	magic         = 0x53564d31 // "SVM1"
	headerWords   = 4          // magic, version, word count, stack sizes (packed)
	formatVersion = 1
)

// LoadImage reads a code image previously written by SaveImage.
func LoadImage(path string) (*svm.Code, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "svmimg: open failed")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "svmimg: fstat failed")
	}
	if st.Size() > int64((^uint(0))>>1) {
		return nil, errors.Errorf("svmimg: %s: file too large", path)
	}

	r := bufio.NewReader(f)

	var hdr [headerWords]uint32
	for i := range hdr {
		v, err := readWord(r)
		if err != nil {
			return nil, errors.Wrap(err, "svmimg: header read failed")
		}
		hdr[i] = v
	}
	if hdr[0] != magic {
		return nil, errors.Errorf("svmimg: %s: bad magic %#x", path, hdr[0])
	}
	if hdr[1] != formatVersion {
		return nil, errors.Errorf("svmimg: %s: unsupported format version %d", path, hdr[1])
	}
	wordCount := int(hdr[2])
	stackSize := int(hdr[3] & 0xffff)
	callStackSize := int(hdr[3] >> 16)

	words := make([]uint32, wordCount)
	for i := range words {
		v, err := readWord(r)
		if err != nil {
			return nil, errors.Wrapf(err, "svmimg: word %d read failed", i)
		}
		words[i] = v
	}

	return &svm.Code{Words: words, StackSize: stackSize, CallStackSize: callStackSize}, nil
}

func readWord(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// SaveImage writes code to path in the format LoadImage reads. The two stack
// sizes are packed into 16 bits each of one header word; an image requesting
// a stack deeper than 65535 words cannot be represented and is rejected.
func SaveImage(code *svm.Code, path string) (err error) {
	if code.StackSize < 0 || code.StackSize > 0xffff {
		return errors.Errorf("svmimg: stack size %d out of range", code.StackSize)
	}
	if code.CallStackSize < 0 || code.CallStackSize > 0xffff {
		return errors.Errorf("svmimg: call stack size %d out of range", code.CallStackSize)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "svmimg: create failed")
	}
	w := bufio.NewWriter(f)
	defer func() {
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = errors.Wrap(ferr, "svmimg: flush failed")
		}
		f.Close()
		if err != nil {
			os.Remove(path)
		}
	}()

	hdr := [headerWords]uint32{
		magic,
		formatVersion,
		uint32(len(code.Words)),
		uint32(code.StackSize&0xffff) | uint32(code.CallStackSize&0xffff)<<16,
	}
	for _, v := range hdr {
		if err = writeWord(w, v); err != nil {
			return errors.Wrap(err, "svmimg: header write failed")
		}
	}
	for i, v := range code.Words {
		if err = writeWord(w, v); err != nil {
			return errors.Wrapf(err, "svmimg: word %d write failed", i)
		}
	}
	return nil
}

func writeWord(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}
