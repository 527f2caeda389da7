// Package svmasm implements the SVM tokenizer, literal parser and two-pass
// assembler that turn mnemonic source text into an svm.Code image.
package svmasm

import (
	"strconv"
	"strings"
)

// Component B: tokenizer & literal parser.
//
// Grounded on the teacher's text/scanner-based tokenizer (asm/parser.go),
// but reworked per Design Note 4: the source is held as an index/length
// slice over a string rather than mutated in place (the reference C
// tokenizer writes NULs into its buffer to terminate tokens; a one-token
// rollback there means "restore the NUL to a space and rewind the
// pointer" — here it is simply "rewind the cursor", with no mutation).

// A token is a maximal run of non-whitespace, non-'.', non-EOF bytes.
// Separators are space, tab, newline, '.', and end of input. Comments begin
// with '#' and extend to end of line or end of input — the skip loop uses
// '&&' so it always terminates, fixing the reference source's '||' bug.
type tokenizer struct {
	src     string
	pos     int
	prev    int // position immediately before the last token returned, for rollback
	valid   bool
	line    int // 1-based line of the last token returned by next()
	prevLn  int // line to restore to on rollback
}

func newTokenizer(src string) *tokenizer {
	return &tokenizer{src: src, line: 1}
}

// currentLine returns the 1-based source line of the last token returned by
// next(), for diagnostics.
func (tz *tokenizer) currentLine() int {
	return tz.line
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isSeparator(b byte) bool {
	return isSpace(b) || b == '.'
}

// skipSpaceAndComments advances past whitespace and '#'-to-end-of-line
// comments.
func (tz *tokenizer) skipSpaceAndComments() {
	for tz.pos < len(tz.src) {
		c := tz.src[tz.pos]
		if c == '\n' {
			tz.line++
			tz.pos++
			continue
		}
		if isSpace(c) {
			tz.pos++
			continue
		}
		if c == '#' {
			for tz.pos < len(tz.src) && tz.src[tz.pos] != '\n' {
				tz.pos++
			}
			continue
		}
		break
	}
}

// next returns the next token and whether one was found. A '.' encountered
// as the very next non-space byte is returned as its own one-byte token, so
// callers can distinguish "mov.eq" (mnemonic, dot, suffix) from a token that
// merely contains a dot internally (none do, in this grammar).
func (tz *tokenizer) next() (string, bool) {
	tz.skipSpaceAndComments()
	tz.prev = tz.pos
	tz.prevLn = tz.line
	if tz.pos >= len(tz.src) {
		tz.valid = false
		return "", false
	}
	if tz.src[tz.pos] == '.' {
		tz.pos++
		tz.valid = true
		return ".", true
	}
	start := tz.pos
	for tz.pos < len(tz.src) && !isSeparator(tz.src[tz.pos]) {
		tz.pos++
	}
	tz.valid = true
	return tz.src[start:tz.pos], true
}

// rollback restores the cursor to just before the last token returned by
// next, so the next call to next() returns the same token again. Only one
// level of rollback is supported, which is all the grammar needs: an ext
// suffix token that turns out to be arg1, and the push/pop second-operand
// peek.
func (tz *tokenizer) rollback() {
	if tz.valid {
		tz.pos = tz.prev
		tz.line = tz.prevLn
		tz.valid = false
	}
}

// parseInt parses an integer literal in base 2 (0b prefix), 16 (0x prefix)
// or 10 (no prefix). Hex accepts both upper and lower case digits. Returns
// ok=false on any invalid digit rather than panicking.
func parseInt(tok string) (int32, bool) {
	neg := false
	s := tok
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base = 16
		s = s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base = 2
		s = s[2:]
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, false
	}
	n := int32(v)
	if neg {
		n = -n
	}
	return n, true
}
