// Package codec decodes case-mutated haystacks under the standard padded
// base64 alphabet and classifies decode failures as recoverable or fatal.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidLastSymbol reports a final symbol whose unused low bits are
	// not zero. Flipping the case of a letter near the end of a haystack
	// produces it routinely.
	ErrInvalidLastSymbol = errors.New("invalid last symbol")

	// ErrCorruptInput covers every other decode failure: bytes outside the
	// alphabet, misplaced padding or a truncated final group.
	ErrCorruptInput = errors.New("corrupt input")
)

// DecodeError carries the classification and the offending input offset.
type DecodeError struct {
	Kind   error
	Offset int64
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("base64 decode: %v at offset %d", e.Kind, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// Recoverable reports whether err only invalidates the current trial.
func Recoverable(err error) bool {
	return errors.Is(err, ErrInvalidLastSymbol)
}

// Decoder decodes with the standard alphabet in strict mode so that
// non-canonical trailing bits are rejected instead of silently dropped.
type Decoder struct {
	enc *base64.Encoding
}

func NewDecoder() *Decoder {
	return &Decoder{enc: base64.StdEncoding.Strict()}
}

// DecodeInto decodes src into dst's backing array, growing it only when its
// capacity is too small, and returns the decoded prefix.
func (d *Decoder) DecodeInto(dst, src []byte) ([]byte, error) {
	need := d.enc.DecodedLen(len(src))
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]

	n, err := d.enc.Decode(dst, src)
	if err != nil {
		return dst[:0], classify(src, err)
	}
	return dst[:n], nil
}

func classify(src []byte, err error) error {
	var corrupt base64.CorruptInputError
	if !errors.As(err, &corrupt) {
		return &DecodeError{Kind: ErrCorruptInput, Offset: -1}
	}
	if off, ok := firstForeignByte(src); ok {
		return &DecodeError{Kind: ErrCorruptInput, Offset: int64(off)}
	}
	if isFinalSymbolFailure(src, int64(corrupt)) {
		return &DecodeError{Kind: ErrInvalidLastSymbol, Offset: int64(corrupt)}
	}
	return &DecodeError{Kind: ErrCorruptInput, Offset: int64(corrupt)}
}

// isFinalSymbolFailure reports whether a strict-mode failure at off sits in
// a well-formed final quantum, which only happens when its last data symbol
// carries set padding bits.
func isFinalSymbolFailure(src []byte, off int64) bool {
	data := stripLineBreaks(src)
	if len(data)%4 != 0 || len(data) == 0 {
		return false
	}
	tail := data[len(data)-4:]
	pad := 0
	for i := len(tail) - 1; i >= 0 && tail[i] == '='; i-- {
		pad++
	}
	if pad == 0 || pad > 2 {
		return false
	}
	for _, b := range tail[:4-pad] {
		if b == '=' {
			return false
		}
	}
	for _, b := range data[:len(data)-4] {
		if b == '=' {
			return false
		}
	}
	return off >= int64(len(src)-4-countLineBreaks(src))
}

func firstForeignByte(src []byte) (int, bool) {
	for i, b := range src {
		if b == '\r' || b == '\n' || b == '=' || isAlphabet(b) {
			continue
		}
		return i, true
	}
	return 0, false
}

func isAlphabet(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '+' || b == '/'
}

func stripLineBreaks(src []byte) []byte {
	if countLineBreaks(src) == 0 {
		return src
	}
	out := make([]byte, 0, len(src))
	for _, b := range src {
		if b != '\r' && b != '\n' {
			out = append(out, b)
		}
	}
	return out
}

func countLineBreaks(src []byte) int {
	n := 0
	for _, b := range src {
		if b == '\r' || b == '\n' {
			n++
		}
	}
	return n
}
