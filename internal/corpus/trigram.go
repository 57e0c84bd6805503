package corpus

import (
	"bytes"
	"fmt"
	"iter"
)

// Trigram is a contiguous 3-byte window taken from a word or a guess.
type Trigram [3]byte

func (t Trigram) Compare(other Trigram) int {
	return bytes.Compare(t[:], other[:])
}

func (t Trigram) String() string {
	return fmt.Sprintf("Trigram(%s)", DebugBytes(t[:]))
}

// Trigrams yields every width-3 window of b with stride 1.
func Trigrams(b []byte) iter.Seq[Trigram] {
	return func(yield func(Trigram) bool) {
		for i := 0; i+3 <= len(b); i++ {
			if !yield(Trigram{b[i], b[i+1], b[i+2]}) {
				return
			}
		}
	}
}

// DebugBytes renders b as b"..." keeping spaces and ASCII graphic bytes and
// escaping everything else as \xNN.
func DebugBytes(b []byte) string {
	var out bytes.Buffer
	out.Grow(3 + len(b)*3)
	out.WriteString(`b"`)
	for _, c := range b {
		if c == ' ' || (c >= 0x21 && c <= 0x7e) {
			out.WriteByte(c)
			continue
		}
		fmt.Fprintf(&out, `\x%02x`, c)
	}
	out.WriteByte('"')
	return out.String()
}
