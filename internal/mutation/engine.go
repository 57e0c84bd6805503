// Package mutation proposes case-flip candidates for the search and owns the
// cooling schedule of the flip probability.
package mutation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

const caseBit = 0x20

// Engine flips the case of ASCII letters and, when PInherit is set, copies
// bytes from sibling heads before the flip test. All draws come from Rand.
type Engine struct {
	Rand     *rand.Rand
	PFlip    float64
	PInherit float64
}

func (e *Engine) Validate() error {
	if e == nil || e.Rand == nil {
		return errors.New("random source is required")
	}
	if err := checkProbability("p_flip", e.PFlip); err != nil {
		return err
	}
	return checkProbability("p_inherit", e.PInherit)
}

// Mutate rewrites buf in place. pool holds the haystacks of every head in the
// population, each at least len(buf) long; it may be empty when PInherit is 0.
func (e *Engine) Mutate(buf []byte, pool [][]byte) {
	inherit := e.PInherit > 0 && len(pool) > 0
	for i := range buf {
		if inherit && e.Rand.Float64() < e.PInherit {
			buf[i] = pool[e.Rand.Intn(len(pool))][i]
		}
		if isLetter(buf[i]) && e.Rand.Float64() < e.PFlip {
			buf[i] ^= caseBit
		}
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func checkProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%s must be within [0, 1], got %v", name, p)
	}
	return nil
}
