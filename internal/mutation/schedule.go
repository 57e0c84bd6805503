package mutation

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultInitialFlip = 0.25
	DefaultCooling     = 0.999
	DefaultFloor       = 0.01
)

// Schedule cools the flip probability geometrically toward Floor. Factor is
// the decay of one full pass over Heads heads, so each call applies the
// Heads-th root of it and the aggregate rate does not depend on head count.
type Schedule struct {
	Factor float64
	Floor  float64
	Heads  int

	perCall float64
}

func NewSchedule(factor, floor float64, heads int) (*Schedule, error) {
	s := &Schedule{Factor: factor, Floor: floor, Heads: heads}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.perCall = math.Pow(factor, 1/float64(heads))
	return s, nil
}

func (s *Schedule) Validate() error {
	if s.Heads < 1 {
		return errors.New("heads must be >= 1")
	}
	if s.Factor <= 0 || s.Factor > 1 {
		return fmt.Errorf("cooling factor must be within (0, 1], got %v", s.Factor)
	}
	return checkProbability("floor", s.Floor)
}

// PerCall is the multiplicative decay applied by each Next call.
func (s *Schedule) PerCall() float64 {
	return s.perCall
}

func (s *Schedule) Next(p float64) float64 {
	return math.Max(s.Floor, p*s.perCall)
}
