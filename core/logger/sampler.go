package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets through numerator out of every denominator events.
// A zero ratio disables sampling and every event passes.
type ratioSampler struct {
	ratio   atomic.Uint64 // numerator<<32 | denominator
	counter atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set configures the sampling ratio using numerator/denominator.
func (s *ratioSampler) Set(numerator, denominator int) {
	if numerator <= 0 || denominator <= 0 {
		s.ratio.Store(0)
		s.counter.Store(0)
		return
	}
	numerator = min(numerator, denominator)
	s.ratio.Store(uint64(numerator)<<32 | uint64(uint32(denominator)))
	s.counter.Store(0)
}

// Allow reports whether the current event should pass sampling.
func (s *ratioSampler) Allow() bool {
	ratio := s.ratio.Load()
	num, den := ratio>>32, ratio&0xffffffff
	if num == 0 || den == 0 {
		return true
	}
	n := s.counter.Add(1) - 1
	return n%den < num
}

// parseRatioSpec accepts "n/d" or a bare "d" meaning 1/d.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if head, tail, ok := strings.Cut(spec, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(head))
		den, err2 := strconv.Atoi(strings.TrimSpace(tail))
		if err1 == nil && err2 == nil {
			return num, den
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(spec); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
