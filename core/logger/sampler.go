package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets through num out of every den calls to Allow.
// A zero ratio disables sampling and every call passes.
type sampler struct {
	ratio atomic.Uint64 // num<<32 | den
	calls atomic.Uint64
}

func newSampler(num, den int) *sampler {
	s := &sampler{}
	s.Set(num, den)
	return s
}

func (s *sampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(0)
		return
	}
	num = min(num, den)
	s.ratio.Store(uint64(uint32(num))<<32 | uint64(uint32(den)))
	s.calls.Store(0)
}

func (s *sampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&0xffffffff
	return (s.calls.Add(1)-1)%den < num
}

// parseRatio accepts "num/den" or a bare "den", meaning 1/den.
// It returns 0, 0 for anything it cannot read.
func parseRatio(ratio string) (int, int) {
	ratio = strings.TrimSpace(ratio)
	if n, d, ok := strings.Cut(ratio, "/"); ok {
		num, err1 := strconv.Atoi(strings.TrimSpace(n))
		den, err2 := strconv.Atoi(strings.TrimSpace(d))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return num, den
	}
	den, err := strconv.Atoi(ratio)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
