package testutil

import (
	"sync"

	"github.com/dtroode/keybox/internal/model"
)

var _ model.RandomSource = (*CounterSource)(nil)

// CounterSource is a deterministic random source. Every call returns the
// next bytes of an incrementing counter, so consecutive draws differ.
type CounterSource struct {
	mu    sync.Mutex
	next  byte
	Calls int
	Err   error
}

// NewCounterSource starts the counter at seed.
func NewCounterSource(seed byte) *CounterSource {
	return &CounterSource{next: seed}
}

func (s *CounterSource) RandomBytes(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = s.next
		s.next++
	}
	return out, nil
}
