package photon

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// A Source supplies independent, uniformly distributed random bits and
// bases. Each call is a fresh draw; callers must never replay a draw.
type Source interface {
	NextBit() int
	NextBasis() Basis
}

// randSource adapts a *rand.Rand to Source. Draws are serialized so one
// source may be shared by concurrent runs.
type randSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSource returns a Source drawing from r. The returned Source is safe for
// concurrent use.
func NewSource(r *rand.Rand) Source {
	return &randSource{r: r}
}

// NewSeededSource returns a deterministic Source for the given seed.
func NewSeededSource(seed int64) Source {
	return NewSource(rand.New(rand.NewSource(seed)))
}

// NewEntropySource returns a Source seeded from the operating system's
// entropy pool. This is pRNG output, suitable for simulation only.
func NewEntropySource() (Source, error) {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, err
	}
	return NewSeededSource(int64(binary.LittleEndian.Uint64(seed[:]))), nil
}

func (s *randSource) NextBit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(2)
}

func (s *randSource) NextBasis() Basis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Basis(s.r.Intn(2))
}

// A Scripted source replays fixed sequences of bits and bases, cycling when
// a sequence is exhausted. Draws against an empty sequence fall through to
// Fallback, or yield zero values if Fallback is nil. A Scripted source is
// not safe for concurrent use.
type Scripted struct {
	Bits     []int
	Bases    []Basis
	Fallback Source

	nBits, nBases int
}

func (s *Scripted) NextBit() int {
	if len(s.Bits) == 0 {
		if s.Fallback == nil {
			return 0
		}
		return s.Fallback.NextBit()
	}
	b := s.Bits[s.nBits%len(s.Bits)]
	s.nBits++
	return b & 1
}

func (s *Scripted) NextBasis() Basis {
	if len(s.Bases) == 0 {
		if s.Fallback == nil {
			return Rectilinear
		}
		return s.Fallback.NextBasis()
	}
	b := s.Bases[s.nBases%len(s.Bases)]
	s.nBases++
	return b & 1
}
