// Package dice provides the random primitive used by every rule in the
// engine. All rolls go through a Source so a game can be replayed from its
// seed and tests can script exact faces.
package dice

import (
	"fmt"
	"math/rand"
	"sync"
)

// Die sizes used by the rules.
const (
	D6   = 6
	D8   = 8
	D100 = 100
)

// Source produces uniformly distributed integers in [0, n).
// Implementations must be safe for concurrent use.
type Source interface {
	Intn(n int) int
}

// Roll returns a uniform value in [1, sides].
func Roll(src Source, sides int) int {
	if sides < 1 {
		return 0
	}
	return src.Intn(sides) + 1
}

// Percentile rolls a d100.
func Percentile(src Source) int {
	return Roll(src, D100)
}

// RollN sums count dice of the given size plus modifier, floored at zero.
func RollN(src Source, count, sides, modifier int) int {
	total := modifier
	for i := 0; i < count; i++ {
		total += Roll(src, sides)
	}
	if total < 0 {
		return 0
	}
	return total
}

// Seeded is a deterministic Source backed by math/rand.
type Seeded struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeded returns a deterministic source for seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

// Intn implements Source.
func (s *Seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// CommandSeed derives the seed of the sequence-th command of a game.
func CommandSeed(gameSeed int64, sequence int) int64 {
	return gameSeed ^ (int64(sequence)+1)*0x5DEECE66D
}

// Script replays fixed die faces in order. It is meant for tests and for
// replaying recorded games; it panics when a face does not fit the die being
// rolled or when the script runs out.
type Script struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewScript returns a Source yielding the given faces (1-based).
func NewScript(faces ...int) *Script {
	return &Script{faces: append([]int(nil), faces...)}
}

// Intn implements Source.
func (s *Script) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.faces) {
		panic(fmt.Sprintf("dice: script exhausted after %d draws", s.next))
	}
	face := s.faces[s.next]
	if face < 1 || face > n {
		panic(fmt.Sprintf("dice: scripted face %d does not fit d%d (draw %d)", face, n, s.next+1))
	}
	s.next++
	return face - 1
}

// Remaining reports how many scripted faces are left.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces) - s.next
}

// Drawn reports how many faces have been consumed.
func (s *Script) Drawn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
