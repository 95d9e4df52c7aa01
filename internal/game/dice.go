// internal/game/dice.go
package game

import (
	"math/rand"
	"time"
)

// Dice is the per-session randomness source. Tests substitute a scripted
// implementation so rolls and orderings are deterministic.
type Dice interface {
	// RollD6 returns n independent uniform integers in [1,6].
	RollD6(n int) []int
	// Shuffle randomizes the order of n elements via the swap function.
	Shuffle(n int, swap func(i, j int))
}

type randDice struct {
	rng *rand.Rand
}

// NewDice returns a time-seeded randomness source.
func NewDice() Dice {
	return NewSeededDice(time.Now().UnixNano())
}

// NewSeededDice returns a deterministic randomness source for the given seed.
func NewSeededDice(seed int64) Dice {
	return &randDice{rng: rand.New(rand.NewSource(seed))}
}

func (d *randDice) RollD6(n int) []int {
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = d.rng.Intn(6) + 1
	}
	return rolls
}

func (d *randDice) Shuffle(n int, swap func(i, j int)) {
	d.rng.Shuffle(n, swap)
}
