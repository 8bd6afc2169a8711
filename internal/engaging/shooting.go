// Package engaging samples engagement outcomes between opposing platoons.
package engaging

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

type Side string

const (
	SideRed  Side = "red"
	SideBlue Side = "blue"
)

// gammaScale is the scale parameter of the outcome distribution.
const gammaScale = 0.75

// Shooter draws outcome values from Gamma(shape = force ratio, scale = 0.75).
// It is safe for concurrent use.
type Shooter struct {
	mu  sync.Mutex
	src rand.Source
}

func NewShooter(src rand.Source) *Shooter {
	return &Shooter{src: src}
}

// Shoot returns a sampled probability-like value; callers apply their own
// threshold. For SideRed the ratio is enemy/friendly, otherwise
// friendly/enemy. The third argument is the engagement distance; it is
// accepted for interface stability and unused.
func (s *Shooter) Shoot(friendly, enemy int, _ float64, side Side) float64 {
	if friendly <= 0 || enemy <= 0 {
		return 0
	}
	ratio := float64(friendly) / float64(enemy)
	if side == SideRed {
		ratio = float64(enemy) / float64(friendly)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g := distuv.Gamma{Alpha: ratio, Beta: 1 / gammaScale, Src: s.src}
	return g.Rand()
}

// Mean is the expected value of Shoot for the given counts.
func Mean(friendly, enemy int, side Side) float64 {
	if friendly <= 0 || enemy <= 0 {
		return 0
	}
	ratio := float64(friendly) / float64(enemy)
	if side == SideRed {
		ratio = float64(enemy) / float64(friendly)
	}
	return ratio * gammaScale
}
