package util

import "math/rand/v2"

func NewSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = 1
	}
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

func New(seed uint64) *rand.Rand {
	return rand.New(NewSource(seed))
}
