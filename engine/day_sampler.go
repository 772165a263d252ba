package engine

import (
	"math"
	"math/rand"

	"simsom/population"
)

// PoissonDaySampler draws each user's daily action count from a Poisson
// distribution parameterized by that user's MeanActionPerDay (spec 4.2:
// "Markov model or Poisson"). It is the simpler of the two acceptable
// models and is used as the DataManager's default DaySampler.
type PoissonDaySampler struct{}

// SampleDay draws one Poisson count per user via Knuth's algorithm.
func (PoissonDaySampler) SampleDay(users map[population.UID]*population.User) map[population.UID]int {
	counts := make(map[population.UID]int, len(users))
	for uid, u := range users {
		counts[uid] = poisson(u.MeanActionPerDay)
	}
	return counts
}

func poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rand.Float64()
		if p <= l {
			return k - 1
		}
	}
}
