package ml

import (
	"math/rand/v2"
)

// Forest is a bagged ensemble of CART trees. NClasses is zero for a
// regression forest. Importance holds the normalised impurity decrease per
// feature summed over all trees.
type Forest struct {
	Trees      []Tree    `json:"trees"`
	NClasses   int       `json:"n_classes,omitempty"`
	Importance []float64 `json:"importance"`
}

func fitForest(x [][]float64, y []float64, cfg treeConfig, nTrees int, rng *rand.Rand) *Forest {
	f := &Forest{
		Trees:      make([]Tree, 0, nTrees),
		NClasses:   cfg.nClasses,
		Importance: make([]float64, len(x[0])),
	}
	n := len(x)
	for t := 0; t < nTrees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		tree, imp := growTree(cfg, x, y, sample, rng)
		f.Trees = append(f.Trees, *tree)
		for i, v := range imp {
			f.Importance[i] += v
		}
	}
	normalize(f.Importance)
	return f
}

// PredictValue averages the leaf values of a regression forest.
func (f *Forest) PredictValue(x []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].leafFor(x).Value
	}
	return sum / float64(len(f.Trees))
}

// PredictProba averages the leaf class distributions of a classification
// forest.
func (f *Forest) PredictProba(x []float64) []float64 {
	out := make([]float64, f.NClasses)
	for i := range f.Trees {
		for c, p := range f.Trees[i].leafFor(x).Probs {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.Trees))
	}
	return out
}

// PredictClass returns the most probable class; ties go to the lower code.
func (f *Forest) PredictClass(x []float64) (int, float64) {
	probs := f.PredictProba(x)
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return best, probs[best]
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
