package ml

import (
	"math/rand/v2"
	"sort"
)

// Node is one CART node stored in a flat slice. The root sits at index 0, so
// a zero Left marks a leaf.
type Node struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     float64   `json:"v,omitempty"`
	Probs     []float64 `json:"c,omitempty"`
}

func (n Node) leaf() bool { return n.Left == 0 }

// Tree is a binary decision tree. Regression trees carry Value at leaves,
// classification trees carry Probs.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) leafFor(x []float64) *Node {
	n := &t.Nodes[0]
	for !n.leaf() {
		if x[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n
}

type treeConfig struct {
	maxDepth    int
	minSplit    int
	maxFeatures int
	// nClasses is zero for regression.
	nClasses int
}

type treeBuilder struct {
	cfg        treeConfig
	x          [][]float64
	y          []float64
	rng        *rand.Rand
	tree       *Tree
	importance []float64
}

type split struct {
	feature   int
	threshold float64
	left      []int
	right     []int
	decrease  float64
}

const minDecrease = 1e-12

func growTree(cfg treeConfig, x [][]float64, y []float64, rows []int, rng *rand.Rand) (*Tree, []float64) {
	b := &treeBuilder{
		cfg:        cfg,
		x:          x,
		y:          y,
		rng:        rng,
		tree:       &Tree{},
		importance: make([]float64, len(x[0])),
	}
	b.build(rows, 0)
	return b.tree, b.importance
}

func (b *treeBuilder) build(rows []int, depth int) int {
	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, b.leafNode(rows))

	impurity := b.impurity(rows)
	if depth >= b.cfg.maxDepth || len(rows) < b.cfg.minSplit || impurity <= minDecrease {
		return id
	}

	best, ok := b.bestSplit(rows, impurity)
	if !ok {
		return id
	}
	b.importance[best.feature] += best.decrease

	left := b.build(best.left, depth+1)
	right := b.build(best.right, depth+1)
	b.tree.Nodes[id] = Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      left,
		Right:     right,
	}
	return id
}

func (b *treeBuilder) leafNode(rows []int) Node {
	if b.cfg.nClasses == 0 {
		var sum float64
		for _, r := range rows {
			sum += b.y[r]
		}
		return Node{Value: sum / float64(len(rows))}
	}
	probs := make([]float64, b.cfg.nClasses)
	for _, r := range rows {
		probs[int(b.y[r])]++
	}
	for i := range probs {
		probs[i] /= float64(len(rows))
	}
	return Node{Probs: probs}
}

// impurity is the node's total impurity weighted by its size: the sum of
// squared deviations for regression, n times Gini for classification.
func (b *treeBuilder) impurity(rows []int) float64 {
	if b.cfg.nClasses == 0 {
		var sum, sq float64
		for _, r := range rows {
			sum += b.y[r]
			sq += b.y[r] * b.y[r]
		}
		return sq - sum*sum/float64(len(rows))
	}
	counts := make([]float64, b.cfg.nClasses)
	for _, r := range rows {
		counts[int(b.y[r])]++
	}
	return giniWeighted(counts, float64(len(rows)))
}

func giniWeighted(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	var sq float64
	for _, c := range counts {
		sq += c * c
	}
	return n - sq/n
}

// bestSplit samples maxFeatures features in random order and keeps looking
// past that budget until at least one valid split has been found.
func (b *treeBuilder) bestSplit(rows []int, parent float64) (split, bool) {
	nFeatures := len(b.x[0])
	order := b.rng.Perm(nFeatures)

	var best split
	found := false
	for i, f := range order {
		if i >= b.cfg.maxFeatures && found {
			break
		}
		if s, ok := b.splitOn(rows, f, parent); ok && (!found || s.decrease > best.decrease) {
			best = s
			found = true
		}
	}
	return best, found
}

func (b *treeBuilder) splitOn(rows []int, f int, parent float64) (split, bool) {
	sorted := append([]int(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

	n := float64(len(sorted))
	bestDecrease := minDecrease
	bestAt := -1

	if b.cfg.nClasses == 0 {
		var totalSum, totalSq float64
		for _, r := range sorted {
			totalSum += b.y[r]
			totalSq += b.y[r] * b.y[r]
		}
		var lSum, lSq float64
		for i := 0; i < len(sorted)-1; i++ {
			v := b.y[sorted[i]]
			lSum += v
			lSq += v * v
			if b.x[sorted[i]][f] == b.x[sorted[i+1]][f] {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			rSum := totalSum - lSum
			rSq := totalSq - lSq
			child := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if d := parent - child; d > bestDecrease {
				bestDecrease = d
				bestAt = i
			}
		}
	} else {
		total := make([]float64, b.cfg.nClasses)
		for _, r := range sorted {
			total[int(b.y[r])]++
		}
		left := make([]float64, b.cfg.nClasses)
		right := make([]float64, b.cfg.nClasses)
		for i := 0; i < len(sorted)-1; i++ {
			left[int(b.y[sorted[i]])]++
			if b.x[sorted[i]][f] == b.x[sorted[i+1]][f] {
				continue
			}
			for c := range right {
				right[c] = total[c] - left[c]
			}
			nl := float64(i + 1)
			child := giniWeighted(left, nl) + giniWeighted(right, n-nl)
			if d := parent - child; d > bestDecrease {
				bestDecrease = d
				bestAt = i
			}
		}
	}

	if bestAt < 0 {
		return split{}, false
	}
	return split{
		feature:   f,
		threshold: (b.x[sorted[bestAt]][f] + b.x[sorted[bestAt+1]][f]) / 2,
		left:      sorted[:bestAt+1],
		right:     sorted[bestAt+1:],
		decrease:  bestDecrease,
	}, true
}
