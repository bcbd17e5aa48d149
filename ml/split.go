package ml

import (
	"math"
	"math/rand/v2"
	"sort"
)

// testSize is ceil(n*fraction), keeping at least one row on each side.
func testSize(n int, fraction float64) int {
	k := int(math.Ceil(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	if k > n-1 {
		k = n - 1
	}
	return k
}

// splitIndices partitions row indices into train and test sets. The split is
// stratified by label when every label has at least two rows, otherwise it is
// a plain shuffle. Both returned slices are sorted.
func splitIndices(labels []int, fraction float64, rng *rand.Rand) (train, test []int) {
	n := len(labels)
	if n < 2 {
		return rangeInts(n), nil
	}
	k := testSize(n, fraction)

	groups := make(map[int][]int)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	stratify := len(groups) > 1
	for _, g := range groups {
		if len(g) < 2 {
			stratify = false
			break
		}
	}

	if !stratify {
		perm := rng.Perm(n)
		test = append(test, perm[:k]...)
		train = append(train, perm[k:]...)
		sort.Ints(train)
		sort.Ints(test)
		return train, test
	}

	keys := make([]int, 0, len(groups))
	for l := range groups {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	quota := allocate(keys, groups, n, k)
	for _, l := range keys {
		g := groups[l]
		rng.Shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
		test = append(test, g[:quota[l]]...)
		train = append(train, g[quota[l]:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// allocate distributes k test rows across labels proportionally to their
// size (largest remainder), never taking a label's last training row.
func allocate(keys []int, groups map[int][]int, n, k int) map[int]int {
	type share struct {
		label int
		frac  float64
	}
	quota := make(map[int]int, len(keys))
	shares := make([]share, 0, len(keys))
	left := k
	for _, l := range keys {
		exact := float64(k) * float64(len(groups[l])) / float64(n)
		q := int(math.Floor(exact))
		if q > len(groups[l])-1 {
			q = len(groups[l]) - 1
		}
		quota[l] = q
		left -= q
		shares = append(shares, share{label: l, frac: exact - float64(q)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for left > 0 {
		placed := false
		for _, s := range shares {
			if left == 0 {
				break
			}
			if quota[s.label] < len(groups[s.label])-1 {
				quota[s.label]++
				left--
				placed = true
			}
		}
		if !placed {
			break
		}
	}
	return quota
}

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
