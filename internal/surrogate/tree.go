package surrogate

import "sort"

// treeNode is one node of a regression tree. Leaves carry the mean target
// of their training samples; internal nodes split on Feature < Threshold.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// featuresInRange reports whether every split references a feature index
// below nf. Used to vet persisted trees before they can be predicted with.
func (n *treeNode) featuresInRange(nf int) bool {
	if n == nil || n.Leaf {
		return true
	}
	if n.Feature < 0 || n.Feature >= nf {
		return false
	}
	return n.Left.featuresInRange(nf) && n.Right.featuresInRange(nf)
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] < n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// buildTree fits a least-squares regression tree on the samples selected
// by idx. Splits are exhaustive over features, scored by sum-of-squared-
// error reduction with prefix sums over the sorted column.
func buildTree(x [][]float64, y []float64, idx []int, maxDepth, minLeaf int) *treeNode {
	mean := 0.0
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(len(idx))

	if maxDepth == 0 || len(idx) < 2*minLeaf {
		return &treeNode{Leaf: true, Value: mean}
	}

	feature, threshold, ok := bestSplit(x, y, idx, minLeaf)
	if !ok {
		return &treeNode{Leaf: true, Value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < minLeaf || len(right) < minLeaf {
		return &treeNode{Leaf: true, Value: mean}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(x, y, left, maxDepth-1, minLeaf),
		Right:     buildTree(x, y, right, maxDepth-1, minLeaf),
	}
}

func bestSplit(x [][]float64, y []float64, idx []int, minLeaf int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	nFeatures := len(x[idx[0]])

	total := 0.0
	for _, i := range idx {
		total += y[i]
	}

	bestGain := 0.0
	order := make([]int, n)

	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		// SSE reduction equals (Σleft)²/nL + (Σright)²/nR − (Σ)²/n, so only
		// prefix sums are needed.
		prefix := 0.0
		for k := 0; k < n-1; k++ {
			prefix += y[order[k]]
			nL := k + 1
			nR := n - nL
			if nL < minLeaf || nR < minLeaf {
				continue
			}
			lo := x[order[k]][f]
			hi := x[order[k+1]][f]
			if lo == hi {
				continue
			}
			rest := total - prefix
			gain := prefix*prefix/float64(nL) + rest*rest/float64(nR) - total*total/float64(n)
			if gain > bestGain+1e-12 {
				bestGain = gain
				feature = f
				threshold = (lo + hi) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
