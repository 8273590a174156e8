package surrogate

import "math/rand/v2"

// GBTParams mirror the boosting hyperparameters of the reference setup.
type GBTParams struct {
	NumTrees       int     `json:"num_trees"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Subsample      float64 `json:"subsample"`
	Seed           uint64  `json:"seed"`
}

func DefaultGBTParams() GBTParams {
	return GBTParams{
		NumTrees:       100,
		LearningRate:   0.1,
		MaxDepth:       6,
		MinSamplesLeaf: 2,
		Subsample:      0.8,
		Seed:           42,
	}
}

// gbt is a least-squares gradient-boosted tree ensemble: prediction starts
// from the training-target mean and each tree corrects the residual at the
// learning rate.
type gbt struct {
	Base         float64     `json:"base"`
	LearningRate float64     `json:"learning_rate"`
	Trees        []*treeNode `json:"trees"`
}

func fitGBT(x [][]float64, y []float64, params GBTParams, rng *rand.Rand) *gbt {
	n := len(y)
	base := 0.0
	for _, v := range y {
		base += v
	}
	base /= float64(n)

	g := &gbt{Base: base, LearningRate: params.LearningRate}

	residual := make([]float64, n)
	for i, v := range y {
		residual[i] = v - base
	}

	sampleSize := int(params.Subsample * float64(n))
	if sampleSize < 1 || sampleSize > n {
		sampleSize = n
	}

	for m := 0; m < params.NumTrees; m++ {
		idx := rng.Perm(n)[:sampleSize]
		tree := buildTree(x, residual, idx, params.MaxDepth, params.MinSamplesLeaf)
		g.Trees = append(g.Trees, tree)
		for i := 0; i < n; i++ {
			residual[i] -= params.LearningRate * tree.predict(x[i])
		}
	}
	return g
}

func (g *gbt) predict(x []float64) float64 {
	out := g.Base
	for _, t := range g.Trees {
		out += g.LearningRate * t.predict(x)
	}
	return out
}
