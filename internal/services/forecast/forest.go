package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// ForestParams configures bagged regression trees
type ForestParams struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
}

// Node is one node of a flattened regression tree. Leaves carry Value;
// internal nodes route x[Feature] <= Threshold to Left, otherwise Right.
type Node struct {
	Leaf      bool
	Value     float64
	Feature   int
	Threshold float64
	Left      int
	Right     int
}

// Tree is a regression tree stored as a node slice rooted at index 0
type Tree struct {
	Nodes []Node
}

// Forest is an ensemble of bootstrap-trained regression trees. It has only
// exported fields so it round-trips through gob.
type Forest struct {
	Trees    []Tree
	Features int
}

// TrainForest fits a random forest regressor. Each tree sees a bootstrap
// sample and considers every feature at every split; the result depends only
// on the inputs and params.Seed.
func TrainForest(x [][]float64, y []float64, params ForestParams) *Forest {
	rng := rand.New(rand.NewSource(params.Seed))
	forest := &Forest{Features: len(x[0])}

	minSplit := max(2, params.MinSamplesSplit)
	for t := 0; t < max(1, params.Trees); t++ {
		sample := make([]int, len(x))
		for i := range sample {
			sample[i] = rng.Intn(len(x))
		}

		b := &treeBuilder{x: x, y: y, maxDepth: params.MaxDepth, minSplit: minSplit}
		b.build(sample, 0)
		forest.Trees = append(forest.Trees, Tree{Nodes: b.nodes})
	}
	return forest
}

// Predict averages the trees' predictions
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, tree := range f.Trees {
		sum += tree.predict(x)
	}
	return sum / float64(len(f.Trees))
}

func (t Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minSplit int
	nodes    []Node
}

// build appends the subtree for idx and returns its node index
func (b *treeBuilder) build(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Value: b.mean(idx)})

	if len(idx) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

// bestSplit finds the split minimising the summed squared error of both sides
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	bestScore := b.sse(idx)
	bestFeature, bestThreshold, found := 0, 0.0, false

	order := make([]int, n)
	for f := 0; f < len(b.x[idx[0]]); f++ {
		copy(order, idx)
		sort.SliceStable(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })

		var totalSum, totalSq float64
		for _, i := range order {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			v := b.y[order[k]]
			leftSum += v
			leftSq += v * v

			cur, next := b.x[order[k]][f], b.x[order[k+1]][f]
			if cur == next {
				continue
			}

			nl, nr := float64(k+1), float64(n-k-1)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			score := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if score < bestScore-1e-12 {
				bestScore = score
				bestFeature = f
				bestThreshold = (cur + next) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum / float64(len(idx))
}

func (b *treeBuilder) sse(idx []int) float64 {
	m := b.mean(idx)
	sum := 0.0
	for _, i := range idx {
		d := b.y[i] - m
		sum += d * d
	}
	return sum
}

func meanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// r2Score is the coefficient of determination; a constant target scores 1
// when predicted exactly and 0 otherwise.
func r2Score(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
