// Package iforest implements an isolation forest for unsupervised outlier
// scoring over numeric feature vectors.
//
// A forest is fit and used for one batch: callers build a new forest for
// every batch they score.
package iforest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const eulerGamma = 0.5772156649015329

// ErrEmpty is returned when there is nothing to fit
var ErrEmpty = errors.New("iforest: no samples")

// Options configures forest construction and the outlier threshold
type Options struct {
	// Trees is the number of isolation trees
	Trees int

	// SampleSize is the subsample drawn for each tree, capped at the
	// number of samples
	SampleSize int

	// Contamination is the expected fraction of outliers, in (0, 0.5]
	Contamination float64

	// Seed makes construction deterministic
	Seed int64
}

// DefaultOptions returns 100 trees of up to 256 samples, 1% contamination
func DefaultOptions() Options {
	return Options{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.01,
		Seed:          42,
	}
}

type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int
}

func (n *node) leaf() bool {
	return n.left == nil
}

// Forest is a fitted isolation forest
type Forest struct {
	trees      []*node
	sampleSize int
	dims       int
}

// Fit builds a forest over data. Every row must have the same length.
func Fit(data [][]float64, opts Options) (*Forest, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	dims := len(data[0])
	if dims == 0 {
		return nil, errors.New("iforest: samples have no features")
	}
	for i, row := range data {
		if len(row) != dims {
			return nil, fmt.Errorf("iforest: sample %d has %d features, expected %d", i, len(row), dims)
		}
	}

	trees := opts.Trees
	if trees <= 0 {
		trees = DefaultOptions().Trees
	}
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultOptions().SampleSize
	}
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(sampleSize), 2))))

	rng := rand.New(rand.NewSource(opts.Seed))
	f := &Forest{
		trees:      make([]*node, trees),
		sampleSize: sampleSize,
		dims:       dims,
	}
	for t := range f.trees {
		idx := rng.Perm(len(data))[:sampleSize]
		f.trees[t] = build(data, idx, 0, heightLimit, rng)
	}
	return f, nil
}

func build(data [][]float64, idx []int, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(idx) <= 1 {
		return &node{size: len(idx)}
	}

	dims := len(data[idx[0]])
	mins := make([]float64, dims)
	maxs := make([]float64, dims)
	for f := 0; f < dims; f++ {
		mins[f], maxs[f] = math.Inf(1), math.Inf(-1)
	}
	for _, i := range idx {
		for f, v := range data[i] {
			mins[f] = math.Min(mins[f], v)
			maxs[f] = math.Max(maxs[f], v)
		}
	}

	// Only features that still vary can split this node
	var candidates []int
	for f := 0; f < dims; f++ {
		if maxs[f] > mins[f] {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(idx)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := mins[feature] + rng.Float64()*(maxs[feature]-mins[feature])

	var left, right []int
	for _, i := range idx {
		if data[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature: feature,
		split:   split,
		left:    build(data, left, depth+1, limit, rng),
		right:   build(data, right, depth+1, limit, rng),
		size:    len(idx),
	}
}

// averagePathLength is the mean path length of an unsuccessful search in
// a binary search tree of n nodes
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

func pathLength(x []float64, n *node, depth int) float64 {
	for !n.leaf() {
		if x[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// Score returns the anomaly score of x in (0, 1]. Scores well above 0.5
// mark points that isolate quickly.
func (f *Forest) Score(x []float64) float64 {
	norm := averagePathLength(f.sampleSize)
	if norm == 0 {
		return 0.5
	}
	var total float64
	for _, tree := range f.trees {
		total += pathLength(x, tree, 0)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/norm)
}

// Scores scores every row of data
func (f *Forest) Scores(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, row := range data {
		scores[i] = f.Score(row)
	}
	return scores
}

// Threshold returns the score above which a sample counts as an outlier:
// the (1 - contamination) quantile of scores, linearly interpolated.
// A non-finite contamination yields +Inf, so no score exceeds it.
func Threshold(scores []float64, contamination float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	if math.IsNaN(contamination) || math.IsInf(contamination, 0) {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	pos := (1 - contamination) * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo, pos = 0, 0
	}
	if lo >= len(sorted) {
		lo, pos = len(sorted)-1, float64(len(sorted)-1)
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	if hi < lo {
		hi = lo
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// ValidContamination reports whether c is usable as an outlier fraction,
// that is in (0, 0.5]. NaN is rejected.
func ValidContamination(c float64) bool {
	return c > 0 && c <= 0.5
}

// Outliers fits a forest on data and returns the ascending indices of the
// samples scored strictly above the contamination threshold, along with
// every sample's score.
func Outliers(data [][]float64, opts Options) ([]int, []float64, error) {
	forest, err := Fit(data, opts)
	if err != nil {
		return nil, nil, err
	}

	contamination := opts.Contamination
	if !ValidContamination(contamination) {
		return nil, nil, fmt.Errorf("iforest: contamination must be in (0, 0.5], got %v", contamination)
	}

	scores := forest.Scores(data)
	threshold := Threshold(scores, contamination)

	var outliers []int
	for i, s := range scores {
		if s > threshold {
			outliers = append(outliers, i)
		}
	}
	return outliers, scores, nil
}
