// Package rank converts raw classifier scores into probabilities and a ranking.
package rank

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chewxy/math32"
)

// Sentinel errors for invalid score vectors.
var (
	ErrEmptyScores = errors.New("rank: empty score vector")
	ErrNonFinite   = errors.New("rank: non-finite score")
)

// Result holds the softmax probabilities and the class indices sorted by
// descending probability. Equal probabilities keep ascending index order.
type Result struct {
	Probabilities []float32
	Indices       []int
}

// Rank applies softmax to scores and sorts the class indices.
// scores is not modified.
func Rank(scores []float32) (Result, error) {
	probs, err := Softmax(scores)
	if err != nil {
		return Result{}, err
	}
	return Result{Probabilities: probs, Indices: Argsort(probs)}, nil
}

// Softmax returns exp(s_i - max) / Σ exp(s_j - max).
// Subtracting the max keeps large logits from overflowing.
func Softmax(scores []float32) ([]float32, error) {
	if len(scores) == 0 {
		return nil, ErrEmptyScores
	}
	maxScore := scores[0]
	for i, s := range scores {
		if math32.IsNaN(s) || math32.IsInf(s, 0) {
			return nil, fmt.Errorf("%w at index %d: %v", ErrNonFinite, i, s)
		}
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float32, len(scores))
	var sum float32
	for i, s := range scores {
		probs[i] = math32.Exp(s - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// Argsort returns indices ordered by descending value, stable on ties.
func Argsort(values []float32) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	return idx
}

// Len returns the number of classes.
func (r Result) Len() int {
	return len(r.Probabilities)
}

// Top returns the first min(k, N) ranked indices.
func (r Result) Top(k int) []int {
	if k < 0 {
		k = 0
	}
	if k > len(r.Indices) {
		k = len(r.Indices)
	}
	return r.Indices[:k]
}

// Best returns the most probable class and its probability.
// It returns -1 for an empty result.
func (r Result) Best() (int, float32) {
	if len(r.Indices) == 0 {
		return -1, 0
	}
	i := r.Indices[0]
	return i, r.Probabilities[i]
}
