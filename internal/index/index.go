// Package index provides exact top-k cosine similarity search over a fixed
// set of reference vectors. Reference vectors and queries are L2-normalized
// so the inner product equals cosine similarity.
package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/miwake/internal/models"
)

// Result is a single search hit: the label of a reference vector and its
// cosine similarity to the query, in [-1, 1].
type Result struct {
	Label string
	Score float64
}

// Index holds normalized copies of one extraction method's reference
// vectors with parallel labels. It is a derived, disposable view over the
// store: rebuild it when the store changes, never persist it. Immutable
// after Build, so concurrent Search calls are safe.
type Index struct {
	dim     int
	labels  []string
	vectors [][]float32
}

// Build constructs an index from vectors and parallel labels. It fails with
// models.ErrEmptyIndex when vectors is empty, models.ErrDimensionMismatch
// when lengths are inconsistent, and models.ErrDegenerateVector when a
// vector has zero norm. Inputs are copied, not retained.
func Build(vectors []models.FeatureVector, labels []string) (*Index, error) {
	if len(vectors) == 0 {
		return nil, models.ErrEmptyIndex
	}
	if len(labels) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors, %d labels", models.ErrDimensionMismatch, len(vectors), len(labels))
	}
	dim := len(vectors[0])
	ix := &Index{
		dim:     dim,
		labels:  append([]string(nil), labels...),
		vectors: make([][]float32, len(vectors)),
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d",
				models.ErrDimensionMismatch, i, len(vec), dim)
		}
		normalized, err := normalize(vec)
		if err != nil {
			return nil, fmt.Errorf("vector %d (%s): %w", i, labels[i], err)
		}
		ix.vectors[i] = normalized
	}
	return ix, nil
}

// Search returns the min(k, Size()) reference entries most similar to
// query, in strictly descending score order. Equal scores keep insertion
// order (stable sort), so repeated calls return identical results. The scan
// is exact: every reference vector is compared.
func (ix *Index) Search(query models.FeatureVector, k int) ([]Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			models.ErrDimensionMismatch, len(query), ix.dim)
	}
	q, err := normalize(query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	results := make([]Result, len(ix.vectors))
	for i, vec := range ix.vectors {
		var dot float64
		for j := 0; j < ix.dim; j++ {
			dot += float64(q[j]) * float64(vec[j])
		}
		results[i] = Result{Label: ix.labels[i], Score: dot}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Size returns the number of reference vectors.
func (ix *Index) Size() int { return len(ix.vectors) }

// Dimensions returns the vector dimensionality of the index.
func (ix *Index) Dimensions() int { return ix.dim }

// normalize returns a unit-norm copy of v, or models.ErrDegenerateVector
// when the norm is zero or not finite.
func normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, models.ErrDegenerateVector
	}
	out := make([]float32, len(v))
	inv := float32(1.0 / norm)
	for i, x := range v {
		out[i] = x * inv
	}
	return out, nil
}
