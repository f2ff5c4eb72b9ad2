package index

import (
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/miwake/internal/models"
)

func TestBuild_errors(t *testing.T) {
	if _, err := Build(nil, nil); !errors.Is(err, models.ErrEmptyIndex) {
		t.Errorf("empty build: got %v", err)
	}
	_, err := Build([]models.FeatureVector{{1, 0}, {1, 0, 0}}, []string{"a", "b"})
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("mismatched dims: got %v", err)
	}
	_, err = Build([]models.FeatureVector{{0, 0}}, []string{"a"})
	if !errors.Is(err, models.ErrDegenerateVector) {
		t.Errorf("zero vector: got %v", err)
	}
	_, err = Build([]models.FeatureVector{{1, 0}}, []string{"a", "b"})
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("label count mismatch: got %v", err)
	}
}

func TestBuild_doesNotMutateInput(t *testing.T) {
	vec := models.FeatureVector{3, 4}
	if _, err := Build([]models.FeatureVector{vec}, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if vec[0] != 3 || vec[1] != 4 {
		t.Errorf("input vector mutated: %v", vec)
	}
}

func TestSearch_selfSimilarity(t *testing.T) {
	vectors := []models.FeatureVector{{1, 2, 3}, {-4, 0, 1}, {0.5, 0.5, 0.5}}
	labels := []string{"a", "b", "c"}
	ix, err := Build(vectors, labels)
	if err != nil {
		t.Fatal(err)
	}
	for i, vec := range vectors {
		results, err := ix.Search(vec, 1)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Label != labels[i] {
			t.Errorf("query %d: top label %q, want %q", i, results[0].Label, labels[i])
		}
		if math.Abs(results[0].Score-1.0) > 1e-6 {
			t.Errorf("query %d: self score %v, want ~1.0", i, results[0].Score)
		}
	}
}

func TestSearch_twoClassScenario(t *testing.T) {
	ix, err := Build([]models.FeatureVector{{1, 0}, {0, 1}}, []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search(models.FeatureVector{0.9, 0.1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Label != "A" {
		t.Fatalf("top label %q, want A", results[0].Label)
	}
	if math.Abs(results[0].Score-0.994) > 0.001 {
		t.Errorf("score %v, want ~0.994", results[0].Score)
	}
}

func TestSearch_orderingAndClamp(t *testing.T) {
	ix, err := Build(
		[]models.FeatureVector{{0, 1}, {1, 0}, {1, 1}},
		[]string{"far", "near", "mid"},
	)
	if err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search(models.FeatureVector{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 (clamped to index size)", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending: %v", results)
		}
	}
	if results[0].Label != "near" || results[1].Label != "mid" || results[2].Label != "far" {
		t.Errorf("order %v", results)
	}
}

func TestSearch_deterministicTieBreak(t *testing.T) {
	// Two identical reference vectors tie exactly; insertion order decides.
	ix, err := Build(
		[]models.FeatureVector{{1, 0}, {1, 0}, {0, 1}},
		[]string{"first", "second", "other"},
	)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		results, err := ix.Search(models.FeatureVector{1, 0}, 3)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Label != "first" || results[1].Label != "second" {
			t.Fatalf("iteration %d: tie-break order changed: %v", i, results)
		}
	}
}

func TestSearch_errors(t *testing.T) {
	ix, err := Build([]models.FeatureVector{{1, 0}}, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Search(models.FeatureVector{1, 0, 0}, 1); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("dimension guard: got %v", err)
	}
	if _, err := ix.Search(models.FeatureVector{0, 0}, 1); !errors.Is(err, models.ErrDegenerateVector) {
		t.Errorf("degenerate query: got %v", err)
	}
	if _, err := ix.Search(models.FeatureVector{1, 0}, 0); err == nil {
		t.Error("k=0 should be an error")
	}
}

func TestSearch_negativeSimilarity(t *testing.T) {
	ix, err := Build([]models.FeatureVector{{1, 0}}, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	results, err := ix.Search(models.FeatureVector{-1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(results[0].Score+1.0) > 1e-6 {
		t.Errorf("opposite vector score %v, want ~-1.0", results[0].Score)
	}
}
