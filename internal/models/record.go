// Package models defines the core data types shared across miwake packages.
package models

// FeatureVector is a fixed-dimensionality image embedding produced by one
// extraction method. Vectors from different methods are not comparable.
type FeatureVector []float32

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	if v == nil {
		return nil
	}
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// EmbeddingRecord is one labeled reference sample: a class label plus one
// feature vector per extraction method that was run on the sample. A record
// need not have every method populated.
type EmbeddingRecord struct {
	Class   string
	Vectors map[string]FeatureVector
}
