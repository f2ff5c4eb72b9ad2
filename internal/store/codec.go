package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/miwake/internal/models"
)

// EncodeVector renders v in the canonical store cell form: components in
// shortest round-trip decimal form, space separated, bracket delimited.
// Parsing the result with DecodeVector reproduces the exact float32 values.
func EncodeVector(v models.FeatureVector) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var bracketStripper = strings.NewReplacer("[", " ", "]", " ")

// DecodeVector parses a store cell into a vector. Brackets are optional and
// any whitespace run (including newlines from older array-to-string
// writers) separates components, so legacy cells still parse. An empty
// cell, a non-numeric component, or a NaN/Inf component is an error.
func DecodeVector(cell string) (models.FeatureVector, error) {
	fields := strings.Fields(bracketStripper.Replace(cell))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector cell")
	}
	vec := make(models.FeatureVector, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("component %d: non-finite value %q", i, f)
		}
		vec[i] = float32(x)
	}
	return vec, nil
}
