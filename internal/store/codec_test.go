package store

import (
	"math"
	"testing"

	"github.com/hyperjump/miwake/internal/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vec := models.FeatureVector{1, -0.5, 0.1234567, 3.1415927, 1e-7, -2.5e6}
	decoded, err := DecodeVector(EncodeVector(vec))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(vec) {
		t.Fatalf("length %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("component %d: %v != %v", i, decoded[i], vec[i])
		}
	}
}

func TestDecodeVector_legacyFormats(t *testing.T) {
	cases := []string{
		"[0.5 1 -0.25]",
		"0.5 1 -0.25",
		"[ 0.5  1\n -0.25 ]",
		"  [0.5 1 -0.25]  ",
	}
	for _, cell := range cases {
		vec, err := DecodeVector(cell)
		if err != nil {
			t.Fatalf("cell %q: %v", cell, err)
		}
		want := models.FeatureVector{0.5, 1, -0.25}
		for i := range want {
			if vec[i] != want[i] {
				t.Errorf("cell %q component %d: %v, want %v", cell, i, vec[i], want[i])
			}
		}
	}
}

func TestDecodeVector_rejectsBadCells(t *testing.T) {
	for _, cell := range []string{"", "[]", "[1 two 3]", "[NaN]", "[Inf]", "[-Inf 1]"} {
		if _, err := DecodeVector(cell); err == nil {
			t.Errorf("cell %q: expected error", cell)
		}
	}
}

func TestEncodeVector_exactFloat32(t *testing.T) {
	// A value with no short decimal form must still survive the trip.
	v := models.FeatureVector{float32(math.Pi), float32(1.0 / 3.0)}
	decoded, err := DecodeVector(EncodeVector(v))
	if err != nil {
		t.Fatal(err)
	}
	if decoded[0] != v[0] || decoded[1] != v[1] {
		t.Errorf("round trip changed values: %v -> %v", v, decoded)
	}
}
