package extract

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/hyperjump/miwake/internal/imaging"
	"github.com/hyperjump/miwake/internal/models"
	"github.com/hyperjump/miwake/pkg/utils"
)

// MockExtractor is a deterministic extractor for tests and for running the
// service without model files. It derives a unit-norm vector from a hash of
// the pixel data, so the same image always gets the same embedding.
type MockExtractor struct {
	method     string
	dimensions int
}

// NewMockExtractor returns a mock extractor for the given method name and
// dimensionality.
func NewMockExtractor(method string, dimensions int) *MockExtractor {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockExtractor{method: method, dimensions: dimensions}
}

// Extract returns a deterministic embedding derived from the image content.
func (e *MockExtractor) Extract(ctx context.Context, img *imaging.RGBImage) (models.FeatureVector, error) {
	h := hashPixels(img)
	vec := make(models.FeatureVector, e.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(h%10000)*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// Method returns the method name this mock stands in for.
func (e *MockExtractor) Method() string { return e.method }

// Dimensions returns the embedding dimension.
func (e *MockExtractor) Dimensions() int { return e.dimensions }

// Close is a no-op for MockExtractor.
func (e *MockExtractor) Close() error { return nil }

func hashPixels(img *imaging.RGBImage) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, v := range img.Pix {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
