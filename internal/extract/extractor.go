// Package extract provides image feature extraction, one implementation per
// named method (e.g. "vit", "dinov2").
package extract

import (
	"context"
	"sort"

	"github.com/hyperjump/miwake/internal/imaging"
	"github.com/hyperjump/miwake/internal/models"
)

// Extractor produces a feature vector for a decoded image. Implementations
// must return vectors of a fixed dimensionality, consistent across calls
// for the same method.
type Extractor interface {
	Extract(ctx context.Context, img *imaging.RGBImage) (models.FeatureVector, error)
	Method() string
	Dimensions() int
	Close() error
}

// Registry holds the configured extractors keyed by method name. It is
// built once at process start and passed as an explicit dependency into the
// ingestion pipeline and the server.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Register adds e under its method name, replacing any previous extractor
// for that method.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Method()] = e
}

// Get returns the extractor for method, if registered.
func (r *Registry) Get(method string) (Extractor, bool) {
	e, ok := r.extractors[method]
	return e, ok
}

// Methods returns the registered method names in sorted order.
func (r *Registry) Methods() []string {
	methods := make([]string, 0, len(r.extractors))
	for method := range r.extractors {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// Close closes every registered extractor, returning the first error.
func (r *Registry) Close() error {
	var firstErr error
	for _, e := range r.extractors {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
