// Package classify turns a query embedding into a labeled decision by
// searching a similarity index derived from the embedding store.
package classify

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/miwake/internal/index"
	"github.com/hyperjump/miwake/internal/models"
	"github.com/hyperjump/miwake/internal/store"
)

// Classifier answers classification queries against a store. Derived
// similarity indexes are cached keyed by store fingerprint and method, so
// repeated queries against an unchanged store skip the rebuild; a merge or
// reload changes the fingerprint and the stale entries are dropped on the
// next build. Safe for concurrent use.
type Classifier struct {
	mu     sync.RWMutex
	cache  map[string]*index.Index
	logger *zap.Logger // optional; when set, logs index builds
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets a logger for debug output (index builds, cache drops).
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// NewClassifier creates a classifier with an empty index cache.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{cache: make(map[string]*index.Index)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the class label of the reference vector most similar to
// query among records of st with method populated, plus the raw cosine
// similarity of that match. No confidence threshold is applied: the caller
// decides whether to reject low scores. Fails with models.ErrNoReferenceData
// when no record has the method.
func (c *Classifier) Classify(query models.FeatureVector, st *store.Store, method string) (string, float64, error) {
	ix, err := c.indexFor(st, method)
	if err != nil {
		return "", 0, err
	}
	results, err := ix.Search(query, 1)
	if err != nil {
		return "", 0, err
	}
	return results[0].Label, results[0].Score, nil
}

// indexFor returns the cached index for (store fingerprint, method),
// building it on miss. Entries for other fingerprints are evicted on
// insert: they belong to store snapshots that are no longer queried.
func (c *Classifier) indexFor(st *store.Store, method string) (*index.Index, error) {
	key := st.Fingerprint() + "\x00" + method

	c.mu.RLock()
	ix, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return ix, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ix, ok := c.cache[key]; ok {
		return ix, nil
	}
	vectors, labels := st.VectorsFor(method)
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrNoReferenceData, method)
	}
	ix, err := index.Build(vectors, labels)
	if err != nil {
		return nil, fmt.Errorf("build index for %q: %w", method, err)
	}
	prefix := st.Fingerprint() + "\x00"
	for k := range c.cache {
		if !strings.HasPrefix(k, prefix) {
			delete(c.cache, k)
		}
	}
	c.cache[key] = ix
	if c.logger != nil {
		c.logger.Debug("similarity index built",
			zap.String("method", method),
			zap.Int("size", ix.Size()),
			zap.Int("dimensions", ix.Dimensions()))
	}
	return ix, nil
}

// Invalidate drops every cached index. The store watcher calls this after
// swapping in a reloaded snapshot.
func (c *Classifier) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*index.Index)
}

// CacheSize returns the number of cached indexes.
func (c *Classifier) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
