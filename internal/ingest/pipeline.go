// Package ingest builds the embedding reference set from a labeled image
// tree: each immediate subdirectory of the root is a class label, each
// image file inside it one sample.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/miwake/internal/extract"
	"github.com/hyperjump/miwake/internal/imaging"
	"github.com/hyperjump/miwake/internal/models"
	"github.com/hyperjump/miwake/internal/store"
)

var defaultExtensions = []string{".jpg", ".jpeg", ".png"}

// Pipeline extracts embeddings from a labeled image tree and merges them
// into the persisted store. By default it is best-effort: a sample that
// cannot be read, decoded, or embedded is logged and skipped; with
// WithStrict the first such failure aborts the run. Ingestion runs must be
// serialized (single writer) and never overlap a Load of the same store
// file.
type Pipeline struct {
	extractors *extract.Registry
	storePath  string
	extensions []string
	strict     bool
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStrict makes the pipeline abort on the first sample failure instead
// of skipping it.
func WithStrict(strict bool) Option {
	return func(p *Pipeline) { p.strict = strict }
}

// WithExtensions overrides the recognized image extensions (default .jpg,
// .jpeg, .png). Extensions are matched case-insensitively.
func WithExtensions(exts []string) Option {
	return func(p *Pipeline) {
		if len(exts) > 0 {
			p.extensions = exts
		}
	}
}

// WithLogger sets a logger for run progress and skipped-sample warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline writing to storePath using the extractors
// in reg (one vector per registered method for every sample).
func NewPipeline(reg *extract.Registry, storePath string, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractors: reg,
		storePath:  storePath,
		extensions: defaultExtensions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest walks imageRoot, extracts an embedding per registered method for
// every recognized image, merges the new records into existing (or an empty
// store when nil), saves the merged store, and returns it.
func (p *Pipeline) Ingest(ctx context.Context, imageRoot string, existing *store.Store) (*store.Store, error) {
	runID := uuid.New().String()
	if p.logger != nil {
		p.logger.Info("ingest run starting",
			zap.String("run_id", runID),
			zap.String("image_root", imageRoot),
			zap.Strings("methods", p.extractors.Methods()),
			zap.Bool("strict", p.strict))
	}

	classDirs, err := os.ReadDir(imageRoot)
	if err != nil {
		return nil, fmt.Errorf("read image root: %w", err)
	}

	var records []models.EmbeddingRecord
	var skipped int
	for _, classDir := range classDirs {
		if !classDir.IsDir() {
			continue
		}
		class := classDir.Name()
		files, err := os.ReadDir(filepath.Join(imageRoot, class))
		if err != nil {
			return nil, fmt.Errorf("read class dir %q: %w", class, err)
		}
		for _, file := range files {
			if file.IsDir() || !p.recognized(file.Name()) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			path := filepath.Join(imageRoot, class, file.Name())
			rec, err := p.sample(ctx, class, path)
			if err != nil {
				if p.strict {
					return nil, fmt.Errorf("sample %q: %w", path, err)
				}
				skipped++
				if p.logger != nil {
					p.logger.Warn("sample skipped",
						zap.String("run_id", runID),
						zap.String("path", path),
						zap.Error(err))
				}
				continue
			}
			records = append(records, rec)
		}
	}

	if existing == nil {
		existing = store.New(nil)
	}
	merged := existing.Merge(records)
	if err := merged.Save(p.storePath); err != nil {
		return nil, fmt.Errorf("save store: %w", err)
	}
	if p.logger != nil {
		p.logger.Info("ingest run finished",
			zap.String("run_id", runID),
			zap.Int("samples", len(records)),
			zap.Int("skipped", skipped),
			zap.Int("store_records", merged.Len()))
	}
	return merged, nil
}

// sample reads and decodes one image and runs every registered extractor on it.
func (p *Pipeline) sample(ctx context.Context, class, path string) (models.EmbeddingRecord, error) {
	rec := models.EmbeddingRecord{Class: class}
	buf, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read: %w", err)
	}
	img, err := imaging.Decode(buf)
	if err != nil {
		return rec, err
	}
	rec.Vectors = make(map[string]models.FeatureVector)
	for _, method := range p.extractors.Methods() {
		ext, _ := p.extractors.Get(method)
		vec, err := ext.Extract(ctx, img)
		if err != nil {
			return rec, fmt.Errorf("%w: %s: %v", models.ErrExtraction, method, err)
		}
		rec.Vectors[method] = vec
	}
	return rec, nil
}

func (p *Pipeline) recognized(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range p.extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
