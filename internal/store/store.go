// Package store persists the labeled embedding reference set as a tabular
// text file: a header row of "class" plus one column per extraction method,
// then one row per record with vector cells in canonical text form.
package store

import (
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/miwake/internal/models"
)

// Store is an ordered, deduplicated collection of embedding records. It is
// the single source of truth for the classification reference set: mutated
// only through Merge (which returns a new store), read-only during
// inference, safe for concurrent reads.
type Store struct {
	records     []models.EmbeddingRecord
	methods     []string
	fingerprint string
}

// New builds a store over records. Method columns are the sorted union of
// method names across all records.
func New(records []models.EmbeddingRecord) *Store {
	s := &Store{records: records}
	s.methods = methodUnion(records)
	s.fingerprint = computeFingerprint(records, s.methods)
	return s
}

// Load reads and parses the store file at path. A row whose vector cell
// cannot be parsed, a method column with inconsistent dimensionality, or a
// missing class column fails with an error wrapping models.ErrStoreCorrupt.
// A missing file is reported as-is (callers may start from an empty store).
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", models.ErrStoreCorrupt, err)
	}

	classCol := -1
	methodCols := make(map[int]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "class" {
			classCol = i
			continue
		}
		if name != "" {
			methodCols[i] = name
		}
	}
	if classCol < 0 {
		return nil, fmt.Errorf("%w: missing class column", models.ErrStoreCorrupt)
	}

	var records []models.EmbeddingRecord
	dims := make(map[string]int, len(methodCols))
	for rowNum := 2; ; rowNum++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", models.ErrStoreCorrupt, rowNum, err)
		}
		rec := models.EmbeddingRecord{
			Class:   row[classCol],
			Vectors: make(map[string]models.FeatureVector, len(methodCols)),
		}
		for col, method := range methodCols {
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			vec, err := DecodeVector(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", models.ErrStoreCorrupt, rowNum, method, err)
			}
			if want, ok := dims[method]; ok && want != len(vec) {
				return nil, fmt.Errorf("%w: row %d column %q: dimension %d, earlier rows have %d",
					models.ErrStoreCorrupt, rowNum, method, len(vec), want)
			}
			dims[method] = len(vec)
			rec.Vectors[method] = vec
		}
		records = append(records, rec)
	}
	return New(records), nil
}

// Merge returns a new store holding the union of the existing records and
// newRecords with exact duplicates removed. A record is a duplicate iff its
// label and the canonical textual form of every vector match an earlier
// record exactly. Dedup is global (append first, then drop repeats across
// the whole sequence), so duplicates that predate the merge are removed too
// and merging the same batch twice yields the same store as merging it once.
func (s *Store) Merge(newRecords []models.EmbeddingRecord) *Store {
	combined := make([]models.EmbeddingRecord, 0, len(s.records)+len(newRecords))
	combined = append(combined, s.records...)
	combined = append(combined, newRecords...)

	methods := methodUnion(combined)
	seen := make(map[string]struct{}, len(combined))
	deduped := combined[:0:0]
	for _, rec := range combined {
		key := recordKey(rec, methods)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, rec)
	}
	return New(deduped)
}

// Save writes the store to path in canonical form, overwriting any previous
// file. Save is the only operation that writes the store file.
func (s *Store) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"class"}, s.methods...)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, 1+len(s.methods))
	for _, rec := range s.records {
		row[0] = rec.Class
		for i, method := range s.methods {
			if vec, ok := rec.Vectors[method]; ok {
				row[i+1] = EncodeVector(vec)
			} else {
				row[i+1] = ""
			}
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush store: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close store file: %w", err)
	}
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Records returns the record slice. Callers must treat it as read-only.
func (s *Store) Records() []models.EmbeddingRecord { return s.records }

// Methods returns the method column names in canonical (sorted) order.
func (s *Store) Methods() []string {
	return append([]string(nil), s.methods...)
}

// Fingerprint identifies the store contents: record count plus a hash of
// the canonical serialization. Two stores with equal record sets in equal
// order share a fingerprint; any merge or reload that changes content
// changes it. Used to key derived similarity indexes.
func (s *Store) Fingerprint() string { return s.fingerprint }

// VectorsFor returns the vectors and parallel class labels of every record
// with method populated, in store order.
func (s *Store) VectorsFor(method string) ([]models.FeatureVector, []string) {
	var vectors []models.FeatureVector
	var labels []string
	for _, rec := range s.records {
		if vec, ok := rec.Vectors[method]; ok {
			vectors = append(vectors, vec)
			labels = append(labels, rec.Class)
		}
	}
	return vectors, labels
}

func methodUnion(records []models.EmbeddingRecord) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		for method := range rec.Vectors {
			set[method] = struct{}{}
		}
	}
	methods := make([]string, 0, len(set))
	for method := range set {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// recordKey is the exact-duplicate identity of a record: the label plus the
// canonical cell text of every method column (empty when absent).
func recordKey(rec models.EmbeddingRecord, methods []string) string {
	var b strings.Builder
	b.WriteString(rec.Class)
	for _, method := range methods {
		b.WriteByte(0)
		if vec, ok := rec.Vectors[method]; ok {
			b.WriteString(EncodeVector(vec))
		}
	}
	return b.String()
}

func computeFingerprint(records []models.EmbeddingRecord, methods []string) string {
	h := sha256.New()
	for _, rec := range records {
		_, _ = io.WriteString(h, recordKey(rec, methods))
		_, _ = h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%d-%x", len(records), h.Sum(nil))
}
