package index

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/logger"
	"golang.org/x/sync/errgroup"
)

// Group holds the records one builder associated with one raw key.
type Group []db.Record

// Index maps normalized terms to postings groups. An Index is immutable once
// it has been published by a rebuild.
type Index struct {
	name  string
	terms map[string][]Group
}

func newIndex(name string) *Index {
	return &Index{name: name, terms: make(map[string][]Group)}
}

func (i *Index) Name() string {
	return i.name
}

// Lookup returns the groups stored under an already normalized term.
func (i *Index) Lookup(term string) ([]Group, bool) {
	groups, ok := i.terms[term]
	return groups, ok
}

// Terms returns the normalized terms in lexical order.
func (i *Index) Terms() []string {
	return slices.Sorted(maps.Keys(i.terms))
}

func (i *Index) Len() int {
	return len(i.terms)
}

// merge appends one group per raw key under the key's normalized term.
func (i *Index) merge(result *BuildResult) {
	for _, rawKey := range result.Keys() {
		records, _ := result.Get(rawKey)
		term := Normalize(rawKey)
		i.terms[term] = append(i.terms[term], Group(slices.Clone(records)))
	}
}

// IndexSpec names an index, the builder that populates it and, optionally,
// the comparator ListKeys sorts its terms with.
type IndexSpec struct {
	Name    string
	Builder Builder
	Sort    Comparator
}

// Registry owns the published indexes. Rebuilds construct fresh indexes and
// swap them in only when every builder succeeded.
type Registry struct {
	logger logger.Logger

	mu          sync.RWMutex
	indexes     map[string]*Index
	comparators map[string]Comparator
	generation  uint64
}

func NewRegistry(logger logger.Logger) *Registry {
	return &Registry{
		logger:      logger,
		indexes:     make(map[string]*Index),
		comparators: make(map[string]Comparator),
	}
}

// Rebuild runs every spec's builder against records and publishes the
// results. On failure the previously published indexes stay in place.
func (r *Registry) Rebuild(records db.Collection, specs []IndexSpec) (*BuildReport, error) {
	if err := checkSpecs(specs); err != nil {
		r.logger.Error("invalid index specs", "err", err.Error())
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		r.logger.Error("failed to generate build id", "err", err.Error())
		return nil, fmt.Errorf("failed to generate build id: %w", err)
	}

	report := &BuildReport{
		ID:        id.String(),
		StartedAt: time.Now().UTC(),
		Records:   len(records),
	}
	r.logger.Info("rebuilding indexes", "build_id", report.ID, "indexes", len(specs), "records", len(records))

	results := make([]*BuildResult, len(specs))
	var group errgroup.Group
	for i, spec := range specs {
		group.Go(func() error {
			result, err := runBuilder(spec, records)
			if err != nil {
				r.logger.Error("index builder failed", "build_id", report.ID, "index", spec.Name, "builder", spec.Builder.Name(), "err", err.Error())
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to rebuild indexes: %w", err)
	}

	fresh := make(map[string]*Index, len(specs))
	comparators := make(map[string]Comparator, len(specs))
	for i, spec := range specs {
		index := newIndex(spec.Name)
		index.merge(results[i])
		fresh[spec.Name] = index
		if spec.Sort != nil {
			comparators[spec.Name] = spec.Sort
		}

		skipped := results[i].Skipped()
		for _, skip := range skipped {
			r.logger.Debug("record skipped", "build_id", report.ID, "index", spec.Name, "key", skip.Key, "reason", skip.Reason)
		}
		report.Indexes = append(report.Indexes, IndexReport{
			Name:    spec.Name,
			Builder: spec.Builder.Name(),
			RawKeys: results[i].Len(),
			Terms:   index.Len(),
			Skipped: skipped,
		})
	}

	r.mu.Lock()
	r.indexes = fresh
	r.comparators = comparators
	r.generation++
	report.Generation = r.generation
	r.mu.Unlock()

	report.Duration = time.Since(report.StartedAt)
	r.logger.Info("rebuilt indexes", "build_id", report.ID, "generation", report.Generation, "skipped", report.SkippedCount(), "duration", report.Duration.String())

	return report, nil
}

func runBuilder(spec IndexSpec, records db.Collection) (result *BuildResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &db.BuilderFaultError{Index: spec.Name, Builder: spec.Builder.Name(), Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	result, err = spec.Builder.Build(records)
	if err != nil {
		return nil, &db.BuilderFaultError{Index: spec.Name, Builder: spec.Builder.Name(), Err: err}
	}
	if result == nil {
		result = NewBuildResult()
	}
	return result, nil
}

func checkSpecs(specs []IndexSpec) error {
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return &db.ConfigurationError{Field: "name", Reason: "index name cannot be empty"}
		}
		if spec.Builder == nil {
			return &db.ConfigurationError{Field: "builder", Reason: fmt.Sprintf("index %s has no builder", spec.Name)}
		}
		if _, ok := seen[spec.Name]; ok {
			return &db.ConfigurationError{Field: "name", Reason: fmt.Sprintf("duplicate index %s", spec.Name)}
		}
		seen[spec.Name] = struct{}{}
	}
	return nil
}

func (r *Registry) Index(name string) (*Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	index, ok := r.indexes[name]
	return index, ok
}

// Names returns the published index names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.indexes))
}

func (r *Registry) Comparator(name string) (Comparator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comparator, ok := r.comparators[name]
	return comparator, ok
}

// Generation increases every time a rebuild or reset is published.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes = make(map[string]*Index)
	r.comparators = make(map[string]Comparator)
	r.generation++
}
